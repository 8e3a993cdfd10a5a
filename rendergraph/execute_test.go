// Copyright 2024 The Raven-Engine authors. All rights reserved.

package rendergraph

import "testing"

func TestPrepareExecuteReusesPooledResourceOverCreatingNew(t *testing.T) {
	pool := NewTransientPool()

	b := NewBuilder(nil)
	h := b.NewResource(imageResourceDesc())
	p := b.AddPass("write")
	p.RasterWrite(h, AccessColorAttachmentWrite)
	p.Finish()

	g, err := Compile(b, nil)
	if err != nil {
		t.Fatal(err)
	}

	// Prime the pool with the exact descriptor (including the usage
	// flags the compiler will have accumulated) PrepareExecute will
	// look up.
	primedDesc := imageResourceDesc().Image
	primedDesc.Usage = g.FinalImageUsage(h.slot)
	pooled := &fakeImage{id: 777}
	pool.StoreImage(primedDesc, pooled)

	gpu := &countingGPU{}
	eg, err := PrepareExecute(g, gpu, pool)
	if err != nil {
		t.Fatal(err)
	}
	if eg.compiled.resources[h.slot].image != pooled {
		t.Fatal("PrepareExecute: did not reuse the pooled image, created a new one instead")
	}
	if gpu.nextImageID != 0 {
		t.Fatalf("PrepareExecute: unexpectedly created a new image (id %d) when a pooled one was available", gpu.nextImageID)
	}
}

func TestPrepareExecuteCreatesNewResourceWhenPoolEmpty(t *testing.T) {
	pool := NewTransientPool()
	b := NewBuilder(nil)
	h := b.NewResource(imageResourceDesc())
	p := b.AddPass("write")
	p.RasterWrite(h, AccessColorAttachmentWrite)
	p.Finish()

	g, err := Compile(b, nil)
	if err != nil {
		t.Fatal(err)
	}
	gpu := &countingGPU{}
	eg, err := PrepareExecute(g, gpu, pool)
	if err != nil {
		t.Fatal(err)
	}
	if eg.compiled.resources[h.slot].image == nil {
		t.Fatal("PrepareExecute: resource image was never created")
	}
	if gpu.nextImageID != 1 {
		t.Fatalf("gpu.nextImageID:\nhave %d\nwant 1", gpu.nextImageID)
	}
}

func TestExecutingGraphRetireReturnsCreatedResourceToPoolUnlessExported(t *testing.T) {
	pool := NewTransientPool()
	b := NewBuilder(nil)
	kept := b.NewResource(imageResourceDesc())
	exported := b.NewResource(imageResourceDesc())

	p := b.AddPass("write")
	keptW := p.RasterWrite(kept, AccessColorAttachmentWrite)
	expW := p.RasterWrite(exported, AccessColorAttachmentWrite)
	p.Finish()
	b.Export(expW, AccessColorAttachmentRead)
	_ = keptW

	g, err := Compile(b, nil)
	if err != nil {
		t.Fatal(err)
	}
	gpu := &countingGPU{}
	eg, err := PrepareExecute(g, gpu, pool)
	if err != nil {
		t.Fatal(err)
	}

	kepImg := eg.compiled.resources[kept.slot].image

	final := eg.Retire()
	if final[kept.slot] != AccessNone {
		t.Fatalf("Retire: final[kept]:\nhave %d\nwant AccessNone (never transitioned by Retire itself)", final[kept.slot])
	}

	// Retire must store Created resources under the same
	// usage-augmented descriptor PrepareExecute looks up with, or the
	// pool can never match them back up (see rendergraph/execute.go's
	// Retire).
	lookupDesc := imageResourceDesc().Image
	lookupDesc.Usage = g.FinalImageUsage(kept.slot)
	got, ok := pool.GetImage(lookupDesc)
	if !ok {
		t.Fatal("Retire: non-exported Created image was not returned to the pool under its usage-augmented descriptor")
	}
	if got != kepImg {
		t.Fatal("Retire: pool returned a different image than the one the graph created")
	}
	if _, ok := pool.GetImage(lookupDesc); ok {
		t.Fatal("Retire: exported resource's image was incorrectly also returned to the pool")
	}
}

// TestExecutingGraphRetireRoundTripsThroughPoolAcrossFrames drives a
// Created resource through a full store (Retire) -> fetch
// (PrepareExecute) cycle across two simulated frames, the scenario
// the usage-key asymmetry broke: a resource stored by frame N's
// Retire must be found by frame N+1's PrepareExecute.
func TestExecutingGraphRetireRoundTripsThroughPoolAcrossFrames(t *testing.T) {
	pool := NewTransientPool()
	gpu := &countingGPU{}

	build := func() *CompiledGraph {
		b := NewBuilder(nil)
		h := b.NewResource(imageResourceDesc())
		p := b.AddPass("write")
		p.RasterWrite(h, AccessColorAttachmentWrite)
		p.Finish()
		g, err := Compile(b, nil)
		if err != nil {
			t.Fatal(err)
		}
		return g
	}

	g1 := build()
	eg1, err := PrepareExecute(g1, gpu, pool)
	if err != nil {
		t.Fatal(err)
	}
	firstImage := eg1.compiled.resources[0].image
	eg1.Retire()
	if gpu.nextImageID != 1 {
		t.Fatalf("frame 1: gpu.nextImageID:\nhave %d\nwant 1 (one allocation)", gpu.nextImageID)
	}

	g2 := build()
	eg2, err := PrepareExecute(g2, gpu, pool)
	if err != nil {
		t.Fatal(err)
	}
	if eg2.compiled.resources[0].image != firstImage {
		t.Fatal("frame 2: PrepareExecute did not reuse frame 1's retired image from the pool")
	}
	if gpu.nextImageID != 1 {
		t.Fatalf("frame 2: gpu.nextImageID:\nhave %d\nwant 1 (no new allocation, pool hit)", gpu.nextImageID)
	}
}
