// Copyright 2024 The Raven-Engine authors. All rights reserved.

package rendergraph

import (
	"errors"
	"testing"

	"github.com/raven/rendergraph/driver"
)

type fakeShaderCode struct{}

func (fakeShaderCode) Destroy() {}

type fakePipeline struct {
	destroyed *bool
}

func (p fakePipeline) Destroy() {
	if p.destroyed != nil {
		*p.destroyed = true
	}
}

type fakeGPU struct{}

func (fakeGPU) Driver() driver.Driver                       { return nil }
func (fakeGPU) Commit(cb []driver.CmdBuffer, ch chan<- error) {}
func (fakeGPU) NewCmdBuffer() (driver.CmdBuffer, error)      { return &fakeCmdBuffer{}, nil }
func (fakeGPU) NewRenderPass([]driver.Attachment, []driver.Subpass) (driver.RenderPass, error) {
	return nil, nil
}
func (fakeGPU) NewShaderCode(data []byte) (driver.ShaderCode, error) { return fakeShaderCode{}, nil }
func (fakeGPU) NewDescHeap([]driver.Descriptor) (driver.DescHeap, error)  { return nil, nil }
func (fakeGPU) NewDescTable([]driver.DescHeap) (driver.DescTable, error) { return nil, nil }
func (fakeGPU) NewPipeline(state any) (driver.Pipeline, error)           { return fakePipeline{}, nil }
func (fakeGPU) NewBuffer(size int64, visible bool, usg driver.Usage) (driver.Buffer, error) {
	return nil, nil
}
func (fakeGPU) NewImage(pf driver.PixelFmt, size driver.Dim3D, layers, levels, samples int, usg driver.Usage) (driver.Image, error) {
	return nil, nil
}
func (fakeGPU) NewSampler(*driver.Sampling) (driver.Sampler, error) { return nil, nil }
func (fakeGPU) Limits() driver.Limits                               { return driver.Limits{} }

var _ driver.GPU = fakeGPU{}

// stubCompiler returns a fixed payload per call, counting invocations
// so tests can assert on the shaderCache's memoization. freshness maps
// a source path to the freshness proof SourceFreshness reports for
// it, letting a test simulate an edit by changing the mapped value; a
// path with no entry reports a stable, empty proof.
type stubCompiler struct {
	calls     int
	fail      bool
	freshness map[string]string
}

func (c *stubCompiler) Compile(stage ShaderStageDesc) ([]byte, error) {
	c.calls++
	if c.fail {
		return nil, errors.New("compile failed")
	}
	return []byte(stage.Source), nil
}

func (c *stubCompiler) SourceFreshness(stage ShaderStageDesc) (string, error) {
	return c.freshness[stage.Source], nil
}

func TestPipelineCacheRegisterDedupesIdenticalDescs(t *testing.T) {
	c := NewPipelineCache(2, &stubCompiler{})
	desc := &ComputePipelineDesc{Stage: ShaderStageDesc{Source: "a.hlsl", Entry: "main"}}

	h1, err := c.Register(PipelineRegistration{Kind: PipelineCompute, Desc: desc})
	if err != nil {
		t.Fatal(err)
	}
	h2, err := c.Register(PipelineRegistration{Kind: PipelineCompute, Desc: &ComputePipelineDesc{
		Stage: ShaderStageDesc{Source: "a.hlsl", Entry: "main"},
	}})
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Fatalf("Register: identical descs:\nhave distinct handles %+v, %+v\nwant equal", h1, h2)
	}

	h3, err := c.Register(PipelineRegistration{Kind: PipelineCompute, Desc: &ComputePipelineDesc{
		Stage: ShaderStageDesc{Source: "b.hlsl", Entry: "main"},
	}})
	if err != nil {
		t.Fatal(err)
	}
	if h3 == h1 {
		t.Fatal("Register: distinct descs produced the same handle")
	}
}

func TestPipelineCacheCompileCreatesAndCachesCompiledShader(t *testing.T) {
	compiler := &stubCompiler{}
	c := NewPipelineCache(2, compiler)
	desc := &ComputePipelineDesc{Stage: ShaderStageDesc{Source: "shared.hlsl", Entry: "main"}}

	h1, err := c.Register(PipelineRegistration{Kind: PipelineCompute, Desc: desc})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.ParallelCompileAndCreate(fakeGPU{}); err != nil {
		t.Fatal(err)
	}
	if c.Pipeline(h1) == nil {
		t.Fatal("ParallelCompileAndCreate: pipeline not created")
	}
	if compiler.calls != 1 {
		t.Fatalf("compiler.calls:\nhave %d\nwant 1", compiler.calls)
	}

	// A second desc with the same source but a different entry point
	// is a distinct pipeline and gets its own handle.
	h2, err := c.Register(PipelineRegistration{Kind: PipelineCompute, Desc: &ComputePipelineDesc{
		Stage: ShaderStageDesc{Source: "shared.hlsl", Entry: "other"},
	}})
	if err != nil {
		t.Fatal(err)
	}
	if h2 == h1 {
		t.Fatal("distinct entry/stage combination produced the same handle")
	}
}

func TestPipelineCacheParallelCompileReportsFailure(t *testing.T) {
	compiler := &stubCompiler{fail: true}
	c := NewPipelineCache(2, compiler)
	desc := &ComputePipelineDesc{Stage: ShaderStageDesc{Source: "broken.hlsl", Entry: "main"}}
	if _, err := c.Register(PipelineRegistration{Kind: PipelineCompute, Desc: desc}); err != nil {
		t.Fatal(err)
	}
	err := c.ParallelCompileAndCreate(fakeGPU{})
	if !errors.Is(err, ErrShaderCompile) {
		t.Fatalf("ParallelCompileAndCreate error:\nhave %v\nwant wrapping ErrShaderCompile", err)
	}
}

// TestPipelineCacheDiscardStaleDefersDestructionByNframe drives
// staleness through the real source-freshness path (editing the
// shader's mapped freshness proof between two DiscardStale calls,
// exactly as a file's modification time would change on disk) rather
// than poking the unexported sourceKey/builtSourceKey fields, so it
// exercises the hot-reload mechanism DiscardStale actually relies on.
func TestPipelineCacheDiscardStaleDefersDestructionByNframe(t *testing.T) {
	compiler := &stubCompiler{freshness: map[string]string{"a.hlsl": "v1"}}
	c := NewPipelineCache(2, compiler)
	desc := &ComputePipelineDesc{Stage: ShaderStageDesc{Source: "a.hlsl", Entry: "main"}}

	h, err := c.Register(PipelineRegistration{Kind: PipelineCompute, Desc: desc})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.ParallelCompileAndCreate(fakeGPU{}); err != nil {
		t.Fatal(err)
	}
	destroyed := false
	c.entries[h.idx].live = fakePipeline{destroyed: &destroyed}

	if err := c.DiscardStale(); err != nil {
		t.Fatal(err)
	}
	if c.entries[h.idx].live == nil {
		t.Fatal("DiscardStale: freshness unchanged, want live pipeline retained")
	}

	// Simulate editing a.hlsl's contents between frames.
	compiler.freshness["a.hlsl"] = "v2"

	if err := c.DiscardStale(); err != nil {
		t.Fatal(err)
	}
	if c.entries[h.idx].live != nil {
		t.Fatal("DiscardStale: stale entry's live pipeline was not cleared")
	}
	if destroyed {
		t.Fatal("DiscardStale: pipeline destroyed immediately, want deferred")
	}

	c.Advance() // frame 0 -> 1: does not yet drain the bucket the stale pipeline landed in
	if destroyed {
		t.Fatal("Advance (1 frame later): pipeline destroyed too early for nframe=2")
	}
	c.Advance() // frame 1 -> 2: wraps back to slot 0, draining it
	if !destroyed {
		t.Fatal("Advance (nframe later): deferred pipeline was never destroyed")
	}
}

func TestPipelineCachePipelineOutOfRangeReturnsNil(t *testing.T) {
	c := NewPipelineCache(1, &stubCompiler{})
	if pl := c.Pipeline(PipelineHandle{Kind: PipelineCompute, idx: 99}); pl != nil {
		t.Fatal("Pipeline: out-of-range handle: want nil, have non-nil")
	}
}
