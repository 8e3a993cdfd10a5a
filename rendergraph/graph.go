// Copyright 2024 The Raven-Engine authors. All rights reserved.

package rendergraph

import "github.com/raven/rendergraph/driver"

// Builder is the user-facing render-graph construction API
// (spec.md §4.1), grounded on raven-rg/src/graph_builder.rs's
// RenderGraphBuilder.
type Builder struct {
	resources     []graphResource
	passes        []Pass
	exports       []ExportedHandle
	swapchainUsed bool
	err           error

	temporal *TemporalRegistry
}

// NewBuilder creates an empty Builder. temporal may be nil if the
// frame does not use any temporal ("accumulator") resources.
func NewBuilder(temporal *TemporalRegistry) *Builder {
	return &Builder{temporal: temporal}
}

// fail records the first error encountered during building; callers
// check Builder.Err() (or Compile returns it) rather than panicking,
// since access/usage mismatches are "fatal at build time" per
// spec.md §7 but a Go library should let its caller decide how fatal
// (panic vs. os.Exit vs. test failure) looks.
func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Err returns the first error recorded while building the graph.
func (b *Builder) Err() error { return b.err }

// NewResource declares a Created resource: owned by the graph for
// the frame, its usage flags start empty and accumulate as passes
// reference it (spec.md §3.1, §4.2).
func (b *Builder) NewResource(desc ResourceDesc) Handle {
	slot := len(b.resources)
	b.resources = append(b.resources, graphResource{state: stateCreated, desc: desc})
	return Handle{slot: slot, generation: 0, desc: desc}
}

// Import borrows an externally-owned resource for the frame, with a
// declared entry access state. img/buf is reference-counted outside
// the graph; the graph holds a borrow for the frame's duration
// (spec.md §5).
func (b *Builder) Import(desc ResourceDesc, entry AccessState, img driver.Image, buf driver.Buffer) Handle {
	slot := len(b.resources)
	b.resources = append(b.resources, graphResource{
		state: stateImported, desc: desc, entryAccess: entry, image: img, buffer: buf,
	})
	return Handle{slot: slot, generation: 0, desc: desc}
}

// GetSwapchain returns a single delayed imported handle for the
// swapchain image; it must be called at most once per frame
// (spec.md §4.1).
func (b *Builder) GetSwapchain(extent driver.Dim3D, format driver.PixelFmt) Handle {
	if b.swapchainUsed {
		b.fail(ErrSwapchainOnce)
	}
	b.swapchainUsed = true
	desc := ResourceDesc{Kind: KindImage, Image: ImageDesc{Extent: extent, Dim: Dim2D, Format: format, Mips: 1, Layers: 1, Samples: 1}}
	slot := len(b.resources)
	b.resources = append(b.resources, graphResource{state: stateDelayed, desc: desc, entryAccess: AccessNone})
	return Handle{slot: slot, generation: 0, desc: desc}
}

// Export promises that handle will be left in access by the end of
// the frame; the resource's lifetime is extended to the last pass
// (spec.md §3.1, §4.2).
func (b *Builder) Export(handle Handle, access AccessState) ExportedHandle {
	eh := ExportedHandle{Handle: handle, Access: access}
	b.exports = append(b.exports, eh)
	return eh
}

// GetOrCreateTemporal imports a named resource that persists across
// frames, transitioning it Inert -> Imported (spec.md §4.5). entry
// is the access the resource was left in at the end of the previous
// frame (AccessNone on first use).
func (b *Builder) GetOrCreateTemporal(key string, desc ResourceDesc) Handle {
	if b.temporal == nil {
		b.temporal = NewTemporalRegistry()
	}
	entry, img, buf := b.temporal.Import(key, desc)
	h := b.Import(desc, entry, img, buf)
	b.temporal.bind(key, h.slot)
	return h
}

// AddPass begins a new pass named name. The caller must call
// PassBuilder.Finish exactly once to append it to the graph.
func (b *Builder) AddPass(name string) *PassBuilder {
	return &PassBuilder{b: b, pass: Pass{Name: name}}
}

// bumpGeneration advances h's slot generation and returns a new
// Handle snapshotting it. Handles returned prior to this call still
// refer to the older generation and cannot be used to write again
// (spec.md §3.1 invariants).
func (b *Builder) bumpGeneration(h Handle) Handle {
	if h.slot < 0 || h.slot >= len(b.resources) {
		b.fail(ErrStaleHandle)
		return h
	}
	r := &b.resources[h.slot]
	if h.generation != r.generation {
		b.fail(ErrStaleHandle)
		return h
	}
	r.generation++
	return Handle{slot: h.slot, generation: r.generation, desc: h.desc}
}
