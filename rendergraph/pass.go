// Copyright 2024 The Raven-Engine authors. All rights reserved.

package rendergraph

// ioKind distinguishes the role a resource reference plays within a
// pass, mirroring raven-rg/src/pass.rs's read/write/raster_read/
// raster_write split.
type ioKind int

const (
	ioRead ioKind = iota
	ioWrite
	ioRasterRead
	ioRasterWrite
)

// passIO is one resource reference declared on a pass.
type passIO struct {
	kind   ioKind
	handle Handle
	access AccessState
}

// PipelineRegistration records a pipeline a pass wants registered
// with the PipelineCache at compile time.
type PipelineRegistration struct {
	Kind PipelineKind
	Desc any // *RasterPipelineDesc | *ComputePipelineDesc | *RayTracingPipelineDesc
}

// RenderCallback is the user closure installed via Pass.Render. It
// receives a PassContext at execution time and records the pass's
// GPU commands.
type RenderCallback func(ctx *PassContext) error

// Pass is one node of the render graph: a name, ordered inputs and
// outputs, an optional render callback, and its index in the graph.
// Execution order equals declaration order (spec.md §3.1).
type Pass struct {
	Name  string
	Index int

	ios       []passIO
	pipelines []PipelineRegistration
	callback  RenderCallback
}

// PassBuilder accumulates a single pass's resource references and
// pipeline registrations. The original source finalizes a pass when
// its Rust value is dropped (raven-rg/src/pass.rs); Go has no
// destructors, so PassBuilder requires an explicit call to Finish
// (Builder.AddPass does not call it) — this is a required language
// substitution, not a behavior change from spec.md.
type PassBuilder struct {
	b    *Builder
	pass Pass
}

// Read declares a read-only reference to handle, requiring access
// to be a read-only AccessState (ErrAccessMismatch otherwise).
func (p *PassBuilder) Read(handle Handle, access AccessState) Handle {
	if !isReadAccess(access) {
		p.b.fail(ErrAccessMismatch)
		return handle
	}
	p.pass.ios = append(p.pass.ios, passIO{ioRead, handle, access})
	return handle
}

// Write declares a write reference to handle, requiring access to
// be a write-only AccessState. The returned Handle carries the
// bumped generation; the argument handle becomes stale for writes.
func (p *PassBuilder) Write(handle Handle, access AccessState) Handle {
	if !isWriteAccess(access) {
		p.b.fail(ErrAccessMismatch)
		return handle
	}
	next := p.b.bumpGeneration(handle)
	p.pass.ios = append(p.pass.ios, passIO{ioWrite, next, access})
	return next
}

// RasterRead declares a read-only attachment reference (SRV/RT read
// role), requiring access to be both read-only and attachment-
// compatible.
func (p *PassBuilder) RasterRead(handle Handle, access AccessState) Handle {
	if !isReadAccess(access) || !isRasterAccess(access) {
		p.b.fail(ErrAccessMismatch)
		return handle
	}
	p.pass.ios = append(p.pass.ios, passIO{ioRasterRead, handle, access})
	return handle
}

// RasterWrite declares a write attachment reference (RT role),
// requiring access to be both write-only and attachment-compatible.
func (p *PassBuilder) RasterWrite(handle Handle, access AccessState) Handle {
	if !isWriteAccess(access) || !isRasterAccess(access) {
		p.b.fail(ErrAccessMismatch)
		return handle
	}
	next := p.b.bumpGeneration(handle)
	p.pass.ios = append(p.pass.ios, passIO{ioRasterWrite, next, access})
	return next
}

// RegisterRasterPipeline registers a raster pipeline description
// for compilation by the PipelineCache when the graph compiles.
func (p *PassBuilder) RegisterRasterPipeline(desc *RasterPipelineDesc) {
	p.pass.pipelines = append(p.pass.pipelines, PipelineRegistration{PipelineRaster, desc})
}

// RegisterComputePipeline registers a compute pipeline description.
func (p *PassBuilder) RegisterComputePipeline(desc *ComputePipelineDesc) {
	p.pass.pipelines = append(p.pass.pipelines, PipelineRegistration{PipelineCompute, desc})
}

// RegisterRayTracingPipeline registers a ray-tracing pipeline
// description (optional build flag, spec.md §4.8).
func (p *PassBuilder) RegisterRayTracingPipeline(desc *RayTracingPipelineDesc) {
	p.pass.pipelines = append(p.pass.pipelines, PipelineRegistration{PipelineRayTracing, desc})
}

// Render installs the single user closure that records this pass's
// commands at execution time. Not calling Render is allowed and
// produces a no-op pass (spec.md §4.1).
func (p *PassBuilder) Render(cb RenderCallback) {
	p.pass.callback = cb
}

// Finish appends the pass to the graph in declaration order. The
// PassBuilder returned by Builder.AddPass must have
// Finish called exactly once; Builder.AddPass's caller is expected
// to defer it, matching the teacher's Destroyer-on-defer idiom
// elsewhere in the pack (e.g. driver.Destroyer).
func (p *PassBuilder) Finish() {
	p.pass.Index = len(p.b.passes)
	p.b.passes = append(p.b.passes, p.pass)
}
