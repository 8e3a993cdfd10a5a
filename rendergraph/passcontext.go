// Copyright 2024 The Raven-Engine authors. All rights reserved.

package rendergraph

import (
	"fmt"
	"sync"

	"github.com/raven/rendergraph/driver"
)

// PassContext is handed to a RenderCallback at execution time. It
// resolves a pass's declared Handles to live driver resources, binds
// the pipelines the pass registered, and records draw/dispatch
// commands into the frame's active command buffer. Grounded in full
// on raven-rg/src/pass_context.rs.
type PassContext struct {
	exec *ExecutingGraph
	pass *Pass
	cb   driver.CmdBuffer
	fbc  *framebufferCache
}

func newPassContext(e *ExecutingGraph, p *Pass) *PassContext {
	return &PassContext{exec: e, pass: p, cb: nil, fbc: globalFBCache}
}

// CmdBuffer returns the active command buffer for direct recording
// (Draw, Dispatch, Copy*, etc.) once a render/compute/blit block has
// been opened via BeginRaster/BeginCompute/BeginBlit.
func (c *PassContext) CmdBuffer() driver.CmdBuffer { return c.cb }

// Image resolves h to its live driver.Image. Panics if h refers to a
// buffer slot, mirroring the original's debug_assert on wrong variant
// access.
func (c *PassContext) Image(h Handle) driver.Image {
	r := &c.exec.compiled.resources[h.slot]
	if r.desc.Kind != KindImage {
		panic("rendergraph: Image() called on a non-image handle")
	}
	return r.image
}

// Buffer resolves h to its live driver.Buffer.
func (c *PassContext) Buffer(h Handle) driver.Buffer {
	r := &c.exec.compiled.resources[h.slot]
	if r.desc.Kind != KindBuffer {
		panic("rendergraph: Buffer() called on a non-buffer handle")
	}
	return r.buffer
}

// Pipeline returns the live driver.Pipeline for a handle this pass
// registered at build time, or nil if no PipelineCache was bound via
// BindPipelineCache.
func (c *PassContext) Pipeline(h PipelineHandle) driver.Pipeline {
	if c.exec.pipelineCache == nil {
		return nil
	}
	return c.exec.pipelineCache.Pipeline(h)
}

// BindPipelineCache associates cache with e for the lifetime of this
// frame's execution; the frame driver calls this once, right after
// PrepareExecute, so BeginRaster/BeginCompute can resolve the
// PipelineHandles passes registered at build time. PipelineCache
// lifetime spans many frames while ExecutingGraph is per-frame, so the
// association is not made automatically by PrepareExecute itself.
func (e *ExecutingGraph) BindPipelineCache(cache *PipelineCache) {
	e.pipelineCache = cache
}

// RasterAttachment is one color or depth/stencil attachment of a
// BeginRaster call.
type RasterAttachment struct {
	View  driver.ImageView
	Load  driver.LoadOp
	Store driver.StoreOp
	Clear driver.ClearValue
}

// framebufferKey identifies a render-pass/framebuffer pairing by the
// identity of its attachment views, so repeated passes over the same
// resources within a frame (or across frames, for imported/temporal
// resources) reuse the same driver.Framebuf instead of recreating it
// every time (spec.md §4.6 "framebuffer caching").
type framebufferKey struct {
	renderPass driver.RenderPass
	views      [8]driver.ImageView
	nviews     int
	width      int
	height     int
	layers     int
}

type framebufferCache struct {
	mu    sync.Mutex
	byKey map[framebufferKey]driver.Framebuf
}

var globalFBCache = &framebufferCache{byKey: make(map[framebufferKey]driver.Framebuf)}

func (f *framebufferCache) get(rp driver.RenderPass, views []driver.ImageView, width, height, layers int) (driver.Framebuf, error) {
	if len(views) > 8 {
		return nil, fmt.Errorf("rendergraph: framebuffer with %d attachments exceeds cache key capacity", len(views))
	}
	var key framebufferKey
	key.renderPass = rp
	key.nviews = len(views)
	copy(key.views[:], views)
	key.width, key.height, key.layers = width, height, layers

	f.mu.Lock()
	defer f.mu.Unlock()
	if fb, ok := f.byKey[key]; ok {
		return fb, nil
	}
	fb, err := rp.NewFB(views, width, height, layers)
	if err != nil {
		return nil, err
	}
	f.byKey[key] = fb
	return fb, nil
}

// BeginRaster opens a render pass block on the frame's active
// command buffer, fetching (or creating and caching) the framebuffer
// for the given render pass and attachment views, applying a
// Y-flipped viewport so that clip-space Y-up matches the engine's
// texture-space Y-down convention (spec.md §4.6), and binds the
// pipeline at pipelineHandle.
func (c *PassContext) BeginRaster(cb driver.CmdBuffer, rp driver.RenderPass, atts []RasterAttachment, width, height, layers int, pipelineHandle PipelineHandle) error {
	views := make([]driver.ImageView, len(atts))
	clear := make([]driver.ClearValue, len(atts))
	for i, a := range atts {
		views[i] = a.View
		clear[i] = a.Clear
	}
	fb, err := c.fbc.get(rp, views, width, height, layers)
	if err != nil {
		return err
	}
	c.cb = cb
	cb.BeginPass(rp, fb, clear)
	cb.SetViewport([]driver.Viewport{yFlippedViewport(width, height)})
	cb.SetScissor([]driver.Scissor{{Width: width, Height: height}})
	if pl := c.Pipeline(pipelineHandle); pl != nil {
		cb.SetPipeline(pl)
	}
	return nil
}

// EndRaster closes the render pass block opened by BeginRaster.
func (c *PassContext) EndRaster() {
	c.cb.EndPass()
	c.cb = nil
}

// yFlippedViewport returns a full-extent viewport whose origin and
// height are negated, the standard Vulkan Y-flip trick used so NDC Y
// matches the engine's top-left origin convention without touching
// vertex shaders (spec.md §4.6 Design Notes).
func yFlippedViewport(width, height int) driver.Viewport {
	return driver.Viewport{
		X: 0, Y: float32(height),
		Width: float32(width), Height: -float32(height),
		Znear: 0, Zfar: 1,
	}
}

// BeginCompute opens a compute work block and binds pipelineHandle.
func (c *PassContext) BeginCompute(cb driver.CmdBuffer, pipelineHandle PipelineHandle, wait bool) {
	c.cb = cb
	cb.BeginWork(wait)
	if pl := c.Pipeline(pipelineHandle); pl != nil {
		cb.SetPipeline(pl)
	}
}

// EndCompute closes the compute work block opened by BeginCompute.
func (c *PassContext) EndCompute() {
	c.cb.EndWork()
	c.cb = nil
}

// DynamicOffsets collects dynamic uniform/storage buffer offsets in
// binding-declaration order, since driver.CmdBuffer.SetDescTableGraph
// /Comp expects them pre-ordered rather than keyed (spec.md §4.7).
type DynamicOffsets struct {
	offsets []int
}

// Append records the next dynamic offset in declaration order.
func (d *DynamicOffsets) Append(off int) { d.offsets = append(d.offsets, off) }

// Offsets returns the accumulated offsets.
func (d *DynamicOffsets) Offsets() []int { return d.offsets }

// BindDescTable binds table at start, optionally overriding with a
// caller-supplied raw descriptor set copy list (heapCopy) — when
// provided, heapCopy is used verbatim and always takes precedence
// over the table's own layout-implied copy list, matching the
// original's "raw descriptor set override is applied last" rule
// (spec.md §4.7).
func (c *PassContext) BindDescTable(graphics bool, table driver.DescTable, start int, heapCopy []int) {
	if graphics {
		c.cb.SetDescTableGraph(table, start, heapCopy)
	} else {
		c.cb.SetDescTableComp(table, start, heapCopy)
	}
}
