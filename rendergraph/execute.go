// Copyright 2024 The Raven-Engine authors. All rights reserved.

package rendergraph

import (
	"fmt"

	"github.com/raven/rendergraph/driver"
)

// slotState tracks a resource's single-writer current access cell
// during recording (spec.md §4.4: "every resource holds exactly one
// live access state at any point in recording").
type slotState struct {
	current AccessState
}

// ExecutingGraph owns the ordered pass list, registered resources
// with their current access state, exported-resource promises, and
// the pipeline-handle table — grounded on
// raven-rg/src/executing_graph.rs and raven-rg/src/graph_executor.rs.
type ExecutingGraph struct {
	compiled *CompiledGraph
	pool     *TransientPool
	states   []slotState
	Stats    ExecuteStats

	// pipelineCache is set by BindPipelineCache, if the frame driver
	// calls it, so PassContext.Pipeline can resolve a pass's
	// PipelineHandles during recording.
	pipelineCache *PipelineCache
}

// allocateImage resolves r's image backing from pool, falling back to
// a fresh gpu.NewImage, under the usage-accumulated descriptor usage.
func allocateImage(r *graphResource, gpu driver.GPU, pool *TransientPool, usage driver.Usage) error {
	desc := r.desc.Image
	desc.Usage = usage
	if img, ok := pool.GetImage(desc); ok {
		r.image = img
		return nil
	}
	img, err := gpu.NewImage(desc.Format, desc.Extent, desc.Layers, desc.Mips, desc.Samples, desc.Usage)
	if err != nil {
		return fmt.Errorf("rendergraph: create image: %w", err)
	}
	r.image = img
	return nil
}

// allocateBuffer is allocateImage's buffer counterpart.
func allocateBuffer(r *graphResource, gpu driver.GPU, pool *TransientPool, usage driver.Usage) error {
	desc := r.desc.Buffer
	desc.Usage = usage
	if buf, ok := pool.GetBuffer(desc); ok {
		r.buffer = buf
		return nil
	}
	visible := desc.Location != MemGPUOnly
	buf, err := gpu.NewBuffer(desc.Size, visible, desc.Usage)
	if err != nil {
		return fmt.Errorf("rendergraph: create buffer: %w", err)
	}
	r.buffer = buf
	return nil
}

// PrepareExecute resolves each slot's backing resource: fetch from
// the transient pool, create fresh with the analyzed usage flags,
// borrow the imported resource, or leave delayed for the swapchain
// (spec.md §4.4).
func PrepareExecute(g *CompiledGraph, gpu driver.GPU, pool *TransientPool) (*ExecutingGraph, error) {
	states := make([]slotState, len(g.resources))
	for i := range g.resources {
		r := &g.resources[i]
		switch r.state {
		case stateDelayed:
			states[i] = slotState{current: r.entryAccess}
			continue
		case stateImported:
			// A temporal resource's first-ever use arrives here
			// Imported but with no backing allocated yet
			// (TemporalRegistry.Import returns nil image/buffer on a
			// new key); allocate one now exactly as a Created
			// resource would. An externally-owned import already
			// carries its backing, so this is then a no-op.
			switch r.desc.Kind {
			case KindImage:
				if r.image == nil {
					if err := allocateImage(r, gpu, pool, g.FinalImageUsage(i)); err != nil {
						return nil, err
					}
				}
			case KindBuffer:
				if r.buffer == nil {
					if err := allocateBuffer(r, gpu, pool, g.FinalBufferUsage(i)); err != nil {
						return nil, err
					}
				}
			}
			states[i] = slotState{current: r.entryAccess}
			continue
		case stateCreated:
		}
		switch r.desc.Kind {
		case KindImage:
			if err := allocateImage(r, gpu, pool, g.FinalImageUsage(i)); err != nil {
				return nil, err
			}
		case KindBuffer:
			if err := allocateBuffer(r, gpu, pool, g.FinalBufferUsage(i)); err != nil {
				return nil, err
			}
		}
		states[i] = slotState{current: AccessNone}
	}
	return &ExecutingGraph{compiled: g, pool: pool, states: states}, nil
}

// findFirstPresentPass locates the first pass that writes the
// swapchain slot (identified by stateDelayed), grounded on
// executing_graph.rs's find_first_present_pass. Returns -1 if no
// pass touches the swapchain (no present this frame).
func (e *ExecutingGraph) findFirstPresentPass() int {
	swapSlot := -1
	for i, r := range e.compiled.resources {
		if r.state == stateDelayed {
			swapSlot = i
			break
		}
	}
	if swapSlot < 0 {
		return -1
	}
	for _, p := range e.compiled.passes {
		for _, io := range p.ios {
			if io.handle.slot == swapSlot && (io.kind == ioWrite || io.kind == ioRasterWrite) {
				return p.Index
			}
		}
	}
	return -1
}

// Execute records the frame into two command buffers: the
// pre-present phase (passes up to and including the first pass that
// writes the swapchain) into mainCB, and the present phase
// (remaining passes plus swapchain materialization and the final
// present-layout transition) into presentCB. Errors from a pass
// callback abort the frame (spec.md §4.4, §7).
func (e *ExecutingGraph) Execute(mainCB, presentCB driver.CmdBuffer, mat *SwapchainMaterializer) error {
	firstPresent := e.findFirstPresentPass()

	prefixEnd := len(e.compiled.passes)
	if firstPresent >= 0 {
		prefixEnd = firstPresent + 1
	}

	if err := e.recordPrefix(mainCB, 0, prefixEnd); err != nil {
		return err
	}

	if firstPresent >= 0 {
		if err := e.recordPresent(presentCB, mat, prefixEnd); err != nil {
			return err
		}
	}
	return nil
}

// recordPrefix batches entry transitions for every resource touched
// in [start,end), then records each pass in order with its own
// per-pass barriers, setting skip-sync-if-same on a resource's
// second and later touch within the prefix (spec.md §4.4).
func (e *ExecutingGraph) recordPrefix(cb driver.CmdBuffer, start, end int) error {
	b := &batcher{cb: cb, stats: &e.Stats}

	// Entry batch: transition every resource to the first access
	// state at which it is touched in this range.
	var entry []pendingTransition
	seen := make(map[int]bool)
	for pi := start; pi < end; pi++ {
		for _, io := range e.compiled.passes[pi].ios {
			i := io.handle.slot
			if seen[i] {
				continue
			}
			seen[i] = true
			entry = append(entry, e.transitionTo(i, io.access, false))
		}
	}
	if err := b.flush(entry); err != nil {
		return err
	}

	for pi := start; pi < end; pi++ {
		p := &e.compiled.passes[pi]
		var pend []pendingTransition
		for _, io := range p.ios {
			pend = append(pend, e.transitionTo(io.handle.slot, io.access, true))
		}
		if err := b.flush(pend); err != nil {
			return err
		}

		if p.callback != nil {
			ctx := newPassContext(e, p)
			if err := p.callback(ctx); err != nil {
				return fmt.Errorf("rendergraph: pass %q: %w", p.Name, err)
			}
		}
	}
	return nil
}

// recordPresent materializes the swapchain slot, emits the
// undefined->first-access discard barrier, records the remaining
// passes, and finally transitions exported resources (including the
// swapchain) to their promised access, the swapchain always ending
// at AccessPresent (spec.md §4.4).
func (e *ExecutingGraph) recordPresent(cb driver.CmdBuffer, mat *SwapchainMaterializer, start int) error {
	swapSlot := -1
	for i, r := range e.compiled.resources {
		if r.state == stateDelayed {
			swapSlot = i
			break
		}
	}
	if swapSlot >= 0 && mat != nil {
		img, view, err := mat.Acquire()
		if err != nil {
			return err
		}
		e.compiled.resources[swapSlot].image = img
		b := &batcher{cb: cb, stats: &e.Stats}
		discard := e.transitionTo(swapSlot, e.firstAccessInRange(swapSlot, start), false)
		discard.discardContent = true
		discard.view = view
		if err := b.flush([]pendingTransition{discard}); err != nil {
			return err
		}
	}

	if err := e.recordPrefix(cb, start, len(e.compiled.passes)); err != nil {
		return err
	}

	b := &batcher{cb: cb, stats: &e.Stats}
	var final []pendingTransition
	for _, eh := range e.compiled.exports {
		final = append(final, e.transitionTo(eh.Handle.slot, eh.Access, false))
	}
	if swapSlot >= 0 {
		final = append(final, e.transitionTo(swapSlot, AccessPresent, false))
	}
	return b.flush(final)
}

func (e *ExecutingGraph) firstAccessInRange(slot, start int) AccessState {
	for pi := start; pi < len(e.compiled.passes); pi++ {
		for _, io := range e.compiled.passes[pi].ios {
			if io.handle.slot == slot {
				return io.access
			}
		}
	}
	return AccessNone
}

// transitionTo advances slot's current-access cell to access and
// returns the pendingTransition describing that move.
// skipSyncIfSame suppresses a redundant barrier when the state is
// unchanged but never a required layout transition (spec.md §3.1,
// §4.4) — callers pass skipSyncIfSame=true for a pass's own
// redundant re-touch of a resource within the same prefix.
func (e *ExecutingGraph) transitionTo(slot int, access AccessState, skipSyncIfSame bool) pendingTransition {
	s := &e.states[slot]
	from := s.current
	isImage := e.compiled.resources[slot].desc.Kind == KindImage
	p := pendingTransition{slot: slot, isImage: isImage, from: from, to: access, skipSyncIfSame: skipSyncIfSame}
	s.current = access
	return p
}

// FinalAccess returns the access state slot was left in at the end
// of recording, used by Retire to feed TemporalRegistry.Retire.
func (e *ExecutingGraph) FinalAccess(slot int) AccessState { return e.states[slot].current }

// SwapchainMaterializer resolves the delayed swapchain slot into a
// concrete image only once the present phase begins, matching
// spec.md §4.4's "swapchain image acquired only after main CB
// submission."
type SwapchainMaterializer struct {
	AcquireFunc func() (driver.Image, driver.ImageView, error)
}

func (m *SwapchainMaterializer) Acquire() (driver.Image, driver.ImageView, error) {
	if m.AcquireFunc == nil {
		return nil, nil, ErrAcquireImage
	}
	return m.AcquireFunc()
}

// Backing returns slot's resolved image/buffer after PrepareExecute,
// for a caller to carry an exported temporal slot's (possibly freshly
// allocated, see PrepareExecute) backing into TemporalRegistry.Retire
// alongside the access map Retire returns, so the same backing is
// reused on the key's next Import instead of reallocated every frame.
func (e *ExecutingGraph) Backing(slot int) (driver.Image, driver.Buffer) {
	r := &e.compiled.resources[slot]
	return r.image, r.buffer
}

// Retire returns the executing graph's resources to the transient
// pool (Created, non-exported slots only) and reports each slot's
// final access state, for TemporalRegistry.Retire and for releasing
// Created resources back into TransientPool (spec.md §4.5, §5).
func (e *ExecutingGraph) Retire() map[int]AccessState {
	final := make(map[int]AccessState, len(e.states))
	exported := make(map[int]bool, len(e.compiled.exports))
	for _, eh := range e.compiled.exports {
		exported[eh.Handle.slot] = true
	}
	for i, r := range e.compiled.resources {
		final[i] = e.states[i].current
		if r.state != stateCreated || exported[i] {
			continue
		}
		switch r.desc.Kind {
		case KindImage:
			if r.image != nil {
				// Store under the same usage-augmented descriptor
				// PrepareExecute looks up with, or a future GetImage
				// for this resource shape can never match it back.
				desc := r.desc.Image
				desc.Usage = e.compiled.FinalImageUsage(i)
				e.pool.StoreImage(desc, r.image)
			}
		case KindBuffer:
			if r.buffer != nil {
				desc := r.desc.Buffer
				desc.Usage = e.compiled.FinalBufferUsage(i)
				e.pool.StoreBuffer(desc, r.buffer)
			}
		}
	}
	return final
}
