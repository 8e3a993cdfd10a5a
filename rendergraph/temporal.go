// Copyright 2024 The Raven-Engine authors. All rights reserved.

package rendergraph

import (
	"sync"

	"github.com/raven/rendergraph/driver"
)

// temporalState is the lifecycle state of one TemporalRegistry
// entry with respect to the current frame (spec.md §3.1, §4.5),
// grounded on raven-rg/src/graph_builder.rs's
// TemporaryResourceRegistry.
type temporalState int

const (
	temporalInert temporalState = iota
	temporalImported
	temporalExported
)

type temporalEntry struct {
	state  temporalState
	desc   ResourceDesc
	access AccessState
	image  driver.Image
	buffer driver.Buffer
	// slot is the Builder resource slot this entry was bound to
	// for the current frame, valid only while state == Imported
	// or Exported.
	slot int
}

// TemporalRegistry maps a string key to a resource that persists
// across frames, living across frames and owned by the executor
// (spec.md §4.5, §5).
type TemporalRegistry struct {
	mu      sync.Mutex
	entries map[string]*temporalEntry
}

// NewTemporalRegistry creates an empty registry.
func NewTemporalRegistry() *TemporalRegistry {
	return &TemporalRegistry{entries: make(map[string]*temporalEntry)}
}

// Import transitions key's entry Inert -> Imported, creating it on
// first use. It returns the access state the resource was left in
// at the end of the previous frame (AccessNone the first time) plus
// its backing image/buffer, if a previous Retire call recorded any.
func (r *TemporalRegistry) Import(key string, desc ResourceDesc) (AccessState, driver.Image, driver.Buffer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	if !ok {
		e = &temporalEntry{state: temporalInert, desc: desc, access: AccessNone}
		r.entries[key] = e
	}
	e.state = temporalImported
	return e.access, e.image, e.buffer
}

func (r *TemporalRegistry) bind(key string, slot int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[key]; ok {
		e.slot = slot
	}
}

// MarkExported transitions every Imported entry to Exported at the
// end of graph building (spec.md §4.5).
func (r *TemporalRegistry) MarkExported() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.state == temporalImported {
			e.state = temporalExported
		}
	}
}

// Retire consumes the retired graph's final access states, converting
// every Exported entry back to Inert with the access the graph left
// it in, keyed by the resource slot bound during Import (spec.md
// §4.5). finalAccess maps slot -> the access the executing graph
// left that slot in.
func (r *TemporalRegistry) Retire(finalAccess map[int]AccessState, backing map[int]struct {
	Image  driver.Image
	Buffer driver.Buffer
}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.state != temporalExported {
			continue
		}
		if a, ok := finalAccess[e.slot]; ok {
			e.access = a
		}
		if b, ok := backing[e.slot]; ok {
			e.image, e.buffer = b.Image, b.Buffer
		}
		e.state = temporalInert
	}
}

// CollapseToInert resets every entry to Inert with access "none",
// used when the frame's shader-compile step fails so the next frame
// re-enters cleanly (spec.md §4.5).
func (r *TemporalRegistry) CollapseToInert() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		e.state = temporalInert
		e.access = AccessNone
	}
}
