// Copyright 2024 The Raven-Engine authors. All rights reserved.

package asset

import (
	"sync"

	"github.com/raven/rendergraph/internal/bitm"
)

// Handle is a dense (slot, generation) pair identifying a registry
// entry, shared by reference counting at the call sites that hold
// it (spec.md §3.2 "Asset handle"). A handle is valid for its
// advertised kind until the registry destroys the slot; downcasts
// are checked against the slot's Kind tag before use.
type Handle struct {
	slot       int
	generation uint32
}

func (h Handle) valid() bool { return h.generation != 0 }

type slotEntry struct {
	kind       Kind
	generation uint32
	refCount   int

	mesh     *MeshStorage
	texture  *TextureStorage
	material *MaterialStorage
	uuid     UUID
}

// Registry is the runtime asset registry: a dense slot arena with
// generation-checked handles, grounded in full on
// raven-core/src/asset/asset_manager.rs's
// get_runtime_asset_registry() global and the register_empty_asset/
// update_asset call sites exercised throughout asset_process.rs. Slot
// allocation reuses the teacher's bitm.Bitm[T] idiom from
// engine/storage.go, rather than a plain growable slice with a free
// list.
type Registry struct {
	mu      sync.Mutex
	slotMap bitm.Bitm[uint64]
	entries []slotEntry
	nextGen uint32
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry { return &Registry{nextGen: 1} }

func (r *Registry) allocSlot() int {
	idx, ok := r.slotMap.Search()
	if !ok {
		grown := r.slotMap.Grow(1)
		idx = grown
		r.entries = append(r.entries, make([]slotEntry, r.slotMap.Len()-len(r.entries))...)
	}
	r.slotMap.Set(idx)
	if idx >= len(r.entries) {
		r.entries = append(r.entries, make([]slotEntry, idx+1-len(r.entries))...)
	}
	return idx
}

// RegisterEmptyAsset reserves a slot tagged Vacant and returns its
// handle, for callers that need a stable handle before the asset's
// processed contents are available (spec.md §4.9 step 1, grounded on
// register_empty_asset()).
func (r *Registry) RegisterEmptyAsset() Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.allocSlot()
	gen := r.nextGen
	r.nextGen++
	r.entries[idx] = slotEntry{kind: KindVacant, generation: gen, refCount: 1}
	return Handle{slot: idx, generation: gen}
}

// UpdateMesh fills a previously-reserved handle with its processed
// mesh storage and uuid, transitioning it out of Vacant.
func (r *Registry) UpdateMesh(h Handle, uuid UUID, m *MeshStorage) {
	r.update(h, KindMesh, uuid, func(e *slotEntry) { e.mesh = m })
}

// UpdateTexture fills a previously-reserved handle with its
// processed texture storage.
func (r *Registry) UpdateTexture(h Handle, uuid UUID, t *TextureStorage) {
	r.update(h, KindTexture, uuid, func(e *slotEntry) { e.texture = t })
}

// UpdateMaterial fills a previously-reserved handle with its
// processed material storage.
func (r *Registry) UpdateMaterial(h Handle, uuid UUID, m *MaterialStorage) {
	r.update(h, KindMaterial, uuid, func(e *slotEntry) { e.material = m })
}

func (r *Registry) update(h Handle, kind Kind, uuid UUID, apply func(*slotEntry)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h.slot >= len(r.entries) || r.entries[h.slot].generation != h.generation {
		return
	}
	e := &r.entries[h.slot]
	e.kind = kind
	e.uuid = uuid
	apply(e)
}

// RegisterAsset allocates and immediately fills a new mesh slot in
// one call, for load paths that already have the processed storage
// in hand (spec.md §4.9's bake-skip path, grounded on
// register_asset()).
func (r *Registry) RegisterAsset(uuid UUID, m *MeshStorage) Ref {
	h := r.RegisterEmptyAsset()
	r.UpdateMesh(h, uuid, m)
	return Ref{Handle: h, UUID: uuid, Kind: KindMesh}
}

// GetMesh resolves h to its MeshStorage, or nil if h is stale or not
// a mesh slot (spec.md §3.2 "downcasts are checked by kind tag before
// pointer cast").
func (r *Registry) GetMesh(h Handle) *MeshStorage {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h.slot >= len(r.entries) || r.entries[h.slot].generation != h.generation {
		return nil
	}
	e := &r.entries[h.slot]
	if e.kind != KindMesh {
		return nil
	}
	return e.mesh
}

// GetTexture resolves h to its TextureStorage.
func (r *Registry) GetTexture(h Handle) *TextureStorage {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h.slot >= len(r.entries) || r.entries[h.slot].generation != h.generation {
		return nil
	}
	e := &r.entries[h.slot]
	if e.kind != KindTexture {
		return nil
	}
	return e.texture
}

// GetMaterial resolves h to its MaterialStorage.
func (r *Registry) GetMaterial(h Handle) *MaterialStorage {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h.slot >= len(r.entries) || r.entries[h.slot].generation != h.generation {
		return nil
	}
	e := &r.entries[h.slot]
	if e.kind != KindMaterial {
		return nil
	}
	return e.material
}

// GetMeshMaterials returns the Refs for a mesh's material
// dependents, relative to its own slot (spec.md §4.9
// "get_asset_relative_materials").
func (r *Registry) GetMeshMaterials(h Handle) []Ref {
	m := r.GetMesh(h)
	if m == nil {
		return nil
	}
	return m.Materials
}

// GetMeshTextures returns the Refs for a mesh's texture dependents.
func (r *Registry) GetMeshTextures(h Handle) []Ref {
	m := r.GetMesh(h)
	if m == nil {
		return nil
	}
	return m.MaterialTextures
}

// Retain increments h's reference count.
func (r *Registry) Retain(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h.slot < len(r.entries) && r.entries[h.slot].generation == h.generation {
		r.entries[h.slot].refCount++
	}
}

// Release decrements h's reference count, destroying the slot (and
// bumping its generation so stale handles are detected) once it
// reaches zero.
func (r *Registry) Release(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h.slot >= len(r.entries) || r.entries[h.slot].generation != h.generation {
		return
	}
	e := &r.entries[h.slot]
	e.refCount--
	if e.refCount > 0 {
		return
	}
	r.entries[h.slot] = slotEntry{}
	r.slotMap.Unset(h.slot)
}
