// Copyright 2024 The Raven-Engine authors. All rights reserved.

package asset

import "testing"

func TestRegisterEmptyAssetThenUpdate(t *testing.T) {
	reg := NewRegistry()
	h := reg.RegisterEmptyAsset()

	if m := reg.GetMesh(h); m != nil {
		t.Fatalf("GetMesh on vacant slot:\nhave %+v\nwant nil", m)
	}

	storage := &MeshStorage{Indices: []uint32{0, 1, 2}}
	reg.UpdateMesh(h, UUID(1), storage)

	got := reg.GetMesh(h)
	if got != storage {
		t.Fatalf("GetMesh after UpdateMesh:\nhave %p\nwant %p", got, storage)
	}
	if tex := reg.GetTexture(h); tex != nil {
		t.Fatalf("GetTexture on a mesh slot: want nil, have %+v", tex)
	}
}

func TestRegisterAssetRef(t *testing.T) {
	reg := NewRegistry()
	storage := &MeshStorage{}
	ref := reg.RegisterAsset(UUID(55), storage)

	if ref.Kind != KindMesh {
		t.Fatalf("RegisterAsset: Kind:\nhave %d\nwant KindMesh", ref.Kind)
	}
	if ref.UUID != 55 {
		t.Fatalf("RegisterAsset: UUID:\nhave %d\nwant 55", ref.UUID)
	}
	if reg.GetMesh(ref.Handle) != storage {
		t.Fatal("RegisterAsset: handle does not resolve back to storage")
	}
}

func TestReleaseInvalidatesHandle(t *testing.T) {
	reg := NewRegistry()
	h := reg.RegisterEmptyAsset()
	reg.UpdateTexture(h, UUID(3), &TextureStorage{})

	reg.Release(h)
	if tex := reg.GetTexture(h); tex != nil {
		t.Fatalf("GetTexture after Release:\nhave %+v\nwant nil (stale handle)", tex)
	}
}

func TestRetainDelaysRelease(t *testing.T) {
	reg := NewRegistry()
	h := reg.RegisterEmptyAsset()
	reg.UpdateTexture(h, UUID(4), &TextureStorage{})
	reg.Retain(h)

	reg.Release(h) // refCount 2 -> 1, still alive
	if reg.GetTexture(h) == nil {
		t.Fatal("GetTexture after one Release of a retained handle: want alive, have nil")
	}
	reg.Release(h) // refCount 1 -> 0, now destroyed
	if reg.GetTexture(h) != nil {
		t.Fatal("GetTexture after second Release: want nil, have alive")
	}
}

func TestSlotReuseBumpsGeneration(t *testing.T) {
	reg := NewRegistry()
	h1 := reg.RegisterEmptyAsset()
	reg.UpdateTexture(h1, UUID(1), &TextureStorage{})
	reg.Release(h1)

	h2 := reg.RegisterEmptyAsset()
	reg.UpdateTexture(h2, UUID(2), &TextureStorage{})

	if reg.GetTexture(h1) != nil {
		t.Fatal("stale handle h1 still resolves after its slot was reused")
	}
	if reg.GetTexture(h2) == nil {
		t.Fatal("fresh handle h2 failed to resolve")
	}
}

func TestGetMeshMaterialsAndTextures(t *testing.T) {
	reg := NewRegistry()
	matRef := Ref{UUID: 10, Kind: KindMaterial}
	texRef := Ref{UUID: 20, Kind: KindTexture}
	h := reg.RegisterAsset(UUID(1), &MeshStorage{
		Materials:        []Ref{matRef},
		MaterialTextures: []Ref{texRef},
	}).Handle

	mats := reg.GetMeshMaterials(h)
	if len(mats) != 1 || mats[0].UUID != 10 {
		t.Fatalf("GetMeshMaterials:\nhave %+v\nwant [%+v]", mats, matRef)
	}
	texs := reg.GetMeshTextures(h)
	if len(texs) != 1 || texs[0].UUID != 20 {
		t.Fatalf("GetMeshTextures:\nhave %+v\nwant [%+v]", texs, texRef)
	}
}
