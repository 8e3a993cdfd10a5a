// Copyright 2024 The Raven-Engine authors. All rights reserved.

// Package asset implements the lazy, content-addressed asset
// pipeline: raw decode, CPU-side processing into GPU-ready storage
// form, packed on-disk baking, and mmap-backed loading.
package asset

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// UUID is an asset's 64-bit content identifier, derived from its
// parent uri plus a stable sub-dependent index (spec.md §3.1, §4.5).
// It names the baked file on disk and is the only on-disk
// representation of an AssetRef.
type UUID uint64

// calcUUID hashes uri with subDependentIndex as the seed, mirroring
// asset_process.rs::calc_asset_uuid exactly: WyHash::with_seed(index)
// over the uri's raw bytes. xxhash.NewWithSeed gives the same
// "deterministic, caller-chosen seed" property (spec.md §8 "Asset
// uuid stability").
func calcUUID(uri string, subDependentIndex uint32) UUID {
	h := xxhash.NewWithSeed(uint64(subDependentIndex))
	h.WriteString(uri)
	return UUID(h.Sum64())
}

// RootUUID is the uuid of the uri's own (root) asset: seed 0.
func RootUUID(uri string) UUID { return calcUUID(uri, 0) }

// DependentUUID is the uuid of the subDependentIndex-th dependent
// declared while processing uri (1-indexed, materials first then
// textures per spec.md §6).
func DependentUUID(uri string, subDependentIndex uint32) UUID {
	if subDependentIndex == 0 {
		panic("asset: DependentUUID requires subDependentIndex >= 1")
	}
	return calcUUID(uri, subDependentIndex)
}

// MeshFileName returns the root mesh's baked filename: 8 hex digits
// of the uuid's low 32 bits, per spec.md §6 "Root mesh file:
// {hash(uri)}.mesh (8 hex digits)".
func MeshFileName(u UUID) string { return fmt.Sprintf("%08x.mesh", uint32(u)) }

// MaterialFileName returns a dependent material's baked filename.
func MaterialFileName(u UUID) string { return fmt.Sprintf("%08x.mat", uint32(u)) }

// TextureFileName returns a dependent texture's baked filename.
func TextureFileName(u UUID) string { return fmt.Sprintf("%08x.tex", uint32(u)) }
