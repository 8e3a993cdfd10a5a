// Copyright 2024 The Raven-Engine authors. All rights reserved.

package asset

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/raven/rendergraph/linear"
)

// ProcessMesh converts a decoded MeshRaw into GPU-ready MeshStorage:
// it packs the vertex normals, computes the mesh's AABB, and
// processes (in parallel, via errgroup) the mesh's embedded material
// and texture raw assets — grounded 1:1 on asset_process.rs's
// RawMeshProcess::run.
//
// Dependent uuids are assigned by declaration position — materials
// first, then textures, both 1-indexed off uri — rather than by
// goroutine completion order, so a mesh's uuid set stays reproducible
// across runs regardless of processing concurrency (spec.md §8 "Asset
// uuid stability").
func ProcessMesh(reg *Registry, uri string, raw *MeshRaw) (Handle, error) {
	h := reg.RegisterEmptyAsset()

	packed := make([]PackedVertex, len(raw.Positions))
	for i, pos := range raw.Positions {
		n := raw.Normals[i]
		packed[i] = PackedVertex{
			Position: [3]float32{pos[0], pos[1], pos[2]},
			Normal:   packUnitDirection11_10_11(n[0], n[1], n[2]),
		}
	}

	aabb := calculateMeshAABB(raw.Positions)

	materialUUIDs := make([]UUID, len(raw.Materials))
	for i := range materialUUIDs {
		materialUUIDs[i] = DependentUUID(uri, uint32(i+1))
	}
	textureBase := uint32(len(raw.Materials))
	textureUUIDs := make([]UUID, len(raw.MaterialTextures))
	for i := range textureUUIDs {
		textureUUIDs[i] = DependentUUID(uri, textureBase+uint32(i+1))
	}

	materials := make([]Ref, len(raw.Materials))
	textures := make([]Ref, len(raw.MaterialTextures))

	g, _ := errgroup.WithContext(context.Background())
	for i := range raw.Materials {
		i := i
		g.Go(func() error {
			ref, err := ProcessMaterial(reg, materialUUIDs[i], &raw.Materials[i])
			if err != nil {
				return fmt.Errorf("asset: mesh %q material %d: %w", uri, i, err)
			}
			materials[i] = ref
			return nil
		})
	}
	for i := range raw.MaterialTextures {
		i := i
		g.Go(func() error {
			ref, err := ProcessTexture(reg, textureUUIDs[i], &raw.MaterialTextures[i])
			if err != nil {
				return fmt.Errorf("asset: mesh %q texture %d: %w", uri, i, err)
			}
			textures[i] = ref
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Handle{}, err
	}

	storage := &MeshStorage{
		Packed:           packed,
		Colors:           raw.Colors,
		Tangents:         raw.Tangents,
		UVs:              raw.UVs,
		Indices:          raw.Indices,
		AABB:             aabb,
		Materials:        materials,
		MaterialTextures: textures,
		MaterialIDs:      raw.MaterialIDs,
	}

	reg.UpdateMesh(h, RootUUID(uri), storage)
	return h, nil
}

// packUnitDirection11_10_11 packs a unit-length direction into a
// single u32: 11 bits x, 10 bits y, 11 bits z, each clamped to
// [-1, 1] and mapped onto their field's unsigned range, grounded 1:1
// on RawMeshProcess::pack_unit_direction_11_10_11.
func packUnitDirection11_10_11(x, y, z float32) uint32 {
	clamp := func(v float32) float32 {
		if v < -1 {
			return -1
		}
		if v > 1 {
			return 1
		}
		return v
	}
	px := uint32((clamp(x)*0.5 + 0.5) * float32((uint32(1)<<11)-1))
	py := uint32((clamp(y)*0.5 + 0.5) * float32((uint32(1)<<10)-1))
	pz := uint32((clamp(z)*0.5 + 0.5) * float32((uint32(1)<<11)-1))
	return (pz << 21) | (py << 11) | px
}

// calculateMeshAABB computes the bounding box of positions, expanded
// by a 0.01 epsilon on every axis to avoid a degenerate zero-volume
// box for planar geometry, grounded 1:1 on
// RawMeshProcess::calculate_mesh_aabb.
func calculateMeshAABB(positions []linear.V3) AABB {
	var aabb AABB
	if len(positions) > 0 {
		aabb.Min = positions[0]
		aabb.Max = positions[0]
	}
	for _, p := range positions {
		for a := 0; a < 3; a++ {
			if p[a] < aabb.Min[a] {
				aabb.Min[a] = p[a]
			}
			if p[a] > aabb.Max[a] {
				aabb.Max[a] = p[a]
			}
		}
	}
	const epsilon float32 = 0.01
	for a := 0; a < 3; a++ {
		aabb.Min[a] -= epsilon
		aabb.Max[a] += epsilon
	}
	return aabb
}
