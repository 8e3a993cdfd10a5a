// Copyright 2024 The Raven-Engine authors. All rights reserved.

package asset

import (
	"fmt"
	"os"
	"path/filepath"
)

// EncodeMesh packs m into its on-disk byte representation.
func EncodeMesh(m *MeshStorage) []byte {
	root := newByteTree()

	packed := packVecHeader(root, uint64(len(m.Packed)))
	for _, v := range m.Packed {
		packF32Slice(packed, v.Position[:])
		packU32(packed, v.Normal)
	}

	colors := packVecHeader(root, uint64(len(m.Colors)))
	for _, c := range m.Colors {
		packF32Slice(colors, c[:])
	}

	tangents := packVecHeader(root, uint64(len(m.Tangents)))
	for _, t := range m.Tangents {
		packF32Slice(tangents, t[:])
	}

	uvs := packVecHeader(root, uint64(len(m.UVs)))
	for _, uv := range m.UVs {
		packF32Slice(uvs, uv[:])
	}

	indices := packVecHeader(root, uint64(len(m.Indices)))
	for _, idx := range m.Indices {
		packU32(indices, idx)
	}

	packF32Slice(root, []float32{m.AABB.Min[0], m.AABB.Min[1], m.AABB.Min[2]})
	packF32Slice(root, []float32{m.AABB.Max[0], m.AABB.Max[1], m.AABB.Max[2]})

	materials := packVecHeader(root, uint64(len(m.Materials)))
	for _, ref := range m.Materials {
		packU64(materials, uint64(ref.UUID))
	}

	textures := packVecHeader(root, uint64(len(m.MaterialTextures)))
	for _, ref := range m.MaterialTextures {
		packU64(textures, uint64(ref.UUID))
	}

	ids := packVecHeader(root, uint64(len(m.MaterialIDs)))
	for _, id := range m.MaterialIDs {
		packU32(ids, id)
	}

	return flattenByteTree(root)
}

// DecodeMesh unpacks a byte buffer produced by EncodeMesh. Material
// and texture dependents are returned as Refs carrying only their
// uuid and Kind (KindMaterial/KindTexture) with no Handle; the caller
// resolves them against a Registry after loading the dependent files
// (asset/manager.go).
func DecodeMesh(buf []byte) (*MeshStorage, error) {
	r := newFieldReader(buf)

	packedLen, packedOff, err := r.vecHeader()
	if err != nil {
		return nil, fmt.Errorf("asset: decode mesh: %w", err)
	}
	packed := make([]PackedVertex, packedLen)
	pr := &fieldReader{buf: buf, off: packedOff}
	for i := range packed {
		pos, err := pr.f32s(3)
		if err != nil {
			return nil, fmt.Errorf("asset: decode mesh packed[%d]: %w", i, err)
		}
		normal, err := pr.u32()
		if err != nil {
			return nil, fmt.Errorf("asset: decode mesh packed[%d]: %w", i, err)
		}
		packed[i] = PackedVertex{Position: [3]float32{pos[0], pos[1], pos[2]}, Normal: normal}
	}

	colorsLen, colorsOff, err := r.vecHeader()
	if err != nil {
		return nil, err
	}
	colors := make([][4]float32, colorsLen)
	cr := &fieldReader{buf: buf, off: colorsOff}
	for i := range colors {
		v, err := cr.f32s(4)
		if err != nil {
			return nil, err
		}
		copy(colors[i][:], v)
	}

	tangentsLen, tangentsOff, err := r.vecHeader()
	if err != nil {
		return nil, err
	}
	tangents := make([][4]float32, tangentsLen)
	tr := &fieldReader{buf: buf, off: tangentsOff}
	for i := range tangents {
		v, err := tr.f32s(4)
		if err != nil {
			return nil, err
		}
		copy(tangents[i][:], v)
	}

	uvsLen, uvsOff, err := r.vecHeader()
	if err != nil {
		return nil, err
	}
	uvs := make([][2]float32, uvsLen)
	ur := &fieldReader{buf: buf, off: uvsOff}
	for i := range uvs {
		v, err := ur.f32s(2)
		if err != nil {
			return nil, err
		}
		copy(uvs[i][:], v)
	}

	idxLen, idxOff, err := r.vecHeader()
	if err != nil {
		return nil, err
	}
	indices := make([]uint32, idxLen)
	ir := &fieldReader{buf: buf, off: idxOff}
	for i := range indices {
		v, err := ir.u32()
		if err != nil {
			return nil, err
		}
		indices[i] = v
	}

	aabbMin, err := r.f32s(3)
	if err != nil {
		return nil, err
	}
	aabbMax, err := r.f32s(3)
	if err != nil {
		return nil, err
	}

	matLen, matOff, err := r.vecHeader()
	if err != nil {
		return nil, err
	}
	materials := make([]Ref, matLen)
	mr := &fieldReader{buf: buf, off: matOff}
	for i := range materials {
		v, err := mr.u64()
		if err != nil {
			return nil, err
		}
		materials[i] = Ref{UUID: UUID(v), Kind: KindMaterial}
	}

	texLen, texOff, err := r.vecHeader()
	if err != nil {
		return nil, err
	}
	textures := make([]Ref, texLen)
	txr := &fieldReader{buf: buf, off: texOff}
	for i := range textures {
		v, err := txr.u64()
		if err != nil {
			return nil, err
		}
		textures[i] = Ref{UUID: UUID(v), Kind: KindTexture}
	}

	idsLen, idsOff, err := r.vecHeader()
	if err != nil {
		return nil, err
	}
	ids := make([]uint32, idsLen)
	idr := &fieldReader{buf: buf, off: idsOff}
	for i := range ids {
		v, err := idr.u32()
		if err != nil {
			return nil, err
		}
		ids[i] = v
	}

	return &MeshStorage{
		Packed:           packed,
		Colors:           colors,
		Tangents:         tangents,
		UVs:              uvs,
		Indices:          indices,
		AABB:             AABB{Min: [3]float32{aabbMin[0], aabbMin[1], aabbMin[2]}, Max: [3]float32{aabbMax[0], aabbMax[1], aabbMax[2]}},
		Materials:        materials,
		MaterialTextures: textures,
		MaterialIDs:      ids,
	}, nil
}

// EncodeTexture packs t into its on-disk byte representation: extent
// plus one variable-length entry per LOD level (a Vec<Vec<u8>>).
func EncodeTexture(t *TextureStorage) []byte {
	root := newByteTree()
	packU32(root, t.Extent[0])
	packU32(root, t.Extent[1])
	packU32(root, t.Extent[2])

	lods := packVecHeader(root, uint64(len(t.LODGroups)))
	for _, lod := range t.LODGroups {
		packVecBytes(lods, lod)
	}

	return flattenByteTree(root)
}

// DecodeTexture unpacks a byte buffer produced by EncodeTexture.
func DecodeTexture(buf []byte) (*TextureStorage, error) {
	r := newFieldReader(buf)
	w, err := r.u32()
	if err != nil {
		return nil, fmt.Errorf("asset: decode texture: %w", err)
	}
	h, err := r.u32()
	if err != nil {
		return nil, err
	}
	d, err := r.u32()
	if err != nil {
		return nil, err
	}

	lodLen, lodOff, err := r.vecHeader()
	if err != nil {
		return nil, err
	}
	lods := make([][]byte, lodLen)
	for i := range lods {
		lods[i], err = flatVecOfVecIndex(buf, lodLen, lodOff, i)
		if err != nil {
			return nil, err
		}
	}

	return &TextureStorage{Extent: [3]uint32{w, h, d}, LODGroups: lods}, nil
}

// LODLevel decodes only the i-th mip level out of buf, a byte buffer
// produced by EncodeTexture, without decoding the sibling levels —
// the streaming-friendly path spec.md §8's "Packed nested-array
// index query" testable property exercises.
func LODLevel(buf []byte, i int) ([]byte, error) {
	r := newFieldReader(buf)
	if _, err := r.u32(); err != nil {
		return nil, err
	}
	if _, err := r.u32(); err != nil {
		return nil, err
	}
	if _, err := r.u32(); err != nil {
		return nil, err
	}
	lodLen, lodOff, err := r.vecHeader()
	if err != nil {
		return nil, err
	}
	return flatVecOfVecIndex(buf, lodLen, lodOff, i)
}

// EncodeMaterial packs m into its on-disk byte representation —
// a flat, fixed-size record (RawMaterialProcess::run's storage has no
// variable-length fields).
func EncodeMaterial(m *MaterialStorage) []byte {
	root := newByteTree()
	packF32(root, m.Metallic)
	packF32(root, m.Roughness)
	packF32Slice(root, m.BaseColor[:])
	packF32Slice(root, m.Emissive[:])
	for _, v := range m.TextureMapping {
		packU32(root, v)
	}
	for _, transform := range m.TextureTransform {
		packF32Slice(root, transform[:])
	}
	return flattenByteTree(root)
}

// DecodeMaterial unpacks a byte buffer produced by EncodeMaterial.
func DecodeMaterial(buf []byte) (*MaterialStorage, error) {
	r := newFieldReader(buf)
	metallic, err := r.f32()
	if err != nil {
		return nil, fmt.Errorf("asset: decode material: %w", err)
	}
	roughness, err := r.f32()
	if err != nil {
		return nil, err
	}
	baseColor, err := r.f32s(4)
	if err != nil {
		return nil, err
	}
	emissive, err := r.f32s(3)
	if err != nil {
		return nil, err
	}
	var mapping [4]uint32
	for i := range mapping {
		mapping[i], err = r.u32()
		if err != nil {
			return nil, err
		}
	}
	var transform [4][6]float32
	for i := range transform {
		v, err := r.f32s(6)
		if err != nil {
			return nil, err
		}
		copy(transform[i][:], v)
	}

	m := &MaterialStorage{Metallic: metallic, Roughness: roughness, TextureMapping: mapping, TextureTransform: transform}
	copy(m.BaseColor[:], baseColor)
	copy(m.Emissive[:], emissive)
	return m, nil
}

// IsBaked reports whether uuid's baked file already exists under dir,
// the skip-rule checked before (re-)baking an asset (spec.md §4.9,
// grounded on AssetManager::is_baked).
func IsBaked(dir string, uuid UUID, kind Kind) bool {
	_, err := os.Stat(bakedPath(dir, uuid, kind))
	return err == nil
}

func bakedPath(dir string, uuid UUID, kind Kind) string {
	switch kind {
	case KindMesh:
		return filepath.Join(dir, MeshFileName(uuid))
	case KindTexture:
		return filepath.Join(dir, TextureFileName(uuid))
	case KindMaterial:
		return filepath.Join(dir, MaterialFileName(uuid))
	default:
		return ""
	}
}

// Bake writes data to uuid's content-addressed file under dir,
// skipping the write entirely if the file is already baked. The write
// goes to a temp file that is renamed into place, so a crash mid-bake
// never leaves a truncated file at the final path.
func Bake(dir string, uuid UUID, kind Kind, data []byte) error {
	path := bakedPath(dir, uuid, kind)
	if path == "" {
		return fmt.Errorf("%w: cannot bake kind %d", ErrBakeFailure, kind)
	}
	if IsBaked(dir, uuid, kind) {
		return nil
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrBakeFailure, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("%w: %v", ErrBakeFailure, err)
	}
	return nil
}
