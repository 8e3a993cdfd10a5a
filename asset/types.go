// Copyright 2024 The Raven-Engine authors. All rights reserved.

package asset

import "github.com/raven/rendergraph/linear"

// Kind tags a registry slot's asset type (spec.md §3.2). Go has no
// closed sum type with per-variant payload the way the original's
// define_asset! macro expands into Raw/Storage structs with a shared
// Asset trait, so Kind is carried explicitly alongside each typed Ref
// (see registry.go).
type Kind int

const (
	KindVacant Kind = iota
	KindMesh
	KindTexture
	KindMaterial
	KindBaked
)

// Ref is a typed reference to a registry slot: a dense handle plus
// the content uuid that names its baked file on disk, and the kind
// tag checked before any downcast (spec.md §3.2 "Asset reference").
type Ref struct {
	Handle Handle
	UUID   UUID
	Kind   Kind
}

// PackedVertex is one entry of a Mesh.Storage's packed vertex stream:
// position plus a normal packed into a single u32 via
// pack_unit_direction_11_10_11 (spec.md §4.9).
type PackedVertex struct {
	Position [3]float32
	Normal   uint32
}

// MeshRaw is the decoder output for a mesh: ragged, CPU-only,
// unpacked attribute streams plus the embedded material/texture raw
// assets discovered while decoding (spec.md §3.2 "Mesh raw"),
// grounded on raven-core/src/asset/mod.rs's Mesh::Raw.
type MeshRaw struct {
	Positions []linear.V3
	Normals   []linear.V3
	Colors    [][4]float32
	UVs       [][2]float32
	Tangents  [][4]float32
	Indices   []uint32

	Materials         []MaterialRaw
	MaterialTextures  []TextureRaw
	MaterialIDs       []uint32
}

// MeshStorage is the GPU-ready, post-process form of a mesh: a packed
// vertex stream, trailing attributes kept unpacked, the index
// stream, its AABB, and typed references to its material/texture
// dependents (spec.md §3.2 "Storage asset").
type MeshStorage struct {
	Packed   []PackedVertex
	Colors   [][4]float32
	Tangents [][4]float32
	UVs      [][2]float32
	Indices  []uint32

	AABB AABB

	Materials        []Ref
	MaterialTextures []Ref
	MaterialIDs      []uint32
}

// AABB is an axis-aligned bounding box, expanded by a small epsilon
// on calculation to avoid a degenerate (zero-volume) box for planar
// geometry (spec.md §4.9, grounded on calculate_mesh_aabb's 0.01
// epsilon expansion).
type AABB struct {
	Min, Max linear.V3
}

// TextureSource tags how a texture's raw bytes are obtained. Go
// substitutes the original's enum-with-payload (TextureSource::
// Bytes(Bytes) / Source(PathBuf)) with a kind tag plus the relevant
// field left zero for the other variants — simpler than a tagged
// union type for a 4-variant, rarely-nested case (spec.md §3.2).
type TextureSourceKind int

const (
	TextureSourceEmpty TextureSourceKind = iota
	TextureSourcePlaceholder
	TextureSourceBytes
	TextureSourcePath
)

// TextureSource is a raw texture's data origin.
type TextureSource struct {
	Kind        TextureSourceKind
	Placeholder [4]uint8
	Bytes       []byte
	Path        string
}

// TextureGammaSpace selects how a texture's stored values should be
// interpreted when sampled.
type TextureGammaSpace int

const (
	GammaLinear TextureGammaSpace = iota
	GammaSRGB
)

// TextureDesc is a texture's processing configuration.
type TextureDesc struct {
	GammaSpace TextureGammaSpace
	UseMipmap  bool
}

// TextureRaw is the decoder output for a texture (spec.md §3.2
// "Texture raw").
type TextureRaw struct {
	Source TextureSource
	Desc   TextureDesc
}

// TextureStorage is the GPU-ready form of a texture: its extent and
// one byte slice per generated mip level (spec.md §4.9 Lanczos-3
// mipmap chain).
type TextureStorage struct {
	Extent    [3]uint32
	LODGroups [][]byte
}

// MaterialRaw is the decoder output for a material: scalar PBR
// parameters plus texture-slot mapping indices and per-texture 2x3
// transforms (spec.md §3.2 "Material raw"). TextureMapping indexes
// [albedo, normal, specular, emissive]; an entry of ^uint32(0) (max
// uint32) means "no texture bound to this slot".
type MaterialRaw struct {
	Metallic         float32
	Roughness        float32
	BaseColor        [4]float32
	Emissive         [3]float32
	TextureMapping   [4]uint32
	TextureTransform [4][6]float32
}

// MaterialStorage is the GPU-ready form of a material; field-for-
// field identical to MaterialRaw except the texture indices now name
// registry-resolved Refs elsewhere (the indices themselves are kept
// raw in Storage, resolved to Refs only via the owning Mesh's
// MaterialTextures slice, following the original's layout exactly).
type MaterialStorage struct {
	Metallic         float32
	Roughness        float32
	BaseColor        [4]float32
	Emissive         [3]float32
	TextureMapping   [4]uint32
	TextureTransform [4][6]float32
}
