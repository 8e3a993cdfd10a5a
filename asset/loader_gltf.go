// Copyright 2024 The Raven-Engine authors. All rights reserved.

package asset

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/raven/rendergraph/gltf"
	"github.com/raven/rendergraph/linear"
)

// GltfLoader decodes a glTF 2.0 document (.gltf or .glb) into a
// MeshRaw, flattening every mesh in the document (regardless of
// scene membership) into one combined mesh and its materials/textures
// into the mesh's
// dependents. Grounded on asset_manager.rs's GltfMeshLoader plumbing
// (AssetLoadDesc::load_mesh/LoadAssetMeshType::Gltf) and the
// teacher's own `gltf` package for parsing; the teacher repo itself
// has no mesh-loading call site to adapt, so the attribute→MeshRaw
// flattening below is original, written in the gltf package's own
// idiom (plain structs decoded by encoding/json, GLB chunk unpacking
// via gltf.Unpack).
type GltfLoader struct {
	uri string
	fs  *ProjectFS
}

// NewGltfLoader creates a loader for uri, resolved against fs.
func NewGltfLoader(fs *ProjectFS, uri string) *GltfLoader {
	return &GltfLoader{uri: uri, fs: fs}
}

func (l *GltfLoader) URI() string     { return l.uri }
func (l *GltfLoader) AssetKind() Kind { return KindMesh }

func (l *GltfLoader) Load() (*LoadedAsset, error) {
	data, err := l.fs.ReadFile(l.uri)
	if err != nil {
		return nil, fmt.Errorf("asset: gltf %s: %w", l.uri, err)
	}

	var doc *gltf.GLTF
	var bin []byte
	if gltf.IsGLB(bytes.NewReader(data)) {
		doc, bin, err = gltf.Unpack(bytes.NewReader(data))
	} else {
		doc, err = gltf.Decode(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("asset: gltf %s: %w", l.uri, err)
	}

	if bin == nil && len(doc.Buffers) > 0 {
		bin, err = l.resolveBuffer(doc.Buffers[0])
		if err != nil {
			return nil, fmt.Errorf("asset: gltf %s: %w", l.uri, err)
		}
	}

	raw, err := l.flatten(doc, bin)
	if err != nil {
		return nil, fmt.Errorf("asset: gltf %s: %w", l.uri, err)
	}
	return &LoadedAsset{URI: l.uri, Kind: KindMesh, Mesh: raw}, nil
}

// resolveBuffer resolves a glTF buffer's bytes from either an
// embedded data: URI or a sibling file on the project filesystem.
func (l *GltfLoader) resolveBuffer(buf gltf.Buffer) ([]byte, error) {
	if strings.HasPrefix(buf.URI, "data:") {
		i := strings.IndexByte(buf.URI, ',')
		if i < 0 {
			return nil, fmt.Errorf("malformed data URI")
		}
		return base64.StdEncoding.DecodeString(buf.URI[i+1:])
	}
	return l.fs.ReadFile(buf.URI)
}

// flatten merges every primitive of every mesh in doc into one
// MeshRaw, offsetting indices to keep them valid against the combined
// vertex streams, and appends one MaterialRaw per referenced glTF
// material plus one TextureRaw for each such material that has a
// base-color texture.
func (l *GltfLoader) flatten(doc *gltf.GLTF, bin []byte) (*MeshRaw, error) {
	raw := &MeshRaw{}
	materialIndex := make(map[int64]uint32)

	for _, mesh := range doc.Meshes {
		for _, prim := range mesh.Primitives {
			base := uint32(len(raw.Positions))

			posIdx, ok := prim.Attributes["POSITION"]
			if !ok {
				continue
			}
			positions, err := readVec3Accessor(doc, bin, posIdx)
			if err != nil {
				return nil, err
			}
			raw.Positions = append(raw.Positions, positions...)

			if idx, ok := prim.Attributes["NORMAL"]; ok {
				normals, err := readVec3Accessor(doc, bin, idx)
				if err != nil {
					return nil, err
				}
				raw.Normals = append(raw.Normals, normals...)
			} else {
				raw.Normals = append(raw.Normals, make([]linear.V3, len(positions))...)
			}

			if idx, ok := prim.Attributes["COLOR_0"]; ok {
				colors, err := readVec4Accessor(doc, bin, idx)
				if err != nil {
					return nil, err
				}
				raw.Colors = append(raw.Colors, colors...)
			}

			if idx, ok := prim.Attributes["TEXCOORD_0"]; ok {
				uvs, err := readVec2Accessor(doc, bin, idx)
				if err != nil {
					return nil, err
				}
				raw.UVs = append(raw.UVs, uvs...)
			}

			if idx, ok := prim.Attributes["TANGENT"]; ok {
				tangents, err := readVec4Accessor(doc, bin, idx)
				if err != nil {
					return nil, err
				}
				raw.Tangents = append(raw.Tangents, tangents...)
			}

			matID := uint32(0)
			if prim.Material != nil {
				if id, ok := materialIndex[*prim.Material]; ok {
					matID = id
				} else {
					matRaw, texRaw, err := l.convertMaterial(doc, bin, *prim.Material)
					if err != nil {
						return nil, err
					}
					matID = uint32(len(raw.Materials))
					raw.Materials = append(raw.Materials, matRaw)
					if texRaw != nil {
						raw.MaterialTextures = append(raw.MaterialTextures, *texRaw)
					}
					materialIndex[*prim.Material] = matID
				}
			}

			if prim.Indices != nil {
				idx, err := readIndexAccessor(doc, bin, *prim.Indices)
				if err != nil {
					return nil, err
				}
				for _, v := range idx {
					raw.Indices = append(raw.Indices, v+base)
					raw.MaterialIDs = append(raw.MaterialIDs, matID)
				}
			}
		}
	}

	return raw, nil
}

// convertMaterial converts one glTF material into a MaterialRaw, and
// its base-color texture (if any) into a TextureRaw.
func (l *GltfLoader) convertMaterial(doc *gltf.GLTF, bin []byte, idx int64) (MaterialRaw, *TextureRaw, error) {
	m := doc.Materials[idx]
	out := MaterialRaw{Metallic: 1, Roughness: 1, BaseColor: [4]float32{1, 1, 1, 1}}
	out.TextureMapping = [4]uint32{^uint32(0), ^uint32(0), ^uint32(0), ^uint32(0)}
	for i := range out.TextureTransform {
		out.TextureTransform[i] = [6]float32{1, 0, 0, 1, 0, 0}
	}

	if m.EmissiveFactor != nil {
		out.Emissive = *m.EmissiveFactor
	}

	var texRaw *TextureRaw
	if pbr := m.PBRMetallicRoughness; pbr != nil {
		if pbr.BaseColorFactor != nil {
			out.BaseColor = *pbr.BaseColorFactor
		}
		if pbr.MetallicFactor != nil {
			out.Metallic = *pbr.MetallicFactor
		}
		if pbr.RoughnessFactor != nil {
			out.Roughness = *pbr.RoughnessFactor
		}
		if pbr.BaseColorTexture != nil {
			bytesOut, err := l.textureBytes(doc, bin, pbr.BaseColorTexture.Index)
			if err != nil {
				return out, nil, err
			}
			out.TextureMapping[0] = 0
			texRaw = &TextureRaw{
				Source: TextureSource{Kind: TextureSourceBytes, Bytes: bytesOut},
				Desc:   TextureDesc{GammaSpace: GammaSRGB, UseMipmap: true},
			}
		}
	}

	return out, texRaw, nil
}

func (l *GltfLoader) textureBytes(doc *gltf.GLTF, bin []byte, texIdx int64) ([]byte, error) {
	tex := doc.Textures[texIdx]
	if tex.Source == nil {
		return nil, fmt.Errorf("texture %d has no source image", texIdx)
	}
	img := doc.Images[*tex.Source]
	if img.BufferView != nil {
		return readBufferView(doc, bin, *img.BufferView)
	}
	if strings.HasPrefix(img.URI, "data:") {
		i := strings.IndexByte(img.URI, ',')
		if i < 0 {
			return nil, fmt.Errorf("malformed image data URI")
		}
		return base64.StdEncoding.DecodeString(img.URI[i+1:])
	}
	return l.fs.ReadFile(img.URI)
}
