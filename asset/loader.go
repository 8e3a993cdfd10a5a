// Copyright 2024 The Raven-Engine authors. All rights reserved.

package asset

import (
	"fmt"
	"path/filepath"
	"strings"
)

// MeshExtension names a recognized mesh source file format, grounded
// on AssetLoadDesc::load_mesh's extract_mesh_type (LoadAssetMeshType::
// Gltf/Obj). Only Gltf has a Loader implementation; Obj is named here
// because asset_manager.rs enumerates it, but the original itself
// never implements it either (its Obj arm is unimplemented!()).
type MeshExtension int

const (
	MeshExtensionGltf MeshExtension = iota
	MeshExtensionObj
)

// TextureExtension names a recognized texture source file format,
// grounded on extract_texture_type (LoadAssetTextureType::Jpg/Png).
type TextureExtension int

const (
	TextureExtensionJpg TextureExtension = iota
	TextureExtensionPng
	TextureExtensionBmp
	TextureExtensionGif
)

// ExtractMeshType classifies uri by its file extension, grounded 1:1
// on extract_mesh_type.
func ExtractMeshType(uri string) (MeshExtension, error) {
	switch strings.ToLower(filepath.Ext(uri)) {
	case ".gltf", ".glb":
		return MeshExtensionGltf, nil
	case ".obj":
		return MeshExtensionObj, nil
	default:
		return 0, fmt.Errorf("%w: mesh extension %q", ErrUnknownLoader, filepath.Ext(uri))
	}
}

// ExtractTextureType classifies uri by its file extension, grounded
// 1:1 on extract_texture_type.
func ExtractTextureType(uri string) (TextureExtension, error) {
	switch strings.ToLower(filepath.Ext(uri)) {
	case ".jpg", ".jpeg":
		return TextureExtensionJpg, nil
	case ".png":
		return TextureExtensionPng, nil
	case ".bmp":
		return TextureExtensionBmp, nil
	case ".gif":
		return TextureExtensionGif, nil
	default:
		return 0, fmt.Errorf("%w: texture extension %q", ErrUnknownLoader, filepath.Ext(uri))
	}
}

// NewMeshLoader resolves uri to the Loader that handles its mesh file
// format, grounded on AssetLoadDesc::load_mesh + load_asset's
// LoadAssetType::Mesh match arm.
func NewMeshLoader(fs *ProjectFS, uri string) (Loader, error) {
	ty, err := ExtractMeshType(uri)
	if err != nil {
		return nil, err
	}
	switch ty {
	case MeshExtensionGltf:
		return NewGltfLoader(fs, uri), nil
	default:
		return nil, fmt.Errorf("%w: mesh extension %q has no loader implementation", ErrUnknownLoader, filepath.Ext(uri))
	}
}

// NewTextureLoader resolves uri to the Loader that handles its
// texture file format, grounded on AssetLoadDesc::load_texture +
// load_asset's LoadAssetType::Texture match arm (the original only
// implements Jpg; here every format decodeImage can sniff is wired,
// since Go's image codecs make Png/Bmp/Gif equally cheap to support).
func NewTextureLoader(fs *ProjectFS, uri string, gamma TextureGammaSpace, generateMipmap bool) (Loader, error) {
	if _, err := ExtractTextureType(uri); err != nil {
		return nil, err
	}
	return NewImageLoader(fs, uri, gamma, generateMipmap), nil
}
