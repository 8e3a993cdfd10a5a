// Copyright 2024 The Raven-Engine authors. All rights reserved.

package asset

import "fmt"

// ImageLoader loads a standalone image file (.png, .jpg, .bmp, ...)
// as a texture's raw bytes, deferring format decoding to
// ProcessTexture. Grounded on asset_manager.rs's
// LoadAssetTextureType::Jpg / JpgTextureLoader, generalized to any
// format process_texture.go's decodeImage can sniff.
type ImageLoader struct {
	uri       string
	fs        *ProjectFS
	gamma     TextureGammaSpace
	useMipmap bool
}

// NewImageLoader creates a loader for uri, resolved against fs.
// generateMipmap mirrors JpgTextureLoader::generate_mipmap(true)'s
// default for standalone color textures.
func NewImageLoader(fs *ProjectFS, uri string, gamma TextureGammaSpace, generateMipmap bool) *ImageLoader {
	return &ImageLoader{uri: uri, fs: fs, gamma: gamma, useMipmap: generateMipmap}
}

func (l *ImageLoader) URI() string     { return l.uri }
func (l *ImageLoader) AssetKind() Kind { return KindTexture }

func (l *ImageLoader) Load() (*LoadedAsset, error) {
	data, err := l.fs.ReadFile(l.uri)
	if err != nil {
		return nil, fmt.Errorf("asset: image %s: %w", l.uri, err)
	}
	raw := &TextureRaw{
		Source: TextureSource{Kind: TextureSourceBytes, Bytes: data},
		Desc:   TextureDesc{GammaSpace: l.gamma, UseMipmap: l.useMipmap},
	}
	return &LoadedAsset{URI: l.uri, Kind: KindTexture, Texture: raw}, nil
}

// PlaceholderTextureRaw builds the 1x1 solid-color raw texture used
// when a mesh references a texture slot with no backing image,
// grounded on Texture::Raw's Placeholder variant (asset_process.rs's
// TextureSource::Placeholder short-circuit).
func PlaceholderTextureRaw(rgba [4]uint8) *TextureRaw {
	return &TextureRaw{
		Source: TextureSource{Kind: TextureSourcePlaceholder, Placeholder: rgba},
		Desc:   TextureDesc{GammaSpace: GammaLinear, UseMipmap: false},
	}
}
