// Copyright 2024 The Raven-Engine authors. All rights reserved.

package asset

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"math/bits"

	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
)

// lanczos3Support is the kernel half-width in source-pixel units; the
// original's image crate uses the same 3-lobe Lanczos window for its
// FilterType::Lanczos3 (asset_process.rs's down_sample_func).
const lanczos3Support = 3.0

func lanczos3(x float64) float64 {
	if x == 0 {
		return 1
	}
	if x < -lanczos3Support || x > lanczos3Support {
		return 0
	}
	px := math.Pi * x
	return lanczos3Support * math.Sin(px) * math.Sin(px/lanczos3Support) / (px * px)
}

// lanczos3Kernel adapts lanczos3 to x/image/draw's separable-kernel
// resampler, grounded on esimov-caire and gogpu-gg both depending on
// golang.org/x/image for this kind of image-processing plumbing: the
// ecosystem has no standalone Lanczos3 decimator, but draw.Kernel is
// built exactly to host a custom windowed-sinc tap function.
var lanczos3Kernel = xdraw.Kernel{Support: lanczos3Support, At: lanczos3}

func downsampleHalf(src image.Image) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx()>>1, b.Dy()>>1
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	lanczos3Kernel.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)
	return dst
}

// decodeImage sniffs and decodes bytes via the registered stdlib
// codecs plus golang.org/x/image/bmp, mirroring the original's
// image::load_from_memory auto-detection.
func decodeImage(raw []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("asset: decode texture: %w", err)
	}
	return img, nil
}

func toRGBA8(img image.Image) []byte {
	b := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok {
		rgba = image.NewRGBA(b)
		draw.Draw(rgba, b, img, b.Min, draw.Src)
	}
	if rgba.Stride == b.Dx()*4 && b.Min == (image.Point{}) {
		return rgba.Pix
	}
	out := make([]byte, b.Dx()*b.Dy()*4)
	row := b.Dx() * 4
	for y := 0; y < b.Dy(); y++ {
		src := rgba.PixOffset(b.Min.X, b.Min.Y+y)
		copy(out[y*row:(y+1)*row], rgba.Pix[src:src+row])
	}
	return out
}

// maxMipmapLevel2D returns the number of mip levels a width x height
// 2D image chain has down to a 1x1 base level, grounded on
// raven_math::max_mipmap_level_2d.
func maxMipmapLevel2D(width, height uint32) int {
	m := width
	if height > m {
		m = height
	}
	if m == 0 {
		return 1
	}
	return bits.Len32(m)
}

// ProcessTexture converts a decoded TextureRaw into GPU-ready
// TextureStorage and registers it under uuid, grounded 1:1 on
// asset_process.rs's RawTextureProcess::run including its Placeholder
// short-circuit and the idiosyncrasy that, when mipmapping is
// enabled, the stored "level 0" is already a half-resolution
// downsample of the decoded source — the full-resolution image itself
// is never retained in LODGroups.
func ProcessTexture(reg *Registry, uuid UUID, raw *TextureRaw) (Ref, error) {
	h := reg.RegisterEmptyAsset()

	switch raw.Source.Kind {
	case TextureSourceEmpty:
		return Ref{}, fmt.Errorf("asset: processing an Empty texture source is unreachable")

	case TextureSourcePlaceholder:
		storage := &TextureStorage{
			Extent:    [3]uint32{1, 1, 1},
			LODGroups: [][]byte{append([]byte(nil), raw.Source.Placeholder[:]...)},
		}
		reg.UpdateTexture(h, uuid, storage)
		return Ref{Handle: h, UUID: uuid, Kind: KindTexture}, nil

	case TextureSourceBytes:
		img, err := decodeImage(raw.Source.Bytes)
		if err != nil {
			return Ref{}, err
		}
		extent := [3]uint32{uint32(img.Bounds().Dx()), uint32(img.Bounds().Dy()), 1}

		var lodGroups [][]byte
		if raw.Desc.UseMipmap {
			level := maxMipmapLevel2D(extent[0], extent[1])
			cur := downsampleHalf(img)
			lodGroups = append(lodGroups, toRGBA8(cur))
			for i := 1; i < level; i++ {
				next := downsampleHalf(cur)
				lodGroups = append(lodGroups, toRGBA8(next))
				cur = next
			}
		} else {
			lodGroups = [][]byte{toRGBA8(img)}
		}

		storage := &TextureStorage{Extent: extent, LODGroups: lodGroups}
		reg.UpdateTexture(h, uuid, storage)
		return Ref{Handle: h, UUID: uuid, Kind: KindTexture}, nil

	case TextureSourcePath:
		return Ref{}, fmt.Errorf("asset: texture path %q must be resolved to Bytes before processing", raw.Source.Path)

	default:
		return Ref{}, fmt.Errorf("asset: unknown texture source kind %d", raw.Source.Kind)
	}
}
