// Copyright 2024 The Raven-Engine authors. All rights reserved.

package asset

import (
	"fmt"
	"math"
	"sync"

	"github.com/raven/rendergraph/driver"
	"github.com/raven/rendergraph/internal/bitm"
)

// Span identifies a byte range of a GPU buffer in units of
// spanBlock-sized blocks, adapted from engine/storage.go's
// unexported span/spanBlock idiom — rewritten here to take
// MeshStorage as its entry point instead of a glTF-derived
// PrimitiveData.
type Span struct {
	start, end int
}

const spanBlock = 512

func (s Span) byteStart() int64 { return int64(s.start) * spanBlock }
func (s Span) byteLen() int64   { return int64(s.end-s.start) * spanBlock }

// MeshUpload locates a baked mesh's vertex and index data inside the
// shared GPU mesh buffer.
type MeshUpload struct {
	Vertex      Span
	Index       Span
	VertexCount int
	IndexCount  int
}

// GPUUploader owns the single host-visible GPU buffer meshes and
// textures are uploaded into, span-allocated the same way
// engine/storage.go's meshBuffer manages its spanMap, grounded on
// meshBuffer.store/newEntry (both read in full) and adapted: the
// upload entry points here are asset.MeshStorage/asset.TextureStorage
// values produced by the processing stage, not PrimitiveData read
// from a glTF accessor.
type GPUUploader struct {
	mu      sync.Mutex
	gpu     driver.GPU
	buf     driver.Buffer
	spanMap bitm.Bitm[uint32]

	// staging holds every UploadTexture staging buffer whose copy has
	// been recorded but not yet known to have executed; the caller
	// must not call ReleaseStaging until the command buffer carrying
	// those copies has finished on the GPU (see engine/staging.go's
	// stagingBuffer.commit for the pattern this simplifies).
	staging []driver.Buffer
}

const spanMapNBit = 32

// NewGPUUploader creates an uploader with no backing buffer; the
// buffer grows on first use (mirrors SetMeshBuffer's lazy allocation
// path).
func NewGPUUploader(gpu driver.GPU) *GPUUploader {
	return &GPUUploader{gpu: gpu}
}

// store copies data into the shared buffer, growing it if necessary,
// and returns the span it occupies.
func (u *GPUUploader) store(data []byte) (Span, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	nb := (len(data) + (spanBlock - 1)) &^ (spanBlock - 1)
	ns := nb / spanBlock
	is, ok := u.spanMap.SearchRange(ns)
	if !ok {
		nplus := (ns + (spanMapNBit - 1)) / spanMapNBit
		bcap := int64(u.spanMap.Len()+nplus*spanMapNBit) * spanBlock
		buf, err := u.gpu.NewBuffer(bcap, true, driver.UVertexData|driver.UIndexData)
		if err != nil {
			return Span{}, fmt.Errorf("asset: grow upload buffer: %w", err)
		}
		if u.buf != nil {
			copy(buf.Bytes(), u.buf.Bytes())
			u.buf.Destroy()
		}
		u.buf = buf
		is = u.spanMap.Grow(nplus)
	}
	copy(u.buf.Bytes()[is*spanBlock:is*spanBlock+len(data)], data)
	for i := 0; i < ns; i++ {
		u.spanMap.Set(is + i)
	}
	return Span{start: is, end: is + ns}, nil
}

// Buffer returns the shared GPU buffer backing every upload so far.
func (u *GPUUploader) Buffer() driver.Buffer {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.buf
}

// UploadMesh copies m's packed vertex stream and index stream into
// the shared buffer.
func (u *GPUUploader) UploadMesh(m *MeshStorage) (MeshUpload, error) {
	vbytes := make([]byte, 0, len(m.Packed)*16)
	for _, v := range m.Packed {
		vbytes = append(vbytes, f32le(v.Position[0])...)
		vbytes = append(vbytes, f32le(v.Position[1])...)
		vbytes = append(vbytes, f32le(v.Position[2])...)
		vbytes = append(vbytes, u32le(v.Normal)...)
	}
	vspan, err := u.store(vbytes)
	if err != nil {
		return MeshUpload{}, err
	}

	ibytes := make([]byte, 0, len(m.Indices)*4)
	for _, idx := range m.Indices {
		ibytes = append(ibytes, u32le(idx)...)
	}
	ispan, err := u.store(ibytes)
	if err != nil {
		return MeshUpload{}, err
	}

	return MeshUpload{Vertex: vspan, Index: ispan, VertexCount: len(m.Packed), IndexCount: len(m.Indices)}, nil
}

// UploadTexture creates a sampled driver.Image for t's base LOD
// extent and copies every LOD level's bytes into it via a staging
// buffer, grounded on engine/staging.go's stagingBuffer/copyToView
// pattern (read in full) rewritten against asset.TextureStorage
// instead of a decoded glTF image. Each level's staging buffer is
// retained until the caller invokes ReleaseStaging once cb has
// finished executing; call UploadTexture again before that and the
// buffers from both calls are released together.
func (u *GPUUploader) UploadTexture(cb driver.CmdBuffer, t *TextureStorage, format driver.PixelFmt) (driver.Image, error) {
	levels := len(t.LODGroups)
	if levels == 0 {
		return nil, fmt.Errorf("asset: texture has no LOD levels")
	}
	size := driver.Dim3D{Width: int(t.Extent[0]), Height: int(t.Extent[1]), Depth: int(t.Extent[2])}
	img, err := u.gpu.NewImage(format, size, 1, levels, 1, driver.UShaderSample)
	if err != nil {
		return nil, fmt.Errorf("asset: create texture image: %w", err)
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	for lvl, bytes := range t.LODGroups {
		stage, err := u.gpu.NewBuffer(int64(len(bytes)), true, 0)
		if err != nil {
			img.Destroy()
			return nil, fmt.Errorf("asset: create staging buffer for LOD %d: %w", lvl, err)
		}
		copy(stage.Bytes(), bytes)
		w := size.Width >> uint(lvl)
		h := size.Height >> uint(lvl)
		if w < 1 {
			w = 1
		}
		if h < 1 {
			h = 1
		}
		cb.CopyBufToImg(&driver.BufImgCopy{
			Buf:   stage,
			Img:   img,
			Level: lvl,
			Layer: 0,
			Size:  driver.Dim3D{Width: w, Height: h, Depth: 1},
		})
		u.staging = append(u.staging, stage)
	}
	return img, nil
}

// ReleaseStaging destroys every staging buffer accumulated by
// UploadTexture calls so far. The caller must not call this until the
// command buffer(s) carrying those calls' CopyBufToImg commands have
// finished executing on the GPU, mirroring engine/staging.go's
// stagingBuffer pool, whose buffers are only reused or destroyed once
// commitStaging's fence wait returns.
func (u *GPUUploader) ReleaseStaging() {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, s := range u.staging {
		s.Destroy()
	}
	u.staging = u.staging[:0]
}

func f32le(v float32) []byte {
	var b [4]byte
	bits := math.Float32bits(v)
	b[0] = byte(bits)
	b[1] = byte(bits >> 8)
	b[2] = byte(bits >> 16)
	b[3] = byte(bits >> 24)
	return b[:]
}

func u32le(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}
