// Copyright 2024 The Raven-Engine authors. All rights reserved.

package asset

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/raven/rendergraph/gltf"
	"github.com/raven/rendergraph/linear"
)

func componentSize(componentType int64) (int, error) {
	switch componentType {
	case gltf.BYTE, gltf.UNSIGNED_BYTE:
		return 1, nil
	case gltf.SHORT, gltf.UNSIGNED_SHORT:
		return 2, nil
	case gltf.UNSIGNED_INT, gltf.FLOAT:
		return 4, nil
	default:
		return 0, fmt.Errorf("unsupported componentType %d", componentType)
	}
}

func typeComponents(ty string) (int, error) {
	switch ty {
	case gltf.SCALAR:
		return 1, nil
	case gltf.VEC2:
		return 2, nil
	case gltf.VEC3:
		return 3, nil
	case gltf.VEC4:
		return 4, nil
	default:
		return 0, fmt.Errorf("unsupported accessor type %q", ty)
	}
}

func readBufferView(doc *gltf.GLTF, bin []byte, idx int64) ([]byte, error) {
	if int(idx) >= len(doc.BufferViews) {
		return nil, fmt.Errorf("bufferView index %d out of range", idx)
	}
	bv := doc.BufferViews[idx]
	start := bv.ByteOffset
	end := start + bv.ByteLength
	if end > int64(len(bin)) {
		return nil, fmt.Errorf("bufferView %d out of range of buffer (len %d)", idx, len(bin))
	}
	return bin[start:end], nil
}

// readFloats decodes accessorIdx's raw components as float32, one
// scalar component at a time, normalizing integer component types
// per the accessor's Normalized flag (glTF 2.0 spec §3.6.2.1).
func readFloats(doc *gltf.GLTF, bin []byte, accessorIdx int64) ([]float32, int, error) {
	if int(accessorIdx) >= len(doc.Accessors) {
		return nil, 0, fmt.Errorf("accessor index %d out of range", accessorIdx)
	}
	acc := doc.Accessors[accessorIdx]
	if acc.BufferView == nil {
		return make([]float32, int(acc.Count)*mustComponents(acc.Type)), mustComponents(acc.Type), nil
	}
	compN, err := typeComponents(acc.Type)
	if err != nil {
		return nil, 0, err
	}
	compSize, err := componentSize(acc.ComponentType)
	if err != nil {
		return nil, 0, err
	}
	view, err := readBufferView(doc, bin, *acc.BufferView)
	if err != nil {
		return nil, 0, err
	}
	stride := int(doc.BufferViews[*acc.BufferView].ByteStride)
	if stride == 0 {
		stride = compN * compSize
	}

	out := make([]float32, int(acc.Count)*compN)
	base := int(acc.ByteOffset)
	for i := 0; i < int(acc.Count); i++ {
		elemOff := base + i*stride
		for c := 0; c < compN; c++ {
			off := elemOff + c*compSize
			if off+compSize > len(view) {
				return nil, 0, fmt.Errorf("accessor %d element %d out of range", accessorIdx, i)
			}
			out[i*compN+c] = decodeComponent(view[off:off+compSize], acc.ComponentType, acc.Normalized)
		}
	}
	return out, compN, nil
}

func mustComponents(ty string) int {
	n, _ := typeComponents(ty)
	return n
}

func decodeComponent(b []byte, componentType int64, normalized bool) float32 {
	switch componentType {
	case gltf.FLOAT:
		return math.Float32frombits(binary.LittleEndian.Uint32(b))
	case gltf.BYTE:
		v := int8(b[0])
		if normalized {
			return float32(math.Max(float64(v)/127, -1))
		}
		return float32(v)
	case gltf.SHORT:
		v := int16(binary.LittleEndian.Uint16(b))
		if normalized {
			return float32(math.Max(float64(v)/32767, -1))
		}
		return float32(v)
	case gltf.UNSIGNED_BYTE:
		v := b[0]
		if normalized {
			return float32(v) / 255
		}
		return float32(v)
	case gltf.UNSIGNED_SHORT:
		v := binary.LittleEndian.Uint16(b)
		if normalized {
			return float32(v) / 65535
		}
		return float32(v)
	case gltf.UNSIGNED_INT:
		return float32(binary.LittleEndian.Uint32(b))
	default:
		return 0
	}
}

func readVec3Accessor(doc *gltf.GLTF, bin []byte, idx int64) ([]linear.V3, error) {
	flat, n, err := readFloats(doc, bin, idx)
	if err != nil {
		return nil, err
	}
	if n != 3 {
		return nil, fmt.Errorf("accessor %d: expected VEC3, got %d components", idx, n)
	}
	out := make([]linear.V3, len(flat)/3)
	for i := range out {
		out[i] = linear.V3{flat[i*3], flat[i*3+1], flat[i*3+2]}
	}
	return out, nil
}

func readVec2Accessor(doc *gltf.GLTF, bin []byte, idx int64) ([][2]float32, error) {
	flat, n, err := readFloats(doc, bin, idx)
	if err != nil {
		return nil, err
	}
	if n != 2 {
		return nil, fmt.Errorf("accessor %d: expected VEC2, got %d components", idx, n)
	}
	out := make([][2]float32, len(flat)/2)
	for i := range out {
		out[i] = [2]float32{flat[i*2], flat[i*2+1]}
	}
	return out, nil
}

func readVec4Accessor(doc *gltf.GLTF, bin []byte, idx int64) ([][4]float32, error) {
	flat, n, err := readFloats(doc, bin, idx)
	if err != nil {
		return nil, err
	}
	if n != 4 {
		return nil, fmt.Errorf("accessor %d: expected VEC4, got %d components", idx, n)
	}
	out := make([][4]float32, len(flat)/4)
	for i := range out {
		out[i] = [4]float32{flat[i*4], flat[i*4+1], flat[i*4+2], flat[i*4+3]}
	}
	return out, nil
}

// readIndexAccessor decodes an index accessor (SCALAR, unsigned
// integer component types) into a flat uint32 slice.
func readIndexAccessor(doc *gltf.GLTF, bin []byte, idx int64) ([]uint32, error) {
	if int(idx) >= len(doc.Accessors) {
		return nil, fmt.Errorf("accessor index %d out of range", idx)
	}
	acc := doc.Accessors[idx]
	if acc.BufferView == nil {
		return make([]uint32, acc.Count), nil
	}
	compSize, err := componentSize(acc.ComponentType)
	if err != nil {
		return nil, err
	}
	view, err := readBufferView(doc, bin, *acc.BufferView)
	if err != nil {
		return nil, err
	}
	stride := int(doc.BufferViews[*acc.BufferView].ByteStride)
	if stride == 0 {
		stride = compSize
	}
	out := make([]uint32, acc.Count)
	base := int(acc.ByteOffset)
	for i := range out {
		off := base + i*stride
		if off+compSize > len(view) {
			return nil, fmt.Errorf("index accessor %d element %d out of range", idx, i)
		}
		switch acc.ComponentType {
		case gltf.UNSIGNED_BYTE:
			out[i] = uint32(view[off])
		case gltf.UNSIGNED_SHORT:
			out[i] = uint32(binary.LittleEndian.Uint16(view[off : off+2]))
		case gltf.UNSIGNED_INT:
			out[i] = binary.LittleEndian.Uint32(view[off : off+4])
		default:
			return nil, fmt.Errorf("index accessor %d: unsupported componentType %d", idx, acc.ComponentType)
		}
	}
	return out, nil
}
