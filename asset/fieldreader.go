// Copyright 2024 The Raven-Engine authors. All rights reserved.

package asset

import (
	"encoding/binary"
	"fmt"
	"math"
)

// fieldReader decodes a flattened byteTree buffer field-by-field,
// replacing the original's `field_addr.read_unaligned()` pointer
// walk with explicit little-endian decoding at tracked byte offsets
// (spec.md §9 Open Question (b)).
type fieldReader struct {
	buf []byte
	off int
}

func newFieldReader(buf []byte) *fieldReader { return &fieldReader{buf: buf} }

func (r *fieldReader) need(n int) error {
	if r.off+n > len(r.buf) {
		return fmt.Errorf("asset: packed buffer truncated at offset %d (need %d, have %d)", r.off, n, len(r.buf)-r.off)
	}
	return nil
}

func (r *fieldReader) u32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v, nil
}

func (r *fieldReader) u64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return v, nil
}

func (r *fieldReader) f32() (float32, error) {
	v, err := r.u32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

func (r *fieldReader) f32s(n int) ([]float32, error) {
	out := make([]float32, n)
	for i := range out {
		v, err := r.f32()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (r *fieldReader) bytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	b := append([]byte(nil), r.buf[r.off:r.off+n]...)
	r.off += n
	return b, nil
}

// vecHeader reads a (length, offset) pair and returns the length and
// the absolute byte offset of the field's first element.
func (r *fieldReader) vecHeader() (length int, dataOffset int, err error) {
	n, err := r.u64()
	if err != nil {
		return 0, 0, err
	}
	off, err := r.u64()
	if err != nil {
		return 0, 0, err
	}
	return int(n), int(off), nil
}

// flatVecBytes reads a variable-length byte field given its header.
func flatVecBytes(buf []byte, length, dataOffset int) ([]byte, error) {
	r := &fieldReader{buf: buf, off: dataOffset}
	return r.bytes(length)
}

// flatVecOfVecIndex reads the i-th nested Vec<u8> out of a
// Vec<Vec<u8>> field without decoding the sibling entries, by reading
// only the i-th (length, offset) header (each header is 16 bytes)
// before following its own offset — grounded on the original's
// VecArrayQueryParam::Index fast path ("the most efficient and easy
// way to get the length of a Vector Array's information").
func flatVecOfVecIndex(buf []byte, outerLength, outerDataOffset, index int) ([]byte, error) {
	if index < 0 || index >= outerLength {
		return nil, fmt.Errorf("asset: flat-vec index %d out of range [0,%d)", index, outerLength)
	}
	headerOff := outerDataOffset + index*16
	r := &fieldReader{buf: buf, off: headerOff}
	length, dataOffset, err := r.vecHeader()
	if err != nil {
		return nil, err
	}
	return flatVecBytes(buf, length, dataOffset)
}
