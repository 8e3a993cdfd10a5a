// Copyright 2024 The Raven-Engine authors. All rights reserved.

//go:build raytracing

package rendergraph

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/raven/rendergraph/driver"
	"github.com/raven/rendergraph/linear"
)

// AccelHandle is an opaque backend identifier for a built
// acceleration structure. driver.GPU carries no ray-tracing entry
// points (no pack example exercises the KHR extension), so this type
// and RTBackend below are the extension point a future driver/vk
// addition would implement (DESIGN.md).
type AccelHandle uint64

// GeometryType selects the acceleration-structure primitive kind for
// a BLAS geometry entry.
type GeometryType int

const (
	GeometryTriangle GeometryType = iota
	GeometryAABB
)

// SubGeometry is one draw range within a BLAS geometry entry.
type SubGeometry struct {
	IndexCount  int
	IndexOffset int
	MaxVertex   uint32
}

// Geometry is one BLAS input: a vertex/index buffer pair plus the
// format describing how to read them, transcribed from
// raven-rhi/src/backend/vulkan/ray_tracing.rs's RayTracingGeometry.
type Geometry struct {
	Type          GeometryType
	VertexBuffer  driver.Buffer
	IndexBuffer   driver.Buffer
	VertexFormat  driver.PixelFmt
	VertexStride  int
	SubGeometries []SubGeometry
}

// BlasBuildDesc batches one or more Geometry entries into a single
// bottom-level acceleration structure build (fewer BLAS objects is
// more efficient to trace against; batch static geometry together).
type BlasBuildDesc struct {
	Geometries []Geometry
}

// AccelStruct is a built acceleration structure: an opaque backend
// handle plus the buffer backing its data, grounded on
// RayTracingAccelerationStructure.
type AccelStruct struct {
	Handle  AccelHandle
	Backing driver.Buffer
}

// BlasInstance places a built BLAS into a TLAS with an affine
// transform and a mesh index used to look up per-instance shading
// data in the hit shader (spec.md §4.8).
type BlasInstance struct {
	Blas        *AccelStruct
	Transform   linear.M4
	MeshIndex   uint32
}

// TlasBuildDesc batches BLAS instances into one top-level
// acceleration structure build.
type TlasBuildDesc struct {
	Instances        []BlasInstance
	PreallocateBytes int
}

// instanceRecord is the packed, backend-matching binary layout of one
// TLAS instance entry (VkAccelerationStructureInstanceKHR), grounded
// 1:1 on RayTracingGeometryInstance: a row-major 3x4 affine matrix, a
// packed instance-id/mask word, a packed sbt-offset/flags word, and
// the BLAS device address.
type instanceRecord struct {
	transform        [12]float32
	idAndMask        uint32
	sbtOffsetAndFlag uint32
	blasAddress      uint64
}

const instanceRecordSize = 4*12 + 4 + 4 + 8

// packInstance builds the 64-byte wire record for one TLAS instance,
// packing instanceID into the low 24 bits and mask into the high 8
// bits of the first word, and sbtOffset/flags the same way into the
// second, exactly as the original's bit layout (low-24/high-8 split).
func packInstance(transform [12]float32, instanceID uint32, mask uint8, sbtOffset uint32, flags uint8, blasAddress uint64) instanceRecord {
	return instanceRecord{
		transform:        transform,
		idAndMask:        (instanceID & 0x00ffffff) | (uint32(mask) << 24),
		sbtOffsetAndFlag: (sbtOffset & 0x00ffffff) | (uint32(flags) << 24),
		blasAddress:      blasAddress,
	}
}

func rowMajorAffine(m linear.M4) [12]float32 {
	return [12]float32{
		m[0][0], m[1][0], m[2][0], m[3][0],
		m[0][1], m[1][1], m[2][1], m[3][1],
		m[0][2], m[1][2], m[2][2], m[3][2],
	}
}

// EncodeTLASInstanceBuffer packs every instance in desc into a
// contiguous little-endian byte buffer suitable for upload as the
// TLAS's instance input, resolving each instance's BLAS device
// address via backend.AccelAddress.
func EncodeTLASInstanceBuffer(desc TlasBuildDesc, backend RTBackend) ([]byte, error) {
	buf := make([]byte, 0, len(desc.Instances)*instanceRecordSize)
	for i, inst := range desc.Instances {
		addr, err := backend.AccelAddress(inst.Blas.Handle)
		if err != nil {
			return nil, fmt.Errorf("rendergraph: instance %d: %w", i, err)
		}
		rec := packInstance(rowMajorAffine(inst.Transform), inst.MeshIndex, 0xff, 0, 1 /*ForceOpaque*/, addr)
		var b [instanceRecordSize]byte
		for w := 0; w < 12; w++ {
			binary.LittleEndian.PutUint32(b[w*4:], math.Float32bits(rec.transform[w]))
		}
		binary.LittleEndian.PutUint32(b[48:], rec.idAndMask)
		binary.LittleEndian.PutUint32(b[52:], rec.sbtOffsetAndFlag)
		binary.LittleEndian.PutUint64(b[56:], rec.blasAddress)
		buf = append(buf, b[:]...)
	}
	return buf, nil
}

// RTBackend is the subset of acceleration-structure operations a
// concrete Vulkan backend must provide.
type RTBackend interface {
	BuildBlas(desc BlasBuildDesc) (*AccelStruct, error)
	BuildTlas(instanceBuffer driver.Buffer, instanceCount int, preallocateBytes int) (*AccelStruct, error)
	UpdateTlas(cb driver.CmdBuffer, instanceBuffer driver.Buffer, instanceCount int, tlas *AccelStruct) error
	AccelAddress(h AccelHandle) (uint64, error)
	DestroyAccelStruct(a *AccelStruct)
}

// ShaderBindingTable is the packed raygen/miss/hit/callable regions
// of a ray-tracing pipeline's shader binding table, grounded 1:1 on
// RayTracingShaderBindingTable.
type ShaderBindingTable struct {
	RaygenBuffer   driver.Buffer
	RaygenStride   int64
	MissBuffer     driver.Buffer
	MissStride     int64
	HitBuffer      driver.Buffer
	HitStride      int64
	CallableBuffer driver.Buffer
	CallableStride int64
}

// SBTDesc describes the entry counts of each shader group kind in a
// ray-tracing pipeline, used to size and pack the binding table.
type SBTDesc struct {
	RaygenEntryCount   int
	MissEntryCount     int
	HitEntryCount      int
	CallableEntryCount int
}

func alignUp(v, align int) int {
	if align <= 0 {
		return v
	}
	return (v + align - 1) / align * align
}

// PackShaderBindingTable lays out group handles (queried from the
// backend in pipeline shader-group order: raygen, miss, hit,
// callable) into one byte buffer per region, re-aligning each handle
// to handleSizeAligned and each region to baseAlignment, exactly as
// the original's create_ray_tracing_shader_binding_table.
func PackShaderBindingTable(desc SBTDesc, groupHandles []byte, handleSize, handleSizeAligned, baseAlignment int) (raygen, miss, hit, callable []byte) {
	pack := func(offset, count int) []byte {
		if count == 0 {
			return nil
		}
		out := make([]byte, alignUp(count*handleSizeAligned, baseAlignment))
		for dst := 0; dst < count; dst++ {
			src := dst + offset
			copy(out[dst*handleSizeAligned:dst*handleSizeAligned+handleSize], groupHandles[src*handleSize:src*handleSize+handleSize])
		}
		return out
	}
	off := 0
	raygen = pack(off, desc.RaygenEntryCount)
	off += desc.RaygenEntryCount
	miss = pack(off, desc.MissEntryCount)
	off += desc.MissEntryCount
	hit = pack(off, desc.HitEntryCount)
	off += desc.HitEntryCount
	callable = pack(off, desc.CallableEntryCount)
	return
}
