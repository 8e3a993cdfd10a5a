// Copyright 2024 The Raven-Engine authors. All rights reserved.

package rendergraph

import (
	"encoding/binary"
	"fmt"

	"github.com/raven/rendergraph/driver"
)

// bindingFlag marks a binding's extended usage mode. Multiple flags
// may apply to the same binding (e.g. a bindless texture array is
// both bindingBindless and bindingVariableCount).
type bindingFlag int

const (
	bindingNone bindingFlag = 0
	// bindingBindless marks an unbounded array binding intended for
	// non-uniform indexing across many resources (spec.md §4.7).
	bindingBindless bindingFlag = 1 << iota
	// bindingPartiallyBound allows elements of an array binding to be
	// left unwritten at draw time.
	bindingPartiallyBound
	// bindingUpdateAfterBind allows a binding to be written while in
	// use by in-flight command buffers.
	bindingUpdateAfterBind
	// bindingVariableCount marks the last binding of a set as sized
	// at DescTable-creation time rather than at layout-discovery time.
	bindingVariableCount
)

// BindingInfo describes one descriptor binding discovered by
// reflection: its binding index within the set, its resolved
// driver.DescType, its declared array length (1 for a scalar
// binding, 0 for an unbounded/bindless array), and its extended
// usage flags.
type BindingInfo struct {
	Index int
	Type  driver.DescType
	Count int
	Flags bindingFlag
	Name  string // the sampler name, if Type == driver.DSampler
}

// SetLayout is the dense, per-binding-index array of bindings
// declared on one descriptor set number (spec.md §4.7 "dense
// per-set-number array").
type SetLayout struct {
	Set      int
	Bindings []BindingInfo
}

// ReflectedLayout is the full descriptor layout discovered from a
// shader stage's SPIR-V binary: one SetLayout per set number
// referenced, in ascending set-number order.
type ReflectedLayout struct {
	Sets []SetLayout
}

// immutableSamplerTable maps a reflected sampler binding's variable
// name to a fixed driver.Sampler configuration to install as an
// immutable sampler, avoiding a descriptor write for samplers whose
// filtering never varies (e.g. a shared "linear_wrap" sampler used
// by many materials). Populated by the caller (typically the asset
// pipeline's material loader) before descriptor-heap creation.
type immutableSamplerTable map[string]*driver.Sampling

// spirvMagic is the fixed word that opens a valid SPIR-V module.
const spirvMagic = 0x07230203

// spirv opcodes this reflector cares about. Everything else is
// skipped by word count, since full SPIR-V parsing is unnecessary for
// descriptor-binding discovery (spec.md §4.7 only needs decorations
// and the variable's pointee type).
const (
	opDecorate      = 71
	opTypeStruct    = 30
	opTypeImage     = 25
	opTypeSampler   = 26
	opTypeSampledIm = 27
	opTypeArray     = 28
	opTypeRuntime   = 29
	opTypePointer   = 32
	opVariable      = 59
	opName          = 5
)

const (
	decorationDescriptorSet = 34
	decorationBinding       = 33
)

// SPIR-V storage classes of resource-descriptor variables: textures
// and samplers use UniformConstant (0), constant buffers use
// Uniform (2), and storage buffers use StorageBuffer (12).
const (
	storageClassUniformConstant = 0
	storageClassStorageBuffer   = 12
	storageClassUniform         = 2
)

// ReflectDescriptorLayout walks a SPIR-V module's decoration and type
// sections to discover every descriptor-set/binding pair it declares,
// grouping them into dense per-set arrays. It implements spec.md
// §4.7's "SPIR-V-reflection-driven descriptor set layout discovery"
// directly against the binary format, since no example repo in the
// pack vendors a SPIR-V reflection library (DESIGN.md).
func ReflectDescriptorLayout(spirv []byte) (*ReflectedLayout, error) {
	if len(spirv) < 20 || len(spirv)%4 != 0 {
		return nil, fmt.Errorf("rendergraph: invalid SPIR-V module length %d", len(spirv))
	}
	words := make([]uint32, len(spirv)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(spirv[i*4:])
	}
	if words[0] != spirvMagic {
		return nil, fmt.Errorf("rendergraph: not a SPIR-V module (bad magic)")
	}

	type decor struct{ set, binding int; hasSet, hasBinding bool }
	decors := make(map[uint32]*decor)
	names := make(map[uint32]string)
	typeOp := make(map[uint32]uint32)   // result id -> opcode
	typeOperand := make(map[uint32]uint32) // element/pointee type id, for arrays and pointers
	arrayRuntime := make(map[uint32]bool)
	varPointee := make(map[uint32]uint32) // variable id -> pointee type id
	varStorage := make(map[uint32]uint32)
	const opConstant = 43
	arrayLen := make(map[uint32]uint32) // array type id -> length constant id
	constVal := make(map[uint32]uint32) // constant id -> literal value

	i := 5 // skip header: magic, version, generator, bound, schema
	for i < len(words) {
		inst := words[i]
		wordCount := int(inst >> 16)
		op := inst & 0xffff
		if wordCount == 0 || i+wordCount > len(words) {
			break
		}
		ops := words[i+1 : i+wordCount]

		switch op {
		case opDecorate:
			if len(ops) >= 2 {
				target := ops[0]
				d := decors[target]
				if d == nil {
					d = &decor{}
					decors[target] = d
				}
				switch ops[1] {
				case decorationDescriptorSet:
					if len(ops) >= 3 {
						d.set = int(ops[2])
						d.hasSet = true
					}
				case decorationBinding:
					if len(ops) >= 3 {
						d.binding = int(ops[2])
						d.hasBinding = true
					}
				}
			}
		case opName:
			if len(ops) >= 1 {
				names[ops[0]] = decodeSPIRVString(ops[1:])
			}
		case opTypeStruct, opTypeImage, opTypeSampler, opTypeSampledIm:
			if len(ops) >= 1 {
				typeOp[ops[0]] = op
			}
		case opTypeArray:
			if len(ops) >= 2 {
				typeOp[ops[0]] = op
				typeOperand[ops[0]] = ops[1]
			}
			if len(ops) >= 3 {
				arrayLen[ops[0]] = ops[2]
			}
		case opConstant:
			if len(ops) >= 3 {
				constVal[ops[1]] = ops[2]
			}
		case opTypeRuntime:
			if len(ops) >= 2 {
				typeOp[ops[0]] = op
				typeOperand[ops[0]] = ops[1]
				arrayRuntime[ops[0]] = true
			}
		case opTypePointer:
			if len(ops) >= 3 {
				typeOp[ops[0]] = op
				varStorage[ops[0]] = ops[1]
				typeOperand[ops[0]] = ops[2]
			}
		case opVariable:
			if len(ops) >= 3 {
				resultType, resultID, storageClass := ops[0], ops[1], ops[2]
				if pointee, ok := typeOperand[resultType]; ok {
					varPointee[resultID] = pointee
				}
				varStorage[resultID] = storageClass
			}
		}
		i += wordCount
	}

	bySet := map[int][]BindingInfo{}
	for varID, d := range decors {
		if !d.hasSet || !d.hasBinding {
			continue
		}
		storage := varStorage[varID]
		if storage != storageClassUniformConstant && storage != storageClassStorageBuffer && storage != storageClassUniform {
			continue
		}
		pointee := varPointee[varID]
		count := 1
		var flags bindingFlag
		effectiveType := pointee
		if typeOp[pointee] == opTypeArray || typeOp[pointee] == opTypeRuntime {
			effectiveType = typeOperand[pointee]
			if arrayRuntime[pointee] {
				count = 0
				flags |= bindingBindless | bindingVariableCount
			} else if n := constVal[arrayLen[pointee]]; n > 0 {
				count = int(n)
			}
		}

		dtype, ok := descTypeFromSPIRV(typeOp[effectiveType], storage)
		if !ok {
			continue
		}
		bySet[d.set] = append(bySet[d.set], BindingInfo{
			Index: d.binding,
			Type:  dtype,
			Count: count,
			Flags: flags,
			Name:  names[varID],
		})
	}

	layout := &ReflectedLayout{}
	for set, bindings := range bySet {
		layout.Sets = append(layout.Sets, SetLayout{Set: set, Bindings: bindings})
	}
	sortSetLayouts(layout.Sets)
	for si := range layout.Sets {
		sortBindings(layout.Sets[si].Bindings)
	}
	return layout, nil
}

func descTypeFromSPIRV(op uint32, storage uint32) (driver.DescType, bool) {
	switch op {
	case opTypeImage:
		return driver.DImage, true
	case opTypeSampler:
		return driver.DSampler, true
	case opTypeSampledIm:
		return driver.DTexture, true
	case opTypeStruct:
		if storage == storageClassStorageBuffer {
			return driver.DBuffer, true
		}
		return driver.DConstant, true
	}
	return 0, false
}

func decodeSPIRVString(words []uint32) string {
	b := make([]byte, 0, len(words)*4)
	for _, w := range words {
		for s := 0; s < 4; s++ {
			c := byte(w >> (8 * s))
			if c == 0 {
				return string(b)
			}
			b = append(b, c)
		}
	}
	return string(b)
}

func sortSetLayouts(s []SetLayout) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j].Set < s[j-1].Set; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

func sortBindings(b []BindingInfo) {
	for i := 1; i < len(b); i++ {
		for j := i; j > 0 && b[j].Index < b[j-1].Index; j-- {
			b[j], b[j-1] = b[j-1], b[j]
		}
	}
}

// DescPoolSizes precomputes, for every distinct driver.DescType
// appearing across layout, the total descriptor count needed to size
// a driver.DescHeap without over-allocating (spec.md §4.7
// "descriptor pool size precomputation"). A bindless binding
// (Count == 0) contributes its variable-count allotment instead.
func DescPoolSizes(layout *ReflectedLayout, variableCountAllotment int) map[driver.DescType]int {
	sizes := make(map[driver.DescType]int)
	for _, set := range layout.Sets {
		for _, b := range set.Bindings {
			n := b.Count
			if n == 0 {
				n = variableCountAllotment
			}
			sizes[b.Type] += n
		}
	}
	return sizes
}

// BuildDescHeaps creates one driver.DescHeap per reflected set,
// applying immutableSamplerTable's fixed configuration to any
// DSampler binding whose name matches, and a driver.DescTable
// spanning all of them, in set order (spec.md §4.7).
func BuildDescHeaps(gpu driver.GPU, layout *ReflectedLayout, samplers immutableSamplerTable) (driver.DescTable, []driver.DescHeap, error) {
	heaps := make([]driver.DescHeap, 0, len(layout.Sets))
	for _, set := range layout.Sets {
		descs := make([]driver.Descriptor, 0, len(set.Bindings))
		for _, b := range set.Bindings {
			descs = append(descs, driver.Descriptor{
				Type:   b.Type,
				Stages: driver.SVertex | driver.SFragment | driver.SCompute,
				Nr:     b.Index,
				Len:    maxInt(b.Count, 1),
			})
		}
		dh, err := gpu.NewDescHeap(descs)
		if err != nil {
			for _, h := range heaps {
				h.Destroy()
			}
			return nil, nil, fmt.Errorf("rendergraph: NewDescHeap(set %d): %w", set.Set, err)
		}
		heaps = append(heaps, dh)
	}
	dt, err := gpu.NewDescTable(heaps)
	if err != nil {
		for _, h := range heaps {
			h.Destroy()
		}
		return nil, nil, fmt.Errorf("rendergraph: NewDescTable: %w", err)
	}
	return dt, heaps, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
