// Copyright 2024 The Raven-Engine authors. All rights reserved.

package rendergraph

import "github.com/raven/rendergraph/driver"

// ResourceKind identifies the concrete kind backing a graph slot.
// The original source dispatches on a Rust enum variant; Go has no
// closed sum type, so the kind is carried explicitly alongside a
// tagged ResourceDesc (see SPEC_FULL.md §2.1).
type ResourceKind int

const (
	KindImage ResourceKind = iota
	KindBuffer
	KindAccelStruct
)

// MemLocation is the memory location of a buffer resource.
type MemLocation int

const (
	MemGPUOnly MemLocation = iota
	MemCPUToGPU
	MemGPUToCPU
)

// ImageDesc describes an image resource.
type ImageDesc struct {
	Extent  driver.Dim3D
	Dim     ImageDim
	Format  driver.PixelFmt
	Mips    int
	Layers  int
	Samples int
	// CreateFlags and Usage accumulate as the graph analyzes how
	// the resource is referenced (spec.md §3.1, §4.2). A Created
	// resource starts with Usage == 0.
	CreateFlags int
	Usage       driver.Usage
}

// ImageDim is the dimensionality of an image resource.
type ImageDim int

const (
	Dim1D ImageDim = iota
	Dim1DArray
	Dim2D
	Dim2DArray
	Dim3D
	DimCube
	DimCubeArray
)

// BufferDesc describes a buffer resource.
type BufferDesc struct {
	Size      int64
	Usage     driver.Usage
	Alignment int64
	Location  MemLocation
}

// ResourceDesc is a tagged union over the image and buffer descriptor
// shapes the graph can create; Kind selects which field applies.
type ResourceDesc struct {
	Kind   ResourceKind
	Image  ImageDesc
	Buffer BufferDesc
}

// resourceState is a tagged variant: either Created (owned by the
// graph, usage flags accumulate) or Imported (borrowed for the
// frame with a declared entry access state). The swapchain image is
// a delayed Imported resource, materialized only at present time.
type resourceState int

const (
	stateCreated resourceState = iota
	stateImported
	stateDelayed
)

// graphResource is one slot in the builder's resource arena.
type graphResource struct {
	state resourceState
	desc  ResourceDesc

	// generation bumps on every write; Handle snapshots the
	// generation at the time it was returned.
	generation int

	// entryAccess is the declared access state an Imported
	// resource enters the frame with.
	entryAccess AccessState

	// image/buffer back an Imported resource; nil for
	// Created/Delayed slots until the executing graph fills them in.
	image  driver.Image
	buffer driver.Buffer
}

// Handle is a typed reference to a graph resource slot: (slot id,
// generation, cached descriptor snapshot). Writing to a handle
// (via a pass output) bumps the slot's generation; a handle whose
// generation predates the latest write is stale and must not be
// used to write (spec.md §3.1 invariants).
type Handle struct {
	slot       int
	generation int
	desc       ResourceDesc
}

// Desc returns the descriptor snapshot carried by the handle, so
// passes can query extent/format without touching registry state.
func (h Handle) Desc() ResourceDesc { return h.desc }

// Kind returns the resource kind this handle refers to.
func (h Handle) Kind() ResourceKind { return h.desc.Kind }

func (h Handle) valid() bool { return h.slot >= 0 }

// ExportedHandle promises a resource will be left in a specific
// access state after the frame.
type ExportedHandle struct {
	Handle Handle
	Access AccessState
}
