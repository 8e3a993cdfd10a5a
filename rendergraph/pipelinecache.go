// Copyright 2024 The Raven-Engine authors. All rights reserved.

package rendergraph

import (
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/raven/rendergraph/driver"
	"github.com/raven/rendergraph/internal/lazy"
)

// PipelineKind partitions the pipeline cache's handle space
// (spec.md §3.1).
type PipelineKind int

const (
	PipelineRaster PipelineKind = iota
	PipelineCompute
	PipelineRayTracing
)

// PipelineHandle is an opaque index into the PipelineCache,
// partitioned by kind.
type PipelineHandle struct {
	Kind PipelineKind
	idx  int
}

// ShaderStageDesc is one shader stage's source (stage, source,
// entry) as named by spec.md §4.3.
type ShaderStageDesc struct {
	Stage  driver.Stage
	Source string // project-relative shader source path
	Entry  string
}

// RasterPipelineDesc describes a graphics pipeline registration.
// Distinct stage-descriptor lists map to distinct handles.
type RasterPipelineDesc struct {
	Stages []ShaderStageDesc
	State  driver.GraphState
}

// ComputePipelineDesc describes a compute pipeline registration: a
// single source + entry, with dispatch-group size derived from
// shader reflection once the binary is available.
type ComputePipelineDesc struct {
	Stage ShaderStageDesc
}

// RayTracingPipelineDesc describes a ray-tracing pipeline
// registration (optional build flag, spec.md §4.8).
type RayTracingPipelineDesc struct {
	Stages       []ShaderStageDesc
	MaxRecursion int
}

// ShaderCompiler resolves shader includes and compiles source to a
// binary. The Vulkan HLSL/DXC compiler itself is the spec's external
// "backend" collaborator (spec.md §1); this interface exists so the
// pipeline cache can be tested against a deterministic stub without
// a real compiler (see DESIGN.md).
type ShaderCompiler interface {
	Compile(stage ShaderStageDesc) ([]byte, error)

	// SourceFreshness returns a proof of stage's current resolved
	// source state (a modification time, a content hash, or any
	// other value that changes if and only if the compiled output
	// would differ) so the cache can detect edits between frames
	// without recompiling (spec.md §9).
	SourceFreshness(stage ShaderStageDesc) (string, error)
}

// pipelineEntry is one PipelineCache slot, grounded on
// raven-rhi/src/pipeline_cache.rs's per-pipeline bookkeeping: a
// description, its identity and source keys, the currently live
// pipeline object, and the source key observed at last build.
// Compiled stage binaries are memoized in PipelineCache.shaderCache.
type pipelineEntry struct {
	kind PipelineKind
	desc any

	identityKey    string // identityOf's key (kind, stage paths+entries, pipeline state); never changes for this slot
	sourceKey      string // identityKey + each stage's freshness proof; changes on hot-reload
	builtSourceKey string
	live           driver.Pipeline
}

// deferredRelease is one per-frame bucket entry awaiting destruction
// N frames later (spec.md §9 Design Notes: N-slot circular staging
// array indexed by frame-in-flight count).
type deferredRelease struct {
	pipeline driver.Pipeline
}

// PipelineCache maps a pipeline description to a handle and owns
// every created pipeline, grounded in full on
// raven-rhi/src/pipeline_cache.rs.
type PipelineCache struct {
	mu      sync.Mutex
	entries []pipelineEntry
	byKey   map[string]int // identityKey -> index, for dedup

	nframe   int
	deferred [][]deferredRelease // circular, length nframe
	frame    int

	compiler ShaderCompiler
	// shaderCache memoizes a compiled stage by its stage key, so a
	// vertex shader shared across several pipelines compiles only
	// once per cache lifetime, mirroring turbosloth::Lazy's
	// content-hash memoization in the original's shader_compiler.rs.
	shaderCache lazy.Cache[string, []byte]
}

// NewPipelineCache creates a cache whose deferred-destruction bucket
// has nframe slots (the device's frame-in-flight count).
func NewPipelineCache(nframe int, compiler ShaderCompiler) *PipelineCache {
	return &PipelineCache{
		byKey:    make(map[string]int),
		nframe:   nframe,
		deferred: make([][]deferredRelease, nframe),
		compiler: compiler,
	}
}

// stageIdentityKey identifies a stage-descriptor list by path and
// entry point alone, stable across edits to the source file's
// contents: it is what Register dedupes on.
func stageIdentityKey(stages []ShaderStageDesc) string {
	s := ""
	for _, st := range stages {
		s += fmt.Sprintf("%d:%s:%s|", st.Stage, st.Source, st.Entry)
	}
	return s
}

// freshnessOf resolves a freshness proof for each of stages through
// the configured ShaderCompiler.
func (c *PipelineCache) freshnessOf(stages []ShaderStageDesc) ([]string, error) {
	fresh := make([]string, len(stages))
	for i, st := range stages {
		f, err := c.compiler.SourceFreshness(st)
		if err != nil {
			return nil, fmt.Errorf("rendergraph: source freshness %s: %w", st.Source, err)
		}
		fresh[i] = f
	}
	return fresh, nil
}

// stageSourceKey extends identity with each stage's current freshness
// proof, so it changes exactly when the resolved source bytes do.
func stageSourceKey(identity string, stages []ShaderStageDesc, fresh []string) string {
	s := identity
	for i, st := range stages {
		s += fmt.Sprintf("%d:%s:%s|", st.Stage, fresh[i], st.Entry)
	}
	return s
}

// identityOf must fold in every field that changes the pipeline
// object createPipeline builds, not just the shader stages: two
// RasterPipelineDescs sharing stages but differing in blend, depth,
// cull, or topology state are different pipelines and must not dedup
// onto the same entry (likewise MaxRecursion for ray tracing).
func identityOf(desc any, stages []ShaderStageDesc) (string, error) {
	switch d := desc.(type) {
	case *RasterPipelineDesc:
		return fmt.Sprintf("raster:%s:%+v", stageIdentityKey(stages), d.State), nil
	case *ComputePipelineDesc:
		return fmt.Sprintf("compute:%s", stageIdentityKey(stages)), nil
	case *RayTracingPipelineDesc:
		return fmt.Sprintf("rt:%s:%d", stageIdentityKey(stages), d.MaxRecursion), nil
	default:
		return "", fmt.Errorf("rendergraph: unknown pipeline desc type %T", desc)
	}
}

// Register records a pipeline description and returns its handle,
// reusing an existing entry if an identical stage-descriptor list
// was already registered this build (spec.md §4.3).
func (c *PipelineCache) Register(reg PipelineRegistration) (PipelineHandle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stages := stagesOf(reg.Desc)
	identity, err := identityOf(reg.Desc, stages)
	if err != nil {
		return PipelineHandle{}, err
	}

	if idx, ok := c.byKey[identity]; ok {
		return PipelineHandle{Kind: reg.Kind, idx: idx}, nil
	}

	fresh, err := c.freshnessOf(stages)
	if err != nil {
		return PipelineHandle{}, err
	}
	idx := len(c.entries)
	c.entries = append(c.entries, pipelineEntry{
		kind:        reg.Kind,
		desc:        reg.Desc,
		identityKey: identity,
		sourceKey:   stageSourceKey(identity, stages, fresh),
	})
	c.byKey[identity] = idx
	return PipelineHandle{Kind: reg.Kind, idx: idx}, nil
}

// DiscardStale re-evaluates every entry's source freshness proof and
// moves the live pipeline of any entry whose resolved sources no
// longer match its last-built key into the current frame's
// deferred-release bucket (spec.md §4.3 step 1, §9).
func (c *PipelineCache) DiscardStale() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	slot := c.frame % c.nframe
	for i := range c.entries {
		e := &c.entries[i]
		stages := stagesOf(e.desc)
		fresh, err := c.freshnessOf(stages)
		if err != nil {
			return fmt.Errorf("rendergraph: discard stale: %w", err)
		}
		e.sourceKey = stageSourceKey(e.identityKey, stages, fresh)
		if e.live != nil && e.builtSourceKey != e.sourceKey {
			c.deferred[slot] = append(c.deferred[slot], deferredRelease{pipeline: e.live})
			e.live = nil
		}
	}
	return nil
}

// ParallelCompileAndCreate spawns evaluation of every entry missing
// a live pipeline onto an errgroup, awaits all, and creates the
// corresponding driver.Pipeline for each newly available binary
// (spec.md §4.3 steps 2-3). If any shader fails to compile, the call
// returns the error without creating any pipeline; stage binaries
// that did compile stay memoized in shaderCache for the next attempt
// (a failed stage's error is memoized too, until its freshness proof
// changes).
func (c *PipelineCache) ParallelCompileAndCreate(gpu driver.GPU) error {
	c.mu.Lock()
	pending := make([]int, 0)
	for i := range c.entries {
		if c.entries[i].live == nil {
			pending = append(pending, i)
		}
	}
	c.mu.Unlock()

	binaries := make([][]byte, len(pending))
	var g errgroup.Group
	for n, idx := range pending {
		n, idx := n, idx
		g.Go(func() error {
			stages := stagesOf(c.entries[idx].desc)
			var bin []byte
			for _, st := range stages {
				fresh, err := c.compiler.SourceFreshness(st)
				if err != nil {
					return fmt.Errorf("%w: %s: %v", ErrShaderCompile, st.Source, err)
				}
				key := fmt.Sprintf("%d:%s:%s:%s", st.Stage, st.Source, st.Entry, fresh)
				b, err := c.shaderCache.Eval(key, func() ([]byte, error) {
					return c.compiler.Compile(st)
				})
				if err != nil {
					return fmt.Errorf("%w: %s: %v", ErrShaderCompile, st.Source, err)
				}
				bin = append(bin, b...)
			}
			binaries[n] = bin
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for n, idx := range pending {
		e := &c.entries[idx]
		pl, err := createPipeline(gpu, e.desc, binaries[n])
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPipelineCreate, err)
		}
		e.live = pl
		e.builtSourceKey = e.sourceKey
	}
	return nil
}

func stagesOf(desc any) []ShaderStageDesc {
	switch d := desc.(type) {
	case *RasterPipelineDesc:
		return d.Stages
	case *ComputePipelineDesc:
		return []ShaderStageDesc{d.Stage}
	case *RayTracingPipelineDesc:
		return d.Stages
	}
	return nil
}

// createPipeline builds the driver.Pipeline for desc from its
// compiled binary. Descriptor set layout discovery from SPIR-V
// reflection (spec.md §4.7) is applied by the caller before this is
// reached in the full frame pipeline (see desclayout.go); this
// function only performs the final driver.GPU.NewPipeline call.
func createPipeline(gpu driver.GPU, desc any, binary []byte) (driver.Pipeline, error) {
	code, err := gpu.NewShaderCode(binary)
	if err != nil {
		return nil, err
	}
	switch d := desc.(type) {
	case *ComputePipelineDesc:
		state := driver.CompState{Func: driver.ShaderFunc{Code: code, Name: d.Stage.Entry}}
		return gpu.NewPipeline(&state)
	case *RasterPipelineDesc:
		state := d.State
		return gpu.NewPipeline(&state)
	default:
		// Ray-tracing pipelines are created by the raytracing.go
		// build-tagged path, which has its own GPU entry point.
		return nil, fmt.Errorf("rendergraph: createPipeline does not handle %T", desc)
	}
}

// Advance moves to the next frame, draining (destroying) the
// deferred-release bucket that existed N frames ago.
func (c *PipelineCache) Advance() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frame++
	slot := c.frame % c.nframe
	for _, d := range c.deferred[slot] {
		d.pipeline.Destroy()
	}
	c.deferred[slot] = c.deferred[slot][:0]
}

// Pipeline returns the live driver.Pipeline for h, or nil if it has
// not been created yet (e.g. still pending compile this frame).
func (c *PipelineCache) Pipeline(h PipelineHandle) driver.Pipeline {
	c.mu.Lock()
	defer c.mu.Unlock()
	if h.idx < 0 || h.idx >= len(c.entries) {
		return nil
	}
	return c.entries[h.idx].live
}
