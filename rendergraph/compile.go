// Copyright 2024 The Raven-Engine authors. All rights reserved.

package rendergraph

import "github.com/raven/rendergraph/driver"

// resourceInfo is the compiler's per-slot analysis result (spec.md
// §4.2), grounded on raven-rg/src/graph.rs's analyze_resources.
type resourceInfo struct {
	lastPass    int
	imageUsage  driver.Usage
	bufferUsage driver.Usage
}

// CompiledGraph is the pure output of compiling a Builder: resource
// lifetimes, accumulated usage flags, and registered pipeline
// handles, grounded on raven-rg/src/compiled_graph.rs.
type CompiledGraph struct {
	resources []graphResource
	passes    []Pass
	exports   []ExportedHandle
	info      []resourceInfo

	pipelineHandles [][]PipelineHandle // per pass, one handle per registration
}

// Compile analyzes b and registers every pass's pipelines with
// cache, producing a CompiledGraph ready for PrepareExecute. It
// returns the Builder's first recorded error, if any, before
// compiling further (access/usage mismatches are fatal at build
// time per spec.md §7).
func Compile(b *Builder, cache *PipelineCache) (*CompiledGraph, error) {
	if b.err != nil {
		return nil, b.err
	}

	info := make([]resourceInfo, len(b.resources))
	for i, r := range b.resources {
		if r.state == stateImported || r.state == stateDelayed {
			info[i].lastPass = 0
		} else {
			info[i].lastPass = -1
		}
	}

	for _, p := range b.passes {
		for _, io := range p.ios {
			i := io.handle.slot
			if p.Index > info[i].lastPass {
				info[i].lastPass = p.Index
			}
			// Usage accumulation does not distinguish read from write:
			// either one contributes the same driver.Usage bit for a
			// given AccessState.
			switch io.kind {
			case ioRead, ioRasterRead, ioWrite, ioRasterWrite:
				if b.resources[i].desc.Kind == KindBuffer {
					u, err := bufferUsageFor(io.access)
					if err != nil {
						return nil, err
					}
					info[i].bufferUsage |= u
				} else {
					u, err := imageUsageFor(io.access)
					if err != nil {
						return nil, err
					}
					info[i].imageUsage |= u
				}
			}
		}
	}

	// Exported resources' lifetime is extended to the last pass.
	lastPassIdx := len(b.passes) - 1
	for _, eh := range b.exports {
		if lastPassIdx > info[eh.Handle.slot].lastPass {
			info[eh.Handle.slot].lastPass = lastPassIdx
		}
	}

	pipelineHandles := make([][]PipelineHandle, len(b.passes))
	if cache != nil {
		for pi, p := range b.passes {
			handles := make([]PipelineHandle, len(p.pipelines))
			for ri, reg := range p.pipelines {
				h, err := cache.Register(reg)
				if err != nil {
					return nil, err
				}
				handles[ri] = h
			}
			pipelineHandles[pi] = handles
		}
	}

	return &CompiledGraph{
		resources:       b.resources,
		passes:          b.passes,
		exports:         b.exports,
		info:            info,
		pipelineHandles: pipelineHandles,
	}, nil
}

// LastAccessPass returns the last pass index (0-based) that
// references the resource at slot, or -1 if it is never referenced
// (Testable Property "Lifetime soundness", spec.md §8).
func (g *CompiledGraph) LastAccessPass(slot int) int { return g.info[slot].lastPass }

// FinalImageUsage returns the accumulated driver.Usage flags for an
// image resource at slot.
func (g *CompiledGraph) FinalImageUsage(slot int) driver.Usage { return g.info[slot].imageUsage }

// FinalBufferUsage returns the accumulated driver.Usage flags for a
// buffer resource at slot.
func (g *CompiledGraph) FinalBufferUsage(slot int) driver.Usage { return g.info[slot].bufferUsage }
