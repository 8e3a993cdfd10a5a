// Copyright 2024 The Raven-Engine authors. All rights reserved.

package rendergraph

import (
	"sync"

	"github.com/raven/rendergraph/driver"
)

// TransientPool is the graph-owned pool of reusable Created
// resources, keyed by exact descriptor equality (spec.md §4.2,
// §4.5). Grounded on raven-rg/src/graph_builder.rs's transient
// cache concept; the teacher's own internal/bitm slot allocators
// informed the free-list shape below (spans are simply released
// back into the per-descriptor stack rather than compacted).
type TransientPool struct {
	mu      sync.Mutex
	images  map[ImageDesc][]driver.Image
	buffers map[BufferDesc][]driver.Buffer
}

// NewTransientPool creates an empty pool.
func NewTransientPool() *TransientPool {
	return &TransientPool{
		images:  make(map[ImageDesc][]driver.Image),
		buffers: make(map[BufferDesc][]driver.Buffer),
	}
}

// GetImage pops a cached image matching desc exactly, if any.
func (p *TransientPool) GetImage(desc ImageDesc) (driver.Image, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	stack := p.images[desc]
	if len(stack) == 0 {
		return nil, false
	}
	img := stack[len(stack)-1]
	p.images[desc] = stack[:len(stack)-1]
	return img, true
}

// StoreImage pushes img back into the pool on release, available to
// a future GetImage call with the same descriptor.
func (p *TransientPool) StoreImage(desc ImageDesc, img driver.Image) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.images[desc] = append(p.images[desc], img)
}

// GetBuffer pops a cached buffer matching desc exactly, if any.
func (p *TransientPool) GetBuffer(desc BufferDesc) (driver.Buffer, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	stack := p.buffers[desc]
	if len(stack) == 0 {
		return nil, false
	}
	buf := stack[len(stack)-1]
	p.buffers[desc] = stack[:len(stack)-1]
	return buf, true
}

// StoreBuffer pushes buf back into the pool on release.
func (p *TransientPool) StoreBuffer(desc BufferDesc, buf driver.Buffer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.buffers[desc] = append(p.buffers[desc], buf)
}

// Clean destroys every pooled resource; called on device teardown.
func (p *TransientPool) Clean() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, stack := range p.images {
		for _, img := range stack {
			img.Destroy()
		}
	}
	for _, stack := range p.buffers {
		for _, buf := range stack {
			buf.Destroy()
		}
	}
	p.images = make(map[ImageDesc][]driver.Image)
	p.buffers = make(map[BufferDesc][]driver.Buffer)
}
