// Copyright 2024 The Raven-Engine authors. All rights reserved.

package rendergraph

import "github.com/raven/rendergraph/driver"

// fakeImage/fakeBuffer are minimal driver.Image/driver.Buffer stand-ins
// so transient-pool and execute tests can run without a real device.
// Each carries an id so tests can tell pooled-reuse apart from a
// freshly created resource.
type fakeImage struct {
	id int
}

func (f *fakeImage) Destroy() {}
func (f *fakeImage) NewView(driver.ViewType, int, int, int, int) (driver.ImageView, error) {
	return nil, nil
}

type fakeBuffer struct {
	id int
}

func (f *fakeBuffer) Destroy()        {}
func (f *fakeBuffer) Visible() bool   { return true }
func (f *fakeBuffer) Bytes() []byte   { return nil }
func (f *fakeBuffer) Cap() int64      { return 0 }

var _ driver.Image = (*fakeImage)(nil)
var _ driver.Buffer = (*fakeBuffer)(nil)

// countingGPU implements driver.GPU, handing out a distinct fakeImage
// per NewImage call so tests can distinguish a pool hit from a newly
// created resource.
type countingGPU struct {
	fakeGPU
	nextImageID int
}

func (g *countingGPU) NewImage(pf driver.PixelFmt, size driver.Dim3D, layers, levels, samples int, usg driver.Usage) (driver.Image, error) {
	g.nextImageID++
	return &fakeImage{id: g.nextImageID}, nil
}

var _ driver.GPU = (*countingGPU)(nil)
