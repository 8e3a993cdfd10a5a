// Copyright 2024 The Raven-Engine authors. All rights reserved.

package asset

import "github.com/raven/rendergraph/driver"

// fakeImage/fakeBuffer are minimal driver.Image/driver.Buffer
// stand-ins, grounded on rendergraph/fakeresource_test.go's pattern,
// so upload tests can run without a real device. fakeBuffer tracks
// whether Destroy was called so a test can assert on staging-buffer
// lifetime.
type fakeImage struct{ destroyed bool }

func (f *fakeImage) Destroy() { f.destroyed = true }
func (f *fakeImage) NewView(driver.ViewType, int, int, int, int) (driver.ImageView, error) {
	return nil, nil
}

type fakeBuffer struct {
	bytes     []byte
	destroyed bool
}

func (f *fakeBuffer) Destroy()      { f.destroyed = true }
func (f *fakeBuffer) Visible() bool { return true }
func (f *fakeBuffer) Bytes() []byte { return f.bytes }
func (f *fakeBuffer) Cap() int64    { return int64(len(f.bytes)) }

var _ driver.Image = (*fakeImage)(nil)
var _ driver.Buffer = (*fakeBuffer)(nil)

// fakeGPU hands out fakeImage/fakeBuffer values and records every
// buffer it creates so a test can inspect staging-buffer lifetime
// after the fact.
type fakeGPU struct {
	buffers []*fakeBuffer
}

func (g *fakeGPU) Driver() driver.Driver                         { return nil }
func (g *fakeGPU) Commit(cb []driver.CmdBuffer, ch chan<- error) {}
func (g *fakeGPU) NewCmdBuffer() (driver.CmdBuffer, error)       { return &fakeCmdBuffer{}, nil }
func (g *fakeGPU) NewRenderPass([]driver.Attachment, []driver.Subpass) (driver.RenderPass, error) {
	return nil, nil
}
func (g *fakeGPU) NewShaderCode([]byte) (driver.ShaderCode, error)          { return nil, nil }
func (g *fakeGPU) NewDescHeap([]driver.Descriptor) (driver.DescHeap, error) { return nil, nil }
func (g *fakeGPU) NewDescTable([]driver.DescHeap) (driver.DescTable, error) { return nil, nil }
func (g *fakeGPU) NewPipeline(any) (driver.Pipeline, error)                 { return nil, nil }
func (g *fakeGPU) NewSampler(*driver.Sampling) (driver.Sampler, error)      { return nil, nil }
func (g *fakeGPU) Limits() driver.Limits                                    { return driver.Limits{} }

func (g *fakeGPU) NewBuffer(size int64, visible bool, usg driver.Usage) (driver.Buffer, error) {
	b := &fakeBuffer{bytes: make([]byte, size)}
	g.buffers = append(g.buffers, b)
	return b, nil
}

func (g *fakeGPU) NewImage(pf driver.PixelFmt, size driver.Dim3D, layers, levels, samples int, usg driver.Usage) (driver.Image, error) {
	return &fakeImage{}, nil
}

var _ driver.GPU = (*fakeGPU)(nil)

// fakeCmdBuffer is a no-op driver.CmdBuffer that only records the
// CopyBufToImg calls it receives.
type fakeCmdBuffer struct {
	copies []*driver.BufImgCopy
}

func (f *fakeCmdBuffer) Destroy()                                                          {}
func (f *fakeCmdBuffer) Begin() error                                                      { return nil }
func (f *fakeCmdBuffer) BeginPass(driver.RenderPass, driver.Framebuf, []driver.ClearValue) {}
func (f *fakeCmdBuffer) NextSubpass()                                                      {}
func (f *fakeCmdBuffer) EndPass()                                                          {}
func (f *fakeCmdBuffer) BeginWork(bool)                                                    {}
func (f *fakeCmdBuffer) EndWork()                                                          {}
func (f *fakeCmdBuffer) BeginBlit(bool)                                                    {}
func (f *fakeCmdBuffer) EndBlit()                                                          {}
func (f *fakeCmdBuffer) SetPipeline(driver.Pipeline)                                       {}
func (f *fakeCmdBuffer) SetViewport([]driver.Viewport)                                     {}
func (f *fakeCmdBuffer) SetScissor([]driver.Scissor)                                       {}
func (f *fakeCmdBuffer) SetBlendColor(r, g, b, a float32)                                  {}
func (f *fakeCmdBuffer) SetStencilRef(uint32)                                              {}
func (f *fakeCmdBuffer) SetVertexBuf(start int, buf []driver.Buffer, off []int64)          {}
func (f *fakeCmdBuffer) SetIndexBuf(driver.IndexFmt, driver.Buffer, int64)                 {}
func (f *fakeCmdBuffer) SetDescTableGraph(driver.DescTable, int, []int)                    {}
func (f *fakeCmdBuffer) SetDescTableComp(driver.DescTable, int, []int)                     {}
func (f *fakeCmdBuffer) Draw(vertCount, instCount, baseVert, baseInst int)                 {}
func (f *fakeCmdBuffer) DrawIndexed(idxCount, instCount, baseIdx, vertOff, baseInst int)   {}
func (f *fakeCmdBuffer) Dispatch(grpCountX, grpCountY, grpCountZ int)                      {}
func (f *fakeCmdBuffer) CopyBuffer(*driver.BufferCopy)                                     {}
func (f *fakeCmdBuffer) CopyImage(*driver.ImageCopy)                                       {}
func (f *fakeCmdBuffer) CopyImgToBuf(*driver.BufImgCopy)                                   {}
func (f *fakeCmdBuffer) Fill(driver.Buffer, int64, byte, int64)                            {}
func (f *fakeCmdBuffer) Barrier([]driver.Barrier)                                          {}
func (f *fakeCmdBuffer) Transition([]driver.Transition)                                    {}
func (f *fakeCmdBuffer) End() error                                                        { return nil }
func (f *fakeCmdBuffer) Reset() error                                                      { return nil }

func (f *fakeCmdBuffer) CopyBufToImg(param *driver.BufImgCopy) {
	f.copies = append(f.copies, param)
}

var _ driver.CmdBuffer = (*fakeCmdBuffer)(nil)
