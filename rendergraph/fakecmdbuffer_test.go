// Copyright 2024 The Raven-Engine authors. All rights reserved.

package rendergraph

import "github.com/raven/rendergraph/driver"

// fakeCmdBuffer is a no-op driver.CmdBuffer that only records the
// Transition windows it receives, for exercising batcher.flush without
// a real graphics device.
type fakeCmdBuffer struct {
	transitions [][]driver.Transition
}

func (f *fakeCmdBuffer) Destroy() {}
func (f *fakeCmdBuffer) Begin() error { return nil }
func (f *fakeCmdBuffer) BeginPass(driver.RenderPass, driver.Framebuf, []driver.ClearValue) {}
func (f *fakeCmdBuffer) NextSubpass()                                                     {}
func (f *fakeCmdBuffer) EndPass()                                                         {}
func (f *fakeCmdBuffer) BeginWork(bool)                                                   {}
func (f *fakeCmdBuffer) EndWork()                                                         {}
func (f *fakeCmdBuffer) BeginBlit(bool)                                                   {}
func (f *fakeCmdBuffer) EndBlit()                                                         {}
func (f *fakeCmdBuffer) SetPipeline(driver.Pipeline)                                      {}
func (f *fakeCmdBuffer) SetViewport([]driver.Viewport)                                    {}
func (f *fakeCmdBuffer) SetScissor([]driver.Scissor)                                      {}
func (f *fakeCmdBuffer) SetBlendColor(r, g, b, a float32)                                 {}
func (f *fakeCmdBuffer) SetStencilRef(uint32)                                             {}
func (f *fakeCmdBuffer) SetVertexBuf(start int, buf []driver.Buffer, off []int64)         {}
func (f *fakeCmdBuffer) SetIndexBuf(driver.IndexFmt, driver.Buffer, int64)                {}
func (f *fakeCmdBuffer) SetDescTableGraph(driver.DescTable, int, []int)                   {}
func (f *fakeCmdBuffer) SetDescTableComp(driver.DescTable, int, []int)                    {}
func (f *fakeCmdBuffer) Draw(vertCount, instCount, baseVert, baseInst int)                {}
func (f *fakeCmdBuffer) DrawIndexed(idxCount, instCount, baseIdx, vertOff, baseInst int)  {}
func (f *fakeCmdBuffer) Dispatch(grpCountX, grpCountY, grpCountZ int)                     {}
func (f *fakeCmdBuffer) CopyBuffer(*driver.BufferCopy)                                    {}
func (f *fakeCmdBuffer) CopyImage(*driver.ImageCopy)                                      {}
func (f *fakeCmdBuffer) CopyBufToImg(*driver.BufImgCopy)                                  {}
func (f *fakeCmdBuffer) CopyImgToBuf(*driver.BufImgCopy)                                  {}
func (f *fakeCmdBuffer) Fill(driver.Buffer, int64, byte, int64)                           {}
func (f *fakeCmdBuffer) Barrier([]driver.Barrier)                                         {}
func (f *fakeCmdBuffer) End() error                                                       { return nil }
func (f *fakeCmdBuffer) Reset() error                                                     { return nil }

func (f *fakeCmdBuffer) Transition(t []driver.Transition) {
	cp := append([]driver.Transition(nil), t...)
	f.transitions = append(f.transitions, cp)
}

var _ driver.CmdBuffer = (*fakeCmdBuffer)(nil)
