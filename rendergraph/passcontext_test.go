// Copyright 2024 The Raven-Engine authors. All rights reserved.

package rendergraph

import (
	"testing"

	"github.com/raven/rendergraph/driver"
)

type fakeImageView struct{ id int }

func (f *fakeImageView) Destroy() {}

var _ driver.ImageView = (*fakeImageView)(nil)

type fakeFramebuf struct{ id int }

func (f *fakeFramebuf) Destroy() {}

var _ driver.Framebuf = (*fakeFramebuf)(nil)

type countingRenderPass struct {
	calls int
}

func (p *countingRenderPass) Destroy() {}
func (p *countingRenderPass) NewFB(iv []driver.ImageView, width, height, layers int) (driver.Framebuf, error) {
	p.calls++
	return &fakeFramebuf{id: p.calls}, nil
}

var _ driver.RenderPass = (*countingRenderPass)(nil)

func TestFramebufferCacheReusesFramebufferForSameAttachments(t *testing.T) {
	fbc := &framebufferCache{byKey: make(map[framebufferKey]driver.Framebuf)}
	rp := &countingRenderPass{}
	view := &fakeImageView{id: 1}

	fb1, err := fbc.get(rp, []driver.ImageView{view}, 640, 480, 1)
	if err != nil {
		t.Fatal(err)
	}
	fb2, err := fbc.get(rp, []driver.ImageView{view}, 640, 480, 1)
	if err != nil {
		t.Fatal(err)
	}
	if fb1 != fb2 {
		t.Fatal("framebufferCache.get: identical attachment set produced distinct framebuffers")
	}
	if rp.calls != 1 {
		t.Fatalf("RenderPass.NewFB call count:\nhave %d\nwant 1", rp.calls)
	}
}

func TestFramebufferCacheCreatesNewEntryForDifferentAttachments(t *testing.T) {
	fbc := &framebufferCache{byKey: make(map[framebufferKey]driver.Framebuf)}
	rp := &countingRenderPass{}
	viewA := &fakeImageView{id: 1}
	viewB := &fakeImageView{id: 2}

	if _, err := fbc.get(rp, []driver.ImageView{viewA}, 640, 480, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := fbc.get(rp, []driver.ImageView{viewB}, 640, 480, 1); err != nil {
		t.Fatal(err)
	}
	if rp.calls != 2 {
		t.Fatalf("RenderPass.NewFB call count:\nhave %d\nwant 2", rp.calls)
	}

	// Same views but a different extent is also a distinct framebuffer.
	if _, err := fbc.get(rp, []driver.ImageView{viewA}, 1280, 720, 1); err != nil {
		t.Fatal(err)
	}
	if rp.calls != 3 {
		t.Fatalf("RenderPass.NewFB call count after extent change:\nhave %d\nwant 3", rp.calls)
	}
}

func TestYFlippedViewportNegatesHeight(t *testing.T) {
	vp := yFlippedViewport(640, 480)
	if vp.Y != 480 || vp.Height != -480 {
		t.Fatalf("yFlippedViewport: have Y=%v Height=%v, want Y=480 Height=-480", vp.Y, vp.Height)
	}
	if vp.Width != 640 {
		t.Fatalf("yFlippedViewport: Width:\nhave %v\nwant 640", vp.Width)
	}
}
