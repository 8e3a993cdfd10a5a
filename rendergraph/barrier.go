// Copyright 2024 The Raven-Engine authors. All rights reserved.

package rendergraph

import (
	"fmt"

	"github.com/raven/rendergraph/driver"
)

// maxTransitionPerBatch bounds the number of resources grouped into
// a single driver.CmdBuffer.Transition/Barrier call, transcribed
// from raven-rg/src/executing_graph.rs's MAX_TRANSITION_PER_BATCH.
const maxTransitionPerBatch = 32

// pendingTransition is one resource's requested state change, not
// yet flushed to a driver call.
type pendingTransition struct {
	slot           int
	isImage        bool
	from, to       AccessState
	skipSyncIfSame bool
	discardContent bool
	view           driver.ImageView
}

// batcher accumulates pendingTransitions and flushes them to a
// driver.CmdBuffer in windows of at most maxTransitionPerBatch,
// grounded on executing_graph.rs's resource_transition_batched(_impl).
type batcher struct {
	cb    driver.CmdBuffer
	stats *ExecuteStats
}

// aspectFromFormat derives an image's aspect mask equivalent from
// its pixel format: depth/stencil combinations are enumerated
// explicitly, everything else is color (spec.md §4.4). The driver
// package has no explicit aspect-mask type (aspects are implied by
// the PixelFmt itself at the Transition call site via the image
// view), so this returns a simple tag used only to decide whether a
// transition touches depth, stencil, or color for test assertions
// and for aligning with the original's aspect_flag_from_image_format.
type imageAspect int

const (
	aspectColor imageAspect = iota
	aspectDepth
	aspectStencil
	aspectDepthStencil
)

func aspectFromFormat(f driver.PixelFmt) imageAspect {
	switch f {
	case driver.D16un, driver.D32f:
		return aspectDepth
	case driver.S8ui:
		return aspectStencil
	case driver.D24unS8ui, driver.D32fS8ui:
		return aspectDepthStencil
	default:
		return aspectColor
	}
}

// flush emits transitions for every item in pend, skipping any item
// whose current access already equals its requested access when
// skipSyncIfSame is set (spec.md §4.4 barrier batching rules), and
// issues one driver.CmdBuffer.Transition call per window of at most
// maxTransitionPerBatch resources. An AccessState lookupAccess cannot
// resolve is a programmer error (an invalid or unreachable enum value
// reached recording), not a recoverable condition, so flush reports it
// rather than silently dropping the transition.
func (b *batcher) flush(pend []pendingTransition) error {
	var window []driver.Transition
	flushWindow := func() {
		if len(window) == 0 {
			return
		}
		b.cb.Transition(window)
		if b.stats != nil {
			b.stats.BarriersIssued += len(window)
			b.stats.BatchesIssued++
		}
		window = window[:0]
	}

	for _, p := range pend {
		if p.skipSyncIfSame && p.from == p.to {
			if b.stats != nil {
				b.stats.ResourcesSkipped++
			}
			continue
		}
		fromInfo, err := lookupAccess(p.from)
		if err != nil {
			return fmt.Errorf("rendergraph: transition slot %d: from-access: %w", p.slot, err)
		}
		toInfo, err := lookupAccess(p.to)
		if err != nil {
			return fmt.Errorf("rendergraph: transition slot %d: to-access: %w", p.slot, err)
		}
		t := driver.Transition{
			Barrier: driver.Barrier{
				SyncBefore:   fromInfo.syncBefore | fromInfo.syncAfter,
				SyncAfter:    toInfo.syncAfter,
				AccessBefore: fromInfo.accessBefore | fromInfo.accessAfter,
				AccessAfter:  toInfo.accessAfter,
			},
			LayoutBefore: fromInfo.layout,
			LayoutAfter:  toInfo.layout,
			IView:        p.view,
		}
		window = append(window, t)
		if len(window) == maxTransitionPerBatch {
			flushWindow()
		}
	}
	flushWindow()
	return nil
}

// ExecuteStats instruments barrier batching for Testable Property
// "Barrier minimality" (spec.md §8); see SPEC_FULL.md §2.2.
type ExecuteStats struct {
	BarriersIssued   int
	BatchesIssued    int
	ResourcesSkipped int
}
