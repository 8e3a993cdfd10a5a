// Copyright 2024 The Raven-Engine authors. All rights reserved.

package rendergraph

import "testing"

func makeTransitions(n int, from, to AccessState) []pendingTransition {
	pend := make([]pendingTransition, n)
	for i := range pend {
		pend[i] = pendingTransition{slot: i, from: from, to: to, skipSyncIfSame: true}
	}
	return pend
}

func TestBatcherFlushWindowsAtMaxTransitionPerBatch(t *testing.T) {
	cb := &fakeCmdBuffer{}
	stats := &ExecuteStats{}
	b := &batcher{cb: cb, stats: stats}

	pend := makeTransitions(maxTransitionPerBatch*2+5, AccessFragmentShaderRead, AccessColorAttachmentWrite)
	if err := b.flush(pend); err != nil {
		t.Fatal(err)
	}

	wantBatches := 3 // 32 + 32 + 5
	if len(cb.transitions) != wantBatches {
		t.Fatalf("Transition call count:\nhave %d\nwant %d", len(cb.transitions), wantBatches)
	}
	if len(cb.transitions[0]) != maxTransitionPerBatch || len(cb.transitions[1]) != maxTransitionPerBatch {
		t.Fatalf("first two batches: have sizes %d, %d, want %d each",
			len(cb.transitions[0]), len(cb.transitions[1]), maxTransitionPerBatch)
	}
	if len(cb.transitions[2]) != 5 {
		t.Fatalf("trailing batch size:\nhave %d\nwant 5", len(cb.transitions[2]))
	}
	if stats.BatchesIssued != wantBatches {
		t.Fatalf("stats.BatchesIssued:\nhave %d\nwant %d", stats.BatchesIssued, wantBatches)
	}
	if stats.BarriersIssued != len(pend) {
		t.Fatalf("stats.BarriersIssued:\nhave %d\nwant %d", stats.BarriersIssued, len(pend))
	}
}

func TestBatcherFlushSkipsNoOpTransitions(t *testing.T) {
	cb := &fakeCmdBuffer{}
	stats := &ExecuteStats{}
	b := &batcher{cb: cb, stats: stats}

	pend := []pendingTransition{
		{slot: 0, from: AccessFragmentShaderRead, to: AccessFragmentShaderRead, skipSyncIfSame: true},
		{slot: 1, from: AccessFragmentShaderRead, to: AccessColorAttachmentWrite, skipSyncIfSame: true},
		{slot: 2, from: AccessTransferWrite, to: AccessTransferWrite, skipSyncIfSame: true},
	}
	if err := b.flush(pend); err != nil {
		t.Fatal(err)
	}

	if stats.ResourcesSkipped != 2 {
		t.Fatalf("stats.ResourcesSkipped:\nhave %d\nwant 2", stats.ResourcesSkipped)
	}
	if stats.BarriersIssued != 1 {
		t.Fatalf("stats.BarriersIssued:\nhave %d\nwant 1", stats.BarriersIssued)
	}
	if len(cb.transitions) != 1 || len(cb.transitions[0]) != 1 {
		t.Fatalf("Transition call shape:\nhave %+v\nwant one call with one entry", cb.transitions)
	}
}

func TestBatcherFlushEmitsNothingForEmptyInput(t *testing.T) {
	cb := &fakeCmdBuffer{}
	b := &batcher{cb: cb}
	if err := b.flush(nil); err != nil {
		t.Fatal(err)
	}
	if len(cb.transitions) != 0 {
		t.Fatalf("Transition calls for empty input:\nhave %d\nwant 0", len(cb.transitions))
	}
}

// TestBatcherFlushReportsUnresolvableAccess covers the case flush used
// to handle by silently dropping the transition: an AccessState
// lookupAccess cannot resolve must surface as an error, not vanish.
func TestBatcherFlushReportsUnresolvableAccess(t *testing.T) {
	cb := &fakeCmdBuffer{}
	b := &batcher{cb: cb}
	const invalidAccess AccessState = 1 << 30
	pend := []pendingTransition{{slot: 0, from: AccessNone, to: invalidAccess}}
	if err := b.flush(pend); err == nil {
		t.Fatal("flush: want error for an unresolvable access state, got nil")
	}
}
