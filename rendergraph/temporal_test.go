// Copyright 2024 The Raven-Engine authors. All rights reserved.

package rendergraph

import (
	"testing"

	"github.com/raven/rendergraph/driver"
)

type retireBacking = map[int]struct {
	Image  driver.Image
	Buffer driver.Buffer
}

func TestTemporalRegistryImportFirstUseReturnsAccessNone(t *testing.T) {
	r := NewTemporalRegistry()
	access, img, buf := r.Import("history", ResourceDesc{})
	if access != AccessNone {
		t.Fatalf("Import (first use): access:\nhave %d\nwant AccessNone", access)
	}
	if img != nil || buf != nil {
		t.Fatal("Import (first use): want nil image/buffer, have non-nil")
	}
}

func TestTemporalRegistryRoundTripAcrossFrames(t *testing.T) {
	r := NewTemporalRegistry()

	// Frame 1: import (first use: nil backing, as PrepareExecute would
	// observe before allocating one), bind to slot 3, mark exported,
	// retire with the access the graph left it in and the backing
	// PrepareExecute allocated for the first-use slot.
	r.Import("history", ResourceDesc{})
	r.bind("history", 3)
	r.MarkExported()
	allocated := &fakeImage{id: 1}
	r.Retire(map[int]AccessState{3: AccessColorAttachmentWrite}, retireBacking{
		3: {Image: allocated},
	})

	// Frame 2: import again, should observe frame 1's final access and
	// backing, so PrepareExecute never allocates a second time for the
	// same key.
	access, img, _ := r.Import("history", ResourceDesc{})
	if access != AccessColorAttachmentWrite {
		t.Fatalf("Import (frame 2): access:\nhave %d\nwant AccessColorAttachmentWrite", access)
	}
	if img != allocated {
		t.Fatal("Import (frame 2): want frame 1's retired backing image, got a different one")
	}
}

func TestTemporalRegistryCollapseToInertResetsAccess(t *testing.T) {
	r := NewTemporalRegistry()
	r.Import("h", ResourceDesc{})
	r.bind("h", 0)
	r.MarkExported()
	r.Retire(map[int]AccessState{0: AccessTransferWrite}, retireBacking{})

	r.CollapseToInert()
	access, _, _ := r.Import("h", ResourceDesc{})
	if access != AccessNone {
		t.Fatalf("Import after CollapseToInert: access:\nhave %d\nwant AccessNone", access)
	}
}
