package testutil

import (
	"testing"

	"github.com/joshuapare/ermalloc/memory"
)

// NewHeap returns a Go-heap memory provider that fails the test at cleanup if
// any extent is still live. limit caps live bytes (0 = unlimited).
func NewHeap(t testing.TB, limit int) *memory.Heap {
	t.Helper()
	h := memory.NewHeap(limit)
	t.Cleanup(func() {
		if n := h.Live(); n != 0 {
			t.Errorf("memory provider leaked %d extents (%d bytes)", n, h.InUse())
		}
	})
	return h
}
