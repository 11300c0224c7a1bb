//go:build !unix

package memory

// Default returns the provider used when none is configured. Without mmap
// support it falls back to an unlimited Heap.
func Default() Provider {
	return NewHeap(0)
}
