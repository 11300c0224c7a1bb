// Package memory provides the raw storage behind protected blocks: a generic
// allocate / zero-allocate / resize / free primitive parameterized by size
// and alignment.
//
// Two providers are available:
//
//   - Mmap: anonymous private mappings through golang.org/x/sys/unix. The
//     memory lives outside the Go heap, so pointers into it may be handed to
//     foreign code.
//   - Heap: aligned slices on the Go heap, with an optional byte limit for
//     exercising out-of-memory paths in tests.
//
// Providers track their live extents and reject a Free whose extent does not
// match what was handed out, which catches size bookkeeping bugs early.
package memory

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfMemory indicates the provider cannot satisfy the request.
	ErrOutOfMemory = errors.New("memory: out of memory")

	// ErrInvalidLayout indicates a non-positive size or an alignment that is
	// not a power of two.
	ErrInvalidLayout = errors.New("memory: invalid size/alignment")

	// ErrNotAllocated indicates a Free or Resize of memory this provider does
	// not own.
	ErrNotAllocated = errors.New("memory: extent not allocated by this provider")

	// ErrExtentMismatch indicates the extent passed to Free or Resize does not
	// have the length it was allocated with.
	ErrExtentMismatch = errors.New("memory: extent length mismatch")
)

// Provider is the raw memory source consumed by the block package. It is not
// required to be safe for concurrent use beyond what each implementation
// documents.
type Provider interface {
	// Alloc returns size bytes aligned to align. Contents are unspecified.
	Alloc(size, align int) ([]byte, error)

	// AllocZeroed returns size zeroed bytes aligned to align.
	AllocZeroed(size, align int) ([]byte, error)

	// Resize moves or grows mem to newSize bytes, preserving the first
	// min(len(mem), newSize) bytes. mem must be an extent returned by this
	// provider with its original length; it is invalid after a successful
	// call.
	Resize(mem []byte, newSize, align int) ([]byte, error)

	// Free releases mem, which must be an extent returned by this provider
	// with its original length.
	Free(mem []byte) error
}

func checkLayout(size, align int) error {
	if size <= 0 || align <= 0 || align&(align-1) != 0 {
		return fmt.Errorf("%w: size=%d align=%d", ErrInvalidLayout, size, align)
	}
	return nil
}
