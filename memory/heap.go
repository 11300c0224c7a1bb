package memory

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/joshuapare/ermalloc/internal/buf"
)

type heapExtent struct {
	raw  []byte // keeps the backing array reachable
	size int
}

// Heap allocates aligned extents on the Go heap. It is safe for concurrent use.
//
// Heap memory must not be retained by foreign code; use Mmap for extents that
// cross a cgo boundary.
type Heap struct {
	mu    sync.Mutex
	limit int
	inUse int
	live  map[uintptr]heapExtent
}

// NewHeap returns a heap provider. A positive limit caps the number of live
// bytes; requests beyond it fail with ErrOutOfMemory.
func NewHeap(limit int) *Heap {
	return &Heap{
		limit: limit,
		live:  make(map[uintptr]heapExtent),
	}
}

// Alloc returns size bytes aligned to align. Go memory is always zeroed, so
// Alloc and AllocZeroed behave the same.
func (h *Heap) Alloc(size, align int) ([]byte, error) {
	if err := checkLayout(size, align); err != nil {
		return nil, err
	}
	padded, ok := buf.AddSize(size, align)
	if !ok {
		return nil, fmt.Errorf("%w: size=%d align=%d", ErrInvalidLayout, size, align)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.limit > 0 && (h.inUse > h.limit || size > h.limit-h.inUse) {
		return nil, fmt.Errorf("%w: %d bytes requested, %d of %d in use", ErrOutOfMemory, size, h.inUse, h.limit)
	}

	raw := make([]byte, padded)
	mem := alignBytes(raw, size, align)
	h.live[addr(mem)] = heapExtent{raw: raw, size: size}
	h.inUse += size
	return mem, nil
}

// AllocZeroed is Alloc.
func (h *Heap) AllocZeroed(size, align int) ([]byte, error) {
	return h.Alloc(size, align)
}

// Resize allocates a new extent, copies the common prefix and frees mem.
func (h *Heap) Resize(mem []byte, newSize, align int) ([]byte, error) {
	if err := h.owns(mem); err != nil {
		return nil, err
	}
	out, err := h.Alloc(newSize, align)
	if err != nil {
		return nil, err
	}
	copy(out, mem)
	if err := h.Free(mem); err != nil {
		_ = h.Free(out)
		return nil, err
	}
	return out, nil
}

// Free releases mem.
func (h *Heap) Free(mem []byte) error {
	if err := h.owns(mem); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	ext := h.live[addr(mem)]
	delete(h.live, addr(mem))
	h.inUse -= ext.size
	return nil
}

// InUse returns the number of live bytes.
func (h *Heap) InUse() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.inUse
}

// Live returns the number of live extents.
func (h *Heap) Live() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.live)
}

func (h *Heap) owns(mem []byte) error {
	if len(mem) == 0 {
		return ErrNotAllocated
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	ext, ok := h.live[addr(mem)]
	if !ok {
		return fmt.Errorf("%w: %p", ErrNotAllocated, &mem[0])
	}
	if ext.size != len(mem) {
		return fmt.Errorf("%w: got %d bytes, allocated %d", ErrExtentMismatch, len(mem), ext.size)
	}
	return nil
}

func addr(mem []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(mem)))
}

// alignBytes returns the first size bytes of raw starting at an align
// boundary. raw must hold at least size+align bytes.
func alignBytes(raw []byte, size, align int) []byte {
	base := addr(raw)
	aligned := (base + uintptr(align-1)) &^ uintptr(align-1)
	off := int(aligned - base)
	return raw[off : off+size : off+size]
}
