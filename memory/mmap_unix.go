//go:build unix

package memory

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// Mmap backs every extent with its own anonymous private mapping. Mappings
// are page aligned and zero filled. It is safe for concurrent use.
type Mmap struct {
	mu       sync.Mutex
	pageSize int
	inUse    int
	live     int
}

// NewMmap returns an mmap-backed provider.
func NewMmap() *Mmap {
	return &Mmap{pageSize: unix.Getpagesize()}
}

// Alloc maps size bytes. Alignments up to the page size are satisfied by the
// mapping itself.
func (m *Mmap) Alloc(size, align int) ([]byte, error) {
	if err := checkLayout(size, align); err != nil {
		return nil, err
	}
	if align > m.pageSize {
		return nil, fmt.Errorf("%w: align=%d exceeds page size %d", ErrInvalidLayout, align, m.pageSize)
	}
	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		if errors.Is(err, unix.ENOMEM) {
			return nil, fmt.Errorf("%w: mmap %d bytes: %v", ErrOutOfMemory, size, err)
		}
		return nil, fmt.Errorf("memory: mmap %d bytes: %w", size, err)
	}

	m.mu.Lock()
	m.inUse += size
	m.live++
	m.mu.Unlock()
	return mem, nil
}

// AllocZeroed is Alloc; anonymous mappings are zero filled.
func (m *Mmap) AllocZeroed(size, align int) ([]byte, error) {
	return m.Alloc(size, align)
}

// Resize maps a new extent, copies the common prefix and unmaps mem.
func (m *Mmap) Resize(mem []byte, newSize, align int) ([]byte, error) {
	out, err := m.Alloc(newSize, align)
	if err != nil {
		return nil, err
	}
	copy(out, mem)
	if err := m.Free(mem); err != nil {
		_ = m.Free(out)
		return nil, err
	}
	return out, nil
}

// Free unmaps mem. The slice must end where the original mapping ended;
// anything else is reported as ErrExtentMismatch.
func (m *Mmap) Free(mem []byte) error {
	if len(mem) == 0 {
		return ErrNotAllocated
	}
	if err := unix.Munmap(mem); err != nil {
		if errors.Is(err, unix.EINVAL) {
			return fmt.Errorf("%w: munmap %d bytes: %v", ErrExtentMismatch, len(mem), err)
		}
		return fmt.Errorf("memory: munmap: %w", err)
	}

	m.mu.Lock()
	m.inUse -= len(mem)
	m.live--
	m.mu.Unlock()
	return nil
}

// InUse returns the number of mapped bytes handed out.
func (m *Mmap) InUse() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inUse
}

// Live returns the number of live mappings.
func (m *Mmap) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live
}

// Default returns the provider used when none is configured: Mmap on unix.
func Default() Provider {
	return NewMmap()
}
