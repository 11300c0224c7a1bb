package block

import (
	"fmt"
	"unsafe"

	"github.com/joshuapare/ermalloc/internal/buf"
	"github.com/joshuapare/ermalloc/internal/fatal"
	"github.com/joshuapare/ermalloc/internal/layout"
	"github.com/joshuapare/ermalloc/memory"
	"github.com/joshuapare/ermalloc/policy"
)

// Block is a view over one provider extent: header followed by the protected
// buffer. The zero value is not usable; obtain blocks through New or the
// FromUserPointer functions.
type Block struct {
	mem []byte
}

// Size computes the protected buffer size and the full extent size for a
// payload of size bytes under stack. Empty payloads are rejected.
func Size(size int, stack policy.Stack) (bufferSize, extent int, err error) {
	if size <= 0 {
		return 0, 0, fmt.Errorf("%w: payload size %d", ErrInvalidLayout, size)
	}
	bufferSize, err = stack.TotalSize(size)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %w", ErrInvalidLayout, err)
	}
	extent, ok := buf.AddSize(bufferSize, layout.HeaderSize)
	if !ok {
		return 0, 0, fmt.Errorf("%w: %d + header overflows", ErrInvalidLayout, bufferSize)
	}
	return bufferSize, extent, nil
}

// New allocates a block holding size payload bytes protected by stack. When
// zeroed is set the payload starts zero filled and the protection metadata
// is derived from it; otherwise both are undefined until the caller writes
// the payload and calls Apply.
//
// The returned exclusive view is the caller's only handle until it is taken.
func New(p memory.Provider, size int, stack policy.Stack, zeroed bool) (*Exclusive, error) {
	bufferSize, extent, err := Size(size, stack)
	if err != nil {
		return nil, err
	}

	var mem []byte
	if zeroed {
		mem, err = p.AllocZeroed(extent, layout.Alignment)
	} else {
		mem, err = p.Alloc(extent, layout.Alignment)
	}
	if err != nil {
		return nil, fmt.Errorf("block: allocate %d bytes: %w", extent, err)
	}

	b := &Block{mem: mem}
	b.writeHeader(bufferSize, size, stack)
	if zeroed {
		b.Apply()
	}
	return b.Exclusive()
}

// Renew resizes the block behind ex to newSize payload bytes under stack,
// preserving the common prefix of the old extent, and regenerates the
// protection metadata from the data now in place. ex is consumed on success.
// On failure the old block is left untouched and ex stays outstanding.
func Renew(p memory.Provider, ex *Exclusive, newSize int, stack policy.Stack) (*Exclusive, error) {
	if ex.consumed {
		return nil, ErrConsumed
	}
	bufferSize, extent, err := Size(newSize, stack)
	if err != nil {
		return nil, err
	}

	mem, err := p.Resize(ex.b.mem, extent, layout.Alignment)
	if err != nil {
		return nil, fmt.Errorf("block: resize to %d bytes: %w", extent, err)
	}
	ex.consumed = true

	b := &Block{mem: mem}
	b.writeHeader(bufferSize, newSize, stack)
	b.Apply()
	return b.Exclusive()
}

// Destroy releases the block behind ex. The extent is recomputed from the
// header's length and policies, so a header whose bufferSize disagrees with
// them is reported by the provider rather than silently freed.
func Destroy(p memory.Provider, ex *Exclusive) error {
	b, err := ex.Take()
	if err != nil {
		return err
	}
	_, extent, err := Size(b.Len(), b.Policies())
	if err != nil {
		return err
	}
	mem := unsafe.Slice(unsafe.SliceData(b.mem), extent)
	if err := p.Free(mem); err != nil {
		return fmt.Errorf("block: free %d bytes: %w", extent, err)
	}
	b.mem = nil
	return nil
}

// FromUserPointer recovers the block owning ptr as a shared view. ptr is
// assumed to come from UserPointer; nothing checks that.
func FromUserPointer(ptr unsafe.Pointer) (*Shared, error) {
	b, err := fromUserPointer(ptr)
	if err != nil {
		return nil, err
	}
	return &Shared{b: b}, nil
}

// FromUserPointerMut recovers the block owning ptr as an exclusive view.
func FromUserPointerMut(ptr unsafe.Pointer) (*Exclusive, error) {
	b, err := fromUserPointer(ptr)
	if err != nil {
		return nil, err
	}
	return b.Exclusive()
}

func fromUserPointer(ptr unsafe.Pointer) (*Block, error) {
	if ptr == nil {
		return nil, ErrNilPointer
	}
	hdr := (*byte)(unsafe.Add(ptr, -layout.HeaderSize))
	bufferSize := layout.BufferSize(unsafe.Slice(hdr, layout.HeaderSize))
	return &Block{mem: unsafe.Slice(hdr, layout.HeaderSize+int(bufferSize))}, nil
}

func (b *Block) writeHeader(bufferSize, length int, stack policy.Stack) {
	h := layout.Header{
		BufferSize: uint64(bufferSize),
		Length:     uint64(length),
	}
	for i, p := range stack {
		h.Policies[i] = layout.PolicyRecord{Kind: uint32(p.Kind()), Param: p.Param()}
	}
	// extent always covers the header
	_ = layout.Encode(b.mem, h)
}

func (b *Block) header() layout.Header {
	h, err := layout.Decode(b.mem)
	if err != nil {
		fatal.Fatalf("block: %v", err)
	}
	return h
}

// UserPointer returns the address of the protected buffer.
func (b *Block) UserPointer() unsafe.Pointer {
	return unsafe.Add(unsafe.Pointer(unsafe.SliceData(b.mem)), layout.HeaderSize)
}

// Extent returns the number of provider bytes backing b, header included.
func (b *Block) Extent() int { return len(b.mem) }

// Len returns the payload length requested at allocation.
func (b *Block) Len() int { return int(b.header().Length) }

// BufferSize returns the protected buffer size recorded in the header.
func (b *Block) BufferSize() int { return int(layout.BufferSize(b.mem)) }

// Policies decodes the policy stack stored in the header. An unknown policy
// kind means the header itself is corrupt and is fatal.
func (b *Block) Policies() policy.Stack {
	var s policy.Stack
	for i, rec := range b.header().Policies {
		p, err := policy.FromRecord(rec.Kind, rec.Param)
		if err != nil {
			fatal.Fatalf("block: header slot %d: %v", i, err)
		}
		s[i] = p
	}
	return s
}

// FullBuffer returns the whole protected region: payload plus every layer's
// overhead.
func (b *Block) FullBuffer() []byte {
	n := layout.HeaderSize + b.BufferSize()
	return b.mem[layout.HeaderSize:n:n]
}

// DataSlice returns the payload. Run Correct first if the contents must be
// trusted.
func (b *Block) DataSlice() []byte {
	n := b.Len()
	return b.FullBuffer()[:n:n]
}

// Apply derives the protection metadata from the current payload.
func (b *Block) Apply() {
	b.Policies().Apply(b.FullBuffer())
}

// Correct repairs the protected buffer and returns the number of corrected
// errors. An error wrapping policy.ErrUncorrectable means at least one layer
// could not be repaired.
func (b *Block) Correct() (uint32, error) {
	return b.Policies().Correct(b.FullBuffer())
}

// IsCorrupted probes the protected buffer for corruption.
func (b *Block) IsCorrupted() bool {
	return b.Policies().IsCorrupted(b.FullBuffer())
}
