package block

import "github.com/joshuapare/ermalloc/internal/layout"

// Shared is a read view of a block. It does not mark the block; instead each
// Get checks the writer flag and revokes the view if an exclusive view is
// outstanding at that moment. An exclusive borrow that starts and ends
// between two Get calls leaves the view valid; callers that hold a Shared
// across mutations must not rely on it to detect them.
type Shared struct {
	b       *Block
	revoked bool
}

// Exclusive is a one-shot mutable view of a block. While it is outstanding
// the block's writer flag is set and no other view can be created.
type Exclusive struct {
	b        *Block
	consumed bool
}

func (b *Block) borrowed() bool { return layout.Writer(b.mem) }

// Share returns a shared view of b.
func (b *Block) Share() (*Shared, error) {
	if b.borrowed() {
		return nil, ErrExclusivelyBorrowed
	}
	return &Shared{b: b}, nil
}

// Exclusive marks b exclusively borrowed and returns the view.
func (b *Block) Exclusive() (*Exclusive, error) {
	if b.borrowed() {
		return nil, ErrExclusivelyBorrowed
	}
	layout.SetWriter(b.mem, true)
	return &Exclusive{b: b}, nil
}

// Get returns the block, or ErrInvalidated once an exclusive view has been
// observed. Revocation is permanent for this view.
func (s *Shared) Get() (*Block, error) {
	if s.revoked {
		return nil, ErrInvalidated
	}
	if s.b.borrowed() {
		s.revoked = true
		return nil, ErrInvalidated
	}
	return s.b, nil
}

// Invalidate drops the view.
func (s *Shared) Invalidate() { s.revoked = true }

// Take hands out the block and releases the borrow. It succeeds once.
func (e *Exclusive) Take() (*Block, error) {
	if e.consumed {
		return nil, ErrConsumed
	}
	e.consumed = true
	layout.SetWriter(e.b.mem, false)
	return e.b, nil
}

// Invalidate releases the borrow without handing out the block. It is a
// no-op on a consumed view.
func (e *Exclusive) Invalidate() {
	if e.consumed {
		return
	}
	e.consumed = true
	layout.SetWriter(e.b.mem, false)
}

// Consumed reports whether the view was taken or invalidated.
func (e *Exclusive) Consumed() bool { return e.consumed }
