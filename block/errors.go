package block

import "errors"

var (
	// ErrInvalidLayout indicates the requested size and policies cannot be
	// laid out (overflow or an oversized Reed-Solomon codeword).
	ErrInvalidLayout = errors.New("block: invalid layout")

	// ErrExclusivelyBorrowed indicates an exclusive view is outstanding.
	ErrExclusivelyBorrowed = errors.New("block: exclusively borrowed")

	// ErrInvalidated indicates a shared view was revoked by an exclusive
	// borrow.
	ErrInvalidated = errors.New("block: shared view invalidated")

	// ErrConsumed indicates an exclusive view was already taken or
	// invalidated.
	ErrConsumed = errors.New("block: exclusive view already consumed")

	// ErrNilPointer indicates a nil user pointer.
	ErrNilPointer = errors.New("block: nil pointer")
)
