// Package buf holds the size arithmetic and slice helpers shared by the
// policy, block and foreign-surface packages.
package buf

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrOverflow indicates that a size computation does not fit in an int.
	ErrOverflow = errors.New("buf: size overflow")

	// ErrOutOfRange indicates that an offset/length pair falls outside a buffer.
	ErrOutOfRange = errors.New("buf: range out of bounds")
)

// AddSize adds two non-negative sizes, returning ok = false on overflow or
// when either operand is negative.
func AddSize(a, b int) (int, bool) {
	if a < 0 || b < 0 {
		return 0, false
	}
	if a > math.MaxInt-b {
		return 0, false
	}
	return a + b, true
}

// MulSize multiplies two non-negative sizes, returning ok = false on overflow
// or when either operand is negative.
func MulSize(a, b int) (int, bool) {
	if a < 0 || b < 0 {
		return 0, false
	}
	if a == 0 || b == 0 {
		return 0, true
	}
	if a > math.MaxInt/b {
		return 0, false
	}
	return a * b, true
}

// Range returns b[off:off+n]. Unlike a plain slice expression it reports an
// error instead of panicking, and it rejects offsets whose end overflows.
//
//	dst, err := buf.Range(full, offset, length)
//	if err != nil {
//	    return fmt.Errorf("read: %w", err)
//	}
func Range(b []byte, off, n int) ([]byte, error) {
	if off < 0 || n < 0 {
		return nil, fmt.Errorf("%w: offset=%d len=%d", ErrOutOfRange, off, n)
	}
	end, ok := AddSize(off, n)
	if !ok {
		return nil, fmt.Errorf("%w: offset=%d + len=%d", ErrOverflow, off, n)
	}
	if end > len(b) {
		return nil, fmt.Errorf("%w: end=%d > len=%d", ErrOutOfRange, end, len(b))
	}
	return b[off:end], nil
}

// Chunks splits b into n equal parts. It returns ok = false when n is not
// positive or len(b) is not a multiple of n.
func Chunks(b []byte, n int) ([][]byte, bool) {
	if n <= 0 || len(b)%n != 0 {
		return nil, false
	}
	size := len(b) / n
	out := make([][]byte, n)
	for i := range out {
		out[i] = b[i*size : (i+1)*size : (i+1)*size]
	}
	return out, true
}
