package policy

import (
	"fmt"
	"strings"

	"github.com/joshuapare/ermalloc/internal/buf"
	"github.com/joshuapare/ermalloc/internal/fatal"
)

// MaxPolicies is the fixed capacity of a Stack.
const MaxPolicies = 3

// Stack is an ordered, fixed-capacity list of policies. Index 0 is the
// outermost layer. Slots after the first Nil are never visited.
type Stack [MaxPolicies]Policy

// NewStack builds a stack from up to MaxPolicies policies, padding the rest
// with Nil.
func NewStack(policies ...Policy) (Stack, error) {
	var s Stack
	if len(policies) > MaxPolicies {
		return s, fmt.Errorf("%w: %d > %d", ErrTooManyPolicies, len(policies), MaxPolicies)
	}
	copy(s[:], policies)
	return s, nil
}

// MustStack is NewStack for statically known stacks; exceeding the capacity
// is a contract violation.
func MustStack(policies ...Policy) Stack {
	s, err := NewStack(policies...)
	if err != nil {
		fatal.Fatalf("%v", err)
	}
	return s
}

// Depth returns the number of active layers before the first Nil.
func (s Stack) Depth() int {
	for i, p := range s {
		if p.IsNil() {
			return i
		}
	}
	return MaxPolicies
}

func (s Stack) String() string {
	d := s.Depth()
	if d == 0 {
		return "nil"
	}
	parts := make([]string, d)
	for i := range d {
		parts[i] = s[i].String()
	}
	return strings.Join(parts, ",")
}

// TotalSize returns the stored size of a payloadSize-byte payload wrapped by
// every active layer. It accumulates from the innermost layer outwards, so
// each outer layer's overhead is computed on the already expanded size.
func (s Stack) TotalSize(payloadSize int) (int, error) {
	if payloadSize < 0 {
		return 0, fmt.Errorf("%w: negative payload %d", ErrSizeOverflow, payloadSize)
	}
	size := payloadSize
	for i := s.Depth() - 1; i >= 0; i-- {
		next, err := s[i].SizeOverhead(size)
		if err != nil {
			return 0, fmt.Errorf("layer %d (%s): %w", i, s[i], err)
		}
		size = next
	}
	return size, nil
}

// Apply derives every layer's overhead from the payload at the front of b.
// Inner layers are applied before the outer layer that protects them.
func (s Stack) Apply(b []byte) {
	s.apply(0, b)
}

func (s Stack) apply(index int, b []byte) {
	if index == MaxPolicies || s[index].IsNil() {
		return
	}
	p := s[index]
	if p.Kind() == KindRedundancy {
		for _, chunk := range s.copies(p, b) {
			s.apply(index+1, chunk)
		}
	} else {
		data, _ := p.Split(b)
		s.apply(index+1, data)
	}
	p.Apply(b)
}

// Correct repairs b bottom-up and returns the total number of errors fixed
// across all layers and copies. An error means some layer held more
// corruption than it can repair; layers already visited keep their repairs.
func (s Stack) Correct(b []byte) (uint32, error) {
	return s.correct(0, b)
}

func (s Stack) correct(index int, b []byte) (uint32, error) {
	if index == MaxPolicies || s[index].IsNil() {
		return 0, nil
	}
	p := s[index]
	var inner uint32
	if p.Kind() == KindRedundancy {
		chunks := s.copies(p, b)
		var innerErr error
		for _, chunk := range chunks {
			n, err := s.correct(index+1, chunk)
			inner += n
			if err != nil && innerErr == nil {
				innerErr = err
			}
		}
		n, _ := p.Correct(b)
		// A copy whose inner layers could not repair it may still have been
		// outvoted; only report failure if the voted result is still bad.
		if innerErr != nil && s.isCorrupted(index+1, chunks[0]) {
			return inner + n, innerErr
		}
		return inner + n, nil
	}

	data, _ := p.Split(b)
	n, innerErr := s.correct(index+1, data)
	inner += n
	n, err := p.Correct(b)
	inner += n
	if err != nil {
		return inner, err
	}
	// This layer may have repaired what the inner layers could not; retry
	// them against the repaired data before reporting failure.
	if innerErr != nil && s.isCorrupted(index+1, data) {
		n, innerErr = s.correct(index+1, data)
		inner += n
		if innerErr != nil {
			return inner, innerErr
		}
	}
	return inner, nil
}

// IsCorrupted reports whether any layer disagrees with its redundancy. It
// follows only the data region of each layer (the first copy of a
// Redundancy layer), so it is a fast approximate probe; use Correct for an
// exhaustive repair.
func (s Stack) IsCorrupted(b []byte) bool {
	return s.isCorrupted(0, b)
}

func (s Stack) isCorrupted(index int, b []byte) bool {
	if index == MaxPolicies || s[index].IsNil() {
		return false
	}
	p := s[index]
	data, _ := p.Split(b)
	if s.isCorrupted(index+1, data) {
		return true
	}
	return p.IsCorrupted(b)
}

func (s Stack) copies(p Policy, b []byte) [][]byte {
	// Split enforces the divisibility contract before chunking.
	p.Split(b)
	chunks, _ := buf.Chunks(b, int(p.Param()))
	return chunks
}
