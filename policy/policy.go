package policy

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/joshuapare/ermalloc/internal/buf"
	"github.com/joshuapare/ermalloc/internal/fatal"
	"github.com/joshuapare/ermalloc/internal/rscodec"
)

// Kind identifies a policy variant. The numeric values are stored in block
// headers and must not change.
type Kind uint32

const (
	KindNil         Kind = 0
	KindRedundancy  Kind = 1
	KindReedSolomon Kind = 2
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindRedundancy:
		return "redundancy"
	case KindReedSolomon:
		return "reed-solomon"
	default:
		return fmt.Sprintf("kind(%d)", uint32(k))
	}
}

// Policy is one protection layer. The zero value is Nil.
type Policy struct {
	kind  Kind
	param uint32
}

// Nil is the no-op terminator layer.
var Nil = Policy{}

// Redundancy stores copies full-size duplicates of the wrapped data,
// including the original.
func Redundancy(copies uint32) Policy {
	return Policy{kind: KindRedundancy, param: copies}
}

// ReedSolomon appends eccBytes bytes of Reed-Solomon parity to the wrapped data.
func ReedSolomon(eccBytes uint32) Policy {
	return Policy{kind: KindReedSolomon, param: eccBytes}
}

// FromRecord rebuilds a policy from its header encoding.
func FromRecord(kind, param uint32) (Policy, error) {
	switch Kind(kind) {
	case KindNil:
		return Nil, nil
	case KindRedundancy, KindReedSolomon:
		return Policy{kind: Kind(kind), param: param}, nil
	default:
		return Nil, fmt.Errorf("%w: %d", ErrUnknownKind, kind)
	}
}

// Kind returns the variant.
func (p Policy) Kind() Kind { return p.kind }

// Param returns the copy count or parity size; zero for Nil.
func (p Policy) Param() uint32 { return p.param }

// IsNil reports whether p terminates a stack.
func (p Policy) IsNil() bool { return p.kind == KindNil }

func (p Policy) String() string {
	switch p.kind {
	case KindNil:
		return "nil"
	case KindRedundancy:
		return fmt.Sprintf("redundancy:%d", p.param)
	case KindReedSolomon:
		return fmt.Sprintf("rs:%d", p.param)
	default:
		return p.kind.String()
	}
}

// Parse reads the textual form produced by String. Accepted forms:
//
//	nil | none
//	redundancy:N | red:N
//	rs:E | reed-solomon:E | reedsolomon:E
func Parse(s string) (Policy, error) {
	name, arg, hasArg := strings.Cut(strings.ToLower(strings.TrimSpace(s)), ":")
	switch name {
	case "nil", "none":
		if hasArg {
			return Nil, fmt.Errorf("%w: %q takes no argument", ErrBadSpec, s)
		}
		return Nil, nil
	case "redundancy", "red", "rs", "reed-solomon", "reedsolomon":
	default:
		return Nil, fmt.Errorf("%w: unknown policy %q", ErrBadSpec, name)
	}
	if !hasArg {
		return Nil, fmt.Errorf("%w: %q needs a count", ErrBadSpec, s)
	}
	n, err := strconv.ParseUint(arg, 10, 32)
	if err != nil {
		return Nil, fmt.Errorf("%w: %q: %v", ErrBadSpec, s, err)
	}
	if name == "redundancy" || name == "red" {
		return Redundancy(uint32(n)), nil
	}
	return ReedSolomon(uint32(n)), nil
}

// Split returns the data region (always the prefix of b) and the overhead
// region. A buffer that does not fit the layer is a contract violation.
func (p Policy) Split(b []byte) (data, overhead []byte) {
	n := len(b)
	switch p.kind {
	case KindRedundancy:
		if p.param == 0 {
			fatal.Fatalf("Redundancy: zero copies")
		}
		if n%int(p.param) != 0 {
			fatal.Fatalf("Redundancy: buffer of %d bytes is not a multiple of %d copies", n, p.param)
		}
		dataLen := n / int(p.param)
		return b[:dataLen:dataLen], b[dataLen:]
	case KindReedSolomon:
		if n <= int(p.param) {
			fatal.Fatalf("Reed-Solomon: buffer of %d bytes leaves no room for data with %d parity bytes", n, p.param)
		}
		dataLen := n - int(p.param)
		return b[:dataLen:dataLen], b[dataLen:]
	default:
		if n == 0 {
			return b, b
		}
		return b[: n-1 : n-1], b[n-1:]
	}
}

// SizeOverhead returns the stored size of a payloadSize-byte region wrapped
// by p.
func (p Policy) SizeOverhead(payloadSize int) (int, error) {
	switch p.kind {
	case KindRedundancy:
		total, ok := buf.MulSize(payloadSize, int(p.param))
		if !ok {
			return 0, fmt.Errorf("%w: %d x %d copies", ErrSizeOverflow, payloadSize, p.param)
		}
		return total, nil
	case KindReedSolomon:
		total, ok := buf.AddSize(payloadSize, int(p.param))
		if !ok {
			return 0, fmt.Errorf("%w: %d + %d parity", ErrSizeOverflow, payloadSize, p.param)
		}
		if total > rscodec.MaxCodeword {
			return 0, fmt.Errorf("%w: %d + %d parity > %d", ErrCodewordTooLong, payloadSize, p.param, rscodec.MaxCodeword)
		}
		return total, nil
	default:
		return payloadSize, nil
	}
}

// IsCorrupted reports whether b disagrees with this layer's own redundancy.
// Inner layers are not inspected.
func (p Policy) IsCorrupted(b []byte) bool {
	switch p.kind {
	case KindRedundancy:
		data, _ := p.Split(b)
		dataLen := len(data)
		for i := range dataLen {
			for c := 1; c < int(p.param); c++ {
				if b[c*dataLen+i] != data[i] {
					return true
				}
			}
		}
		return false
	case KindReedSolomon:
		p.Split(b)
		bad, err := rscodec.IsCorrupted(b, int(p.param))
		if err != nil {
			fatal.Fatalf("Reed-Solomon: %v", err)
		}
		return bad
	default:
		return false
	}
}

// Correct repairs b in place and returns the number of errors fixed: bit
// disagreements for Redundancy, corrupted bytes for ReedSolomon.
func (p Policy) Correct(b []byte) (uint32, error) {
	switch p.kind {
	case KindRedundancy:
		data, _ := p.Split(b)
		var errs uint32
		for i := range data {
			errs += CorrectBits(b, int(p.param), i)
		}
		return errs, nil
	case KindReedSolomon:
		p.Split(b)
		n, err := rscodec.Correct(b, int(p.param))
		if err != nil {
			if errors.Is(err, rscodec.ErrUncorrectable) {
				return 0, fmt.Errorf("%w: %v", ErrUncorrectable, err)
			}
			fatal.Fatalf("Reed-Solomon: %v", err)
		}
		return uint32(n), nil
	default:
		return 0, nil
	}
}

// Apply derives the overhead region of b from its data region, which is
// assumed to hold correct bytes.
func (p Policy) Apply(b []byte) {
	switch p.kind {
	case KindRedundancy:
		data, overhead := p.Split(b)
		for off := 0; off < len(overhead); off += len(data) {
			copy(overhead[off:off+len(data)], data)
		}
	case KindReedSolomon:
		data, parity := p.Split(b)
		if err := rscodec.Encode(data, parity); err != nil {
			fatal.Fatalf("Reed-Solomon: %v", err)
		}
	}
}
