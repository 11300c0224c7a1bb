package layout

import (
	"errors"
	"fmt"

	"github.com/joshuapare/ermalloc/internal/buf"
)

// ErrTruncated indicates the buffer lacked the bytes required for a header.
var ErrTruncated = errors.New("layout: truncated header")

// PolicyRecord is the raw encoding of one policy slot.
type PolicyRecord struct {
	Kind  uint32
	Param uint32
}

// Header is the decoded form of a block header.
type Header struct {
	Policies   [PolicySlots]PolicyRecord
	BufferSize uint64
	Length     uint64
	Writer     bool
}

// Encode writes h into the first HeaderSize bytes of b, zeroing the reserved
// tail.
func Encode(b []byte, h Header) error {
	if len(b) < HeaderSize {
		return fmt.Errorf("%w: %d < %d", ErrTruncated, len(b), HeaderSize)
	}
	for i, rec := range h.Policies {
		off := PoliciesOffset + i*PolicyRecordSize
		buf.PutU32LE(b[off:], rec.Kind)
		buf.PutU32LE(b[off+4:], rec.Param)
	}
	buf.PutU64LE(b[BufferSizeOffset:], h.BufferSize)
	buf.PutU64LE(b[LengthOffset:], h.Length)
	SetWriter(b, h.Writer)
	clear(b[headerFields:HeaderSize])
	return nil
}

// Decode reads a header from the first HeaderSize bytes of b.
func Decode(b []byte) (Header, error) {
	var h Header
	if len(b) < HeaderSize {
		return h, fmt.Errorf("%w: %d < %d", ErrTruncated, len(b), HeaderSize)
	}
	for i := range h.Policies {
		off := PoliciesOffset + i*PolicyRecordSize
		h.Policies[i] = PolicyRecord{
			Kind:  buf.U32LE(b[off:]),
			Param: buf.U32LE(b[off+4:]),
		}
	}
	h.BufferSize = buf.U64LE(b[BufferSizeOffset:])
	h.Length = buf.U64LE(b[LengthOffset:])
	h.Writer = Writer(b)
	return h, nil
}

// BufferSize reads only the bufferSize field. Returns 0 when b is too short.
func BufferSize(b []byte) uint64 {
	if len(b) < HeaderSize {
		return 0
	}
	return buf.U64LE(b[BufferSizeOffset:])
}

// Writer reports the aliasing-guard flag.
func Writer(b []byte) bool {
	return len(b) > WriterOffset && b[WriterOffset] != 0
}

// SetWriter sets or clears the aliasing-guard flag.
func SetWriter(b []byte, v bool) {
	if len(b) <= WriterOffset {
		return
	}
	if v {
		b[WriterOffset] = 1
	} else {
		b[WriterOffset] = 0
	}
}
