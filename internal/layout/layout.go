// Package layout describes the in-memory block header that precedes every
// protected payload.
//
// Header layout (little-endian):
//
//	0x00  policies     3 x {kind u32, param u32}
//	0x18  bufferSize   u64   protected bytes after the header
//	0x20  length       u64   user-requested payload bytes
//	0x28  writer       u8    aliasing-guard flag (0 or 1)
//	0x29  reserved     7 bytes, zero
//
// The user-visible pointer is the header address plus HeaderSize.
package layout

const (
	// Alignment is the alignment requested from the memory provider for
	// every block extent.
	Alignment = 16

	// AlignmentMask is Alignment-1, for round-up arithmetic.
	AlignmentMask = Alignment - 1

	// PolicySlots is the number of policy records stored in a header.
	PolicySlots = 3

	// PolicyRecordSize is the encoded size of one {kind, param} record.
	PolicyRecordSize = 8

	PoliciesOffset   = 0x00
	BufferSizeOffset = PoliciesOffset + PolicySlots*PolicyRecordSize
	LengthOffset     = BufferSizeOffset + 8
	WriterOffset     = LengthOffset + 8

	// headerFields is the number of bytes actually used by header fields.
	headerFields = WriterOffset + 1

	// HeaderSize is the header footprint, rounded so the payload keeps
	// the block alignment.
	HeaderSize = (headerFields + AlignmentMask) &^ AlignmentMask
)

// Align16 returns n aligned up to the next 16-byte boundary.
//
// Example:
//
//	Align16(1)  = 16
//	Align16(16) = 16
//	Align16(41) = 48
func Align16(n int) int {
	return (n + AlignmentMask) &^ AlignmentMask
}
