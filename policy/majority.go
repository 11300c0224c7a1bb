package policy

import "github.com/joshuapare/ermalloc/internal/fatal"

// CorrectBits repairs byte index of every copy in a redundancy buffer by
// independent per-bit majority vote and returns the number of disagreeing
// bits.
//
// A bit is set only when strictly more copies have it set than clear; an
// exact tie resolves to the cleared bit. Every copy is rewritten with the
// voted byte.
func CorrectBits(b []byte, copies, index int) uint32 {
	if copies <= 0 || len(b)%copies != 0 {
		fatal.Fatalf("Redundancy: buffer of %d bytes is not divisible by %d copies", len(b), copies)
	}
	stride := len(b) / copies
	if index < 0 || index >= stride {
		fatal.Fatalf("Redundancy: byte index %d outside copy of %d bytes", index, stride)
	}

	var (
		voted  byte
		errors uint32
	)
	for bit := range 8 {
		mask := byte(1) << bit
		var cleared, set uint32
		for c := range copies {
			if b[c*stride+index]&mask != 0 {
				set++
			} else {
				cleared++
			}
		}
		if cleared < set {
			voted |= mask
			errors += cleared
		} else {
			errors += set
		}
	}

	for c := range copies {
		b[c*stride+index] = voted
	}
	return errors
}
