package policy

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// majority computes the expected voted byte independently of CorrectBits.
func majority(votes []byte) byte {
	var out byte
	for bit := range 8 {
		set := 0
		for _, v := range votes {
			if v&(1<<bit) != 0 {
				set++
			}
		}
		if set > len(votes)-set {
			out |= 1 << bit
		}
	}
	return out
}

// TestCorrectBits_ThreeCopies mirrors the canonical three-copy example.
func TestCorrectBits_ThreeCopies(t *testing.T) {
	b := []byte{0b1111, 0b1010, 0b0000}
	errs := CorrectBits(b, 3, 0)
	assert.Equal(t, uint32(4), errs)
	assert.Equal(t, []byte{0b1010, 0b1010, 0b1010}, b)
}

// TestCorrectBits_TieFavoursClearedBit pins the tie-break for even copy counts.
func TestCorrectBits_TieFavoursClearedBit(t *testing.T) {
	b := []byte{0xFF, 0x00}
	errs := CorrectBits(b, 2, 0)
	assert.Equal(t, uint32(8), errs, "each bit has one dissenting copy")
	assert.Equal(t, []byte{0x00, 0x00}, b)

	b = []byte{0xF0, 0xF0, 0x0F, 0x0F}
	errs = CorrectBits(b, 4, 0)
	assert.Equal(t, uint32(16), errs)
	assert.Equal(t, []byte{0, 0, 0, 0}, b)
}

// TestCorrectBits_OnlyTouchesIndex verifies other byte positions are untouched.
func TestCorrectBits_OnlyTouchesIndex(t *testing.T) {
	// Two copies of 3 bytes.
	b := []byte{1, 2, 3, 1, 9, 3}
	CorrectBits(b, 2, 0)
	assert.Equal(t, []byte{1, 2, 3, 1, 9, 3}, b)
}

// TestCorrectBits_MajorityProperty checks random buffers for every copy count
// from 2 to 7: the repaired bytes equal the independent bitwise majority and
// the layer reports clean afterwards.
func TestCorrectBits_MajorityProperty(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for copies := 2; copies <= 7; copies++ {
		for trial := range 50 {
			stride := 1 + rng.IntN(16)
			b := make([]byte, copies*stride)
			for i := range b {
				b[i] = byte(rng.Uint32())
			}
			orig := append([]byte(nil), b...)

			p := Redundancy(uint32(copies))
			_, err := p.Correct(b)
			require.NoError(t, err)
			require.False(t, p.IsCorrupted(b), "copies=%d trial=%d", copies, trial)

			for i := range stride {
				votes := make([]byte, copies)
				for c := range copies {
					votes[c] = orig[c*stride+i]
				}
				want := majority(votes)
				for c := range copies {
					require.Equal(t, want, b[c*stride+i], "copies=%d trial=%d index=%d copy=%d", copies, trial, i, c)
				}
			}
		}
	}
}
