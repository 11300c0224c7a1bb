package policy

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/ermalloc/internal/testutil"
)

var testStacks = map[string]Stack{
	"nil":           {},
	"red3":          MustStack(Redundancy(3)),
	"rs4":           MustStack(ReedSolomon(4)),
	"red3/rs4":      MustStack(Redundancy(3), ReedSolomon(4)),
	"rs4/red2":      MustStack(ReedSolomon(4), Redundancy(2)),
	"red2/red3":     MustStack(Redundancy(2), Redundancy(3)),
	"red2/red3/rs2": MustStack(Redundancy(2), Redundancy(3), ReedSolomon(2)),
	"rs3/rs2":       MustStack(ReedSolomon(3), ReedSolomon(2)),
}

// newProtected allocates a buffer for stack holding payload and applies it.
func newProtected(t *testing.T, s Stack, payload []byte) []byte {
	t.Helper()
	size, err := s.TotalSize(len(payload))
	require.NoError(t, err)
	b := make([]byte, size)
	copy(b, payload)
	s.Apply(b)
	return b
}

func TestNewStack(t *testing.T) {
	s, err := NewStack(Redundancy(2))
	require.NoError(t, err)
	assert.Equal(t, 1, s.Depth())
	assert.True(t, s[1].IsNil())
	assert.True(t, s[2].IsNil())

	_, err = NewStack(Redundancy(2), Redundancy(2), Redundancy(2), Redundancy(2))
	require.ErrorIs(t, err, ErrTooManyPolicies)

	testutil.ExpectFatal(t, func() {
		MustStack(Redundancy(2), Redundancy(2), Redundancy(2), Redundancy(2))
	})
}

func TestStack_String(t *testing.T) {
	assert.Equal(t, "nil", Stack{}.String())
	assert.Equal(t, "redundancy:3,rs:4", MustStack(Redundancy(3), ReedSolomon(4)).String())
}

func TestTotalSize(t *testing.T) {
	tests := []struct {
		stack Stack
		in    int
		want  int
	}{
		{Stack{}, 10, 10},
		{MustStack(Redundancy(3)), 1, 3},
		{MustStack(ReedSolomon(3)), 1, 4},
		{MustStack(Redundancy(3), ReedSolomon(4)), 10, 42},
		{MustStack(ReedSolomon(4), Redundancy(3)), 10, 34},
		{MustStack(Redundancy(2), Redundancy(3), ReedSolomon(2)), 5, 42},
	}
	for _, tt := range tests {
		got, err := tt.stack.TotalSize(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s over %d bytes", tt.stack, tt.in)
	}
}

// TestTotalSize_IgnoresSlotsAfterNil keeps the size in line with the walks,
// which stop at the first Nil.
func TestTotalSize_IgnoresSlotsAfterNil(t *testing.T) {
	s := Stack{Nil, Redundancy(3), Nil}
	got, err := s.TotalSize(8)
	require.NoError(t, err)
	assert.Equal(t, 8, got)
}

func TestTotalSize_Monotonic(t *testing.T) {
	const payload = 16
	prev := 0
	for n := uint32(1); n <= 16; n++ {
		got, err := MustStack(Redundancy(n), ReedSolomon(2)).TotalSize(payload)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, got, prev, "copies=%d", n)
		prev = got
	}
	prev = 0
	for e := uint32(0); e <= 64; e++ {
		got, err := MustStack(Redundancy(2), ReedSolomon(e)).TotalSize(payload)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, got, prev, "ecc=%d", e)
		prev = got
	}
}

func TestTotalSize_Errors(t *testing.T) {
	_, err := MustStack(Redundancy(1 << 31)).TotalSize(1 << 40)
	require.ErrorIs(t, err, ErrSizeOverflow)

	_, err = MustStack(Redundancy(2), ReedSolomon(16)).TotalSize(300)
	require.ErrorIs(t, err, ErrCodewordTooLong)

	_, err = Stack{}.TotalSize(-1)
	require.ErrorIs(t, err, ErrSizeOverflow)
}

// TestApplyCorrect_RoundTrip: apply then correct on a clean buffer reports
// zero errors and leaves the payload untouched.
func TestApplyCorrect_RoundTrip(t *testing.T) {
	payload := []byte("round trip payload")
	for name, s := range testStacks {
		t.Run(name, func(t *testing.T) {
			b := newProtected(t, s, payload)
			assert.False(t, s.IsCorrupted(b))

			n, err := s.Correct(b)
			require.NoError(t, err)
			assert.Zero(t, n)
			assert.Equal(t, payload, b[:len(payload)])
		})
	}
}

func TestApply_Idempotent(t *testing.T) {
	payload := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x01}
	for name, s := range testStacks {
		t.Run(name, func(t *testing.T) {
			b := newProtected(t, s, payload)
			first := append([]byte(nil), b...)
			s.Apply(b)
			assert.Equal(t, first, b)
		})
	}
}

// TestApply_NestedLayout checks the envelope order: the inner parity is
// computed first and then replicated as part of each outer copy.
func TestApply_NestedLayout(t *testing.T) {
	s := MustStack(Redundancy(3), ReedSolomon(4))
	payload := []byte("abc")
	b := newProtected(t, s, payload)
	require.Len(t, b, 21)

	inner := b[:7]
	assert.False(t, ReedSolomon(4).IsCorrupted(inner))
	assert.Equal(t, inner, b[7:14])
	assert.Equal(t, inner, b[14:21])
}

func TestCorrect_NestedRedundancyOverReedSolomon(t *testing.T) {
	s := MustStack(Redundancy(3), ReedSolomon(4))
	payload := []byte("nested")
	b := newProtected(t, s, payload)

	// One byte in the second copy's data, one in the third copy's parity.
	b[10+1] ^= 0x40
	b[2*10+8] ^= 0x01
	assert.True(t, s.IsCorrupted(b), "outer layer sees the copies disagree")

	n, err := s.Correct(b)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), n, "each inner codeword repairs one byte")
	assert.Equal(t, payload, b[:len(payload)])
	assert.Equal(t, b[:10], b[10:20])
	assert.Equal(t, b[:10], b[20:30])
}

func TestCorrect_OutvotesUncorrectableCopy(t *testing.T) {
	s := MustStack(Redundancy(3), ReedSolomon(2))
	payload := []byte{1, 2, 3, 4}
	b := newProtected(t, s, payload)

	// Wreck the first copy beyond its one-byte budget.
	for i := range 6 {
		b[i] ^= 0x5A
	}
	assert.True(t, s.IsCorrupted(b))

	_, err := s.Correct(b)
	require.NoError(t, err)
	assert.Equal(t, payload, b[:len(payload)])
	assert.False(t, s.IsCorrupted(b))
}

func TestCorrect_ReedSolomonOverRedundancy(t *testing.T) {
	s := MustStack(ReedSolomon(4), Redundancy(2))
	payload := []byte{9, 8, 7}
	b := newProtected(t, s, payload)
	require.Len(t, b, 10)

	b[4] ^= 0x02
	assert.True(t, s.IsCorrupted(b))

	n, err := s.Correct(b)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), n, "two-copy tie clears the bit back to the original")
	assert.Equal(t, payload, b[:3])
	assert.False(t, s.IsCorrupted(b))
}

func TestCorrect_OuterReedSolomonRepairsInnerFailure(t *testing.T) {
	s := MustStack(ReedSolomon(4), ReedSolomon(2))
	payload := []byte{1, 2, 3, 4}
	b := newProtected(t, s, payload)
	require.Len(t, b, 10)

	// Two bad bytes exceed the inner codeword's budget but not the outer one.
	b[0] ^= 0xFF
	b[1] ^= 0xFF

	n, err := s.Correct(b)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), n)
	assert.Equal(t, payload, b[:len(payload)])
	assert.False(t, s.IsCorrupted(b))
}

func TestCorrect_RandomSingleFlipsAlwaysRepair(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	s := MustStack(Redundancy(3), ReedSolomon(4))
	for trial := range 100 {
		payload := make([]byte, 1+rng.IntN(32))
		for i := range payload {
			payload[i] = byte(rng.Uint32())
		}
		b := newProtected(t, s, payload)
		pos := rng.IntN(len(b))
		b[pos] ^= 1 << rng.IntN(8)

		_, err := s.Correct(b)
		require.NoError(t, err, "trial %d pos %d", trial, pos)
		require.Equal(t, payload, b[:len(payload)], "trial %d pos %d", trial, pos)
		require.False(t, s.IsCorrupted(b))
	}
}

func TestWalks_RejectMisfittingBuffers(t *testing.T) {
	s := MustStack(Redundancy(3))
	testutil.ExpectFatal(t, func() { s.Apply(make([]byte, 7)) })
	testutil.ExpectFatal(t, func() { _, _ = s.Correct(make([]byte, 7)) })
	testutil.ExpectFatal(t, func() { s.IsCorrupted(make([]byte, 7)) })
}
