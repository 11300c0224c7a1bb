package erm

import (
	"testing"
	"unsafe"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/ermalloc/internal/layout"
	"github.com/joshuapare/ermalloc/internal/testutil"
	"github.com/joshuapare/ermalloc/policy"
)

func newTestAllocator(t *testing.T, limit int) *Allocator {
	t.Helper()
	return New(Options{Provider: testutil.NewHeap(t, limit), Name: t.Name()})
}

// raw exposes the protected buffer behind ptr, bypassing the guard, so tests
// can simulate corruption.
func raw(ptr unsafe.Pointer, n int) []byte {
	return unsafe.Slice((*byte)(ptr), n)
}

func TestAlloc_ZeroSize(t *testing.T) {
	a := newTestAllocator(t, 0)
	assert.Nil(t, a.Alloc(0, nil))
	assert.Nil(t, a.Calloc(0, 8, nil))
	assert.Nil(t, a.Calloc(8, 0, nil))
	assert.Zero(t, a.Stats().LiveBlocks)
}

func TestAllocFree(t *testing.T) {
	a := newTestAllocator(t, 0)
	ptr := a.Alloc(10, NewPolicyList(policy.Redundancy(3), policy.ReedSolomon(4)))
	require.NotNil(t, ptr)
	assert.Equal(t, 10, a.Len(ptr))
	assert.Equal(t, Stats{LiveBlocks: 1, LiveBytes: layout.HeaderSize + 42}, a.Stats())
	assert.Equal(t, 1.0, promtestutil.ToFloat64(a.metrics.live))

	a.Free(ptr)
	assert.Equal(t, Stats{}, a.Stats())
	assert.Equal(t, 0.0, promtestutil.ToFloat64(a.metrics.live))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(a.metrics.operations[opFree]))
}

func TestFree_Nil(t *testing.T) {
	a := newTestAllocator(t, 0)
	a.Free(nil)
}

func TestAlloc_OutOfMemory(t *testing.T) {
	a := newTestAllocator(t, 128)
	assert.Nil(t, a.Alloc(256, nil))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(a.metrics.failures))
}

func TestAlloc_InvalidLayoutIsFatal(t *testing.T) {
	a := newTestAllocator(t, 0)
	msg := testutil.ExpectFatal(t, func() {
		a.Alloc(1024, NewPolicyList(policy.ReedSolomon(4)))
	})
	assert.Contains(t, msg, "invalid layout")
}

func TestCalloc(t *testing.T) {
	a := newTestAllocator(t, 0)
	ptr := a.Calloc(4, 4, NewPolicyList(policy.ReedSolomon(4), policy.Redundancy(2)))
	require.NotNil(t, ptr)
	defer a.Free(ptr)

	assert.Equal(t, 16, a.Len(ptr))
	assert.False(t, a.IsCorrupted(ptr))
	assert.Equal(t, int32(0), a.CorrectBuffer(ptr))

	dst := make([]byte, 16)
	assert.Equal(t, int32(0), a.ReadBuf(ptr, dst, 0))
	assert.Equal(t, make([]byte, 16), dst)
}

func TestCalloc_Overflow(t *testing.T) {
	a := newTestAllocator(t, 0)
	assert.Nil(t, a.Calloc(^uintptr(0)/2, 3, nil))
}

func TestWriteSetupRead(t *testing.T) {
	a := newTestAllocator(t, 0)
	ptr := a.Alloc(8, NewPolicyList(policy.Redundancy(3)))
	require.NotNil(t, ptr)
	defer a.Free(ptr)

	assert.Equal(t, int32(0), a.WriteBuf(ptr, []byte("payload!"), 0))
	a.SetupPolicies(ptr)
	assert.False(t, a.IsCorrupted(ptr))

	// flip one bit in the second copy and two in the third
	full := raw(ptr, 24)
	full[8+2] ^= 0x01
	full[16+5] ^= 0x81

	dst := make([]byte, 4)
	assert.Equal(t, int32(3), a.ReadBuf(ptr, dst, 4))
	assert.Equal(t, "oad!", string(dst))
	assert.False(t, a.IsCorrupted(ptr))
	assert.Equal(t, uint64(3), a.Stats().Corrected)
	assert.Equal(t, 3.0, promtestutil.ToFloat64(a.metrics.corrected))
}

func TestWriteBuf_DoesNotReapply(t *testing.T) {
	a := newTestAllocator(t, 0)
	ptr := a.Calloc(1, 4, NewPolicyList(policy.Redundancy(3)))
	require.NotNil(t, ptr)
	defer a.Free(ptr)

	a.WriteBuf(ptr, []byte{0xff}, 0)
	assert.True(t, a.IsCorrupted(ptr))

	// the stale copies outvote the write
	assert.Equal(t, int32(8), a.CorrectBuffer(ptr))
	assert.Equal(t, []byte{0, 0, 0, 0}, raw(ptr, 4))
}

func TestReadBuf_FullBufferRange(t *testing.T) {
	a := newTestAllocator(t, 0)
	ptr := a.Alloc(4, NewPolicyList(policy.Redundancy(2)))
	require.NotNil(t, ptr)
	defer a.Free(ptr)
	a.WriteBuf(ptr, []byte("abcd"), 0)
	a.SetupPolicies(ptr)

	// offsets address the whole protected buffer, overhead included
	dst := make([]byte, 4)
	assert.Equal(t, int32(0), a.ReadBuf(ptr, dst, 4))
	assert.Equal(t, "abcd", string(dst))

	msg := testutil.ExpectFatal(t, func() {
		a.ReadBuf(ptr, make([]byte, 2), 7)
	})
	assert.Contains(t, msg, "out of bounds")
}

func TestWriteBuf_OutOfRangeIsFatal(t *testing.T) {
	a := newTestAllocator(t, 0)
	ptr := a.Alloc(4, nil)
	require.NotNil(t, ptr)
	defer a.Free(ptr)

	testutil.ExpectFatal(t, func() {
		a.WriteBuf(ptr, []byte("too long"), 0)
	})
}

func TestCorrectBuffer_Uncorrectable(t *testing.T) {
	a := newTestAllocator(t, 0)
	ptr := a.Alloc(5, NewPolicyList(policy.ReedSolomon(8)))
	require.NotNil(t, ptr)
	defer a.Free(ptr)

	a.WriteBuf(ptr, []byte{10, 20, 30, 40, 50}, 0)
	a.SetupPolicies(ptr)
	full := raw(ptr, 13)
	for _, i := range []int{0, 1, 2, 3, 6, 9} {
		full[i] ^= 0xA5
	}
	damaged := append([]byte(nil), full...)

	dst := []byte{1, 2, 3}
	assert.Equal(t, int32(-1), a.ReadBuf(ptr, dst, 0))
	assert.Equal(t, []byte{1, 2, 3}, dst, "nothing copied on failure")
	assert.Equal(t, int32(-1), a.CorrectBuffer(ptr))
	assert.Equal(t, damaged, full, "uncorrectable data left as found")
	assert.Equal(t, uint64(2), a.Stats().Uncorrectable)
	assert.Equal(t, 2.0, promtestutil.ToFloat64(a.metrics.uncorrectable))
}

// Realloc to zero bytes is a free.
func TestScenario_ReallocZeroFrees(t *testing.T) {
	heap := testutil.NewHeap(t, 0)
	a := New(Options{Provider: heap, Name: t.Name()})
	ptr := a.Alloc(16, NewPolicyList(policy.Redundancy(2)))
	require.NotNil(t, ptr)

	assert.Nil(t, a.Realloc(ptr, 0, NewPolicyList(policy.ReedSolomon(2))))
	assert.Zero(t, heap.Live())
	assert.Equal(t, Stats{}, a.Stats())
}

// Four redundancy nodes cannot fit a three slot stack.
func TestScenario_TooManyPoliciesIsFatal(t *testing.T) {
	a := newTestAllocator(t, 0)
	list := NewPolicyList(policy.Redundancy(2), policy.Redundancy(2), policy.Redundancy(2), policy.Redundancy(2))
	msg := testutil.ExpectFatal(t, func() {
		a.Alloc(8, list)
	})
	assert.Contains(t, msg, "MaxPolicies")
	assert.Zero(t, a.Stats().LiveBlocks)
}

func TestRealloc(t *testing.T) {
	a := newTestAllocator(t, 0)
	ptr := a.Alloc(4, nil)
	require.NotNil(t, ptr)
	a.WriteBuf(ptr, []byte("abcd"), 0)

	grown := a.Realloc(ptr, 8, NewPolicyList(policy.Redundancy(3)))
	require.NotNil(t, grown)
	defer a.Free(grown)

	assert.Equal(t, 8, a.Len(grown))
	assert.Equal(t, "abcd", string(raw(grown, 4)))
	assert.False(t, a.IsCorrupted(grown))
	assert.Equal(t, int64(layout.HeaderSize+24), a.Stats().LiveBytes)
}

func TestRealloc_NilActsAsAlloc(t *testing.T) {
	a := newTestAllocator(t, 0)
	ptr := a.Realloc(nil, 8, nil)
	require.NotNil(t, ptr)
	assert.Equal(t, 8, a.Len(ptr))
	a.Free(ptr)
}

func TestRealloc_OutOfMemoryKeepsBlock(t *testing.T) {
	a := newTestAllocator(t, 256)
	ptr := a.Alloc(8, nil)
	require.NotNil(t, ptr)
	a.WriteBuf(ptr, []byte("survives"), 0)

	assert.Nil(t, a.Realloc(ptr, 512, nil))
	assert.Equal(t, "survives", string(raw(ptr, 8)))

	// the guard was released, so the block is still usable
	a.SetupPolicies(ptr)
	a.Free(ptr)
}

func TestReallocArray_Unsupported(t *testing.T) {
	a := newTestAllocator(t, 0)
	ptr := a.Alloc(8, nil)
	require.NotNil(t, ptr)
	defer a.Free(ptr)

	assert.Nil(t, a.ReallocArray(ptr, 2, 8, nil))
	assert.Equal(t, 8, a.Len(ptr))
}

func TestContendedBorrowIsFatal(t *testing.T) {
	a := newTestAllocator(t, 0)
	ptr := a.Alloc(8, nil)
	require.NotNil(t, ptr)
	layout.SetWriter(raw(unsafe.Add(ptr, -layout.HeaderSize), layout.HeaderSize), true)

	msg := testutil.ExpectFatal(t, func() {
		a.SetupPolicies(ptr)
	})
	assert.Contains(t, msg, "exclusively borrowed")

	layout.SetWriter(raw(unsafe.Add(ptr, -layout.HeaderSize), layout.HeaderSize), false)
	a.Free(ptr)
}

func TestDefault(t *testing.T) {
	prev := Default()
	defer SetDefault(prev)

	a := newTestAllocator(t, 0)
	SetDefault(a)

	ptr := Calloc(2, 4, NewPolicyList(policy.Redundancy(2)))
	require.NotNil(t, ptr)
	assert.Equal(t, int32(0), WriteBuf(ptr, []byte{7}, 0))
	SetupPolicies(ptr)
	assert.Equal(t, int32(0), CorrectBuffer(ptr))
	dst := make([]byte, 1)
	assert.Equal(t, int32(0), ReadBuf(ptr, dst, 8))
	assert.Equal(t, []byte{7}, dst)
	assert.Nil(t, ReallocArray(ptr, 1, 1, nil))

	ptr = Realloc(ptr, 16, nil)
	require.NotNil(t, ptr)
	Free(ptr)
	assert.Nil(t, Alloc(0, nil))
	assert.Equal(t, int64(0), a.Stats().LiveBlocks)
}
