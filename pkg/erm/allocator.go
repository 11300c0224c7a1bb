package erm

import (
	"errors"
	"math"
	"sync/atomic"
	"unsafe"

	"github.com/joshuapare/ermalloc/block"
	"github.com/joshuapare/ermalloc/internal/buf"
	"github.com/joshuapare/ermalloc/internal/fatal"
	"github.com/joshuapare/ermalloc/internal/logger"
	"github.com/joshuapare/ermalloc/memory"
	"github.com/joshuapare/ermalloc/policy"
)

// Options configures an Allocator.
type Options struct {
	// Provider supplies raw memory. Default: memory.Default().
	Provider memory.Provider

	// Name labels this allocator's metrics. Default: "default".
	Name string
}

// Stats is a snapshot of allocator counters.
type Stats struct {
	LiveBlocks    int64
	LiveBytes     int64 // provider bytes, headers included
	Corrected     uint64
	Uncorrectable uint64
}

// Allocator hands out protected blocks. Like the C surface it backs, it
// assumes a single thread of control per block.
type Allocator struct {
	provider memory.Provider
	name     string
	metrics  *allocatorMetrics

	liveBlocks    atomic.Int64
	liveBytes     atomic.Int64
	corrected     atomic.Uint64
	uncorrectable atomic.Uint64
}

// New returns an allocator.
func New(opts Options) *Allocator {
	if opts.Provider == nil {
		opts.Provider = memory.Default()
	}
	if opts.Name == "" {
		opts.Name = "default"
	}
	return &Allocator{
		provider: opts.Provider,
		name:     opts.Name,
		metrics:  newAllocatorMetrics(opts.Name),
	}
}

// Alloc allocates size bytes protected by list. The payload and its
// protection metadata are uninitialized; write the payload and call
// SetupPolicies. Returns nil for size 0 or when memory is exhausted.
func (a *Allocator) Alloc(size uintptr, list *PolicyList) unsafe.Pointer {
	a.metrics.operations[opAlloc].Inc()
	if size == 0 {
		return nil
	}
	stack := a.decode(opAlloc, list)
	return a.allocate(opAlloc, size, stack, false)
}

// Calloc allocates count*size zeroed bytes with protection already derived.
// Returns nil when the product is zero or overflows, or memory is exhausted.
func (a *Allocator) Calloc(count, size uintptr, list *PolicyList) unsafe.Pointer {
	a.metrics.operations[opCalloc].Inc()
	if count == 0 || size == 0 || count > ^uintptr(0)/size {
		return nil
	}
	stack := a.decode(opCalloc, list)
	return a.allocate(opCalloc, count*size, stack, true)
}

func (a *Allocator) allocate(op string, size uintptr, stack policy.Stack, zeroed bool) unsafe.Pointer {
	if size > math.MaxInt {
		fatal.Fatalf("erm: %s: size %d exceeds address space", op, size)
	}
	ex, err := block.New(a.provider, int(size), stack, zeroed)
	if err != nil {
		if errors.Is(err, block.ErrInvalidLayout) {
			fatal.Fatalf("erm: %s: %v", op, err)
		}
		a.metrics.failures.Inc()
		logger.Warn("allocation failed", "op", op, "size", size, "policies", stack.String(), "err", err)
		return nil
	}
	b := a.take(op, ex)
	a.track(b, 1)
	logger.Debug("allocated", "op", op, "ptr", b.UserPointer(), "size", size, "buffer", b.BufferSize(), "policies", stack.String())
	return b.UserPointer()
}

// Free releases the block owning ptr. Free(nil) does nothing.
func (a *Allocator) Free(ptr unsafe.Pointer) {
	a.metrics.operations[opFree].Inc()
	if ptr == nil {
		return
	}
	extent := a.extent(opFree, ptr)
	ex := a.exclusive(opFree, ptr)
	if err := block.Destroy(a.provider, ex); err != nil {
		fatal.Fatalf("erm: %s %p: %v", opFree, ptr, err)
	}
	a.liveBlocks.Add(-1)
	a.liveBytes.Add(-int64(extent))
	a.metrics.live.Dec()
	logger.Debug("freed", "ptr", ptr)
}

// Realloc resizes the block owning ptr to size bytes under list, keeping the
// common payload prefix and regenerating protection. Size 0 frees ptr and
// returns nil; a nil ptr behaves as Alloc. When memory is exhausted nil is
// returned and ptr stays valid.
func (a *Allocator) Realloc(ptr unsafe.Pointer, size uintptr, list *PolicyList) unsafe.Pointer {
	a.metrics.operations[opRealloc].Inc()
	if size == 0 {
		a.Free(ptr)
		return nil
	}
	stack := a.decode(opRealloc, list)
	if ptr == nil {
		return a.allocate(opRealloc, size, stack, false)
	}
	if size > math.MaxInt {
		fatal.Fatalf("erm: %s: size %d exceeds address space", opRealloc, size)
	}

	oldExtent := a.extent(opRealloc, ptr)
	ex := a.exclusive(opRealloc, ptr)
	renewed, err := block.Renew(a.provider, ex, int(size), stack)
	if err != nil {
		ex.Invalidate()
		if errors.Is(err, block.ErrInvalidLayout) {
			fatal.Fatalf("erm: %s: %v", opRealloc, err)
		}
		a.metrics.failures.Inc()
		logger.Warn("reallocation failed", "ptr", ptr, "size", size, "err", err)
		return nil
	}
	b := a.take(opRealloc, renewed)
	a.liveBytes.Add(int64(b.Extent() - oldExtent))
	logger.Debug("reallocated", "from", ptr, "to", b.UserPointer(), "size", size, "policies", stack.String())
	return b.UserPointer()
}

// ReallocArray is not supported and always returns nil, leaving ptr
// untouched.
func (a *Allocator) ReallocArray(ptr unsafe.Pointer, count, size uintptr, list *PolicyList) unsafe.Pointer {
	a.metrics.operations[opReallocArray].Inc()
	return nil
}

// SetupPolicies derives the protection metadata of the block owning ptr from
// its current payload.
func (a *Allocator) SetupPolicies(ptr unsafe.Pointer) {
	a.metrics.operations[opSetup].Inc()
	b := a.take(opSetup, a.exclusive(opSetup, ptr))
	b.Apply()
}

// CorrectBuffer repairs the block owning ptr. It returns the number of
// corrected errors, or -1 if some corruption could not be repaired.
func (a *Allocator) CorrectBuffer(ptr unsafe.Pointer) int32 {
	a.metrics.operations[opCorrect].Inc()
	return a.correct(ptr)
}

func (a *Allocator) correct(ptr unsafe.Pointer) int32 {
	b := a.take(opCorrect, a.exclusive(opCorrect, ptr))
	n, err := b.Correct()
	if err != nil {
		if !errors.Is(err, policy.ErrUncorrectable) {
			fatal.Fatalf("erm: %s %p: %v", opCorrect, ptr, err)
		}
		a.uncorrectable.Add(1)
		a.metrics.uncorrectable.Inc()
		logger.Warn("uncorrectable block", "ptr", ptr, "policies", b.Policies().String(), "err", err)
		return -1
	}
	if n > 0 {
		a.corrected.Add(uint64(n))
		a.metrics.corrected.Add(float64(n))
		logger.Debug("corrected block", "ptr", ptr, "errors", n)
	}
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return int32(n)
}

// ReadBuf corrects the block owning base, then copies len(dest) bytes of its
// protected buffer starting at offset into dest. It returns the correction
// count, or the negative status without copying.
func (a *Allocator) ReadBuf(base unsafe.Pointer, dest []byte, offset int) int32 {
	a.metrics.operations[opRead].Inc()
	c := a.correct(base)
	if c < 0 {
		return c
	}
	b := a.take(opRead, a.exclusive(opRead, base))
	src, err := buf.Range(b.FullBuffer(), offset, len(dest))
	if err != nil {
		fatal.Fatalf("erm: %s %p: %v", opRead, base, err)
	}
	copy(dest, src)
	return c
}

// WriteBuf copies src into the protected buffer of the block owning base at
// offset. Protection is not regenerated; see SetupPolicies.
func (a *Allocator) WriteBuf(base unsafe.Pointer, src []byte, offset int) int32 {
	a.metrics.operations[opWrite].Inc()
	b := a.take(opWrite, a.exclusive(opWrite, base))
	dst, err := buf.Range(b.FullBuffer(), offset, len(src))
	if err != nil {
		fatal.Fatalf("erm: %s %p: %v", opWrite, base, err)
	}
	copy(dst, src)
	return 0
}

// IsCorrupted probes the block owning ptr without repairing it.
func (a *Allocator) IsCorrupted(ptr unsafe.Pointer) bool {
	return a.shared("IsCorrupted", ptr).IsCorrupted()
}

// Len returns the payload length of the block owning ptr.
func (a *Allocator) Len(ptr unsafe.Pointer) int {
	return a.shared("Len", ptr).Len()
}

// Stats returns a snapshot of this allocator's counters.
func (a *Allocator) Stats() Stats {
	return Stats{
		LiveBlocks:    a.liveBlocks.Load(),
		LiveBytes:     a.liveBytes.Load(),
		Corrected:     a.corrected.Load(),
		Uncorrectable: a.uncorrectable.Load(),
	}
}

func (a *Allocator) decode(op string, list *PolicyList) policy.Stack {
	stack, err := DecodePolicies(list)
	if err != nil {
		fatal.Fatalf("erm: %s: %v", op, err)
	}
	return stack
}

func (a *Allocator) exclusive(op string, ptr unsafe.Pointer) *block.Exclusive {
	ex, err := block.FromUserPointerMut(ptr)
	if err != nil {
		fatal.Fatalf("erm: %s %p: %v", op, ptr, err)
	}
	return ex
}

func (a *Allocator) take(op string, ex *block.Exclusive) *block.Block {
	b, err := ex.Take()
	if err != nil {
		fatal.Fatalf("erm: %s: %v", op, err)
	}
	return b
}

func (a *Allocator) track(b *block.Block, n int64) {
	a.liveBlocks.Add(n)
	a.liveBytes.Add(n * int64(b.Extent()))
	a.metrics.live.Add(float64(n))
}

func (a *Allocator) shared(op string, ptr unsafe.Pointer) *block.Block {
	sh, err := block.FromUserPointer(ptr)
	if err != nil {
		fatal.Fatalf("erm: %s: %v", op, err)
	}
	b, err := sh.Get()
	if err != nil {
		fatal.Fatalf("erm: %s %p: %v", op, ptr, err)
	}
	return b
}

func (a *Allocator) extent(op string, ptr unsafe.Pointer) int {
	return a.shared(op, ptr).Extent()
}
