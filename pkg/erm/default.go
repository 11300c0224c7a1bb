package erm

import (
	"sync"
	"unsafe"
)

var (
	defaultMu        sync.Mutex
	defaultAllocator *Allocator
)

// Default returns the package-level allocator, creating it with default
// options on first use.
func Default() *Allocator {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultAllocator == nil {
		defaultAllocator = New(Options{})
	}
	return defaultAllocator
}

// SetDefault replaces the package-level allocator. Blocks allocated by the
// previous allocator must not be passed to the new one unless both share a
// provider.
func SetDefault(a *Allocator) {
	if a == nil {
		panic("erm: SetDefault(nil)")
	}
	defaultMu.Lock()
	defaultAllocator = a
	defaultMu.Unlock()
}

// Alloc calls Default().Alloc.
func Alloc(size uintptr, list *PolicyList) unsafe.Pointer { return Default().Alloc(size, list) }

// Free calls Default().Free.
func Free(ptr unsafe.Pointer) { Default().Free(ptr) }

// Calloc calls Default().Calloc.
func Calloc(count, size uintptr, list *PolicyList) unsafe.Pointer {
	return Default().Calloc(count, size, list)
}

// Realloc calls Default().Realloc.
func Realloc(ptr unsafe.Pointer, size uintptr, list *PolicyList) unsafe.Pointer {
	return Default().Realloc(ptr, size, list)
}

// ReallocArray calls Default().ReallocArray.
func ReallocArray(ptr unsafe.Pointer, count, size uintptr, list *PolicyList) unsafe.Pointer {
	return Default().ReallocArray(ptr, count, size, list)
}

// SetupPolicies calls Default().SetupPolicies.
func SetupPolicies(ptr unsafe.Pointer) { Default().SetupPolicies(ptr) }

// CorrectBuffer calls Default().CorrectBuffer.
func CorrectBuffer(ptr unsafe.Pointer) int32 { return Default().CorrectBuffer(ptr) }

// ReadBuf calls Default().ReadBuf.
func ReadBuf(base unsafe.Pointer, dest []byte, offset int) int32 {
	return Default().ReadBuf(base, dest, offset)
}

// WriteBuf calls Default().WriteBuf.
func WriteBuf(base unsafe.Pointer, src []byte, offset int) int32 {
	return Default().WriteBuf(base, src, offset)
}
