package main

/*
#include <stdlib.h>
#include <string.h>
*/
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/joshuapare/ermalloc/memory"
)

// libcProvider carves blocks from the C heap so pointers handed to foreign
// code never refer to Go memory.
type libcProvider struct{}

func (libcProvider) Alloc(size, align int) ([]byte, error) {
	if size <= 0 || align <= 0 || align&(align-1) != 0 {
		return nil, fmt.Errorf("%w: size=%d align=%d", memory.ErrInvalidLayout, size, align)
	}
	// posix_memalign wants a multiple of sizeof(void*)
	if a := int(unsafe.Sizeof(uintptr(0))); align < a {
		align = a
	}
	var p unsafe.Pointer
	if rc := C.posix_memalign(&p, C.size_t(align), C.size_t(size)); rc != 0 || p == nil {
		return nil, fmt.Errorf("%w: posix_memalign(%d, %d) = %d", memory.ErrOutOfMemory, align, size, int(rc))
	}
	return unsafe.Slice((*byte)(p), size), nil
}

func (l libcProvider) AllocZeroed(size, align int) ([]byte, error) {
	mem, err := l.Alloc(size, align)
	if err != nil {
		return nil, err
	}
	C.memset(unsafe.Pointer(&mem[0]), 0, C.size_t(size))
	return mem, nil
}

// Resize does not use realloc, which only guarantees malloc alignment.
func (l libcProvider) Resize(mem []byte, newSize, align int) ([]byte, error) {
	out, err := l.Alloc(newSize, align)
	if err != nil {
		return nil, err
	}
	copy(out, mem)
	if err := l.Free(mem); err != nil {
		return nil, err
	}
	return out, nil
}

func (libcProvider) Free(mem []byte) error {
	if len(mem) == 0 {
		return memory.ErrNotAllocated
	}
	C.free(unsafe.Pointer(&mem[0]))
	return nil
}
