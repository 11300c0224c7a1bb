package main

/*
#define ERMALLOC_NO_PROTOTYPES
#include "ermalloc.h"
*/
import "C"

import (
	"unsafe"

	"github.com/joshuapare/ermalloc/pkg/erm"
)

func policyList(p *C.struct_er_policy_list) *erm.PolicyList {
	return (*erm.PolicyList)(unsafe.Pointer(p))
}

//export er_malloc
func er_malloc(size C.size_t, policies *C.struct_er_policy_list) unsafe.Pointer {
	return erm.Alloc(uintptr(size), policyList(policies))
}

//export er_free
func er_free(ptr unsafe.Pointer) {
	erm.Free(ptr)
}

//export er_calloc
func er_calloc(nmemb, size C.size_t, policies *C.struct_er_policy_list) unsafe.Pointer {
	return erm.Calloc(uintptr(nmemb), uintptr(size), policyList(policies))
}

//export er_realloc
func er_realloc(ptr unsafe.Pointer, size C.size_t, policies *C.struct_er_policy_list) unsafe.Pointer {
	return erm.Realloc(ptr, uintptr(size), policyList(policies))
}

//export er_reallocarray
func er_reallocarray(ptr unsafe.Pointer, nmemb, size C.size_t, policies *C.struct_er_policy_list) unsafe.Pointer {
	return erm.ReallocArray(ptr, uintptr(nmemb), uintptr(size), policyList(policies))
}

//export er_setup_policies
func er_setup_policies(ptr unsafe.Pointer) {
	erm.SetupPolicies(ptr)
}

//export er_correct_buffer
func er_correct_buffer(ptr unsafe.Pointer) C.int {
	return C.int(erm.CorrectBuffer(ptr))
}

//export er_read_buf
func er_read_buf(base, dest unsafe.Pointer, offset, n C.size_t) C.int {
	return C.int(erm.ReadBuf(base, cBytes(dest, n), int(offset)))
}

//export er_write_buf
func er_write_buf(base, src unsafe.Pointer, offset, n C.size_t) C.int {
	return C.int(erm.WriteBuf(base, cBytes(src, n), int(offset)))
}

func cBytes(p unsafe.Pointer, n C.size_t) []byte {
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(p), int(n))
}
