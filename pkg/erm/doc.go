/*
Package erm is the allocator surface: malloc-style entry points that attach
error-correcting policies to every allocation.

Each method mirrors one C entry point exported by the bindings module and
speaks raw pointers. Memory comes from a memory.Provider (mmap by default).

# Usage

	a := erm.New(erm.Options{})
	ptr := a.Alloc(64, erm.NewPolicyList(policy.Redundancy(3)))
	a.WriteBuf(ptr, payload, 0)
	a.SetupPolicies(ptr) // protection metadata is stale until this runs

	dst := make([]byte, 64)
	if n := a.ReadBuf(ptr, dst, 0); n < 0 {
	    // uncorrectable
	}
	a.Free(ptr)

# Failure model

Resource exhaustion is reported with a nil pointer. Everything else (a
malformed policy list, an impossible layout, a read past the buffer,
contending exclusive borrows) is a broken caller contract and terminates the
process through internal/fatal.

WriteBuf does not regenerate protection. Callers run SetupPolicies after
their writes; until then CorrectBuffer will "repair" the new bytes back to
their old values.
*/
package erm
