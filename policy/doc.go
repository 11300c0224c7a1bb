// Package policy implements the data-integrity policies attached to protected
// allocations and the fixed-capacity stack that nests them.
//
// # Policies
//
// A Policy is one protection layer over a byte buffer:
//
//   - Nil: no protection, terminates a stack
//   - Redundancy(n): n full-size copies, repaired by per-bit majority vote
//   - ReedSolomon(e): data followed by e parity bytes
//
// Every policy splits its buffer into a data region (always the prefix) and
// an overhead region (the other copies or the parity).
//
// # Stacks
//
// A Stack holds MaxPolicies slots. Slot 0 is the outermost layer and covers
// the whole stored buffer; each slot's data region is the next slot's full
// buffer, like nested envelopes:
//
//	stack := policy.MustStack(policy.Redundancy(3), policy.ReedSolomon(4))
//	size, _ := stack.TotalSize(10)   // (10 + 4) * 3 = 42
//
//	buf := make([]byte, size)
//	copy(buf, payload)                // user data is always the prefix
//	stack.Apply(buf)                  // derive parity, then copies
//	n, err := stack.Correct(buf)      // repair inner layers first
//
// Walks stop at the first Nil slot. Apply and Correct visit every copy of a
// Redundancy layer; IsCorrupted only follows the first copy, so it is a cheap
// probe while Correct is the exhaustive repair path.
//
// # Contract violations
//
// Buffers whose length does not fit the active layer (not a multiple of the
// copy count, no room for parity) are caller bugs and terminate the process
// through internal/fatal.
package policy
