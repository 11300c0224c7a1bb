// Package faults injects bit flips into protected blocks and measures how a
// policy stack copes with them.
//
// A Campaign allocates one block per trial, fills it with pseudo-random
// payload, derives protection, flips bits and runs correction. The payload's
// BLAKE3 digest taken before injection decides whether the repair really
// restored the original data or settled on something else.
//
//	res, err := faults.Run(ctx, memory.NewHeap(0), faults.Campaign{
//	    Size:   64,
//	    Stack:  policy.MustStack(policy.Redundancy(3)),
//	    Flips:  4,
//	    Trials: 1000,
//	    Seed:   1,
//	})
package faults
