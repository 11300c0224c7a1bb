// Package block implements protected allocation blocks: a fixed header
// followed by a buffer laid out by a policy.Stack, carved from a single
// memory.Provider extent.
//
// # Layout
//
//	+----------------------+-------------------------------------+
//	| header (48 bytes)    | protected buffer (bufferSize bytes) |
//	+----------------------+-------------------------------------+
//	^ extent start         ^ user pointer
//
// The user pointer is the header address plus layout.HeaderSize, so a block
// can be recovered from any pointer previously returned by UserPointer.
//
// # Aliasing guard
//
// A single flag in the header tracks whether an exclusive view is
// outstanding. Callers reach a block through one of two tokens:
//
//   - Shared, obtained while no exclusive view exists. It is checked lazily:
//     Get fails once an exclusive view has been taken, and stays failed.
//   - Exclusive, obtained only while the flag is clear, and which sets it.
//     Take hands out the block once and clears the flag.
//
// The guard is not a lock. Contention is a caller bug and is reported as
// ErrExclusivelyBorrowed; package erm escalates it to a fatal error.
package block
