package policy

import "errors"

var (
	// ErrTooManyPolicies indicates more than MaxPolicies layers were supplied.
	ErrTooManyPolicies = errors.New("policy: more than MaxPolicies policies")

	// ErrUnknownKind indicates a policy kind outside the closed set.
	ErrUnknownKind = errors.New("policy: unknown policy kind")

	// ErrSizeOverflow indicates the protected size does not fit in an int.
	ErrSizeOverflow = errors.New("policy: protected size overflows")

	// ErrCodewordTooLong indicates a ReedSolomon layer wraps more bytes than
	// one codeword can cover.
	ErrCodewordTooLong = errors.New("policy: reed-solomon codeword too long")

	// ErrUncorrectable indicates corruption beyond what a layer can repair.
	ErrUncorrectable = errors.New("policy: uncorrectable corruption")

	// ErrBadSpec indicates a policy string that Parse cannot read.
	ErrBadSpec = errors.New("policy: malformed policy spec")
)
