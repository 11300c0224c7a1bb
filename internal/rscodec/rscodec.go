// Package rscodec adapts a systematic Reed-Solomon code over GF(2^8) to the
// "data followed by parity" codeword layout used by the ReedSolomon policy.
//
// Each byte of the codeword is one share of the underlying code, so a
// codeword of n bytes carrying e parity bytes can locate and repair up to
// e/2 corrupted bytes anywhere in data or parity.
package rscodec

import (
	"errors"
	"fmt"

	"github.com/vivint/infectious"
)

// MaxCodeword is the largest codeword (data + parity) a single code can cover.
const MaxCodeword = 256

var (
	// ErrCodewordTooLong indicates data + parity exceeds MaxCodeword.
	ErrCodewordTooLong = errors.New("rscodec: codeword too long")

	// ErrNoData indicates a codeword with no data bytes.
	ErrNoData = errors.New("rscodec: codeword has no data")

	// ErrUncorrectable indicates more corrupted bytes than the parity can repair.
	ErrUncorrectable = errors.New("rscodec: too many errors to correct")
)

// Validate checks that a codeword of dataLen + eccLen bytes can be encoded.
func Validate(dataLen, eccLen int) error {
	if dataLen <= 0 {
		return ErrNoData
	}
	if eccLen < 0 || dataLen+eccLen > MaxCodeword {
		return fmt.Errorf("%w: %d data + %d parity > %d", ErrCodewordTooLong, dataLen, eccLen, MaxCodeword)
	}
	return nil
}

func newFEC(dataLen, eccLen int) (*infectious.FEC, error) {
	if err := Validate(dataLen, eccLen); err != nil {
		return nil, err
	}
	return infectious.NewFEC(dataLen, dataLen+eccLen)
}

// Encode derives the parity bytes for data into parity.
func Encode(data, parity []byte) error {
	if len(parity) == 0 {
		return nil
	}
	fec, err := newFEC(len(data), len(parity))
	if err != nil {
		return err
	}
	k := len(data)
	return fec.Encode(data, func(s infectious.Share) {
		if s.Number >= k {
			parity[s.Number-k] = s.Data[0]
		}
	})
}

// IsCorrupted reports whether the parity stored in codeword disagrees with
// its data. eccLen is the number of trailing parity bytes.
func IsCorrupted(codeword []byte, eccLen int) (bool, error) {
	if eccLen == 0 {
		return false, nil
	}
	dataLen := len(codeword) - eccLen
	want := make([]byte, eccLen)
	if err := Encode(codeword[:dataLen], want); err != nil {
		return false, err
	}
	for i, b := range want {
		if codeword[dataLen+i] != b {
			return true, nil
		}
	}
	return false, nil
}

// Correct repairs codeword in place and returns how many bytes changed. On
// error codeword is left as it was.
func Correct(codeword []byte, eccLen int) (int, error) {
	if eccLen == 0 {
		return 0, nil
	}
	dataLen := len(codeword) - eccLen
	fec, err := newFEC(dataLen, eccLen)
	if err != nil {
		return 0, err
	}

	shares := make([]infectious.Share, len(codeword))
	for i, b := range codeword {
		shares[i] = infectious.Share{Number: i, Data: []byte{b}}
	}
	if err := fec.Correct(shares); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUncorrectable, err)
	}

	// Correct may reorder shares; rebuild by share number.
	fixed := make([]byte, len(codeword))
	for _, s := range shares {
		fixed[s.Number] = s.Data[0]
	}

	// Berlekamp-Welch can settle on a different valid codeword when the
	// error budget is exceeded; treat a residual mismatch as uncorrectable.
	if bad, err := IsCorrupted(fixed, eccLen); err != nil {
		return 0, err
	} else if bad {
		return 0, ErrUncorrectable
	}

	corrected := 0
	for i, b := range fixed {
		if codeword[i] != b {
			codeword[i] = b
			corrected++
		}
	}
	return corrected, nil
}
