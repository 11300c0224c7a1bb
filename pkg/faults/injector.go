package faults

import (
	"github.com/lazybeaver/xorshift"
)

// Flip identifies one injected bit flip.
type Flip struct {
	Offset int   `json:"offset"`
	Bit    uint8 `json:"bit"`
}

// Injector flips pseudo-random bits. Equal seeds give equal flip sequences.
type Injector struct {
	rng xorshift.XorShift
}

// NewInjector returns an injector seeded with seed. Zero is remapped, as the
// generator's state must be non-zero.
func NewInjector(seed uint64) *Injector {
	if seed == 0 {
		seed = 1
	}
	return &Injector{rng: xorshift.NewXorShift64Star(seed)}
}

// Uint64 returns the next raw value.
func (in *Injector) Uint64() uint64 { return in.rng.Next() }

// Fill overwrites b with pseudo-random bytes.
func (in *Injector) Fill(b []byte) {
	for i := 0; i < len(b); i += 8 {
		v := in.rng.Next()
		for j := 0; j < 8 && i+j < len(b); j++ {
			b[i+j] = byte(v >> (8 * j))
		}
	}
}

// Flip inverts one random bit of b. b must not be empty.
func (in *Injector) Flip(b []byte) Flip {
	v := in.rng.Next()
	f := Flip{Offset: int((v >> 3) % uint64(len(b))), Bit: uint8(v & 7)}
	b[f.Offset] ^= 1 << f.Bit
	return f
}

// FlipN flips n distinct bits of b. n is capped at 8*len(b).
func (in *Injector) FlipN(b []byte, n int) []Flip {
	if n > 8*len(b) {
		n = 8 * len(b)
	}
	seen := make(map[Flip]struct{}, n)
	flips := make([]Flip, 0, n)
	for len(flips) < n {
		v := in.rng.Next()
		f := Flip{Offset: int((v >> 3) % uint64(len(b))), Bit: uint8(v & 7)}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		b[f.Offset] ^= 1 << f.Bit
		flips = append(flips, f)
	}
	return flips
}
