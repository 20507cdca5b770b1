// Package sequence draws reproducible transition styles for a tape.
//
// Preview and export must agree on every boundary's style, across process
// restarts and across platform renderers, so the generator is an explicit
// linear congruential generator rather than any platform random API:
//
//	state = (state * 1103515245 + 12345) & 0x7fffffff
//	index = state mod len(pool)
//
// The multiplication is carried out in 64 bits before masking. The pool
// order is part of the contract and must not be reordered.
package sequence

import (
	"hash/fnv"

	"github.com/tapecut/tapecut/internal/tape"
)

const (
	lcgMultiplier = 1103515245
	lcgIncrement  = 12345
	lcgMask       = 0x7fffffff

	// fallbackSeed replaces a zero seed, which would lock the generator
	// into an all-zero degenerate cycle.
	fallbackSeed = 0x5DEECE66
)

// pool is the fixed draw set. "none" is a legitimate outcome: a randomised
// tape leaves some boundaries as hard cuts.
var pool = [4]tape.TransitionStyle{
	tape.TransitionNone,
	tape.TransitionCrossfade,
	tape.TransitionSlideLTR,
	tape.TransitionSlideRTL,
}

// Seed derives the generator seed from a tape's stable identifier:
// FNV-1a 64 of the ID folded into the 31-bit LCG state space.
func Seed(tapeID string) uint32 {
	h := fnv.New64a()
	h.Write([]byte(tapeID))
	s := uint32(h.Sum64() & lcgMask)
	if s == 0 {
		return fallbackSeed
	}
	return s
}

// Generator is a deterministic transition-style stream. It is not safe for
// concurrent use; builds create their own.
type Generator struct {
	state uint32
}

// New creates a generator from a raw seed. Zero is remapped.
func New(seed uint32) *Generator {
	seed &= lcgMask
	if seed == 0 {
		seed = fallbackSeed
	}
	return &Generator{state: seed}
}

// ForTape creates a generator seeded from the tape identifier.
func ForTape(tapeID string) *Generator {
	return New(Seed(tapeID))
}

// Next advances the state and returns the drawn style.
func (g *Generator) Next() tape.TransitionStyle {
	g.state = uint32((uint64(g.state)*lcgMultiplier + lcgIncrement) & lcgMask)
	return pool[g.state%uint32(len(pool))]
}

// Draw returns the first n styles for a tape, one per clip boundary.
func Draw(tapeID string, n int) []tape.TransitionStyle {
	if n <= 0 {
		return nil
	}
	g := ForTape(tapeID)
	styles := make([]tape.TransitionStyle, n)
	for i := range styles {
		styles[i] = g.Next()
	}
	return styles
}
