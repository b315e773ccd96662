package game

import "math/rand"

// NewRNG creates a per-room seeded random source (§5 Determinism, §9
// Design Notes: randomness is a per-room seeded stream, never the global
// source, so map generation, enemy direction, and item drops are
// reproducible given the same seed and input sequence).
func NewRNG(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}
