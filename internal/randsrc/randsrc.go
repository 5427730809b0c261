// Package randsrc provides the explicit random source threaded through every
// stochastic step of a run (fitting, synthetic data, splits).
package randsrc

import "math/rand/v2"

// Source is a seeded pseudo-random generator. A Source is created once at the
// start of a run; it is not safe for concurrent use.
type Source struct {
	seed int64
	rng  *rand.Rand
}

// New returns a Source seeded with seed.
func New(seed int64) *Source {
	return &Source{
		seed: seed,
		rng:  rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15)),
	}
}

// Seed returns the seed the Source was created with.
func (s *Source) Seed() int64 { return s.seed }

// Derive returns an independent Source seeded with Seed()+offset.
func (s *Source) Derive(offset int64) *Source { return New(s.seed + offset) }

// Float64 returns a uniform value in [0, 1).
func (s *Source) Float64() float64 { return s.rng.Float64() }

// NormFloat64 returns a standard normal value.
func (s *Source) NormFloat64() float64 { return s.rng.NormFloat64() }

// Shuffle permutes n elements using swap.
func (s *Source) Shuffle(n int, swap func(i, j int)) { s.rng.Shuffle(n, swap) }

// Perm returns a random permutation of [0, n).
func (s *Source) Perm(n int) []int { return s.rng.Perm(n) }
