// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package random provides the seeded random number generator used to initialize parameters and
// to sample mini-batches.
//
// Training runs are reproducible: the same seed yields the same initial weights and the same
// sequence of mini-batches.
package random

import (
	"math/rand/v2"

	"github.com/gomlx/exceptions"
)

// Random is a seeded pseudo-random number generator. It is not safe for concurrent use.
type Random struct {
	seed uint64
	rng  *rand.Rand
}

// New returns a Random initialized from seed.
func New(seed uint64) *Random {
	return &Random{
		seed: seed,
		rng:  rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// NewFromEntropy returns a Random with a seed taken from the runtime's entropy source.
func NewFromEntropy() *Random {
	return New(rand.Uint64())
}

// Seed used to create the Random.
func (r *Random) Seed() uint64 { return r.seed }

// Uniform returns a uniform random value in [0, 1).
func (r *Random) Uniform() float64 {
	return r.rng.Float64()
}

// UniformRange returns a uniform random value in [minValue, maxValue).
func (r *Random) UniformRange(minValue, maxValue float64) float64 {
	if maxValue < minValue {
		exceptions.Panicf("random.UniformRange(%g, %g): maxValue must be >= minValue", minValue, maxValue)
	}
	return minValue + r.rng.Float64()*(maxValue-minValue)
}

// Normal returns a random value from a normal distribution with mean 0 and standard deviation 1.
func (r *Random) Normal() float64 {
	return r.rng.NormFloat64()
}

// IntN returns a random integer uniformly from 0 to n-1. It panics if n <= 0.
func (r *Random) IntN(n int) int {
	if n <= 0 {
		exceptions.Panicf("random.IntN(%d): n must be > 0", n)
	}
	return r.rng.IntN(n)
}

// Split returns a new Random that is independent of this one, seeded from it.
func (r *Random) Split() *Random {
	return New(r.rng.Uint64())
}
