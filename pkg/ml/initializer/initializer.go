// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package initializer defines how the initial value of a trainable parameter is chosen.
package initializer

import (
	"math"
	"strings"

	"github.com/gomlx/scalarnet/pkg/ml/random"
	"github.com/pkg/errors"
)

// Initializer returns the initial value of a parameter. numInputs is the number of inputs of the
// neuron the parameter belongs to (the "fan-in"); initializers may use it for scaling.
type Initializer func(numInputs int) float64

var (
	// Zero initializes parameters with zero.
	Zero Initializer = func(int) float64 { return 0 }

	// One initializes parameters with one.
	One Initializer = func(int) float64 { return 1 }
)

// Constant returns an initializer that always returns value.
func Constant(value float64) Initializer {
	return func(int) float64 { return value }
}

// Uniform returns an initializer that generates random uniform values from [minValue, maxValue).
func Uniform(rng *random.Random, minValue, maxValue float64) Initializer {
	return func(int) float64 {
		return rng.UniformRange(minValue, maxValue)
	}
}

// Normal returns an initializer that generates values from a normal distribution with mean 0 and
// the given standard deviation.
func Normal(rng *random.Random, stddev float64) Initializer {
	return func(int) float64 {
		return rng.Normal() * stddev
	}
}

// XavierUniform draws from a uniform distribution in [-limit, limit), with
// limit = sqrt(3 / numInputs), which keeps the variance of tanh activations stable.
func XavierUniform(rng *random.Random) Initializer {
	return func(numInputs int) float64 {
		limit := math.Sqrt(3.0 / float64(max(numInputs, 1)))
		return rng.UniformRange(-limit, limit)
	}
}

// Values returns an initializer that yields the given values in order, and panics once they are
// exhausted. Useful for tests and for fixed hand-crafted networks.
func Values(values ...float64) Initializer {
	next := 0
	return func(int) float64 {
		if next >= len(values) {
			panic(errors.Errorf("initializer.Values: only %d values given, but more parameters were requested", len(values)))
		}
		value := values[next]
		next++
		return value
	}
}

// FromName returns the initializer for one of the names "zero", "uniform" (in [-1, 1)), "normal"
// (stddev 1) and "xavier".
func FromName(name string, rng *random.Random) (Initializer, error) {
	switch strings.ToLower(name) {
	case "zero", "zeros":
		return Zero, nil
	case "uniform":
		return Uniform(rng, -1, 1), nil
	case "normal":
		return Normal(rng, 1), nil
	case "xavier", "glorot":
		return XavierUniform(rng), nil
	default:
		return nil, errors.Errorf("unknown initializer %q, valid values are %s", name, strings.Join(Names, ", "))
	}
}

// Names of the initializers accepted by FromName.
var Names = []string{"zero", "uniform", "normal", "xavier"}
