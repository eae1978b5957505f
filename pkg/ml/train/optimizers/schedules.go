// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package optimizers

import (
	"math"
	"slices"
	"strings"

	"github.com/gomlx/bsplines"
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
)

// LearningRateFn returns the learning rate to use at the given iteration, starting at 0.
type LearningRateFn func(iteration int) float64

// Constant learning rate.
func Constant(learningRate float64) LearningRateFn {
	return func(int) float64 { return learningRate }
}

// LinearDecay decreases the learning rate linearly from initial (at iteration 0) towards 0 at
// numIterations: initial * (1 - iteration/numIterations).
//
// Iterations past numIterations get a 0 learning rate.
func LinearDecay(initial float64, numIterations int) LearningRateFn {
	if numIterations <= 0 {
		exceptions.Panicf("LinearDecay(%g, %d): numIterations must be > 0", initial, numIterations)
	}
	return func(iteration int) float64 {
		return initial * max(1-float64(iteration)/float64(numIterations), 0)
	}
}

// ExponentialDecay multiplies the learning rate by rate on every iteration: initial * rate^iteration.
func ExponentialDecay(initial, rate float64) LearningRateFn {
	return func(iteration int) float64 {
		return initial * math.Pow(rate, float64(iteration))
	}
}

// Cosine implements a cosine annealing schedule: within each period the learning rate goes from
// initial down to minimum following half a cosine cycle, and then it restarts.
func Cosine(initial, minimum float64, period int) LearningRateFn {
	if period <= 0 {
		exceptions.Panicf("Cosine(%g, %g, %d): period must be > 0", initial, minimum, period)
	}
	return func(iteration int) float64 {
		cycle := float64(iteration%period) / float64(period) // [0, 1)
		cosine := (math.Cos(cycle*math.Pi) + 1) / 2          // from 1 to 0
		return minimum + cosine*(initial-minimum)
	}
}

// BSpline interpolates the learning rate over the training progress with a cubic B-spline
// defined by controlPoints. The progress is iteration/(numIterations-1), so the first control
// point governs the start of training and the last one its end. Past the end the last value is
// kept.
func BSpline(controlPoints []float64, numIterations int) LearningRateFn {
	if len(controlPoints) < 4 {
		exceptions.Panicf("BSpline(): at least 4 control points are required for a cubic B-spline, got %d",
			len(controlPoints))
	}
	b := bsplines.NewRegular(3, len(controlPoints)).
		WithControlPoints(slices.Clone(controlPoints)).
		WithExtrapolation(bsplines.ExtrapolateConstant)
	return func(iteration int) float64 {
		if numIterations <= 1 {
			return b.Evaluate(0)
		}
		progress := min(float64(iteration)/float64(numIterations-1), 1)
		return b.Evaluate(progress)
	}
}

// KnownSchedules maps schedule names to constructors taking the initial learning rate and the
// total number of iterations (0 if unknown).
var KnownSchedules = map[string]func(learningRate float64, numIterations int) LearningRateFn{
	"constant": func(lr float64, _ int) LearningRateFn { return Constant(lr) },
	"linear": func(lr float64, n int) LearningRateFn {
		if n <= 0 {
			return Constant(lr)
		}
		return LinearDecay(lr, n)
	},
	"exponential": func(lr float64, n int) LearningRateFn {
		if n <= 0 {
			return ExponentialDecay(lr, 0.9999)
		}
		// Decays to 1% of the initial value by the last iteration.
		return ExponentialDecay(lr, math.Pow(0.01, 1/float64(n)))
	},
	"cosine": func(lr float64, n int) LearningRateFn {
		if n <= 0 {
			n = 1000
		}
		return Cosine(lr, lr/100, n)
	},
	"bspline": func(lr float64, n int) LearningRateFn {
		// Warm up, plateau, then decay.
		return BSpline([]float64{lr / 10, lr, lr, lr / 2, lr / 100}, n)
	},
}

// FromName returns the schedule registered in KnownSchedules under name.
func FromName(name string, learningRate float64, numIterations int) (LearningRateFn, error) {
	newSchedule, found := KnownSchedules[strings.ToLower(name)]
	if !found {
		names := maps.Keys(KnownSchedules)
		slices.Sort(names)
		return nil, errors.Errorf("unknown learning rate schedule %q, valid values are %s",
			name, strings.Join(names, ", "))
	}
	return newSchedule(learningRate, numIterations), nil
}
