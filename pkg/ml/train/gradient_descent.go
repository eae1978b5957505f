// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package train

import (
	"github.com/gomlx/scalarnet/pkg/ml/datasets"
	"github.com/gomlx/scalarnet/pkg/ml/layers/fnn"
	"github.com/gomlx/scalarnet/pkg/ml/random"
	"github.com/gomlx/scalarnet/pkg/ml/train/optimizers"
	"github.com/pkg/errors"
)

// GradientDescent trains model for the given number of iterations, each one over all examples
// (full batch), updating every parameter with value -= grad * learningRate(iteration).
//
// callback may be nil. Non-finite losses are not trapped: they propagate to the parameters.
func GradientDescent(model *fnn.Perceptron, examples []datasets.Example, lossFn LossFn, accuracyFn AccuracyFn,
	iterations int, learningRate optimizers.LearningRateFn, callback IterationCallback) error {
	return run(model, datasets.FullBatch("full batch", examples), lossFn, accuracyFn, iterations, learningRate, callback)
}

// StochasticGradientDescent is like GradientDescent, but each iteration uses batchSize examples
// sampled uniformly with replacement from examples, drawn from rng.
func StochasticGradientDescent(model *fnn.Perceptron, examples []datasets.Example, batchSize int, rng *random.Random,
	lossFn LossFn, accuracyFn AccuracyFn,
	iterations int, learningRate optimizers.LearningRateFn, callback IterationCallback) error {
	if len(examples) == 0 {
		return errors.New("StochasticGradientDescent(): no examples given")
	}
	if batchSize <= 0 {
		return errors.Errorf("StochasticGradientDescent(): batchSize must be > 0, got %d", batchSize)
	}
	ds := datasets.NewRandomSamplerWithRNG("sampled", examples, batchSize, rng)
	return run(model, ds, lossFn, accuracyFn, iterations, learningRate, callback)
}

func run(model *fnn.Perceptron, ds datasets.Dataset, lossFn LossFn, accuracyFn AccuracyFn,
	iterations int, learningRate optimizers.LearningRateFn, callback IterationCallback) error {
	trainer := NewTrainer(model, lossFn, accuracyFn, optimizers.GradientDescent{LearningRate: learningRate}).
		WithCallback(callback)
	for iteration := range iterations {
		if _, err := trainer.TrainStep(iteration, ds.Batch(iteration)); err != nil {
			return errors.WithMessagef(err, "training on %q", ds.Name())
		}
	}
	return nil
}
