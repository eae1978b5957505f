// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package train

import (
	"context"
	"flag"
	"math"
	"os"
	"testing"
	"time"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/scalarnet/pkg/ml/datasets"
	"github.com/gomlx/scalarnet/pkg/ml/initializer"
	"github.com/gomlx/scalarnet/pkg/ml/layers/fnn"
	"github.com/gomlx/scalarnet/pkg/ml/random"
	"github.com/gomlx/scalarnet/pkg/ml/train/losses"
	"github.com/gomlx/scalarnet/pkg/ml/train/metrics"
	"github.com/gomlx/scalarnet/pkg/ml/train/optimizers"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/klog/v2"
)

func init() {
	klog.InitFlags(nil)
}

func TestMain(m *testing.M) {
	flag.Parse()
	os.Exit(m.Run())
}

func xorExamples() []datasets.Example {
	return []datasets.Example{
		{Inputs: []float64{0, 0}, Labels: []float64{0}},
		{Inputs: []float64{0, 1}, Labels: []float64{1}},
		{Inputs: []float64{1, 0}, Labels: []float64{1}},
		{Inputs: []float64{1, 1}, Labels: []float64{0}},
	}
}

// xorModel is a 2-2-1 network with fixed weights.
func xorModel() *fnn.Perceptron {
	return fnn.New(2, []int{2, 1}, initializer.Values(
		0.5, -0.4, 0.1,
		-0.3, 0.8, -0.2,
		0.7, 0.6, -0.1))
}

func newXORTrainer(model *fnn.Perceptron, lr float64) *Trainer {
	return NewTrainer(model, losses.SumSquaredError, metrics.ThresholdMatches(0.5),
		optimizers.GradientDescent{LearningRate: optimizers.Constant(lr)})
}

func TestTrainStepDecreasesLoss(t *testing.T) {
	model := xorModel()
	trainer := newXORTrainer(model, 0.05)
	examples := xorExamples()

	lossBefore, _, err := trainer.Evaluate(examples)
	require.NoError(t, err)
	metricValues, err := trainer.TrainStep(0, examples)
	require.NoError(t, err)
	require.Len(t, metricValues, len(trainer.TrainMetrics()))
	assert.Equal(t, lossBefore, metricValues[0], "the reported loss is the loss before the update")
	assert.Equal(t, 0.05, trainer.LearningRate())

	lossAfter, _, err := trainer.Evaluate(examples)
	require.NoError(t, err)
	assert.Less(t, lossAfter, lossBefore)
}

func TestTrainStepAverages(t *testing.T) {
	// A single-neuron model with zero weights outputs tanh(0) = 0 for every input.
	model := fnn.New(2, []int{1}, initializer.Zero)
	trainer := newXORTrainer(model, 0.1)
	var calls int
	trainer.WithCallback(func(iteration int, m *fnn.Perceptron, avgLoss, avgAccuracy float64) {
		calls++
		assert.Equal(t, 7, iteration)
		assert.Same(t, model, m)
		// Squared errors are 0, 1, 1, 0.
		assert.InDelta(t, 0.5, avgLoss, 1e-12)
		// Outputs are all 0, so only the examples labeled 0 are correct.
		assert.InDelta(t, 0.5, avgAccuracy, 1e-12)
	})
	_, err := trainer.TrainStep(7, xorExamples())
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestTrainStepErrors(t *testing.T) {
	trainer := newXORTrainer(xorModel(), 0.1)
	_, err := trainer.TrainStep(0, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty batch")


	// Mismatched examples are a programming error: they panic, and leave the parameters untouched.
	model := trainer.Model()
	before := make([]float64, model.NumParameters())
	for ii, param := range model.Parameters() {
		before[ii] = param.Value()
	}
	err = exceptions.TryCatch[error](func() {
		_, _ = trainer.TrainStep(0, []datasets.Example{{Inputs: []float64{1, 2, 3}, Labels: []float64{1}}})
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inputs")
	require.Panics(t, func() {
		_, _, _ = trainer.Evaluate([]datasets.Example{{Inputs: []float64{1, 0}, Labels: []float64{1, 0}}})
	})
	for ii, param := range model.Parameters() {
		assert.Equal(t, before[ii], param.Value())
	}
}

func TestGradientDescent(t *testing.T) {
	model := xorModel()
	const iterations = 200
	var lossTrace []float64
	err := GradientDescent(model, xorExamples(), losses.SumSquaredError, metrics.ThresholdMatches(0.5),
		iterations, optimizers.LinearDecay(0.5, iterations),
		func(iteration int, _ *fnn.Perceptron, avgLoss, _ float64) {
			assert.Equal(t, len(lossTrace), iteration)
			lossTrace = append(lossTrace, avgLoss)
		})
	require.NoError(t, err)
	require.Len(t, lossTrace, iterations)
	assert.Less(t, lossTrace[iterations-1], lossTrace[0])

	// No iterations: nothing happens.
	before := model.Predict([]float64{1, 0})
	require.NoError(t, GradientDescent(model, xorExamples(), losses.SumSquaredError, metrics.ThresholdMatches(0.5),
		0, optimizers.Constant(1), nil))
	assert.Equal(t, before, model.Predict([]float64{1, 0}))

	// Empty dataset is an error.
	err = GradientDescent(model, nil, losses.SumSquaredError, metrics.ThresholdMatches(0.5),
		1, optimizers.Constant(1), nil)
	require.Error(t, err)
}

func TestStochasticGradientDescent(t *testing.T) {
	runOnce := func() []float64 {
		model := fnn.New(2, []int{3, 1}, initializer.Uniform(random.New(3), -1, 1))
		var trace []float64
		err := StochasticGradientDescent(model, xorExamples(), 2, random.New(11),
			losses.SumSquaredError, metrics.ThresholdMatches(0.5), 20, optimizers.Constant(0.1),
			func(_ int, _ *fnn.Perceptron, avgLoss, _ float64) { trace = append(trace, avgLoss) })
		require.NoError(t, err)
		return trace
	}
	trace := runOnce()
	assert.Len(t, trace, 20)
	assert.Equal(t, trace, runOnce(), "same seeds, same training")

	model := xorModel()
	err := StochasticGradientDescent(model, xorExamples(), 0, random.New(1),
		losses.SumSquaredError, metrics.ThresholdMatches(0.5), 1, optimizers.Constant(0.1), nil)
	require.Error(t, err)
}

func TestNonFiniteLoss(t *testing.T) {
	// The plain entry points do not trap NaN.
	model := fnn.New(2, []int{1}, initializer.Constant(math.NaN()))
	err := GradientDescent(model, xorExamples(), losses.SumSquaredError, metrics.ThresholdMatches(0.5),
		2, optimizers.Constant(0.1), nil)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(model.Parameters()[0].Value()))

	// The Loop interrupts training.
	loop := NewLoop(newXORTrainer(model, 0.1))
	_, err = loop.RunSteps(datasets.FullBatch("xor", xorExamples()), 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NaN")
}

func TestLoopHooks(t *testing.T) {
	loop := NewLoop(newXORTrainer(xorModel(), 0.05))
	require.NotEmpty(t, loop.RunID)
	ds := datasets.FullBatch("xor", xorExamples())

	var events []string
	loop.OnStart("start", 0, func(loop *Loop, ds datasets.Dataset) error {
		events = append(events, "start:"+ds.Name())
		return nil
	})
	loop.OnStep("second", 10, func(loop *Loop, metrics []float64) error {
		events = append(events, "second")
		return nil
	})
	loop.OnStep("first", -1, func(loop *Loop, metrics []float64) error {
		events = append(events, "first")
		require.Len(t, metrics, 4)
		return nil
	})
	loop.OnEnd("end", 0, func(loop *Loop, metrics []float64) error {
		events = append(events, "end")
		return nil
	})

	metricValues, err := loop.RunSteps(ds, 2)
	require.NoError(t, err)
	require.Len(t, metricValues, 4)
	assert.Equal(t, []string{"start:xor", "first", "second", "first", "second", "end"}, events)
	assert.Equal(t, 2, loop.LoopStep)
	assert.Len(t, loop.TrainStepDurations, 2)
	assert.Greater(t, loop.MedianTrainStepDuration(), time.Duration(0))

	// Runs pick up where they left off.
	_, err = loop.RunSteps(ds, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, loop.StartStep)
	assert.Equal(t, 5, loop.EndStep)
	assert.Equal(t, 5, loop.LoopStep)

	// Zero steps does nothing.
	metricValues, err = loop.RunSteps(ds, 0)
	require.NoError(t, err)
	assert.Nil(t, metricValues)
}

func TestLoopHookErrors(t *testing.T) {
	loop := NewLoop(newXORTrainer(xorModel(), 0.05))
	loop.OnStep("failing", 0, func(loop *Loop, metrics []float64) error {
		if loop.LoopStep == 1 {
			return errors.New("boom")
		}
		return nil
	})
	_, err := loop.RunSteps(datasets.FullBatch("xor", xorExamples()), 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `OnStep(hook "failing")`)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, 1, loop.LoopStep)
}

func TestRunUntil(t *testing.T) {
	loop := NewLoop(newXORTrainer(xorModel(), 0.05))
	ctx, cancel := context.WithCancel(context.Background())
	loop.OnStep("stopper", 0, func(loop *Loop, metrics []float64) error {
		assert.Equal(t, -1, loop.EndStep)
		if loop.LoopStep == 9 {
			cancel()
		}
		return nil
	})
	var ended bool
	loop.OnEnd("end", 0, func(loop *Loop, metrics []float64) error {
		ended = true
		return nil
	})
	metricValues, err := loop.RunUntil(ctx, datasets.FullBatch("xor", xorExamples()))
	require.NoError(t, err)
	require.NotNil(t, metricValues)
	assert.Equal(t, 10, loop.LoopStep, "the step in progress is completed")
	assert.True(t, ended)

	// An already cancelled context still runs one step.
	_, err = loop.RunUntil(ctx, datasets.FullBatch("xor", xorExamples()))
	require.NoError(t, err)
	assert.Equal(t, 11, loop.LoopStep)
}

func TestLoopCallbacks(t *testing.T) {
	loop := NewLoop(newXORTrainer(xorModel(), 0.05))
	var everyN, nTimes []int
	EveryNSteps(loop, 3, "every3", 0, func(loop *Loop, metrics []float64) error {
		everyN = append(everyN, loop.LoopStep)
		return nil
	})
	NTimesDuringLoop(loop, 4, "4times", 0, func(loop *Loop, metrics []float64) error {
		nTimes = append(nTimes, loop.LoopStep)
		return nil
	})
	_, err := loop.RunSteps(datasets.FullBatch("xor", xorExamples()), 20)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 5, 8, 11, 14, 17}, everyN)
	require.NotEmpty(t, nTimes)
	assert.LessOrEqual(t, len(nTimes), 5)
	assert.Equal(t, 19, nTimes[len(nTimes)-1], "always called on the last step")

	require.Panics(t, func() { EveryNSteps(loop, 0, "bad", 0, nil) })
}
