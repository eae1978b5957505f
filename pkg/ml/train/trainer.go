// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package train holds tools to help run a training loop: Trainer runs one gradient descent
// iteration, Loop runs many of them calling hooks along the way, and GradientDescent and
// StochasticGradientDescent are ready-made training runs.
package train

import (
	"fmt"

	"github.com/gomlx/scalarnet/pkg/core/graph"
	"github.com/gomlx/scalarnet/pkg/ml/datasets"
	"github.com/gomlx/scalarnet/pkg/ml/layers/fnn"
	"github.com/gomlx/scalarnet/pkg/ml/train/metrics"
	"github.com/gomlx/scalarnet/pkg/ml/train/optimizers"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// LossFn computes the loss of one example, given the model outputs and the expected labels.
// See package losses for implementations.
type LossFn func(outputs []graph.Node, labels []float64) graph.Node

// AccuracyFn reports whether the model outputs for one example are considered correct.
// See package metrics for implementations.
type AccuracyFn func(outputs []graph.Node, labels []float64) bool

// IterationCallback is called once per iteration, before the parameters are updated, with the
// iteration index (starting at 0), the model, and the average loss and accuracy over the batch.
type IterationCallback func(iteration int, model *fnn.Perceptron, avgLoss, avgAccuracy float64)

// Trainer runs training iterations of a model: each one builds the graph of the average loss over
// a batch of examples, back-propagates it, and updates the model parameters.
//
// The graph arena is reused (reset) across iterations.
type Trainer struct {
	model      *fnn.Perceptron
	params     []*graph.Variable
	graph      *graph.Graph
	lossFn     LossFn
	accuracyFn AccuracyFn
	optimizer  optimizers.Interface
	callback   IterationCallback

	trainMetrics     []metrics.Interface
	lastLearningRate float64
}

// NewTrainer creates a Trainer for model.
//
// The default training metrics are batch loss, batch accuracy, and their moving averages. The
// batch loss always comes first.
func NewTrainer(model *fnn.Perceptron, lossFn LossFn, accuracyFn AccuracyFn, optimizer optimizers.Interface) *Trainer {
	return &Trainer{
		model:      model,
		params:     model.Parameters(),
		graph:      graph.New("train"),
		lossFn:     lossFn,
		accuracyFn: accuracyFn,
		optimizer:  optimizer,
		trainMetrics: []metrics.Interface{
			metrics.NewBatchLoss(),
			metrics.NewBatchAccuracy(),
			metrics.NewMovingAverageLoss(),
			metrics.NewMovingAverageAccuracy(),
		},
	}
}

// WithCallback sets a callback to be called at every TrainStep. It returns the Trainer itself.
func (t *Trainer) WithCallback(callback IterationCallback) *Trainer {
	t.callback = callback
	return t
}

// Model being trained.
func (t *Trainer) Model() *fnn.Perceptron { return t.model }

// Graph used for the iterations. It is reset at the start of each one, so its nodes are only
// valid until the next call to TrainStep or Evaluate.
func (t *Trainer) Graph() *graph.Graph { return t.graph }

// TrainMetrics returns the metrics reported by TrainStep, in the same order as its returned values.
func (t *Trainer) TrainMetrics() []metrics.Interface { return t.trainMetrics }

// ResetTrainMetrics resets the internal state of the training metrics (moving averages).
func (t *Trainer) ResetTrainMetrics() {
	for _, metric := range t.trainMetrics {
		metric.Reset()
	}
}

// LearningRate used in the last TrainStep.
func (t *Trainer) LearningRate() float64 { return t.lastLearningRate }

// buildAverageLoss resets the graph and builds the average loss over the batch. It also returns
// the fraction of examples the accuracy function considers correct.
//
// An empty batch is an error. Examples that don't match the model (number of inputs or labels)
// panic, like any other misuse of the graph.
func (t *Trainer) buildAverageLoss(batch []datasets.Example) (avgLoss graph.Node, avgAccuracy float64, err error) {
	if len(batch) == 0 {
		return graph.Node{}, 0, errors.New("empty batch of examples")
	}
	g := t.graph
	g.Reset()
	totalLoss := graph.Scalar(g, 0)
	var numAccurate int
	for _, example := range batch {
		outputs := t.model.Forward(graph.Scalars(g, example.Inputs))
		totalLoss = graph.Add(totalLoss, t.lossFn(outputs, example.Labels))
		if t.accuracyFn(outputs, example.Labels) {
			numAccurate++
		}
	}
	avgLoss = graph.Div(totalLoss, graph.Scalar(g, float64(len(batch))))
	avgAccuracy = float64(numAccurate) / float64(len(batch))
	return avgLoss, avgAccuracy, nil
}

// TrainStep runs one training iteration over batch:
//
//  1. Builds the average loss and accuracy over the batch, in a freshly reset graph.
//  2. Calls the IterationCallback, if one was set.
//  3. Back-propagates the average loss.
//  4. Updates every model parameter with the optimizer.
//
// It returns the values of TrainMetrics. An empty batch is an error, and examples with the wrong
// number of inputs or labels panic before any parameter is changed.
func (t *Trainer) TrainStep(iteration int, batch []datasets.Example) (metricValues []float64, err error) {
	avgLoss, avgAccuracy, err := t.buildAverageLoss(batch)
	if err != nil {
		return nil, errors.WithMessagef(err, "TrainStep(iteration=%d)", iteration)
	}
	lossValue := avgLoss.Value()
	if t.callback != nil {
		t.callback(iteration, t.model, lossValue, avgAccuracy)
	}
	order := graph.Backward(avgLoss)
	t.lastLearningRate = t.optimizer.Update(iteration, t.params)
	if klog.V(1).Enabled() {
		klog.Infof("TrainStep(iteration=%d): batch=%d, loss=%g, accuracy=%g, learning rate=%g, %d nodes in closure",
			iteration, len(batch), lossValue, avgAccuracy, t.lastLearningRate, len(order))
	}

	metricValues = make([]float64, len(t.trainMetrics))
	for ii, metric := range t.trainMetrics {
		batchValue := lossValue
		if metric.MetricType() == metrics.AccuracyMetricType {
			batchValue = avgAccuracy
		}
		metricValues[ii] = metric.Update(batchValue)
	}
	return metricValues, nil
}

// Evaluate returns the average loss and accuracy of the model over examples, without changing
// the model.
func (t *Trainer) Evaluate(examples []datasets.Example) (avgLoss, avgAccuracy float64, err error) {
	lossNode, avgAccuracy, err := t.buildAverageLoss(examples)
	if err != nil {
		return 0, 0, errors.WithMessage(err, "Evaluate()")
	}
	return lossNode.Value(), avgAccuracy, nil
}

// String implements fmt.Stringer.
func (t *Trainer) String() string {
	return fmt.Sprintf("Trainer(%s, %d parameters)", t.model, len(t.params))
}
