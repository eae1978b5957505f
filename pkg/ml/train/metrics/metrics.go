// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package metrics holds the accuracy functions used by the training loop and the metrics that
// summarize each training iteration.
package metrics

import (
	"fmt"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/scalarnet/pkg/core/graph"
)

// Interface for a Metric.
type Interface interface {
	// Name of the metric.
	Name() string

	// ShortName is a shortened version of the name (preferably a few characters) to display in progress bars or
	// similar UIs.
	ShortName() string

	// MetricType is a key for metrics that share the same quantity or semantics. Eg.:
	// "Moving Average Accuracy" and "Batch Accuracy" would both have the same
	// "accuracy" metric type, and can be displayed on the same plot, sharing the Y-axis.
	MetricType() string

	// Update the metric with the value measured for the current batch, and returns the current value
	// of the metric.
	Update(batchValue float64) float64

	// PrettyPrint is used to pretty-print a metric value, usually in a short form.
	PrettyPrint(value float64) string

	// Reset metrics internal state when starting a new training run.
	Reset()
}

const (
	// LossMetricType is the type of loss metrics.
	// Used to aggregate metrics of the same type in the same plot.
	LossMetricType = "loss"

	// AccuracyMetricType is the type of accuracy metrics.
	// Used to aggregate metrics of the same type in the same plot.
	AccuracyMetricType = "accuracy"
)

// PrettyPrintFn is a function to convert a metric value to a string.
type PrettyPrintFn func(value float64) string

// baseMetric implements a stateless metric.Interface: its value is the batch value.
type baseMetric struct {
	name, shortName, metricType string
	pPrintFn                    PrettyPrintFn // if nil will display default.
}

func (m *baseMetric) Name() string       { return m.name }
func (m *baseMetric) ShortName() string  { return m.shortName }
func (m *baseMetric) MetricType() string { return m.metricType }
func (m *baseMetric) Reset()             {}

func (m *baseMetric) Update(batchValue float64) float64 { return batchValue }

func (m *baseMetric) PrettyPrint(value float64) string {
	if m.pPrintFn == nil {
		return fmt.Sprintf("%.3g", value)
	}
	return m.pPrintFn(value)
}

// PrettyPrintAccuracy prints an accuracy in [0, 1] as a percentage.
func PrettyPrintAccuracy(value float64) string {
	return fmt.Sprintf("%.2f%%", value*100)
}

// NewBatchLoss returns the loss of the current batch as a metric.
func NewBatchLoss() Interface {
	return &baseMetric{name: "Batch Loss", shortName: "loss", metricType: LossMetricType}
}

// NewBatchAccuracy returns the accuracy of the current batch as a metric.
func NewBatchAccuracy() Interface {
	return &baseMetric{name: "Batch Accuracy", shortName: "acc", metricType: AccuracyMetricType,
		pPrintFn: PrettyPrintAccuracy}
}

// movingAverage implements an exponential moving average of the batch values.
type movingAverage struct {
	baseMetric
	newExampleWeight float64
	value            float64
	count            int
}

// NewMovingAverage creates a metric that is the exponential moving average of the batch values:
// value = value*(1-newExampleWeight) + batchValue*newExampleWeight.
//
// While fewer than 1/newExampleWeight batches were seen, it is the plain mean, so the first values
// are not biased towards 0.
func NewMovingAverage(name, shortName, metricType string, newExampleWeight float64, pPrintFn PrettyPrintFn) Interface {
	if newExampleWeight <= 0 || newExampleWeight > 1 {
		exceptions.Panicf("metrics.NewMovingAverage(%q): newExampleWeight must be in (0, 1], got %g", name, newExampleWeight)
	}
	return &movingAverage{
		baseMetric:       baseMetric{name: name, shortName: shortName, metricType: metricType, pPrintFn: pPrintFn},
		newExampleWeight: newExampleWeight,
	}
}

// NewMovingAverageLoss is the moving average of the loss, with weight 0.01 for each new batch.
func NewMovingAverageLoss() Interface {
	return NewMovingAverage("Moving Average Loss", "~loss", LossMetricType, 0.01, nil)
}

// NewMovingAverageAccuracy is the moving average of the accuracy, with weight 0.01 for each new batch.
func NewMovingAverageAccuracy() Interface {
	return NewMovingAverage("Moving Average Accuracy", "~acc", AccuracyMetricType, 0.01, PrettyPrintAccuracy)
}

func (m *movingAverage) Update(batchValue float64) float64 {
	m.count++
	weight := max(m.newExampleWeight, 1/float64(m.count))
	m.value = m.value*(1-weight) + batchValue*weight
	return m.value
}

func (m *movingAverage) Reset() {
	m.value = 0
	m.count = 0
}

// ArgMax returns the index of the largest value. Ties are resolved to the first index.
// It returns -1 for an empty slice.
func ArgMax(values []float64) int {
	if len(values) == 0 {
		return -1
	}
	maxIdx := 0
	for ii, value := range values {
		if value > values[maxIdx] {
			maxIdx = ii
		}
	}
	return maxIdx
}

// ArgMaxMatchesOneHot is an accuracy function for classification with one-hot labels: it reports
// whether the index of the largest output (the first one, on ties) is the index of the first label
// equal to 1.
//
// If no label is 1 it returns false.
func ArgMaxMatchesOneHot(outputs []graph.Node, labels []float64) bool {
	expected := -1
	for ii, label := range labels {
		if label == 1 {
			expected = ii
			break
		}
	}
	if expected < 0 {
		return false
	}
	return ArgMax(graph.Values(outputs)) == expected
}

// ThresholdMatches returns an accuracy function that reports whether each output is on the same
// side of threshold as its label.
// For tanh outputs with labels 0 and 1 a threshold of 0.5 is a good choice.
func ThresholdMatches(threshold float64) func(outputs []graph.Node, labels []float64) bool {
	return func(outputs []graph.Node, labels []float64) bool {
		if len(outputs) != len(labels) {
			exceptions.Panicf("metrics.ThresholdMatches(): %d outputs but %d labels given", len(outputs), len(labels))
		}
		for ii, output := range outputs {
			if (output.Value() > threshold) != (labels[ii] > threshold) {
				return false
			}
		}
		return true
	}
}
