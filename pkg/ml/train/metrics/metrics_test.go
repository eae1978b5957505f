// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"testing"

	"github.com/gomlx/scalarnet/pkg/core/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArgMax(t *testing.T) {
	assert.Equal(t, -1, ArgMax(nil))
	assert.Equal(t, 2, ArgMax([]float64{0.1, 0.2, 0.9, 0.3}))
	assert.Equal(t, 1, ArgMax([]float64{0.1, 0.9, 0.9}), "ties go to the first index")
}

func TestArgMaxMatchesOneHot(t *testing.T) {
	g := graph.New("accuracy")
	outputs := graph.Scalars(g, []float64{-0.5, 0.8, 0.1})
	assert.True(t, ArgMaxMatchesOneHot(outputs, []float64{0, 1, 0}))
	assert.False(t, ArgMaxMatchesOneHot(outputs, []float64{1, 0, 0}))
	assert.False(t, ArgMaxMatchesOneHot(outputs, []float64{0, 0, 0}), "no label is 1")

	tied := graph.Scalars(g, []float64{0.7, 0.7})
	assert.True(t, ArgMaxMatchesOneHot(tied, []float64{1, 0}))
	assert.False(t, ArgMaxMatchesOneHot(tied, []float64{0, 1}))
}

func TestThresholdMatches(t *testing.T) {
	g := graph.New("threshold")
	accuracy := ThresholdMatches(0.5)
	assert.True(t, accuracy(graph.Scalars(g, []float64{0.9, 0.1}), []float64{1, 0}))
	assert.False(t, accuracy(graph.Scalars(g, []float64{0.4}), []float64{1}))
	require.Panics(t, func() { accuracy(graph.Scalars(g, []float64{0.4}), nil) })
}

func TestMetrics(t *testing.T) {
	loss := NewBatchLoss()
	assert.Equal(t, LossMetricType, loss.MetricType())
	assert.Equal(t, 3.0, loss.Update(3))
	assert.Equal(t, 1.0, loss.Update(1))
	assert.Equal(t, "1", loss.PrettyPrint(1))

	acc := NewBatchAccuracy()
	assert.Equal(t, AccuracyMetricType, acc.MetricType())
	assert.Equal(t, "75.00%", acc.PrettyPrint(0.75))

	avg := NewMovingAverage("avg", "~", LossMetricType, 0.5, nil)
	assert.Equal(t, 4.0, avg.Update(4))
	assert.Equal(t, 3.0, avg.Update(2))
	assert.Equal(t, 4.5, avg.Update(6))
	avg.Reset()
	assert.Equal(t, 10.0, avg.Update(10))

	// Before 1/weight batches it is the plain mean.
	slow := NewMovingAverageAccuracy()
	slow.Update(1)
	assert.InDelta(t, 0.5, slow.Update(0), 1e-12)
	assert.InDelta(t, 1.0/3, slow.Update(0), 1e-12)

	require.Panics(t, func() { NewMovingAverage("bad", "b", LossMetricType, 0, nil) })
}
