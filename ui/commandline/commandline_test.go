// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package commandline

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/gomlx/scalarnet/pkg/ml/datasets"
	"github.com/gomlx/scalarnet/pkg/ml/initializer"
	"github.com/gomlx/scalarnet/pkg/ml/layers/fnn"
	"github.com/gomlx/scalarnet/pkg/ml/train"
	"github.com/gomlx/scalarnet/pkg/ml/train/losses"
	"github.com/gomlx/scalarnet/pkg/ml/train/metrics"
	"github.com/gomlx/scalarnet/pkg/ml/train/optimizers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func xorTrainer() *train.Trainer {
	model := fnn.New(2, []int{2, 1}, initializer.Values(0.5, -0.4, 0.1, -0.3, 0.8, -0.2, 0.7, 0.6, -0.1))
	return train.NewTrainer(model, losses.SumSquaredError, metrics.ThresholdMatches(0.5),
		optimizers.GradientDescent{LearningRate: optimizers.Constant(0.1)})
}

var xorExamples = []datasets.Example{
	{Inputs: []float64{0, 0}, Labels: []float64{0}},
	{Inputs: []float64{0, 1}, Labels: []float64{1}},
	{Inputs: []float64{1, 0}, Labels: []float64{1}},
	{Inputs: []float64{1, 1}, Labels: []float64{0}},
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "1.23s", FormatDuration(1234567891*time.Nanosecond))
	assert.Equal(t, "12.35ms", FormatDuration(12345678*time.Nanosecond))
	assert.Equal(t, "2m3s", FormatDuration(123456*time.Millisecond))
	assert.Equal(t, "15ns", FormatDuration(15))
}

func TestStopOnEnter(t *testing.T) {
	r, w := io.Pipe()
	ctx, cancel := StopOnEnter(context.Background(), r)
	defer cancel()
	require.NoError(t, ctx.Err())

	go func() { _, _ = w.Write([]byte("\n")) }()
	select {
	case <-ctx.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("context not cancelled after Enter")
	}
	assert.ErrorIs(t, context.Cause(ctx), ErrStopRequested)

	// With RunUntil: the input is already there, so training stops right after the first step.
	loop := train.NewLoop(xorTrainer())
	ctx, cancel = StopOnEnter(context.Background(), strings.NewReader("\n"))
	defer cancel()
	<-ctx.Done()
	_, err := loop.RunUntil(ctx, datasets.FullBatch("xor", xorExamples))
	require.NoError(t, err)
	assert.Equal(t, 1, loop.LoopStep)
}

func TestReportEval(t *testing.T) {
	var buf bytes.Buffer
	err := ReportEval(&buf, xorTrainer(),
		NamedExamples{Name: "train", Examples: xorExamples},
		NamedExamples{Name: "head", Examples: xorExamples[:2]})
	require.NoError(t, err)
	report := buf.String()
	assert.Contains(t, report, "Accuracy")
	assert.Contains(t, report, "train")
	assert.Contains(t, report, "head")
	assert.Contains(t, report, "%")

	err = ReportEval(&buf, xorTrainer(), NamedExamples{Name: "empty"})
	require.Error(t, err)
}

func TestProgressBar(t *testing.T) {
	for _, inNotebook := range []bool{false, true} {
		var buf bytes.Buffer
		loop := train.NewLoop(xorTrainer())
		attachProgressBar(loop, &buf, inNotebook, func() (string, string) { return "Extra", "42" })
		_, err := loop.RunSteps(datasets.FullBatch("xor", xorExamples), 5)
		require.NoError(t, err)
		output := buf.String()
		assert.Contains(t, output, "Training on xor")
		if inNotebook {
			assert.Contains(t, output, "[loss=")
		} else {
			assert.Contains(t, output, "Median train step duration")
			assert.Contains(t, output, "Extra")
			assert.Contains(t, output, loop.RunID)
		}
	}
}

func TestProgressBarResumedLoop(t *testing.T) {
	for _, inNotebook := range []bool{false, true} {
		var buf bytes.Buffer
		loop := train.NewLoop(xorTrainer())
		attachProgressBar(loop, &buf, inNotebook)
		ds := datasets.FullBatch("xor", xorExamples)
		for range 2 {
			require.NotPanics(t, func() {
				_, err := loop.RunSteps(ds, 3)
				require.NoError(t, err)
			})
		}
		assert.Equal(t, 6, loop.LoopStep)
		assert.Contains(t, buf.String(), "Training on xor")
	}
}

func TestStopOnEnterCancelled(t *testing.T) {
	r, w := io.Pipe()
	defer func() { _ = w.Close() }()
	ctx, cancel := StopOnEnter(context.Background(), r)
	cancel()
	<-ctx.Done()
	assert.ErrorIs(t, context.Cause(ctx), context.Canceled)

	// A late Enter doesn't change the cause.
	go func() { _, _ = w.Write([]byte("\n")) }()
	time.Sleep(10 * time.Millisecond)
	assert.ErrorIs(t, context.Cause(ctx), context.Canceled)
	assert.NotErrorIs(t, context.Cause(ctx), ErrStopRequested)

	// Cancelling the parent also stops it.
	parent, cancelParent := context.WithCancel(context.Background())
	ctx, cancel = StopOnEnter(parent, r)
	defer cancel()
	cancelParent()
	<-ctx.Done()
	assert.ErrorIs(t, context.Cause(ctx), context.Canceled)
}
