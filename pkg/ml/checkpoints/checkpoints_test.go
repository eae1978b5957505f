// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package checkpoints

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/gomlx/scalarnet/pkg/core/graph"
	"github.com/gomlx/scalarnet/pkg/ml/datasets"
	"github.com/gomlx/scalarnet/pkg/ml/initializer"
	"github.com/gomlx/scalarnet/pkg/ml/layers/fnn"
	"github.com/gomlx/scalarnet/pkg/ml/random"
	"github.com/gomlx/scalarnet/pkg/ml/train"
	"github.com/gomlx/scalarnet/pkg/ml/train/losses"
	"github.com/gomlx/scalarnet/pkg/ml/train/metrics"
	"github.com/gomlx/scalarnet/pkg/ml/train/optimizers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func values(params []*graph.Variable) []float64 {
	result := make([]float64, len(params))
	for ii, param := range params {
		result[ii] = param.Value()
	}
	return result
}

func TestSaveLoad(t *testing.T) {
	model := fnn.New(10, []int{9, 5, 10}, initializer.Normal(random.New(1), 1))
	params := model.Parameters()
	// Values that don't survive a text round trip.
	params[0].SetValue(math.Nextafter(1, 2))
	params[1].SetValue(math.Inf(-1))
	params[2].SetValue(math.Copysign(0, -1))

	var buf bytes.Buffer
	require.NoError(t, Save(&buf, params))
	require.Equal(t, 8*209, buf.Len())
	assert.Equal(t, []byte{1, 0, 0, 0, 0, 0, 0xf0, 0x3f}, buf.Bytes()[:8], "little-endian float64")

	loaded := fnn.New(10, []int{9, 5, 10}, initializer.Zero)
	require.NoError(t, Load(bytes.NewReader(buf.Bytes()), loaded.Parameters()))
	for ii, param := range loaded.Parameters() {
		assert.Equalf(t, math.Float64bits(params[ii].Value()), math.Float64bits(param.Value()), "parameter #%d", ii)
	}
}

func TestLoadSizeMismatch(t *testing.T) {
	params := fnn.New(2, []int{2, 1}, initializer.One).Parameters()
	var buf bytes.Buffer
	require.NoError(t, Save(&buf, params))
	data := buf.Bytes()

	target := fnn.New(2, []int{2, 1}, initializer.Zero).Parameters()
	err := Load(bytes.NewReader(data[:len(data)-1]), target)
	require.ErrorIs(t, err, ErrSizeMismatch)
	assert.Equal(t, []float64{0, 0, 0, 0, 0, 0, 0, 0, 0}, values(target), "nothing is loaded on failure")

	err = Load(bytes.NewReader(append(data, 0)), target)
	require.ErrorIs(t, err, ErrSizeMismatch)

	require.ErrorIs(t, Load(bytes.NewReader(nil), target), ErrSizeMismatch)
	require.NoError(t, Load(bytes.NewReader(nil), nil))
}

func TestFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.bin")
	params := fnn.New(3, []int{2}, initializer.Uniform(random.New(5), -1, 1)).Parameters()
	require.NoError(t, SaveFile(path, params))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(8*len(params)), info.Size())
	n, err := NumParametersInFile(path)
	require.NoError(t, err)
	assert.Equal(t, len(params), n)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files left behind")

	loaded := fnn.New(3, []int{2}, initializer.Zero).Parameters()
	require.NoError(t, LoadFile(path, loaded))
	assert.Equal(t, values(params), values(loaded))

	// Wrong architecture.
	require.ErrorIs(t, LoadFile(path, fnn.New(3, []int{3}, initializer.Zero).Parameters()), ErrSizeMismatch)
	require.Error(t, LoadFile(filepath.Join(dir, "missing.bin"), loaded))
	require.Error(t, SaveFile(filepath.Join(dir, "missing_dir", "model.bin"), params))
}

func TestHandlerAttachTo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xor.bin")
	model := fnn.New(2, []int{2, 1}, initializer.Uniform(random.New(9), -1, 1))
	trainer := train.NewTrainer(model, losses.SumSquaredError, metrics.ThresholdMatches(0.5),
		optimizers.GradientDescent{LearningRate: optimizers.Constant(0.1)})
	loop := train.NewLoop(trainer)
	handler := New(path, model.Parameters())
	handler.AttachTo(loop, 4)
	examples := []datasets.Example{
		{Inputs: []float64{0, 1}, Labels: []float64{1}},
		{Inputs: []float64{1, 1}, Labels: []float64{0}},
	}
	_, err := loop.RunSteps(datasets.FullBatch("xor", examples), 10)
	require.NoError(t, err)
	// Steps 3 and 7, plus the end.
	assert.Equal(t, 3, handler.NumSaves())

	restored := fnn.New(2, []int{2, 1}, initializer.Zero)
	require.NoError(t, New(path, restored.Parameters()).Load())
	assert.Equal(t, values(model.Parameters()), values(restored.Parameters()))
	assert.Contains(t, handler.String(), "9 parameters")
}
