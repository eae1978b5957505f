// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package datasets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func xorExamples() []Example {
	return []Example{
		{Inputs: []float64{0, 0}, Labels: []float64{0}},
		{Inputs: []float64{0, 1}, Labels: []float64{1}},
		{Inputs: []float64{1, 0}, Labels: []float64{1}},
		{Inputs: []float64{1, 1}, Labels: []float64{0}},
	}
}

func TestFullBatch(t *testing.T) {
	examples := xorExamples()
	ds := FullBatch("xor", examples)
	assert.Equal(t, "xor", ds.Name())
	assert.Equal(t, 4, ds.Len())
	for iteration := range 3 {
		assert.Equal(t, examples, ds.Batch(iteration))
	}
}

func TestRandomSampler(t *testing.T) {
	examples := xorExamples()
	ds := NewRandomSampler("xor", examples, 3, 42)
	assert.Equal(t, 4, ds.Len())
	assert.Equal(t, 3, ds.BatchSize())
	assert.Contains(t, ds.Name(), "xor")

	// Sampling with replacement: batches larger than the dataset are fine, and over enough
	// iterations every example shows up.
	seen := make(map[float64]int)
	for iteration := range 100 {
		batch := ds.Batch(iteration)
		require.Len(t, batch, 3)
		for _, example := range batch {
			seen[example.Inputs[0]*2+example.Inputs[1]]++
		}
	}
	assert.Len(t, seen, 4)

	// Same seed, same sequence.
	ds1 := NewRandomSampler("a", examples, 5, 7)
	ds2 := NewRandomSampler("b", examples, 5, 7)
	for iteration := range 10 {
		assert.Equal(t, ds1.Batch(iteration), ds2.Batch(iteration))
	}

	require.Panics(t, func() { NewRandomSampler("empty", nil, 1, 0) })
	require.Panics(t, func() { NewRandomSampler("zero", examples, 0, 0) })
}

func TestValidate(t *testing.T) {
	examples := xorExamples()
	require.NoError(t, Validate(examples, 2, 1))
	require.NoError(t, Validate(examples, -1, -1))
	require.Error(t, Validate(examples, 3, 1))
	err := Validate(examples, 2, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "example #0 has 1 labels")
}
