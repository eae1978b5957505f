// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package datasets defines training examples and the datasets that feed them to the training
// loop, one batch per iteration: FullBatch and RandomSampler.
package datasets

import (
	"fmt"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/scalarnet/pkg/ml/random"
	"github.com/pkg/errors"
)

// Example is one training example: a vector of inputs and the expected outputs (labels).
type Example struct {
	Inputs []float64
	Labels []float64
}

// Dataset provides the examples used in each training iteration.
type Dataset interface {
	// Name identifies the dataset. Used for logging and plots.
	Name() string

	// Len is the number of distinct examples in the dataset.
	Len() int

	// Batch returns the examples to use in the given iteration. The returned slice is only valid
	// until the next call to Batch.
	Batch(iteration int) []Example
}

// Validate checks that all examples have numInputs inputs and numLabels labels.
// A negative value skips the corresponding check.
func Validate(examples []Example, numInputs, numLabels int) error {
	for ii, example := range examples {
		if numInputs >= 0 && len(example.Inputs) != numInputs {
			return errors.Errorf("example #%d has %d inputs, expected %d", ii, len(example.Inputs), numInputs)
		}
		if numLabels >= 0 && len(example.Labels) != numLabels {
			return errors.Errorf("example #%d has %d labels, expected %d", ii, len(example.Labels), numLabels)
		}
	}
	return nil
}

// fullBatch implements Dataset, returning all examples on every iteration.
type fullBatch struct {
	name     string
	examples []Example
}

// FullBatch returns a Dataset that yields all examples, in order, on every iteration.
func FullBatch(name string, examples []Example) Dataset {
	return &fullBatch{name: name, examples: examples}
}

// Name implements Dataset.
func (ds *fullBatch) Name() string { return ds.name }

// Len implements Dataset.
func (ds *fullBatch) Len() int { return len(ds.examples) }

// Batch implements Dataset.
func (ds *fullBatch) Batch(int) []Example { return ds.examples }

// RandomSampler implements Dataset by sampling batchSize examples uniformly with replacement,
// a fresh sample for each iteration.
type RandomSampler struct {
	name      string
	examples  []Example
	batchSize int
	rng       *random.Random
	batch     []Example
}

// NewRandomSampler creates a RandomSampler with its own random number generator seeded with seed.
func NewRandomSampler(name string, examples []Example, batchSize int, seed uint64) *RandomSampler {
	return NewRandomSamplerWithRNG(name, examples, batchSize, random.New(seed))
}

// NewRandomSamplerWithRNG creates a RandomSampler drawing from rng.
//
// It panics if batchSize <= 0 or if there are no examples to sample from.
func NewRandomSamplerWithRNG(name string, examples []Example, batchSize int, rng *random.Random) *RandomSampler {
	if batchSize <= 0 {
		exceptions.Panicf("datasets.NewRandomSampler(%q): batchSize must be > 0, got %d", name, batchSize)
	}
	if len(examples) == 0 {
		exceptions.Panicf("datasets.NewRandomSampler(%q): no examples to sample from", name)
	}
	return &RandomSampler{
		name:      name,
		examples:  examples,
		batchSize: batchSize,
		rng:       rng,
		batch:     make([]Example, batchSize),
	}
}

// Name implements Dataset.
func (ds *RandomSampler) Name() string {
	return fmt.Sprintf("%s [sampled %d]", ds.name, ds.batchSize)
}

// Len implements Dataset.
func (ds *RandomSampler) Len() int { return len(ds.examples) }

// BatchSize returns the number of examples in each batch.
func (ds *RandomSampler) BatchSize() int { return ds.batchSize }

// Batch implements Dataset. The same example may appear more than once.
func (ds *RandomSampler) Batch(int) []Example {
	for ii := range ds.batch {
		ds.batch[ii] = ds.examples[ds.rng.IntN(len(ds.examples))]
	}
	return ds.batch
}
