// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package losses have several standard losses that implement train.LossFn: they take the model
// outputs and the expected labels of one example and return the loss of that example as a Node.
package losses

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/scalarnet/pkg/core/graph"
)

// checkShapes panics if the number of outputs and labels differ.
func checkShapes(name string, outputs []graph.Node, labels []float64) *graph.Graph {
	if len(outputs) != len(labels) {
		exceptions.Panicf("losses.%s(): %d outputs but %d labels given", name, len(outputs), len(labels))
	}
	if len(outputs) == 0 {
		exceptions.Panicf("losses.%s(): no outputs given", name)
	}
	return outputs[0].Graph()
}

// SumSquaredError returns Σ (output_i - label_i)², accumulated left-to-right starting from 0.
func SumSquaredError(outputs []graph.Node, labels []float64) graph.Node {
	g := checkShapes("SumSquaredError", outputs, labels)
	loss := graph.Scalar(g, 0)
	for ii, output := range outputs {
		diff := graph.Sub(output, graph.Scalar(g, labels[ii]))
		loss = graph.Add(loss, graph.Pow(diff, 2))
	}
	return loss
}

// MeanSquaredError returns SumSquaredError divided by the number of outputs.
func MeanSquaredError(outputs []graph.Node, labels []float64) graph.Node {
	checkShapes("MeanSquaredError", outputs, labels)
	return graph.MulScalar(SumSquaredError(outputs, labels), 1/float64(len(outputs)))
}
