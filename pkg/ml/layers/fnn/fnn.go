// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package fnn implements a fully-connected FNN (Feedforward Neural Network), also known as a
// multi-layer perceptron, over scalar graph nodes.
//
// Every neuron computes tanh(bias + Σ input_i * weight_i). Weights and biases are graph.Variable,
// so they survive across the graphs of successive training iterations.
//
// E.g.: a classifier for 28x28 images into 10 classes, with one hidden layer of 50 neurons:
//
//	model := fnn.New(784, []int{50, 10}, initializer.Uniform(rng, -1, 1))
//	g := graph.New("forward")
//	outputs := model.Forward(graph.Scalars(g, pixels))
package fnn

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/scalarnet/pkg/core/graph"
	"github.com/gomlx/scalarnet/pkg/ml/initializer"
	"github.com/pkg/errors"
)

// Neuron holds one weight per input and a bias.
type Neuron struct {
	weights []*graph.Variable
	bias    *graph.Variable
}

// NewNeuron creates a Neuron with numInputs weights and a bias, initialized with init, in that
// order (weights first, then the bias). Variables are named with the given prefix.
func NewNeuron(name string, numInputs int, init initializer.Initializer) *Neuron {
	if numInputs <= 0 {
		exceptions.Panicf("fnn.NewNeuron(%q): numInputs must be > 0, got %d", name, numInputs)
	}
	n := &Neuron{weights: make([]*graph.Variable, numInputs)}
	for ii := range n.weights {
		n.weights[ii] = graph.NewVariable(fmt.Sprintf("%s/weight_%d", name, ii), init(numInputs))
	}
	n.bias = graph.NewVariable(name+"/bias", init(numInputs))
	return n
}

// NumInputs of the Neuron.
func (n *Neuron) NumInputs() int { return len(n.weights) }

// Weights of the Neuron, one per input.
func (n *Neuron) Weights() []*graph.Variable { return n.weights }

// Bias of the Neuron.
func (n *Neuron) Bias() *graph.Variable { return n.bias }

// Forward returns tanh(bias + Σ inputs[i] * weights[i]), with the sum built left-to-right starting
// from the bias.
//
// It panics if len(inputs) differs from the number of weights.
func (n *Neuron) Forward(inputs []graph.Node) graph.Node {
	if len(inputs) != len(n.weights) {
		exceptions.Panicf("fnn.Neuron.Forward(): neuron has %d weights, but %d inputs were given",
			len(n.weights), len(inputs))
	}
	g := inputs[0].Graph()
	activation := n.bias.ValueGraph(g)
	for ii, input := range inputs {
		activation = graph.Add(activation, graph.Mul(input, n.weights[ii].ValueGraph(g)))
	}
	return graph.Tanh(activation)
}

// Parameters returns the weights followed by the bias.
func (n *Neuron) Parameters() []*graph.Variable {
	params := make([]*graph.Variable, 0, len(n.weights)+1)
	params = append(params, n.weights...)
	return append(params, n.bias)
}

// Layer is a sequence of Neurons sharing the same inputs.
type Layer struct {
	numInputs int
	neurons   []*Neuron
}

// NewLayer creates a Layer with numNeurons neurons of numInputs inputs each.
func NewLayer(name string, numInputs, numNeurons int, init initializer.Initializer) *Layer {
	if numNeurons <= 0 {
		exceptions.Panicf("fnn.NewLayer(%q): numNeurons must be > 0, got %d", name, numNeurons)
	}
	l := &Layer{numInputs: numInputs, neurons: make([]*Neuron, numNeurons)}
	for ii := range l.neurons {
		l.neurons[ii] = NewNeuron(fmt.Sprintf("%s/neuron_%d", name, ii), numInputs, init)
	}
	return l
}

// NumInputs of each neuron of the Layer.
func (l *Layer) NumInputs() int { return l.numInputs }

// NumOutputs is the number of neurons.
func (l *Layer) NumOutputs() int { return len(l.neurons) }

// Neurons of the Layer.
func (l *Layer) Neurons() []*Neuron { return l.neurons }

// Forward returns one output per neuron, all computed over the same inputs.
func (l *Layer) Forward(inputs []graph.Node) []graph.Node {
	outputs := make([]graph.Node, len(l.neurons))
	for ii, neuron := range l.neurons {
		outputs[ii] = neuron.Forward(inputs)
	}
	return outputs
}

// Parameters of all neurons, in order.
func (l *Layer) Parameters() []*graph.Variable {
	params := make([]*graph.Variable, 0, len(l.neurons)*(l.numInputs+1))
	for _, neuron := range l.neurons {
		params = append(params, neuron.Parameters()...)
	}
	return params
}

// Perceptron is a multi-layer perceptron: layer i's outputs are layer i+1's inputs.
//
// Its structure is fixed at construction, only the parameter values change.
type Perceptron struct {
	numInputs int
	layers    []*Layer
}

// New creates a Perceptron taking numInputs inputs, with one layer per entry in layerSizes: the
// last one is the number of outputs.
//
// Parameters are created (and init is called) layer by layer, neuron by neuron, weights before
// bias: the same order as Parameters.
func New(numInputs int, layerSizes []int, init initializer.Initializer) *Perceptron {
	if len(layerSizes) == 0 {
		exceptions.Panicf("fnn.New(): at least one layer size must be given")
	}
	p := &Perceptron{numInputs: numInputs, layers: make([]*Layer, len(layerSizes))}
	lastSize := numInputs
	for ii, size := range layerSizes {
		p.layers[ii] = NewLayer(fmt.Sprintf("layer_%d", ii), lastSize, size, init)
		lastSize = size
	}
	return p
}

// NumInputs of the Perceptron.
func (p *Perceptron) NumInputs() int { return p.numInputs }

// NumOutputs of the Perceptron, the size of the last layer.
func (p *Perceptron) NumOutputs() int { return p.layers[len(p.layers)-1].NumOutputs() }

// Layers of the Perceptron.
func (p *Perceptron) Layers() []*Layer { return p.layers }

// LayerSizes returns the number of neurons of each layer.
func (p *Perceptron) LayerSizes() []int {
	sizes := make([]int, len(p.layers))
	for ii, layer := range p.layers {
		sizes[ii] = layer.NumOutputs()
	}
	return sizes
}

// Forward folds inputs through every layer and returns the outputs of the last one.
func (p *Perceptron) Forward(inputs []graph.Node) []graph.Node {
	activations := inputs
	for _, layer := range p.layers {
		activations = layer.Forward(activations)
	}
	return activations
}

// Predict runs the forward pass over raw values in a temporary graph and returns the output values.
func (p *Perceptron) Predict(inputs []float64) []float64 {
	g := graph.New("predict")
	return graph.Values(p.Forward(graph.Scalars(g, inputs)))
}

// Parameters returns every weight and bias: layer by layer, neuron by neuron, weights (in input
// order) followed by the bias. The order is stable, and it is the order used to save and load
// models.
func (p *Perceptron) Parameters() []*graph.Variable {
	params := make([]*graph.Variable, 0, p.NumParameters())
	for _, layer := range p.layers {
		params = append(params, layer.Parameters()...)
	}
	return params
}

// NumParameters returns Σ (inputs+1)*outputs over the layers.
func (p *Perceptron) NumParameters() int {
	var count int
	for _, layer := range p.layers {
		count += (layer.NumInputs() + 1) * layer.NumOutputs()
	}
	return count
}

// String implements fmt.Stringer.
func (p *Perceptron) String() string {
	parts := make([]string, 0, len(p.layers)+1)
	parts = append(parts, fmt.Sprint(p.numInputs))
	for _, size := range p.LayerSizes() {
		parts = append(parts, fmt.Sprint(size))
	}
	return fmt.Sprintf("Perceptron(%s, %d parameters)", strings.Join(parts, "->"), p.NumParameters())
}

// ParseLayerSizes parses a comma-separated list of positive layer sizes, e.g. "50,10".
func ParseLayerSizes(list string) ([]int, error) {
	parts := strings.Split(list, ",")
	sizes := make([]int, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		size, err := strconv.Atoi(part)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid layer size %q in %q", part, list)
		}
		if size <= 0 {
			return nil, errors.Errorf("layer sizes must be > 0, got %d in %q", size, list)
		}
		sizes = append(sizes, size)
	}
	if len(sizes) == 0 {
		return nil, errors.Errorf("no layer sizes given in %q", list)
	}
	return sizes, nil
}
