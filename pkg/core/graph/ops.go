// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"math"

	"github.com/gomlx/exceptions"
)

// This file implements the primitive operations (the ones with a gradient rule in Backward)
// and the derived operations built on top of them.

// Add returns a new Node with x + y.
func Add(x, y Node) Node {
	g := validateBuildingGraphFromInputs(x, y)
	return g.newNode(nodeEntry{
		nodeType: NodeTypeAdd,
		data:     x.entry().data + y.entry().data,
		inputs:   [2]NodeId{x.id, y.id},
	})
}

// Neg returns a new Node with -x.
func Neg(x Node) Node {
	g := validateBuildingGraphFromInputs(x)
	return g.newNode(nodeEntry{
		nodeType: NodeTypeNeg,
		data:     -x.entry().data,
		inputs:   [2]NodeId{x.id, InvalidNodeId},
	})
}

// Mul returns a new Node with x * y.
func Mul(x, y Node) Node {
	g := validateBuildingGraphFromInputs(x, y)
	return g.newNode(nodeEntry{
		nodeType: NodeTypeMul,
		data:     x.entry().data * y.entry().data,
		inputs:   [2]NodeId{x.id, y.id},
	})
}

// Pow returns a new Node with base^exponent. The exponent is a constant, and it is not
// differentiated.
//
// For non-integer exponents the gradient assumes base > 0. This is not checked: a non-positive
// base yields NaN, which propagates to the gradients.
func Pow(base Node, exponent float64) Node {
	g := validateBuildingGraphFromInputs(base)
	return g.newNode(nodeEntry{
		nodeType: NodeTypePow,
		data:     math.Pow(base.entry().data, exponent),
		inputs:   [2]NodeId{base.id, InvalidNodeId},
		exponent: exponent,
	})
}

// Tanh returns a new Node with the hyperbolic tangent of x.
func Tanh(x Node) Node {
	g := validateBuildingGraphFromInputs(x)
	return g.newNode(nodeEntry{
		nodeType: NodeTypeTanh,
		data:     math.Tanh(x.entry().data),
		inputs:   [2]NodeId{x.id, InvalidNodeId},
	})
}

// Sub returns x - y, built as x + (-y).
func Sub(x, y Node) Node {
	return Add(x, Neg(y))
}

// Div returns x / y, built as x * y^-1.
func Div(x, y Node) Node {
	return Mul(x, Pow(y, -1))
}

// Square returns x^2.
func Square(x Node) Node {
	return Pow(x, 2)
}

// AddScalar returns x + value, with value as a new constant leaf.
func AddScalar(x Node, value float64) Node {
	return Add(x, Scalar(x.assertValid().graph, value))
}

// MulScalar returns x * value, with value as a new constant leaf.
func MulScalar(x Node, value float64) Node {
	return Mul(x, Scalar(x.assertValid().graph, value))
}

// Sum adds the nodes left-to-right: ((x0 + x1) + x2) + ...
//
// With only one node it is returned as is. It panics if nodes is empty, since there is no
// graph to create the zero constant in. Use SumInGraph for that.
func Sum(nodes ...Node) Node {
	if len(nodes) == 0 {
		exceptions.Panicf("Sum() requires at least one node, use SumInGraph to sum a possibly empty list")
	}
	sum := nodes[0]
	for _, node := range nodes[1:] {
		sum = Add(sum, node)
	}
	return sum
}

// SumInGraph adds the nodes left-to-right, starting from a constant 0 in g.
// It returns the constant 0 if nodes is empty.
func SumInGraph(g *Graph, nodes ...Node) Node {
	sum := Scalar(g, 0)
	for _, node := range nodes {
		sum = Add(sum, node)
	}
	return sum
}

// Mean returns Sum(nodes...) / len(nodes).
func Mean(nodes ...Node) Node {
	sum := Sum(nodes...)
	return Div(sum, Scalar(sum.graph, float64(len(nodes))))
}

// Values returns the values of the given nodes.
func Values(nodes []Node) []float64 {
	values := make([]float64, len(nodes))
	for ii, node := range nodes {
		values[ii] = node.Value()
	}
	return values
}
