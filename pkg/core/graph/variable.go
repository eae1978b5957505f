// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import "fmt"

// Variable is a trainable scalar whose lifetime spans many graphs: weights and biases are
// Variables, updated in place by the training loop and reused by the next iteration's graph.
//
// Within a Graph a Variable is represented by a single leaf Node, see ValueGraph. The gradient
// accumulated on that leaf by Backward is copied back to the Variable, and it can be read with
// Grad.
type Variable struct {
	name  string
	value float64
	grad  float64
}

// NewVariable creates a Variable with the given name (used for printing only) and initial value.
func NewVariable(name string, value float64) *Variable {
	return &Variable{name: name, value: value}
}

// Name of the Variable.
func (v *Variable) Name() string { return v.name }

// Value returns the current value of the Variable.
func (v *Variable) Value() float64 { return v.value }

// SetValue overwrites the value of the Variable.
//
// Leaf Nodes already bound to the Variable (see ValueGraph) keep the value they were created
// with: changes only show up in graphs built afterward.
func (v *Variable) SetValue(value float64) { v.value = value }

// Grad returns the gradient from the last Backward call whose root depended on the Variable.
func (v *Variable) Grad() float64 { return v.grad }

// ZeroGrad resets the Variable gradient.
func (v *Variable) ZeroGrad() { v.grad = 0 }

// String implements fmt.Stringer.
func (v *Variable) String() string {
	return fmt.Sprintf("Variable(%q, value=%g, grad=%g)", v.name, v.value, v.grad)
}

// ValueGraph returns the leaf Node representing the Variable in Graph g.
//
// The Node is created on the first call, and the same Node is returned on every other call for
// the same Graph generation, so that all uses of the Variable accumulate on one gradient.
func (v *Variable) ValueGraph(g *Graph) Node {
	if id, found := g.variables[v]; found {
		return g.nodeAt(id)
	}
	node := g.newNode(nodeEntry{
		nodeType: NodeTypeLeaf,
		data:     v.value,
		inputs:   [2]NodeId{InvalidNodeId, InvalidNodeId},
		variable: v,
	})
	g.variables[v] = node.id
	return node
}
