// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"fmt"
	"strings"

	"github.com/gomlx/exceptions"
)

// NodeType identifies the operation that created a Node.
type NodeType uint8

const (
	NodeTypeInvalid NodeType = iota
	NodeTypeLeaf
	NodeTypeAdd
	NodeTypeNeg
	NodeTypeMul
	NodeTypePow
	NodeTypeTanh
)

var nodeTypeNames = [...]string{
	NodeTypeInvalid: "Invalid",
	NodeTypeLeaf:    "Leaf",
	NodeTypeAdd:     "Add",
	NodeTypeNeg:     "Neg",
	NodeTypeMul:     "Mul",
	NodeTypePow:     "Pow",
	NodeTypeTanh:    "Tanh",
}

// String implements fmt.Stringer.
func (t NodeType) String() string {
	if int(t) < len(nodeTypeNames) {
		return nodeTypeNames[t]
	}
	return fmt.Sprintf("NodeType(%d)", int(t))
}

// NumInputs returns the number of operands of the node type.
func (t NodeType) NumInputs() int {
	switch t {
	case NodeTypeAdd, NodeTypeMul:
		return 2
	case NodeTypeNeg, NodeTypePow, NodeTypeTanh:
		return 1
	default:
		return 0
	}
}

// nodeEntry is the arena storage of one Node.
type nodeEntry struct {
	nodeType NodeType
	data     float64
	grad     float64

	// inputs are the operands, InvalidNodeId for unused slots.
	inputs [2]NodeId

	// exponent is only used by NodeTypePow.
	exponent float64

	// variable is set for leaves created by Variable.ValueGraph.
	variable *Variable
}

// Node is a handle to a scalar in a Graph.
//
// Nodes are small values, meant to be passed around by value. Two Node values are the same node
// if and only if they compare equal with ==, and they can be used as map keys.
//
// The zero value is an invalid Node: using it panics.
type Node struct {
	graph      *Graph
	id         NodeId
	generation uint32
}

// assertValid panics if the node is the zero value or if its graph was reset after the node was
// created. It returns the node itself for convenience.
func (n Node) assertValid() Node {
	if n.graph == nil {
		exceptions.Panicf("invalid Node (zero value) used")
	}
	if n.generation != n.graph.generation {
		exceptions.Panicf("stale node #%d of graph %q used: it was created in generation %d, "+
			"but the graph was reset and is now in generation %d", n.id, n.graph.name, n.generation, n.graph.generation)
	}
	return n
}

func (n Node) entry() *nodeEntry {
	n.assertValid()
	return &n.graph.nodes[n.id]
}

// IsValid returns whether the Node can be used: it is not the zero value and its Graph was not
// reset since it was created.
func (n Node) IsValid() bool {
	return n.graph != nil && n.generation == n.graph.generation
}

// Graph the Node belongs to.
func (n Node) Graph() *Graph { return n.graph }

// Id of the Node within its Graph.
func (n Node) Id() NodeId { return n.id }

// Type of the operation that created the Node. Leaves return NodeTypeLeaf.
func (n Node) Type() NodeType { return n.entry().nodeType }

// IsLeaf returns whether the Node has no origin: a constant, a wrapped input or a Variable.
func (n Node) IsLeaf() bool { return n.entry().nodeType == NodeTypeLeaf }

// Value returns the scalar value of the Node, computed when the Node was created.
func (n Node) Value() float64 { return n.entry().data }

// Grad returns the gradient of the root of the most recent Backward call with respect to this
// Node. It is only meaningful right after Backward, and it is 0 for nodes outside the closure of
// any Backward root.
func (n Node) Grad() float64 { return n.entry().grad }

// SetValue overwrites the value of a leaf Node. If the leaf represents a Variable, the Variable is
// updated as well.
//
// Derived nodes cannot be changed: their value is a function of their inputs, and it panics.
func (n Node) SetValue(value float64) {
	e := n.entry()
	if e.nodeType != NodeTypeLeaf {
		exceptions.Panicf("cannot SetValue(%g) on %s: only leaf nodes can be written", value, n)
	}
	e.data = value
	if e.variable != nil {
		e.variable.value = value
	}
}

// Variable returns the Variable represented by this leaf, or nil.
func (n Node) Variable() *Variable { return n.entry().variable }

// Exponent returns the constant exponent of a NodeTypePow node. It panics for other types.
func (n Node) Exponent() float64 {
	e := n.entry()
	if e.nodeType != NodeTypePow {
		exceptions.Panicf("Exponent() called on %s, only Pow nodes have an exponent", n)
	}
	return e.exponent
}

// Inputs returns the operands of the Node, in order. Leaves have no inputs.
// The same Node may appear twice (e.g.: Mul(x, x)).
func (n Node) Inputs() []Node {
	e := n.entry()
	numInputs := e.nodeType.NumInputs()
	inputs := make([]Node, numInputs)
	for ii := range numInputs {
		inputs[ii] = n.graph.nodeAt(e.inputs[ii])
	}
	return inputs
}

// String implements fmt.Stringer.
func (n Node) String() string {
	if n.graph == nil {
		return "Node(invalid)"
	}
	if !n.IsValid() {
		return fmt.Sprintf("#%d(stale)", n.id)
	}
	e := &n.graph.nodes[n.id]
	var sb strings.Builder
	_, _ = fmt.Fprintf(&sb, "#%d %s", n.id, e.nodeType)
	if e.nodeType != NodeTypeLeaf {
		sb.WriteString("(")
		for ii := range e.nodeType.NumInputs() {
			if ii > 0 {
				sb.WriteString(", ")
			}
			_, _ = fmt.Fprintf(&sb, "#%d", e.inputs[ii])
		}
		if e.nodeType == NodeTypePow {
			_, _ = fmt.Fprintf(&sb, ", %g", e.exponent)
		}
		sb.WriteString(")")
	} else if e.variable != nil {
		_, _ = fmt.Fprintf(&sb, "[%s]", e.variable.name)
	}
	_, _ = fmt.Fprintf(&sb, "=%g", e.data)
	return sb.String()
}

// uniqueOperands returns the distinct operands of node id: Mul(x, x) has the single operand x.
func (g *Graph) uniqueOperands(id NodeId) (operands [2]NodeId, numOperands int) {
	e := &g.nodes[id]
	switch e.nodeType.NumInputs() {
	case 2:
		operands[0] = e.inputs[0]
		numOperands = 1
		if e.inputs[1] != e.inputs[0] {
			operands[1] = e.inputs[1]
			numOperands = 2
		}
	case 1:
		operands[0] = e.inputs[0]
		numOperands = 1
	}
	return
}
