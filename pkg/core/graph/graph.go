// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package graph is the core of scalarnet: a reverse-mode automatic differentiation engine over
// scalar values.
//
// The main elements in the package are:
//
//   - Graph: an arena that owns every Node created while building one computation (typically one
//     training iteration). A Graph is reset wholesale between iterations with Graph.Reset.
//
//   - Node: a handle to one scalar in a Graph. It holds the value (computed eagerly when the Node
//     is created), the gradient accumulated by the last Backward call, and the operation (if any)
//     that produced it. Two Nodes are the same only if they are the same handle: values are never
//     compared.
//
//   - Variable: a trainable scalar (weight or bias) whose lifetime spans many graphs. Within a
//     graph it is represented by a leaf Node, see Variable.ValueGraph.
//
// Operations are limited to a closed set: Add, Neg, Mul, Pow (constant exponent) and Tanh. Derived
// operations (Sub, Div, Square, Sum, Mean, ...) are compositions of those.
//
// Errors while building a graph (mixing nodes of different graphs, using a node after its graph
// was reset, ...) are programming errors, and they panic with exceptions.Panicf. See
// exceptions.Try to convert them back to errors.
//
// Example:
//
//	g := graph.New("example")
//	a, b, c := graph.Scalar(g, 3), graph.Scalar(g, 7), graph.Scalar(g, 11)
//	d := graph.Mul(a, graph.Add(b, c))
//	graph.Backward(d)
//	fmt.Println(a.Grad(), b.Grad(), c.Grad()) // 18 3 3
//
// A Graph is not safe for concurrent use.
package graph

import (
	"fmt"

	"github.com/gomlx/exceptions"
)

// NodeId is the index of a Node within its Graph arena.
//
// The inputs of a Node always have a smaller NodeId than the Node itself.
type NodeId int32

// InvalidNodeId marks an unused input slot.
const InvalidNodeId = NodeId(-1)

// Graph is the arena holding all the Nodes of one computation.
type Graph struct {
	name string

	// generation is incremented at every Reset, invalidating all previously issued Node handles.
	generation uint32

	nodes []nodeEntry

	// variables maps a Variable to its leaf Node in the current generation.
	variables map[*Variable]NodeId
}

// New creates a new empty Graph. The name is only used for printing and error messages.
func New(name string) *Graph {
	return &Graph{
		name:      name,
		nodes:     make([]nodeEntry, 0, 64),
		variables: make(map[*Variable]NodeId),
	}
}

// Name of the Graph, given at construction.
func (g *Graph) Name() string { return g.name }

// NumNodes returns the number of Nodes created since construction or the last Reset.
func (g *Graph) NumNodes() int { return len(g.nodes) }

// Generation returns the number of times the Graph was Reset.
func (g *Graph) Generation() int { return int(g.generation) }

// String implements fmt.Stringer.
func (g *Graph) String() string {
	return fmt.Sprintf("Graph(%q, generation=%d, #nodes=%d)", g.name, g.generation, len(g.nodes))
}

// Reset discards all the Nodes of the Graph, keeping the arena's allocated memory for reuse.
//
// Node handles issued before the Reset become stale, and using them panics. Variables are not
// affected, except that they are no longer bound to any Node in this Graph.
func (g *Graph) Reset() {
	g.nodes = g.nodes[:0]
	clear(g.variables)
	g.generation++
}

// Nodes returns handles to all Nodes in the Graph, in creation order.
func (g *Graph) Nodes() []Node {
	nodes := make([]Node, len(g.nodes))
	for ii := range g.nodes {
		nodes[ii] = g.nodeAt(NodeId(ii))
	}
	return nodes
}

// nodeAt returns the handle for the given id in the current generation.
func (g *Graph) nodeAt(id NodeId) Node {
	return Node{graph: g, id: id, generation: g.generation}
}

// newNode appends a new entry to the arena and returns its handle.
func (g *Graph) newNode(entry nodeEntry) Node {
	id := NodeId(len(g.nodes))
	g.nodes = append(g.nodes, entry)
	return g.nodeAt(id)
}

// validateBuildingGraphFromInputs checks that all inputs are valid Nodes of the same Graph and
// returns that Graph.
func validateBuildingGraphFromInputs(inputs ...Node) *Graph {
	if len(inputs) == 0 {
		exceptions.Panicf("no inputs given to build a new node")
	}
	g := inputs[0].assertValid().graph
	for ii, input := range inputs[1:] {
		input.assertValid()
		if input.graph != g {
			exceptions.Panicf("operand #%d (%s) belongs to graph %q, but operand #0 belongs to graph %q: "+
				"nodes from different graphs cannot be combined", ii+1, input, input.graph.name, g.name)
		}
	}
	return g
}

// Scalar creates a leaf Node (no origin) holding value.
// It is used for constants and for wrapping raw inputs.
func Scalar(g *Graph, value float64) Node {
	return g.newNode(nodeEntry{
		nodeType: NodeTypeLeaf,
		data:     value,
		inputs:   [2]NodeId{InvalidNodeId, InvalidNodeId},
	})
}

// Scalars wraps each value in a fresh leaf Node.
func Scalars(g *Graph, values []float64) []Node {
	nodes := make([]Node, len(values))
	for ii, value := range values {
		nodes[ii] = Scalar(g, value)
	}
	return nodes
}
