// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"math"

	"github.com/gomlx/exceptions"
	"k8s.io/klog/v2"
)

// This file implements reverse-mode automatic differentiation.
//
// Conventions:
//
// * root node: the scalar whose gradient is being computed, with respect to every node it
//   depends on.
// * closure: all the nodes reachable from root following the operand edges.
// * consumers: the nodes using a node as an operand. A node's gradient is complete once all of its
//   consumers (in the closure) have pushed their contribution to it.

// TopologicalSort returns all the nodes in the closure of root, ordered root-first and
// leaves-last: every node comes before all of its operands, so when a node is visited all the
// nodes consuming it were already visited.
//
// It is iterative (no recursion), so it handles arbitrarily deep graphs.
//
// It panics if the graph has a cycle, which construction should make impossible: it indicates a
// bug in this package.
func TopologicalSort(root Node) []Node {
	g := root.assertValid().graph

	// inDegree[id] is the number of distinct consumers of id within the closure, or -1 if id was
	// not discovered yet. Operands always have smaller ids, so the closure is within [0, root.id].
	inDegree := make([]int, int(root.id)+1)
	for ii := range inDegree {
		inDegree[ii] = -1
	}

	// First pass: discover the closure and count consumers.
	inDegree[root.id] = 0
	numDiscovered := 1
	stack := make([]NodeId, 0, 16)
	stack = append(stack, root.id)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		operands, numOperands := g.uniqueOperands(id)
		for _, operand := range operands[:numOperands] {
			if inDegree[operand] < 0 {
				inDegree[operand] = 1
				numDiscovered++
				stack = append(stack, operand)
			} else {
				inDegree[operand]++
			}
		}
	}
	if inDegree[root.id] != 0 {
		exceptions.Panicf("TopologicalSort(%s): root is consumed by %d nodes of its own closure, the graph has a cycle",
			root, inDegree[root.id])
	}

	// Second pass: a node is emitted once all its consumers were emitted.
	order := make([]Node, 0, numDiscovered)
	stack = append(stack, root.id)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		operands, numOperands := g.uniqueOperands(id)
		for _, operand := range operands[:numOperands] {
			inDegree[operand]--
			if inDegree[operand] == 0 {
				stack = append(stack, operand)
			}
		}
		order = append(order, g.nodeAt(id))
	}
	if len(order) != numDiscovered {
		exceptions.Panicf("TopologicalSort(%s): sorted %d nodes out of %d discovered, the graph has a cycle",
			root, len(order), numDiscovered)
	}
	return order
}

// Backward computes the gradient of root with respect to every node in its closure.
//
// It zeroes the gradient of every node in the closure, sets the root's gradient to 1, and then
// applies the chain rule once per edge, in topological order. Nodes used in more than one place
// accumulate one contribution per use.
//
// Leaves bound to Variables (see Variable.ValueGraph) copy their final gradient to the Variable.
// Nodes and Variables outside the closure of root are not touched.
//
// It returns the topological order used, which callers can reuse for inspection.
func Backward(root Node) []Node {
	order := TopologicalSort(root)
	g := root.graph
	nodes := g.nodes
	for _, node := range order {
		nodes[node.id].grad = 0
	}
	nodes[root.id].grad = 1

	for _, node := range order {
		e := &nodes[node.id]
		switch e.nodeType {
		case NodeTypeLeaf:
			// Final gradient.
		case NodeTypeAdd:
			nodes[e.inputs[0]].grad += e.grad
			nodes[e.inputs[1]].grad += e.grad
		case NodeTypeNeg:
			nodes[e.inputs[0]].grad += -e.grad
		case NodeTypeMul:
			x, y := e.inputs[0], e.inputs[1]
			nodes[x].grad += e.grad * nodes[y].data
			nodes[y].grad += e.grad * nodes[x].data
		case NodeTypePow:
			base := &nodes[e.inputs[0]]
			base.grad += e.grad * e.exponent * math.Pow(base.data, e.exponent-1)
		case NodeTypeTanh:
			x := &nodes[e.inputs[0]]
			t := math.Tanh(x.data)
			x.grad += e.grad * (1 - t*t)
		default:
			exceptions.Panicf("Backward(%s): node %s has no gradient rule", root, node)
		}
	}

	for _, node := range order {
		e := &nodes[node.id]
		if e.variable != nil {
			e.variable.grad = e.grad
		}
	}
	if klog.V(2).Enabled() {
		klog.Infof("Backward(%s): %d nodes in closure, %d nodes in %s", root, len(order), len(nodes), g)
	}
	return order
}
