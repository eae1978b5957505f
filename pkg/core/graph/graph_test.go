// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph_test

import (
	"flag"
	"os"
	"testing"

	"github.com/gomlx/exceptions"
	. "github.com/gomlx/scalarnet/pkg/core/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/klog/v2"
)

func init() {
	klog.InitFlags(nil)
}

func TestMain(m *testing.M) {
	flag.Parse()
	os.Exit(m.Run())
}

func TestLeaves(t *testing.T) {
	g := New("leaves")
	x := Scalar(g, 3)
	assert.True(t, x.IsLeaf())
	assert.Equal(t, NodeTypeLeaf, x.Type())
	assert.Equal(t, 3.0, x.Value())
	assert.Equal(t, 0.0, x.Grad())
	assert.Empty(t, x.Inputs())
	assert.Nil(t, x.Variable())

	x.SetValue(5)
	assert.Equal(t, 5.0, x.Value())

	values := Scalars(g, []float64{1, 2, 3})
	require.Len(t, values, 3)
	assert.Equal(t, []float64{1, 2, 3}, Values(values))
	assert.Equal(t, 4, g.NumNodes())

	// Distinct leaves with equal values are different nodes.
	y := Scalar(g, 5)
	assert.NotEqual(t, x, y)
	assert.Equal(t, x.Value(), y.Value())
}

func TestSetValueOnDerivedNodePanics(t *testing.T) {
	g := New("derived")
	x := Add(Scalar(g, 1), Scalar(g, 2))
	require.Panics(t, func() { x.SetValue(7) })
	assert.Equal(t, 3.0, x.Value())
}

func TestReset(t *testing.T) {
	g := New("reset")
	x := Scalar(g, 1)
	y := Mul(x, x)
	require.True(t, y.IsValid())
	require.Equal(t, 2, g.NumNodes())

	g.Reset()
	assert.Equal(t, 0, g.NumNodes())
	assert.Equal(t, 1, g.Generation())
	assert.False(t, x.IsValid())
	assert.False(t, y.IsValid())

	// Stale handles panic, even though the arena slot may have been reused.
	z := Scalar(g, 10)
	assert.Equal(t, x.Id(), z.Id())
	err := exceptions.TryCatch[error](func() { _ = x.Value() })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stale")
	require.Panics(t, func() { Backward(y) })
	assert.Equal(t, 10.0, z.Value())
}

func TestZeroNodePanics(t *testing.T) {
	var n Node
	assert.False(t, n.IsValid())
	assert.Equal(t, "Node(invalid)", n.String())
	require.Panics(t, func() { _ = n.Value() })
	require.Panics(t, func() { Neg(n) })
}

func TestMixingGraphsPanics(t *testing.T) {
	g1, g2 := New("g1"), New("g2")
	x, y := Scalar(g1, 1), Scalar(g2, 2)
	err := exceptions.TryCatch[error](func() { Add(x, y) })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "different graphs")
}

func TestVariableValueGraph(t *testing.T) {
	g := New("variables")
	v := NewVariable("w", 0.5)
	n0 := v.ValueGraph(g)
	n1 := v.ValueGraph(g)
	assert.Equal(t, n0, n1, "the same Variable must map to the same Node within a graph")
	assert.Same(t, v, n0.Variable())
	assert.Equal(t, 0.5, n0.Value())
	assert.Equal(t, 1, g.NumNodes())

	// Writing to the leaf writes through to the Variable.
	n0.SetValue(0.75)
	assert.Equal(t, 0.75, v.Value())

	// After a reset, a new leaf is created, with the current value.
	g.Reset()
	v.SetValue(2)
	n2 := v.ValueGraph(g)
	assert.True(t, n2.IsValid())
	assert.Equal(t, 2.0, n2.Value())
}

func TestString(t *testing.T) {
	g := New("strings")
	x := Scalar(g, 2)
	w := NewVariable("w", 3).ValueGraph(g)
	y := Pow(Mul(x, w), 2)
	assert.Equal(t, "#0 Leaf=2", x.String())
	assert.Equal(t, "#1 Leaf[w]=3", w.String())
	assert.Equal(t, "#3 Pow(#2, 2)=36", y.String())
	assert.Equal(t, "Mul", NodeTypeMul.String())
	assert.Contains(t, g.String(), `"strings"`)
	g.Reset()
	assert.Equal(t, "#0(stale)", x.String())
}
