// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package optimizers implements the parameter update applied at the end of each training
// iteration, and the learning rate schedules it uses. Optimizers implement optimizers.Interface.
package optimizers

import (
	"math"

	"github.com/gomlx/scalarnet/pkg/core/graph"
	"k8s.io/klog/v2"
)

// Interface implemented by optimizers.
type Interface interface {
	// Update the values of params using their gradients, as computed by the last graph.Backward.
	// It returns the learning rate used.
	Update(iteration int, params []*graph.Variable) float64
}

// GradientDescent implements Interface with plain gradient descent:
// value -= grad * LearningRate(iteration).
type GradientDescent struct {
	LearningRate LearningRateFn
}

// Assert GradientDescent implements Interface.
var _ Interface = GradientDescent{}

// Update implements Interface.
func (opt GradientDescent) Update(iteration int, params []*graph.Variable) float64 {
	lr := opt.LearningRate(iteration)
	if klog.V(2).Enabled() && (math.IsNaN(lr) || math.IsInf(lr, 0)) {
		klog.Warningf("GradientDescent.Update(iteration=%d): learning rate is %g", iteration, lr)
	}
	for _, param := range params {
		param.SetValue(param.Value() - param.Grad()*lr)
	}
	return lr
}
