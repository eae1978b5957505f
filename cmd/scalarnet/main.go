// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// scalarnet trains a multi-layer perceptron built of scalar autodiff nodes, with gradient descent.
//
//  1. With `scalarnet -data=mnist_train.csv`: trains a digit classifier on MNIST in CSV format
//     (a header line, then one row per image: the label followed by 784 pixel values).
//  2. Without -data it trains a small network on XOR, which takes a fraction of a second.
//
// With `-steps=0` it trains until Enter is pressed.
package main

import (
	"flag"

	"github.com/gomlx/exceptions"
	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"
)

var (
	flagData   = flag.String("data", "", "MNIST CSV file to train on. If empty, trains on XOR.")
	flagRows   = flag.Int("rows", 1000, "Maximum number of rows read from -data. Set to 0 to read all rows.")
	flagLayers = flag.String("layers", "", `Comma-separated layer sizes, the last being the number of outputs. `+
		`Defaults to "50,10" for MNIST and "4,1" for XOR.`)
	flagSteps         = flag.Int("steps", 100, "Number of gradient descent steps. If 0, trains until Enter is pressed.")
	flagBatch         = flag.Int("batch", 0, "Mini-batch size, sampled with replacement. If 0, every step uses all examples.")
	flagLearningRate  = flag.Float64("lr", 0.01, "Initial learning rate.")
	flagSchedule      = flag.String("schedule", "linear", "Learning rate schedule: constant, linear, exponential, cosine or bspline.")
	flagScheduleSteps = flag.Int("schedule_steps", 0, "Number of steps over which the learning rate schedule decays. Defaults to -steps.")
	flagSeed          = flag.Uint64("seed", 42, "Seed for the parameters initialization and the mini-batch sampling.")
	flagInit          = flag.String("init", "uniform", "Parameters initializer: zero, uniform, normal or xavier.")
	flagLoad          = flag.String("load", "", "Model file to load the initial parameters from.")
	flagSave          = flag.String("save", "", "Model file to save the parameters to, at the end of training and every -save_every steps.")
	flagSaveEvery     = flag.Int("save_every", 0, "Save the model every that many steps, if -save is set. If 0, only saves at the end.")
	flagPlot          = flag.String("plot", "", "Save training curves to this file (png or svg): one file per metric type is written, "+
		"plus the collected points as JSON.")
	flagPlotEvery = flag.Int("plot_every", 1, "Collect a point for the training curves every that many steps.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	err := exceptions.TryCatch[error](func() {
		must.M(trainModel())
	})
	if err != nil {
		klog.Fatalf("Error:\n%+v", err)
	}
}
