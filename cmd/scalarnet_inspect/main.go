// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// scalarnet_inspect reports on a model file saved by scalarnet: a summary, per-layer parameter
// statistics and, given a dataset, the predictions of the model.
//
// Model files don't store the architecture, so the -inputs and -layers used for training must be
// given.
//
// E.g.:
//
//	scalarnet_inspect -inputs=784 -layers=50,10 -data=mnist_test.csv -show=5 -image_dir=/tmp/digits model.bin
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/gomlx/scalarnet/pkg/ml/checkpoints"
	"github.com/gomlx/scalarnet/pkg/ml/initializer"
	"github.com/gomlx/scalarnet/pkg/ml/layers/fnn"
	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"
)

var (
	flagInputs   = flag.Int("inputs", 784, "Number of inputs of the model.")
	flagLayers   = flag.String("layers", "50,10", "Comma-separated layer sizes of the model, the last being the number of outputs.")
	flagSummary  = flag.Bool("summary", true, "Display a summary of the model.")
	flagGlossary = flag.Bool("glossary", true, "Whether to list glossary of abbreviations after the tables.")

	titleStyle    = lipgloss.NewStyle().Bold(true).Padding(1, 4, 1, 4)
	sectionStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	emphasisStyle = lipgloss.NewStyle().Bold(true)
	italicStyle   = lipgloss.NewStyle().Italic(true).Faint(true)
)

func main() {
	klog.InitFlags(nil)
	flag.Usage = func() {
		_, _ = fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <model_file>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) != 1 {
		klog.Errorf("Exactly one model file must be given. See 'scalarnet_inspect -help'.")
		os.Exit(1)
	}
	modelPath := args[0]
	model := loadModel(modelPath)

	if *flagPerturbVars != 0 {
		PerturbVars(modelPath, model, *flagPerturbVars, *flagSeed)
	}
	if *flagSummary {
		Summary(modelPath, model)
	}
	if *flagVars {
		ListVariables(model)
	}
	if *flagMetrics != "" {
		Metrics(*flagMetrics)
	}
	if *flagData != "" {
		Predictions(model, *flagData, *flagShow, *flagImageDir)
	}
}

// loadModel creates the model with the architecture given by the flags, and loads its parameters.
func loadModel(modelPath string) *fnn.Perceptron {
	layerSizes := must.M1(fnn.ParseLayerSizes(*flagLayers))
	model := fnn.New(*flagInputs, layerSizes, initializer.Zero)
	if numInFile, err := checkpoints.NumParametersInFile(modelPath); err == nil && numInFile != model.NumParameters() {
		klog.Fatalf("model file %q holds %d parameters, but %s has %d: check -inputs and -layers",
			modelPath, numInFile, model, model.NumParameters())
	}
	must.M(checkpoints.LoadFile(modelPath, model.Parameters()))
	return model
}
