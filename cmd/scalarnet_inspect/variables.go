// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"flag"
	"fmt"
	"math"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/scalarnet/pkg/core/graph"
	"github.com/gomlx/scalarnet/pkg/ml/checkpoints"
	"github.com/gomlx/scalarnet/pkg/ml/layers/fnn"
	"github.com/gomlx/scalarnet/pkg/ml/random"
	"github.com/janpfeifer/must"
)

var (
	flagVars        = flag.Bool("vars", true, "Lists per-layer statistics of the weights and biases.")
	flagPerturbVars = flag.Float64("perturb", 0,
		"Perturbs all parameters by <x>: it multiplies them by 1.0+(RandomUniform(-1, 1)*x), and saves the model file back.")
	flagSeed = flag.Uint64("seed", 42, "Seed used by -perturb.")
)

// paramStats are the MAV (mean absolute value), RMS (root-mean-square) and MaxAV (max absolute
// value) of a set of parameters.
type paramStats struct {
	mav, rms, maxAV float64
}

func statsOf(params []*graph.Variable) (s paramStats) {
	if len(params) == 0 {
		return
	}
	for _, p := range params {
		v := math.Abs(p.Value())
		s.mav += v
		s.rms += v * v
		s.maxAV = max(s.maxAV, v)
	}
	n := float64(len(params))
	s.mav /= n
	s.rms = math.Sqrt(s.rms / n)
	return
}

// ListVariables lists, per layer, the statistics of the weights and of the biases.
func ListVariables(model *fnn.Perceptron) {
	fmt.Println(titleStyle.Render("Parameters per layer"))
	table := newPlainTable(lipgloss.Left, lipgloss.Right)
	table.Headers("Layer", "Neurons", "Inputs", "Size", "Weights MAV", "RMS", "MaxAV", "Biases MAV", "RMS", "MaxAV")
	for ii, layer := range model.Layers() {
		var weights, biases []*graph.Variable
		for _, neuron := range layer.Neurons() {
			weights = append(weights, neuron.Weights()...)
			biases = append(biases, neuron.Bias())
		}
		wStats, bStats := statsOf(weights), statsOf(biases)
		table.Row(
			fmt.Sprintf("layer_%d", ii),
			humanize.Comma(int64(layer.NumOutputs())),
			humanize.Comma(int64(layer.NumInputs())),
			humanize.Comma(int64(len(weights)+len(biases))),
			formatFloat(wStats.mav), formatFloat(wStats.rms), formatFloat(wStats.maxAV),
			formatFloat(bStats.mav), formatFloat(bStats.rms), formatFloat(bStats.maxAV),
		)
	}
	fmt.Println(table.Render())
	if *flagGlossary {
		fmt.Printf("  %s:\n", sectionStyle.Render("Glossary"))
		fmt.Printf("   ◦ %s: %s\n", emphasisStyle.Render("MAV"), italicStyle.Render("Mean Absolute Value"))
		fmt.Printf("   ◦ %s: %s\n", emphasisStyle.Render("RMS"), italicStyle.Render("Root Mean Square"))
		fmt.Printf("   ◦ %s: %s\n", emphasisStyle.Render("MaxAV"), italicStyle.Render("Max Absolute Value"))
	}
}

// PerturbVars multiplies every parameter of the model by 1+U(-x, x), and saves it back to modelPath.
func PerturbVars(modelPath string, model *fnn.Perceptron, x float64, seed uint64) {
	rng := random.New(seed)
	params := model.Parameters()
	for _, p := range params {
		p.SetValue(p.Value() * (1 + rng.UniformRange(-x, x)))
	}
	must.M(checkpoints.SaveFile(modelPath, params))
	fmt.Printf("%d parameters updated, model saved to %q.\n", len(params), modelPath)
}
