// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/scalarnet/pkg/ml/checkpoints"
	"github.com/gomlx/scalarnet/pkg/ml/layers/fnn"
)

// Summary prints the model file, architecture, and sizes.
func Summary(modelPath string, model *fnn.Perceptron) {
	fmt.Println(titleStyle.Render("Summary"))
	table := newPlainTable(lipgloss.Right, lipgloss.Left)
	table.Row("model file", modelPath)
	table.Row("# inputs", humanize.Comma(int64(model.NumInputs())))
	layers := make([]string, 0, len(model.Layers()))
	for _, size := range model.LayerSizes() {
		layers = append(layers, humanize.Comma(int64(size)))
	}
	table.Row("layers", strings.Join(layers, " → "))
	table.Row("# outputs", humanize.Comma(int64(model.NumOutputs())))
	table.Row("# parameters", humanize.Comma(int64(model.NumParameters())))
	table.Row("# bytes", humanize.Bytes(uint64(model.NumParameters()*checkpoints.BytesPerParameter)))
	fmt.Println(table.Render())
}
