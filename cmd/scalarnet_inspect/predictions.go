// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/scalarnet/pkg/ml/datasets/mnistcsv"
	"github.com/gomlx/scalarnet/pkg/ml/layers/fnn"
	"github.com/gomlx/scalarnet/pkg/ml/train/metrics"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

var (
	flagData     = flag.String("data", "", "MNIST CSV file with digits to predict.")
	flagRows     = flag.Int("rows", 1000, "Maximum number of rows read from -data. Set to 0 to read all rows.")
	flagShow     = flag.Int("show", 3, "Number of digits from -data to display, with the model predictions.")
	flagImageDir = flag.String("image_dir", "", "If set, the digits displayed are also saved as PNG images to this directory.")
	flagScale    = flag.Int("image_scale", 8, "Upscaling factor of the saved digit images.")
)

// prediction of the model for one digit.
type prediction struct {
	digit     *mnistcsv.Digit
	predicted int
	outputs   []float64
}

func (p *prediction) correct() bool { return p.predicted == p.digit.Label }

// predict runs the model on every digit.
func predict(model *fnn.Perceptron, digits []mnistcsv.Digit) []prediction {
	preds := make([]prediction, len(digits))
	for ii := range digits {
		outputs := model.Predict(digits[ii].Example().Inputs)
		preds[ii] = prediction{digit: &digits[ii], predicted: metrics.ArgMax(outputs), outputs: outputs}
	}
	return preds
}

// Predictions prints the model's predictions for the digits in dataPath: the first `show` ones in
// detail, and the accuracy over all of them.
func Predictions(model *fnn.Perceptron, dataPath string, show int, imageDir string) {
	if model.NumInputs() != mnistcsv.NumPixels || model.NumOutputs() != mnistcsv.NumClasses {
		klog.Fatalf("the model %s doesn't match MNIST's %d inputs and %d classes",
			model, mnistcsv.NumPixels, mnistcsv.NumClasses)
	}
	digits := must.M1(mnistcsv.Load(dataPath, *flagRows))
	preds := predict(model, digits)

	show = min(show, len(preds))
	if show > 0 {
		fmt.Println(titleStyle.Render("Predictions"))
		table := newTableWithReds()
		table.Table.Headers("#", "Label", "Predicted", "Output")
		for ii, pred := range preds[:show] {
			fmt.Printf("Digit #%d, label %d, predicted %d:\n%s\n", ii, pred.digit.Label, pred.predicted, pred.digit.ASCII())
			table.Row(!pred.correct(), fmt.Sprint(ii), fmt.Sprint(pred.digit.Label), fmt.Sprint(pred.predicted),
				formatFloat(pred.outputs[pred.predicted]))
		}
		fmt.Println(table.Table.Render())
	}
	if imageDir != "" && show > 0 {
		must.M(saveImages(preds[:show], imageDir, *flagScale))
		fmt.Printf("%d digit images saved to %q\n", show, imageDir)
	}

	var numCorrect int
	for _, pred := range preds {
		if pred.correct() {
			numCorrect++
		}
	}
	fmt.Printf("Accuracy over %s digits: %s\n", humanize.Comma(int64(len(preds))),
		metrics.PrettyPrintAccuracy(float64(numCorrect)/float64(max(len(preds), 1))))
}

// saveImages saves each digit as a PNG upscaled by scale, named after its index, label and prediction.
func saveImages(preds []prediction, dir string, scale int) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create image directory %q", dir)
	}
	scale = max(scale, 1)
	for ii, pred := range preds {
		img := imaging.Resize(pred.digit.Image(), mnistcsv.Width*scale, mnistcsv.Height*scale, imaging.NearestNeighbor)
		path := filepath.Join(dir, fmt.Sprintf("digit_%04d_label_%d_predicted_%d.png", ii, pred.digit.Label, pred.predicted))
		if err := imaging.Save(img, path); err != nil {
			return errors.Wrapf(err, "failed to save digit #%d", ii)
		}
	}
	return nil
}
