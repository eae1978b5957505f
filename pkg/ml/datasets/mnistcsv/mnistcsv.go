// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package mnistcsv loads the MNIST handwritten digits from the popular CSV rendition: one header
// line, then one row per image with the label (0-9) followed by 28x28=784 pixel intensities
// (0-255), row-major.
package mnistcsv

import (
	"bufio"
	"bytes"
	"image"
	"io"
	"math"
	"os"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/gomlx/scalarnet/pkg/ml/datasets"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

const (
	// Width and Height of the images.
	Width, Height = 28, 28

	// NumPixels per image, the number of inputs of a model.
	NumPixels = Width * Height

	// NumClasses is the number of digits, the number of outputs of a model.
	NumClasses = 10
)

// Digit is one parsed row: the label and the raw pixel intensities.
type Digit struct {
	Label  int
	Pixels [NumPixels]uint8
}

// Example converts the Digit to a training example: pixels normalized to [0, 1] and a one-hot
// label vector.
func (d *Digit) Example() datasets.Example {
	example := datasets.Example{
		Inputs: make([]float64, NumPixels),
		Labels: make([]float64, NumClasses),
	}
	for ii, pixel := range d.Pixels {
		example.Inputs[ii] = float64(pixel) / 255.0
	}
	example.Labels[d.Label] = 1
	return example
}

// Image returns the digit as a grayscale image.
func (d *Digit) Image() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, Width, Height))
	copy(img.Pix, d.Pixels[:])
	return img
}

// asciiRamp maps intensities to characters, from blank to darkest.
const asciiRamp = " .:-=+*#%@"

// ASCII renders the digit as Height lines of Width characters.
func (d *Digit) ASCII() string {
	var sb strings.Builder
	for row := range Height {
		for col := range Width {
			pixel := int(d.Pixels[row*Width+col])
			sb.WriteByte(asciiRamp[pixel*(len(asciiRamp)-1)/255])
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Examples converts digits to training examples.
func Examples(digits []Digit) []datasets.Example {
	examples := make([]datasets.Example, len(digits))
	for ii := range digits {
		examples[ii] = digits[ii].Example()
	}
	return examples
}

// Load reads up to maxRows digits from the CSV file at path. If maxRows <= 0 all rows are read.
func Load(path string, maxRows int) ([]Digit, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open MNIST CSV file %q", path)
	}
	defer func() { _ = f.Close() }()
	digits, err := Read(f, maxRows)
	if err != nil {
		return nil, errors.WithMessagef(err, "while reading %q", path)
	}
	klog.V(1).Infof("loaded %d digits from %q", len(digits), path)
	return digits, nil
}

// Read parses up to maxRows digits (all if maxRows <= 0) from r.
//
// Malformed input (wrong number of columns, labels outside 0-9, pixels outside 0-255 or not
// integers) returns an error.
func Read(r io.Reader, maxRows int) ([]Digit, error) {
	if maxRows > 0 {
		limited, err := headLines(r, maxRows+1)
		if err != nil {
			return nil, err
		}
		r = limited
	}
	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.Float))
	if df.Err != nil {
		return nil, errors.Wrap(df.Err, "failed to parse MNIST CSV")
	}
	if df.Ncol() != NumPixels+1 {
		return nil, errors.Errorf("MNIST CSV must have %d columns (label + %d pixels), got %d",
			NumPixels+1, NumPixels, df.Ncol())
	}

	numRows := df.Nrow()
	digits := make([]Digit, numRows)
	columns := make([][]float64, df.Ncol())
	for col, name := range df.Names() {
		columns[col] = df.Col(name).Float()
	}
	for row := range numRows {
		label, err := toInt(columns[0][row], NumClasses-1)
		if err != nil {
			return nil, errors.WithMessagef(err, "row %d: invalid label", row+1)
		}
		digits[row].Label = label
		for pixel := range NumPixels {
			value, err := toInt(columns[pixel+1][row], 255)
			if err != nil {
				return nil, errors.WithMessagef(err, "row %d: invalid pixel #%d", row+1, pixel)
			}
			digits[row].Pixels[pixel] = uint8(value)
		}
	}
	return digits, nil
}

// toInt checks that value is an integer in [0, maxValue].
func toInt(value float64, maxValue int) (int, error) {
	if math.IsNaN(value) || value != math.Trunc(value) || value < 0 || value > float64(maxValue) {
		return 0, errors.Errorf("value %v is not an integer in [0, %d]", value, maxValue)
	}
	return int(value), nil
}

// headLines returns a reader with only the first n lines of r.
func headLines(r io.Reader, n int) (io.Reader, error) {
	var buf bytes.Buffer
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for count := 0; count < n && scanner.Scan(); count++ {
		buf.Write(scanner.Bytes())
		buf.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read MNIST CSV")
	}
	return &buf, nil
}
