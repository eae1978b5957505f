// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package plots

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"math"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/scalarnet/pkg/ml/train"
	"github.com/gomlx/scalarnet/ui/notebooks"
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"k8s.io/klog/v2"
)

const (
	// CurvePriority is the priority of the TrainingCurve hooks. It runs after most other hooks, so
	// the points reflect the final metrics of the step.
	CurvePriority train.Priority = 200

	// DefaultWidth and DefaultHeight of the generated plots.
	DefaultWidth  = 8 * vg.Inch
	DefaultHeight = 4 * vg.Inch
)

// TrainingCurve collects the training metrics of a train.Loop as plot Points, and renders them
// as curves: one plot per metric type (loss, accuracy), one line per metric.
type TrainingCurve struct {
	// Points collected so far, in step order.
	Points []Point

	// Width and Height of the generated plots.
	Width, Height vg.Length

	lastStep int
}

// New creates an empty TrainingCurve.
func New() *TrainingCurve {
	return &TrainingCurve{Width: DefaultWidth, Height: DefaultHeight, lastStep: -1}
}

// AttachToLoop collects the trainer metrics on the first step of each run, every `everyN` steps
// after that, and on the last step.
//
// It panics if everyN <= 0.
func (tc *TrainingCurve) AttachToLoop(loop *train.Loop, everyN int) *TrainingCurve {
	if everyN <= 0 {
		exceptions.Panicf("plots.TrainingCurve.AttachToLoop(everyN=%d): everyN must be > 0", everyN)
	}
	loop.OnStep("plots.TrainingCurve", CurvePriority, func(loop *train.Loop, metrics []float64) error {
		if (loop.LoopStep-loop.StartStep)%everyN == 0 {
			tc.Add(loop.Trainer, loop.LoopStep, metrics)
		}
		return nil
	})
	loop.OnEnd("plots.TrainingCurve", CurvePriority, func(loop *train.Loop, metrics []float64) error {
		// LoopStep is already one-past the last step executed.
		tc.Add(loop.Trainer, loop.LoopStep-1, metrics)
		return nil
	})
	return tc
}

// Add records the metrics of the given step. Metric values are matched to
// trainer.TrainMetrics() by position. Non-finite values are skipped, and a step is only
// recorded once.
func (tc *TrainingCurve) Add(trainer *train.Trainer, step int, metrics []float64) {
	if step == tc.lastStep || metrics == nil {
		return
	}
	tc.lastStep = step
	for ii, metric := range trainer.TrainMetrics() {
		if ii >= len(metrics) {
			break
		}
		value := metrics[ii]
		if math.IsNaN(value) || math.IsInf(value, 0) {
			continue
		}
		tc.Points = append(tc.Points, Point{
			MetricName: metric.Name(),
			Short:      metric.ShortName(),
			MetricType: metric.MetricType(),
			Step:       float64(step),
			Value:      value,
		})
	}
}

// MetricTypes returns the metric types collected, sorted.
func (tc *TrainingCurve) MetricTypes() []string {
	var types []string
	for _, pt := range tc.Points {
		if !slices.Contains(types, pt.MetricType) {
			types = append(types, pt.MetricType)
		}
	}
	slices.Sort(types)
	return types
}

// Plot builds the plot of all metrics of the given metricType.
func (tc *TrainingCurve) Plot(metricType string) (*plot.Plot, error) {
	points := NewPoints(tc.Points)
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Training %s", metricType)
	p.X.Label.Text = "Step"
	p.Y.Label.Text = metricType
	p.Add(plotter.NewGrid())
	p.Legend.Top = true

	var count int
	for _, name := range points.MetricsNames() {
		var xys plotter.XYs
		points.Map(func(pt *Point) {
			if pt.MetricName == name && pt.MetricType == metricType {
				xys = append(xys, plotter.XY{X: pt.Step, Y: pt.Value})
			}
		})
		if len(xys) == 0 {
			continue
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to create line for metric %q", name)
		}
		line.Color = plotutil.Color(count)
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(name, line)
		count++
	}
	if count == 0 {
		return nil, errors.Errorf("no points collected for metric type %q", metricType)
	}
	return p, nil
}

// Save writes one plot per metric type: the metric type is appended to the base name of
// filePath, e.g. "curve.png" becomes "curve_loss.png" and "curve_accuracy.png". The format is
// taken from the extension (png, svg, pdf, ...). It returns the paths of the files written.
func (tc *TrainingCurve) Save(filePath string) ([]string, error) {
	ext := filepath.Ext(filePath)
	if ext == "" {
		ext = ".png"
	}
	base := strings.TrimSuffix(filePath, filepath.Ext(filePath))
	var written []string
	for _, metricType := range tc.MetricTypes() {
		p, err := tc.Plot(metricType)
		if err != nil {
			return written, err
		}
		path := fmt.Sprintf("%s_%s%s", base, metricType, ext)
		if err = p.Save(tc.Width, tc.Height, path); err != nil {
			return written, errors.Wrapf(err, "failed to save plot to %q", path)
		}
		klog.V(1).Infof("plot of %s saved to %q", metricType, path)
		written = append(written, path)
	}
	return written, nil
}

// HTML renders all plots as PNG, embedded in <img> tags.
func (tc *TrainingCurve) HTML() (string, error) {
	var html strings.Builder
	for _, metricType := range tc.MetricTypes() {
		p, err := tc.Plot(metricType)
		if err != nil {
			return "", err
		}
		writerTo, err := p.WriterTo(tc.Width, tc.Height, "png")
		if err != nil {
			return "", errors.Wrapf(err, "failed to render plot of %s", metricType)
		}
		var buf bytes.Buffer
		if _, err = writerTo.WriteTo(&buf); err != nil {
			return "", errors.Wrapf(err, "failed to render plot of %s", metricType)
		}
		_, _ = fmt.Fprintf(&html, `<img src="data:image/png;base64,%s" alt="training %s"/>`,
			base64.StdEncoding.EncodeToString(buf.Bytes()), metricType)
	}
	return html.String(), nil
}

// Display the plots in the notebook, if running in GoNB. It is a no-op otherwise.
func (tc *TrainingCurve) Display() error {
	if !notebooks.IsGoNB() || len(tc.Points) == 0 {
		return nil
	}
	html, err := tc.HTML()
	if err != nil {
		return err
	}
	notebooks.DisplayHTML(html)
	return nil
}
