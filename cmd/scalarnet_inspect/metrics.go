// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"flag"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/scalarnet/pkg/ml/train/metrics"
	"github.com/gomlx/scalarnet/ui/plots"
	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"
)

var (
	flagMetrics      = flag.String("metrics", "", "JSON file with the training curve points saved by 'scalarnet -plot', to list as a table.")
	flagMetricsNames = flag.String("metrics_names", "", "Regular expression that if matches the name or short name, the metric is included.")
	flagMetricsTypes = flag.String("metrics_types", "", "Comma-separate list of metric types to include in the metrics report.")
)

// Metrics prints the training metrics points saved in pointsPath, one row per step.
func Metrics(pointsPath string) {
	rawPoints := must.M1(plots.LoadPoints(pointsPath))
	if len(rawPoints) == 0 {
		klog.Errorf("No metrics found in %q", pointsPath)
		return
	}
	rows, names := metricsRows(plots.NewPoints(rawPoints), *flagMetricsNames, *flagMetricsTypes)
	fmt.Println(titleStyle.Render("Metrics"))
	table := newPlainTable(lipgloss.Right)
	table.Headers(append([]string{"Step"}, names...)...)
	for _, row := range rows {
		table.Row(row...)
	}
	fmt.Println(table.Render())
}

// metricsRows selects the metrics matching namesRegexp (if not empty) or one of the
// comma-separated types (if not empty), and returns one row per step, and the short names of
// the selected metrics.
func metricsRows(points plots.Points, namesRegexp, types string) (rows [][]string, names []string) {
	var matcher *regexp.Regexp
	if namesRegexp != "" {
		var err error
		matcher, err = regexp.Compile(namesRegexp)
		if err != nil {
			klog.Fatalf("Failed to compile -metrics_names=%q matcher: %v", namesRegexp, err)
		}
	}
	var selectedTypes []string
	if types != "" {
		selectedTypes = strings.Split(types, ",")
	}
	selected := func(p *plots.Point) bool {
		if matcher == nil && selectedTypes == nil {
			return true
		}
		if matcher != nil && (matcher.MatchString(p.MetricName) || matcher.MatchString(p.Short)) {
			return true
		}
		return slices.Contains(selectedTypes, p.MetricType)
	}

	points.Map(func(p *plots.Point) {
		if selected(p) && !slices.Contains(names, p.Short) {
			names = append(names, p.Short)
		}
	})
	slices.Sort(names)

	var currentRow []string
	currentStep := -1.0
	points.Map(func(p *plots.Point) {
		if p.Step != currentStep || currentRow == nil {
			if currentRow != nil {
				rows = append(rows, currentRow)
			}
			currentStep = p.Step
			currentRow = make([]string, 1+len(names))
			currentRow[0] = humanize.Comma(int64(p.Step))
		}
		idx := slices.Index(names, p.Short)
		if idx < 0 || !selected(p) {
			return
		}
		if p.MetricType == metrics.AccuracyMetricType {
			currentRow[idx+1] = metrics.PrettyPrintAccuracy(p.Value)
		} else {
			currentRow[idx+1] = fmt.Sprintf("%f", p.Value)
		}
	})
	if currentRow != nil {
		rows = append(rows, currentRow)
	}
	return
}
