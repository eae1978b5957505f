// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gomlx/scalarnet/pkg/ml/checkpoints"
	"github.com/gomlx/scalarnet/pkg/ml/datasets"
	"github.com/gomlx/scalarnet/pkg/ml/datasets/mnistcsv"
	"github.com/gomlx/scalarnet/pkg/ml/initializer"
	"github.com/gomlx/scalarnet/pkg/ml/layers/fnn"
	"github.com/gomlx/scalarnet/pkg/ml/random"
	"github.com/gomlx/scalarnet/pkg/ml/train"
	"github.com/gomlx/scalarnet/pkg/ml/train/losses"
	"github.com/gomlx/scalarnet/pkg/ml/train/metrics"
	"github.com/gomlx/scalarnet/pkg/ml/train/optimizers"
	"github.com/gomlx/scalarnet/ui/commandline"
	"github.com/gomlx/scalarnet/ui/plots"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// task is what is being learned: the examples, and how to measure accuracy over them.
type task struct {
	name          string
	examples      []datasets.Example
	defaultLayers string
	accuracyFn    train.AccuracyFn
}

func xorTask() *task {
	return &task{
		name: "xor",
		examples: []datasets.Example{
			{Inputs: []float64{0, 0}, Labels: []float64{-1}},
			{Inputs: []float64{0, 1}, Labels: []float64{1}},
			{Inputs: []float64{1, 0}, Labels: []float64{1}},
			{Inputs: []float64{1, 1}, Labels: []float64{-1}},
		},
		defaultLayers: "4,1",
		accuracyFn:    metrics.ThresholdMatches(0),
	}
}

func mnistTask(path string, maxRows int) (*task, error) {
	digits, err := mnistcsv.Load(path, maxRows)
	if err != nil {
		return nil, err
	}
	return &task{
		name:          filepath.Base(path),
		examples:      mnistcsv.Examples(digits),
		defaultLayers: "50,10",
		accuracyFn:    metrics.ArgMaxMatchesOneHot,
	}, nil
}

// trainModel builds, trains and evaluates the model configured by the flags.
func trainModel() error {
	var t *task
	if *flagData == "" {
		t = xorTask()
	} else {
		var err error
		t, err = mnistTask(*flagData, *flagRows)
		if err != nil {
			return err
		}
	}
	if len(t.examples) == 0 {
		return errors.Errorf("no examples to train on in %q", t.name)
	}
	numInputs, numLabels := len(t.examples[0].Inputs), len(t.examples[0].Labels)
	if err := datasets.Validate(t.examples, numInputs, numLabels); err != nil {
		return err
	}

	// Model.
	layersList := *flagLayers
	if layersList == "" {
		layersList = t.defaultLayers
	}
	layerSizes, err := fnn.ParseLayerSizes(layersList)
	if err != nil {
		return err
	}
	if layerSizes[len(layerSizes)-1] != numLabels {
		return errors.Errorf("the last layer has %d neurons, but %q examples have %d labels",
			layerSizes[len(layerSizes)-1], t.name, numLabels)
	}
	rng := random.New(*flagSeed)
	initFn, err := initializer.FromName(*flagInit, rng)
	if err != nil {
		return err
	}
	model := fnn.New(numInputs, layerSizes, initFn)
	if *flagLoad != "" {
		if err = checkpoints.LoadFile(*flagLoad, model.Parameters()); err != nil {
			return err
		}
		klog.Infof("loaded %d parameters from %q", model.NumParameters(), *flagLoad)
	}
	klog.V(1).Infof("model: %s", model)

	// Trainer and loop.
	scheduleSteps := *flagScheduleSteps
	if scheduleSteps <= 0 {
		scheduleSteps = *flagSteps
	}
	learningRate, err := optimizers.FromName(*flagSchedule, *flagLearningRate, scheduleSteps)
	if err != nil {
		return err
	}
	trainer := train.NewTrainer(model, losses.SumSquaredError, t.accuracyFn,
		optimizers.GradientDescent{LearningRate: learningRate})
	var ds datasets.Dataset
	if *flagBatch > 0 {
		ds = datasets.NewRandomSamplerWithRNG(t.name, t.examples, *flagBatch, rng.Split())
	} else {
		ds = datasets.FullBatch(t.name, t.examples)
	}
	loop := train.NewLoop(trainer)
	commandline.AttachProgressBar(loop)
	if *flagSave != "" {
		checkpoints.New(*flagSave, model.Parameters()).AttachTo(loop, *flagSaveEvery)
	}
	var curve *plots.TrainingCurve
	if *flagPlot != "" {
		curve = plots.New().AttachToLoop(loop, max(*flagPlotEvery, 1))
	}

	// Train.
	if *flagSteps > 0 {
		_, err = loop.RunSteps(ds, *flagSteps)
	} else {
		fmt.Println("Training, press Enter to stop.")
		ctx, cancel := commandline.StopOnEnter(context.Background(), os.Stdin)
		defer cancel()
		_, err = loop.RunUntil(ctx, ds)
	}
	if err != nil {
		return err
	}

	if curve != nil {
		if err = saveCurve(curve, *flagPlot); err != nil {
			return err
		}
		if err = curve.Display(); err != nil {
			return err
		}
	}
	return commandline.ReportEval(os.Stdout, trainer,
		commandline.NamedExamples{Name: t.name, Examples: t.examples})
}

// saveCurve saves the plots and the points used to draw them.
func saveCurve(curve *plots.TrainingCurve, path string) error {
	written, err := curve.Save(path)
	if err != nil {
		return err
	}
	pointsPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".json"
	if err = plots.SavePoints(pointsPath, curve.Points); err != nil {
		return err
	}
	fmt.Printf("Training curves saved to %s and %s\n", strings.Join(written, ", "), pointsPath)
	return nil
}
