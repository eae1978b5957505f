// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package commandline contains convenience UI training tools for the command line.
package commandline

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/gomlx/scalarnet/pkg/ml/datasets"
	"github.com/gomlx/scalarnet/pkg/ml/train"
	"github.com/gomlx/scalarnet/pkg/ml/train/metrics"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// ErrStopRequested is the cause of the context cancelled by StopOnEnter.
var ErrStopRequested = errors.New("stop requested by the user")

// StopOnEnter returns a context that is cancelled (with cause ErrStopRequested) as soon as a
// line is read from r, typically os.Stdin. It is also cancelled if r reaches the end or fails.
//
// Calling the returned cancel function, or the cancellation of the parent ctx, stops watching r.
// A read already blocked on r can't be interrupted though: it only returns when r has input, or
// reaches the end, and its result is then discarded.
//
// Use it with train.Loop.RunUntil to train until the user presses Enter.
func StopOnEnter(ctx context.Context, r io.Reader) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(ctx)
	lineRead := make(chan error, 1)
	go func() {
		_, err := bufio.NewReader(r).ReadString('\n')
		lineRead <- err
	}()
	go func() {
		select {
		case err := <-lineRead:
			if err != nil && !errors.Is(err, io.EOF) {
				klog.Warningf("StopOnEnter: failed reading input: %v", err)
			}
			cancel(ErrStopRequested)
		case <-ctx.Done():
		}
	}()
	return ctx, func() { cancel(context.Canceled) }
}

// ReportEval reports on the command line, as a table, the loss and accuracy of the trainer's
// model over each of the named example sets.
func ReportEval(w io.Writer, trainer *train.Trainer, named ...NamedExamples) error {
	table := newPlainTable(true)
	table.Headers("Dataset", "Examples", "Loss", "Accuracy")
	for _, ds := range named {
		loss, accuracy, err := trainer.Evaluate(ds.Examples)
		if err != nil {
			return errors.WithMessagef(err, "evaluating %q", ds.Name)
		}
		table.Row(ds.Name, humanizeCount(len(ds.Examples)), fmt.Sprintf("%.4g", loss),
			metrics.PrettyPrintAccuracy(accuracy))
	}
	_, err := fmt.Fprintln(w, table.Render())
	return err
}

// NamedExamples is a set of examples with a name, for reporting.
type NamedExamples struct {
	Name     string
	Examples []datasets.Example
}
