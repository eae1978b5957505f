// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package checkpoints saves and loads model parameters.
//
// The format is the raw parameter values, in the order given (see fnn.Perceptron.Parameters),
// each one an 8 bytes little-endian IEEE-754 float64. There is no header: the structure of the
// model must be known to load it, and a file whose size doesn't match exactly is rejected.
//
// Example: save the model every 100 steps and at the end of training.
//
//	checkpoints.New(*flagSave, model.Parameters()).AttachTo(loop, 100)
package checkpoints

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/scalarnet/pkg/core/graph"
	"github.com/gomlx/scalarnet/pkg/ml/train"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// BytesPerParameter in the serialized format.
const BytesPerParameter = 8

// FilePermMode is the permission of saved files.
const FilePermMode = 0o644

// ErrSizeMismatch is returned (wrapped) by Load when the data doesn't have exactly one value per
// parameter.
var ErrSizeMismatch = errors.New("checkpoint size doesn't match the number of parameters")

// Save writes the values of params to w.
func Save(w io.Writer, params []*graph.Variable) error {
	buf := make([]byte, BytesPerParameter*len(params))
	for ii, param := range params {
		binary.LittleEndian.PutUint64(buf[ii*BytesPerParameter:], math.Float64bits(param.Value()))
	}
	n, err := w.Write(buf)
	if err != nil {
		return errors.Wrapf(err, "failed to write %d parameters", len(params))
	}
	if n != len(buf) {
		return errors.Errorf("failed to write parameters: %d bytes requested, %d bytes written", len(buf), n)
	}
	return nil
}

// Load reads the values of params from r, which must hold exactly one value per parameter.
//
// Parameters are only changed if the whole data is read successfully.
func Load(r io.Reader, params []*graph.Variable) error {
	want := BytesPerParameter * len(params)
	data, err := io.ReadAll(io.LimitReader(r, int64(want)+1))
	if err != nil {
		return errors.Wrapf(err, "failed to read %d parameters", len(params))
	}
	if len(data) != want {
		if len(data) > want {
			return errors.Wrapf(ErrSizeMismatch, "expected %d bytes for %d parameters, got more", want, len(params))
		}
		return errors.Wrapf(ErrSizeMismatch, "expected %d bytes for %d parameters, got %d bytes",
			want, len(params), len(data))
	}
	for ii, param := range params {
		param.SetValue(math.Float64frombits(binary.LittleEndian.Uint64(data[ii*BytesPerParameter:])))
	}
	return nil
}

// SaveFile saves params to the file at path. It writes to a temporary file in the same directory
// first and then renames it, so path always holds a complete checkpoint.
func SaveFile(path string, params []*graph.Variable) (err error) {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Wrapf(err, "failed to create temporary file to save %q", path)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		if err != nil {
			_ = tmpFile.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	w := bufio.NewWriter(tmpFile)
	if err = Save(w, params); err != nil {
		return errors.WithMessagef(err, "saving %q", path)
	}
	if err = w.Flush(); err != nil {
		return errors.Wrapf(err, "failed to flush %q", tmpPath)
	}
	if err = tmpFile.Close(); err != nil {
		return errors.Wrapf(err, "failed to close %q", tmpPath)
	}
	if err = os.Chmod(tmpPath, FilePermMode); err != nil {
		return errors.Wrapf(err, "failed to set permissions of %q", tmpPath)
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return errors.Wrapf(err, "failed to rename %q to %q", tmpPath, path)
	}
	if klog.V(1).Enabled() {
		klog.Infof("saved %s parameters (%s) to %q", humanize.Comma(int64(len(params))),
			humanize.Bytes(uint64(BytesPerParameter*len(params))), path)
	}
	return nil
}

// LoadFile loads params from the file at path.
func LoadFile(path string, params []*graph.Variable) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "failed to open checkpoint %q", path)
	}
	defer func() { _ = f.Close() }()
	if err = Load(bufio.NewReader(f), params); err != nil {
		return errors.WithMessagef(err, "loading %q", path)
	}
	klog.V(1).Infof("loaded %d parameters from %q", len(params), path)
	return nil
}

// NumParametersInFile returns how many parameters the file at path holds, based on its size.
func NumParametersInFile(path string) (int, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to stat checkpoint %q", path)
	}
	if info.Size()%BytesPerParameter != 0 {
		return 0, errors.Wrapf(ErrSizeMismatch, "file %q has %d bytes, not a multiple of %d",
			path, info.Size(), BytesPerParameter)
	}
	return int(info.Size() / BytesPerParameter), nil
}

// Handler saves a fixed set of parameters to a file, and can be attached to a train.Loop.
type Handler struct {
	path   string
	params []*graph.Variable
	saves  int
}

// New creates a Handler that saves params to path.
func New(path string, params []*graph.Variable) *Handler {
	return &Handler{path: path, params: params}
}

// String implements fmt.Stringer.
func (h *Handler) String() string {
	return fmt.Sprintf("checkpoints.Handler(%q, %d parameters)", h.path, len(h.params))
}

// Path of the checkpoint file.
func (h *Handler) Path() string { return h.path }

// NumSaves returns how many times the Handler saved the parameters.
func (h *Handler) NumSaves() int { return h.saves }

// Save the parameters.
func (h *Handler) Save() error {
	if h == nil {
		return nil
	}
	if err := SaveFile(h.path, h.params); err != nil {
		return err
	}
	h.saves++
	return nil
}

// Load the parameters from the checkpoint file.
func (h *Handler) Load() error {
	return LoadFile(h.path, h.params)
}

// OnStepFn implements `train.OnStepFn`, and make it convenient to attach to a training loop.
// It simply calls save.
func (h *Handler) OnStepFn(_ *train.Loop, _ []float64) error {
	return h.Save()
}

// AttachTo saves the parameters every everyN steps of loop (if everyN > 0), and at the end of
// every run.
func (h *Handler) AttachTo(loop *train.Loop, everyN int) {
	if everyN > 0 {
		train.EveryNSteps(loop, everyN, "checkpoints", 100, h.OnStepFn)
	}
	loop.OnEnd("checkpoints", 100, func(_ *train.Loop, _ []float64) error {
		return h.Save()
	})
}
