// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package mnistcsv

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildCSV creates a CSV with one row per label; pixel i of row r has value (i+r)%256.
func buildCSV(labels ...string) string {
	var sb strings.Builder
	sb.WriteString("label")
	for row := range Height {
		for col := range Width {
			fmt.Fprintf(&sb, ",%dx%d", row+1, col+1)
		}
	}
	sb.WriteByte('\n')
	for rowIdx, label := range labels {
		sb.WriteString(label)
		for pixel := range NumPixels {
			fmt.Fprintf(&sb, ",%d", (pixel+rowIdx)%256)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func TestRead(t *testing.T) {
	digits, err := Read(strings.NewReader(buildCSV("7", "0", "9")), 0)
	require.NoError(t, err)
	require.Len(t, digits, 3)
	assert.Equal(t, 7, digits[0].Label)
	assert.Equal(t, 9, digits[2].Label)
	assert.Equal(t, uint8(255), digits[0].Pixels[255])
	assert.Equal(t, uint8(0), digits[1].Pixels[255])

	example := digits[0].Example()
	require.Len(t, example.Inputs, NumPixels)
	require.Len(t, example.Labels, NumClasses)
	assert.Equal(t, 1.0, example.Inputs[255])
	assert.Equal(t, 0.0, example.Inputs[0])
	assert.Equal(t, []float64{0, 0, 0, 0, 0, 0, 0, 1, 0, 0}, example.Labels)
	assert.Len(t, Examples(digits), 3)

	img := digits[0].Image()
	assert.Equal(t, Width, img.Bounds().Dx())
	assert.Equal(t, uint8(255), img.GrayAt(255%Width, 255/Width).Y)

	art := digits[0].ASCII()
	assert.Len(t, strings.Split(strings.TrimSuffix(art, "\n"), "\n"), Height)
	assert.Equal(t, byte('@'), art[255/Width*(Width+1)+255%Width])
}

func TestReadMaxRows(t *testing.T) {
	digits, err := Read(strings.NewReader(buildCSV("1", "2", "3", "4")), 2)
	require.NoError(t, err)
	require.Len(t, digits, 2)
	assert.Equal(t, 2, digits[1].Label)
}

func TestReadErrors(t *testing.T) {
	_, err := Read(strings.NewReader(buildCSV("10")), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid label")

	_, err = Read(strings.NewReader(buildCSV("x")), 0)
	require.Error(t, err)

	_, err = Read(strings.NewReader("label,a,b\n1,2,3\n"), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "columns")

	badPixels := buildCSV("3") + "3" + strings.Repeat(",300", NumPixels) + "\n"
	_, err = Read(strings.NewReader(badPixels), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid pixel")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mnist.csv")
	require.NoError(t, os.WriteFile(path, []byte(buildCSV("5", "6")), 0o644))
	digits, err := Load(path, 0)
	require.NoError(t, err)
	require.Len(t, digits, 2)
	assert.Equal(t, 6, digits[1].Label)

	_, err = Load(filepath.Join(t.TempDir(), "missing.csv"), 0)
	require.Error(t, err)
}
