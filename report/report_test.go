// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package report

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/maruel/go-mlx90640/store"
	"github.com/maruel/go-mlx90640/thermal"
	"github.com/stretchr/testify/require"
)

func TestChart(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, Chart(buf, testRecords()))
	out := buf.String()
	require.Contains(t, out, "Thermography history")
	require.Contains(t, out, "T center")
	require.Contains(t, out, "10:00:02")
}

func TestChart_empty(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, Chart(buf, nil))
	require.Contains(t, buf.String(), "no readout")
}

func TestPlot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.png")
	require.NoError(t, Plot(path, testRecords()))
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	require.Greater(t, img.Bounds().Dx(), img.Bounds().Dy())
}

func TestWritePNG(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, WritePNG(buf, testRecords()))
	_, err := png.DecodeConfig(buf)
	require.NoError(t, err)
}

func TestPlot_empty(t *testing.T) {
	require.ErrorIs(t, Plot(filepath.Join(t.TempDir(), "x.png"), nil), ErrEmpty)
	require.ErrorIs(t, WritePNG(&bytes.Buffer{}, nil), ErrEmpty)
}

//

func testRecords() []store.Record {
	start := time.Date(2026, 5, 6, 10, 0, 0, 0, time.UTC)
	out := make([]store.Record, 5)
	for i := range out {
		out[i] = store.Record{
			Session: "s",
			Readout: thermal.Readout{
				Seq:    i + 1,
				Time:   start.Add(time.Duration(i) * time.Second),
				Min:    20 + float32(i)/10,
				Max:    35 - float32(i),
				Center: 28,
				Vdd:    3.3,
			},
		}
	}
	return out
}
