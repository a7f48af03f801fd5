// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/maruel/go-mlx90640/mlx90640"
	"github.com/maruel/go-mlx90640/thermal"
	"github.com/stretchr/testify/require"
)

func TestLoad_create(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "thermalcam.json")
	c, err := Load(path, discard())
	require.NoError(t, err)
	require.Equal(t, Default(), c)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"refresh_rate": "16Hz"`)
	require.Contains(t, string(data), `"row": 1,`)
}

func TestLoad_normalize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thermalcam.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"defects":[{"row":5,"col":6}],"port":9000}`), 0o600))
	c, err := Load(path, discard())
	require.NoError(t, err)
	require.Equal(t, []thermal.Defect{{Row: 5, Col: 6}}, c.Defects)
	require.Equal(t, 9000, c.Port)
	require.Equal(t, thermal.DefaultBounds, c.Valid)

	// Rewritten with all the fields, and stable.
	first, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(first), `"emissivity": 0.95`)
	_, err = Load(path, discard())
	require.NoError(t, err)
	second, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, string(first), string(second))
}

func TestLoad_invalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{`), 0o600))
	_, err := Load(path, discard())
	require.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`{"refresh_rate":"3Hz"}`), 0o600))
	_, err = Load(path, discard())
	require.ErrorIs(t, err, ErrInvalid)
}

func TestValidate(t *testing.T) {
	data := []func(c *Config){
		func(c *Config) { c.Defects = append(c.Defects, thermal.Defect{Row: thermal.Height, Col: 0}) },
		func(c *Config) { c.Valid = thermal.Bounds{Lo: 10, Hi: -10} },
		func(c *Config) { c.Center = thermal.Point{Row: -1} },
		func(c *Config) { c.RefreshRate = "fast" },
		func(c *Config) { c.Emissivity = 0 },
		func(c *Config) { c.PixelSize = 0 },
		func(c *Config) { c.Port = 70000 },
		func(c *Config) { c.SerialOp.Parity = "space" },
	}
	for i, f := range data {
		c := Default()
		f(c)
		require.ErrorIs(t, c.Validate(), ErrInvalid, "#%d", i)
	}
	require.NoError(t, Default().Validate())
}

func TestConfig_helpers(t *testing.T) {
	c := Default()
	c.RefreshRate = "4Hz"
	c.PixelSize = 2
	c.Mirror = false
	require.Equal(t, mlx90640.RefreshRate4Hz, c.Rate())
	l := c.Layout()
	require.Equal(t, 2, l.PixelSize)
	require.False(t, l.Mirror)
	_, err := c.Corrector()
	require.NoError(t, err)
	c.RefreshRate = "bogus"
	require.Equal(t, mlx90640.RefreshRate16Hz, c.Rate())
}

func TestDefaultPath(t *testing.T) {
	p, err := DefaultPath()
	require.NoError(t, err)
	require.Equal(t, "thermalcam.json", filepath.Base(p))
}

//

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
