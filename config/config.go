// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package config loads the camera configuration.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/maruel/go-mlx90640/mlx90640"
	"github.com/maruel/go-mlx90640/render"
	"github.com/maruel/go-mlx90640/serialout"
	"github.com/maruel/go-mlx90640/thermal"
)

// ErrInvalid is wrapped by all Validate errors.
var ErrInvalid = errors.New("invalid config")

// Config is the content of the configuration file.
type Config struct {
	// Sensor unit.
	Defects []thermal.Defect `json:"defects"`
	Valid   thermal.Bounds   `json:"valid"`
	Center  thermal.Point    `json:"center"`

	// Acquisition.
	Emissivity  float64 `json:"emissivity"`
	TAShift     float64 `json:"ta_shift"`
	RefreshRate string  `json:"refresh_rate"`

	// Screen.
	PixelSize int  `json:"pixel_size"`
	Mirror    bool `json:"mirror"`

	// Outputs.
	Port     int               `json:"port"`
	Database string            `json:"database"`
	Serial   string            `json:"serial"`
	SerialOp serialout.Options `json:"serial_options"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Defects:     append([]thermal.Defect(nil), thermal.DefaultDefects...),
		Valid:       thermal.DefaultBounds,
		Center:      thermal.DefaultCenter,
		Emissivity:  thermal.DefaultEmissivity,
		TAShift:     thermal.DefaultTAShift,
		RefreshRate: mlx90640.RefreshRate16Hz.String(),
		PixelSize:   render.DefaultLayout.PixelSize,
		Mirror:      render.DefaultLayout.Mirror,
		Port:        8010,
		Database:    "thermalcam.db",
	}
}

// DefaultPath returns ~/.config/mlx90640/thermalcam.json.
func DefaultPath() (string, error) {
	dir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ".config", "mlx90640", "thermalcam.json"), nil
}

// Validate returns an error wrapping ErrInvalid if c cannot be used.
func (c *Config) Validate() error {
	if _, err := thermal.NewCorrector(c.Defects, c.Valid, c.Center); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if _, err := mlx90640.ParseRefreshRate(c.RefreshRate); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if c.Emissivity <= 0 || c.Emissivity > 1 {
		return fmt.Errorf("%w: emissivity %g must be in (0, 1]", ErrInvalid, c.Emissivity)
	}
	if c.PixelSize <= 0 {
		return fmt.Errorf("%w: pixel size %d", ErrInvalid, c.PixelSize)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d", ErrInvalid, c.Port)
	}
	if _, err := c.SerialOp.Normalize(); err != nil {
		return fmt.Errorf("%w: serial: %w", ErrInvalid, err)
	}
	return nil
}

// Corrector returns the Corrector for the configured sensor unit.
func (c *Config) Corrector() (*thermal.Corrector, error) {
	return thermal.NewCorrector(c.Defects, c.Valid, c.Center)
}

// Rate returns the parsed refresh rate.
func (c *Config) Rate() mlx90640.RefreshRate {
	r, err := mlx90640.ParseRefreshRate(c.RefreshRate)
	if err != nil {
		return mlx90640.RefreshRate16Hz
	}
	return r
}

// Layout returns the screen layout.
func (c *Config) Layout() render.Layout {
	l := render.DefaultLayout
	l.PixelSize = c.PixelSize
	l.Mirror = c.Mirror
	l.Center = c.Center
	return l
}

// Load loads path or creates it with the defaults if it does not exist.
//
// The file is normalized: it is rewritten when its content differs from what
// would be written, so new fields show up with their default value.
func Load(path string, logger *slog.Logger) (*Config, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := Default()
	srcData, err := os.ReadFile(path)
	if err == nil {
		if err := json.Unmarshal(srcData, c); err != nil {
			return nil, fmt.Errorf("%s is invalid json: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	// Normalizes the config file.
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, err
	}
	data = append(data, '\n')
	if !bytes.Equal(srcData, data) {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			logger.Warn("failed to create config dir", "path", path, "err", err)
		} else if err := os.WriteFile(path, data, 0o600); err != nil {
			logger.Warn("failed to write config", "path", path, "err", err)
		} else {
			logger.Info("wrote config", "path", path)
		}
	}
	return c, nil
}
