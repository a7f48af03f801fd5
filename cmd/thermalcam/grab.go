// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"image"
	"image/png"
	"os"

	"github.com/maruel/go-mlx90640/mlx90640test"
	"github.com/maruel/go-mlx90640/thermal"
	"github.com/spf13/cobra"
)

var grabRaw bool

var grabCmd = &cobra.Command{
	Use:   "grab <out.png>",
	Short: "Capture a single screen as a PNG",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		corrector, err := cfg.Corrector()
		if err != nil {
			return err
		}
		sensor := mlx90640test.New(cfg.Rate())
		sensor.Defects = cfg.Defects
		p, err := thermal.New(sensor, &thermal.Opts{
			Corrector:  corrector,
			Emissivity: cfg.Emissivity,
			TAShift:    cfg.TAShift,
			Logger:     logger,
		})
		if err != nil {
			return err
		}
		res, err := p.Cycle(cmd.Context())
		if err != nil {
			return err
		}
		var img image.Image = res.Colors
		if !grabRaw {
			layout := cfg.Layout()
			screen := layout.NewScreen()
			layout.Draw(screen, res.Colors, &res.Readout)
			img = screen
		}
		f, err := os.Create(args[0])
		if err != nil {
			return err
		}
		if err := png.Encode(f, img); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		e := json.NewEncoder(cmd.OutOrStdout())
		e.SetIndent("", "  ")
		return e.Encode(&res.Readout)
	},
}

func init() {
	grabCmd.Flags().BoolVar(&grabRaw, "raw", false, "write the 63x47 color grid instead of the whole screen")
}
