// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"time"

	"github.com/maruel/go-mlx90640/mlx90640test"
	"github.com/maruel/go-mlx90640/serialout"
	"github.com/maruel/go-mlx90640/store"
	"github.com/maruel/go-mlx90640/thermal"
	"github.com/maruel/interrupt"
	"github.com/spf13/cobra"
)

var (
	recordEvery int
	noWatch     bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the camera and serve the live screen over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().IntVar(&recordEvery, "record-every", 8, "store one readout every N frames; 0 disables")
	serveCmd.Flags().BoolVar(&noWatch, "no-watch", false, "do not exit when the executable is replaced")
}

func serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	interrupt.HandleCtrlC()
	go func() {
		<-ctx.Done()
		interrupt.Set()
	}()

	st, err := store.Open(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer st.Close()
	session := store.NewSession()

	var out *serialout.Writer
	if cfg.Serial != "" {
		if out, err = serialout.Open(cfg.Serial, cfg.SerialOp); err != nil {
			return err
		}
		defer out.Close()
	}

	corrector, err := cfg.Corrector()
	if err != nil {
		return err
	}
	// TODO(maruel): use mlx90640.Dev once per pixel object temperature
	// compensation is implemented.
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

	ws := newWebServer(st, logger)
	if _, err := ws.Start(cfg.Port); err != nil {
		return err
	}
	if !noWatch {
		go func() {
			if err := watchFile(ctx); err != nil {
				logger.Error("watch", "err", err)
			}
			logger.Info("executable changed, exiting")
			cancel()
		}()
	}

	logger.Info("serving", "session", session, "rate", cfg.Rate(), "port", cfg.Port)
	layout := cfg.Layout()
	screen := layout.NewScreen()
	lastStats := time.Now()
	for {
		res, err := p.Cycle(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				break
			}
			return err
		}
		layout.Draw(screen, res.Colors, &res.Readout)
		if err := ws.AddFrame(screen, res.Readout); err != nil {
			return err
		}
		if recordEvery > 0 && res.Readout.Seq%recordEvery == 0 {
			if err := st.Insert(ctx, session, &res.Readout); err != nil && ctx.Err() == nil {
				logger.Warn("store", "err", err)
			}
		}
		if out != nil {
			if err := out.Write(&res.Readout); err != nil {
				logger.Warn("serial", "err", err)
			}
		}
		if time.Since(lastStats) >= 10*time.Second {
			lastStats = time.Now()
			s := p.Stats()
			logger.Info("stats", "frames", s.Cycles, "subpages", s.GoodSubPages, "fails", s.TransferFails, "repaired", s.Repaired)
		}
	}
	s := p.Stats()
	logger.Info("done", "frames", s.Cycles, "fails", s.TransferFails)
	return nil
}
