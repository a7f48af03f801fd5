// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// thermalcam turns a MLX90640 into a thermal camera.
//
// MLX90640 Datasheet:
//
//	https://www.melexis.com/en/documents/documentation/datasheets/datasheet-mlx90640
//
// Connecting to a Raspberry Pi: SDA on GPIO2, SCL on GPIO3, 3.3V. Raise the
// I²C bus speed to 1MHz in /boot/config.txt to reach 16Hz:
//
//	dtparam=i2c_arm=on,i2c_arm_baudrate=1000000
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lmittmann/tint"
	"github.com/maruel/go-mlx90640/config"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool

	// cfg is loaded before any subcommand runs.
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "thermalcam",
	Short:         "MLX90640 thermal camera",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: level, TimeFormat: "15:04:05.000"}))
		slog.SetDefault(logger)
		if configPath == "" {
			var err error
			if configPath, err = config.DefaultPath(); err != nil {
				return err
			}
		}
		var err error
		cfg, err = config.Load(configPath, logger)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "configuration file (default: ~/.config/mlx90640/thermalcam.json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose mode")
	rootCmd.AddCommand(serveCmd, grabCmd, queryCmd, historyCmd)
}

func mainImpl() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "\nthermalcam: %s.\n", err)
		os.Exit(1)
	}
}
