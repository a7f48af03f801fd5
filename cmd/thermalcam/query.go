// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/maruel/go-mlx90640/mlx90640"
	"github.com/spf13/cobra"
	"periph.io/x/periph/conn/i2c/i2creg"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/host"
)

var (
	i2cName string
	i2cHz   int
	i2cAddr uint16
	setRate string
	dumpEE  bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query the sensor internal state over I²C",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := host.Init(); err != nil {
			return err
		}
		bus, err := i2creg.Open(i2cName)
		if err != nil {
			return err
		}
		defer bus.Close()
		opts := &mlx90640.Opts{Addr: i2cAddr, Speed: physic.Frequency(i2cHz) * physic.Hertz}
		dev, err := mlx90640.New(bus, opts)
		if err != nil {
			return err
		}
		if setRate != "" {
			r, err := mlx90640.ParseRefreshRate(setRate)
			if err != nil {
				return err
			}
			if err := dev.SetRefreshRate(r); err != nil {
				return err
			}
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Device:       %s\n", dev)
		status, err := dev.Status()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Status:       0x%04X\n", status)
		rate, err := dev.RefreshRate()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "RefreshRate:  %s\n", rate)
		mode, err := dev.Mode()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Mode:         %s\n", mode)
		ee, err := dev.DumpEE()
		if err != nil {
			return err
		}
		if dumpEE {
			for i := 0; i < len(ee); i += 8 {
				fmt.Fprintf(w, "0x%04X: %04X\n", 0x2400+i, ee[i:i+8])
			}
		}
		params, err := mlx90640.ExtractParams(ee)
		if err != nil {
			return err
		}
		raw, err := dev.FrameData(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "SubPage:      %d\n", raw.SubPage())
		fmt.Fprintf(w, "Vdd:          %.3fV\n", params.Vdd(raw))
		fmt.Fprintf(w, "Ta:           %.2f°C\n", params.Ta(raw))
		return nil
	},
}

func init() {
	queryCmd.Flags().StringVar(&i2cName, "i2c", "", "I²C bus to use")
	queryCmd.Flags().IntVar(&i2cHz, "hz", 0, "I²C bus speed")
	queryCmd.Flags().Uint16Var(&i2cAddr, "addr", mlx90640.DefaultAddr, "I²C device address")
	queryCmd.Flags().StringVar(&setRate, "rate", "", "change the refresh rate, e.g. 16Hz")
	queryCmd.Flags().BoolVar(&dumpEE, "dump", false, "dump the calibration EEPROM")
}
