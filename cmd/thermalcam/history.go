// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/maruel/go-mlx90640/render"
	"github.com/maruel/go-mlx90640/report"
	"github.com/maruel/go-mlx90640/store"
	"github.com/spf13/cobra"
)

var (
	historyN    int
	historyPlot string
	historyHTML string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print the recorded readouts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(cmd.Context(), cfg.Database, logger)
		if err != nil {
			return err
		}
		defer st.Close()
		records, err := st.Recent(cmd.Context(), historyN)
		if err != nil {
			return err
		}
		if historyPlot != "" {
			if err := report.Plot(historyPlot, records); err != nil {
				return err
			}
		}
		if historyHTML != "" {
			f, err := os.Create(historyHTML)
			if err != nil {
				return err
			}
			if err := report.Chart(f, records); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
		}
		return printRecords(cmd.OutOrStdout(), records)
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyN, "n", "n", 20, "number of readouts")
	historyCmd.Flags().StringVar(&historyPlot, "plot", "", "also save a plot; the extension selects the format")
	historyCmd.Flags().StringVar(&historyHTML, "html", "", "also save an interactive chart")
}

func printRecords(w io.Writer, records []store.Record) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "time\tsession\tmax\tmin\tcenter\tvdd\t")
	for i := range records {
		r := &records[i]
		f := render.Format(&r.Readout)
		fmt.Fprintf(tw, "%s\t%.8s\t%s\t%s\t%s\t%s\t\n", r.Time.Local().Format("2006-01-02 15:04:05"), r.Session, f.TMax, f.TMin, f.TCenter, f.Vdd)
	}
	return tw.Flush()
}
