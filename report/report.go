// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package report renders the readout history as charts.
package report

import (
	"errors"
	"fmt"
	"image/color"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/maruel/go-mlx90640/store"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// ErrEmpty is returned when there is nothing to plot.
var ErrEmpty = errors.New("report: no readout")

// Chart writes an interactive HTML line chart of the temperatures and the
// supply voltage.
func Chart(w io.Writer, records []store.Record) error {
	x := make([]string, len(records))
	var tMax, tMin, tCenter, vdd []opts.LineData
	for i := range records {
		r := &records[i]
		x[i] = r.Time.Format("15:04:05")
		tMax = append(tMax, opts.LineData{Value: r.Max})
		tMin = append(tMin, opts.LineData{Value: r.Min})
		tCenter = append(tCenter, opts.LineData{Value: r.Center})
		vdd = append(vdd, opts.LineData{Value: r.Vdd, YAxisIndex: 1})
	}
	subtitle := "no readout"
	if len(records) != 0 {
		subtitle = fmt.Sprintf("%d readouts from %s", len(records), records[0].Time.Format("2006-01-02 15:04:05"))
	}
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Thermography history", Width: "100%", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "Temperatures", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10%"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "°C"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)
	line.ExtendYAxis(opts.YAxis{Name: "V", Position: "right"})
	line.SetXAxis(x).
		AddSeries("T max", tMax).
		AddSeries("T center", tCenter).
		AddSeries("T min", tMin).
		AddSeries("Vdd", vdd).
		SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
	return line.Render(w)
}

// Plot saves a PNG, SVG or PDF plot of the temperatures, depending on the
// extension of path.
func Plot(path string, records []store.Record) error {
	p, err := newPlot(records)
	if err != nil {
		return err
	}
	return p.Save(10*vg.Inch, 4*vg.Inch, path)
}

// WritePNG writes the same plot as Plot as a PNG.
func WritePNG(w io.Writer, records []store.Record) error {
	p, err := newPlot(records)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(10*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// Private details.

var seriesColors = []color.RGBA{
	{255, 0, 10, 255},
	{0, 160, 0, 255},
	{0, 0, 140, 255},
}

func newPlot(records []store.Record) (*plot.Plot, error) {
	if len(records) == 0 {
		return nil, ErrEmpty
	}
	start := records[0].Time
	series := [3]plotter.XYs{}
	for i := range series {
		series[i] = make(plotter.XYs, len(records))
	}
	for i := range records {
		r := &records[i]
		x := r.Time.Sub(start).Seconds()
		series[0][i] = plotter.XY{X: x, Y: float64(r.Max)}
		series[1][i] = plotter.XY{X: x, Y: float64(r.Center)}
		series[2][i] = plotter.XY{X: x, Y: float64(r.Min)}
	}

	p := plot.New()
	p.Title.Text = "Temperatures since " + start.Format("2006-01-02 15:04:05")
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Temperature (°C)"
	for i, name := range []string{"T max", "T center", "T min"} {
		l, err := plotter.NewLine(series[i])
		if err != nil {
			return nil, err
		}
		l.Width = vg.Points(1)
		l.Color = seriesColors[i]
		p.Add(l)
		p.Legend.Add(name, l)
	}
	p.Add(plotter.NewGrid())
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}
