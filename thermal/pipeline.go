// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package thermal

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"time"

	"github.com/maruel/go-mlx90640/mlx90640"
	"gonum.org/v1/gonum/stat"
)

// Sensor is the part of the MLX90640 driver the pipeline needs. This
// interface can be mocked.
//
// Each FrameData call returns one subpage. ObjectTemperatures only writes the
// cells of the subpage it was given, so two calls fill a whole Frame.
type Sensor interface {
	// FrameData waits for the next subpage.
	FrameData(ctx context.Context) (*mlx90640.RawFrame, error)
	// SupplyVoltage returns Vdd in volts.
	SupplyVoltage(raw *mlx90640.RawFrame) float64
	// AmbientTemperature returns Ta in °C.
	AmbientTemperature(raw *mlx90640.RawFrame) float64
	// ObjectTemperatures computes the subpage cells in °C.
	ObjectTemperatures(raw *mlx90640.RawFrame, emissivity, tr float64, dst *Frame)
}

// Default acquisition constants.
const (
	// DefaultEmissivity is the emissivity used to compute object temperatures.
	DefaultEmissivity = 0.95
	// DefaultTAShift is the difference between the sensor ambient temperature
	// and the reflected temperature, in open air.
	DefaultTAShift = 8.
	// SubPages is the number of subpages folded into one Frame.
	SubPages = 2
)

// Opts is optional.
type Opts struct {
	Corrector  *Corrector   // Default: DefaultDefects, DefaultBounds, DefaultCenter.
	Emissivity float64      // Default: DefaultEmissivity
	TAShift    float64      // Default: DefaultTAShift
	Logger     *slog.Logger // Default: slog.Default()
}

// Stats is the acquisition statistics.
type Stats struct {
	LastFail      error
	Cycles        int
	GoodSubPages  int
	TransferFails int
	Repaired      int
}

// Readout is the scalar output of one cycle.
type Readout struct {
	Seq      int       `json:"seq"`
	Time     time.Time `json:"time"`
	Min      float32   `json:"t_min"`
	Max      float32   `json:"t_max"`
	Center   float32   `json:"t_center"`
	Vdd      float64   `json:"vdd"`
	Ta       float64   `json:"ta"`
	Mean     float64   `json:"mean"`
	StdDev   float64   `json:"stddev"`
	Repaired int       `json:"repaired"`
	SubPages int       `json:"subpages"` // Subpages successfully read this cycle.
}

// Result is the output of one cycle.
//
// Colors is owned by the Pipeline and is overwritten by the next cycle.
type Result struct {
	Colors  *image.RGBA
	Readout Readout
}

// Pipeline runs acquisition and processing cycles. All the buffers are owned
// by it and reused across cycles.
//
// It is not safe for concurrent use.
type Pipeline struct {
	sensor     Sensor
	corrector  *Corrector
	emissivity float64
	taShift    float64
	logger     *slog.Logger

	frame   Frame
	interp  InterpolatedFrame
	samples [Width * Height]float64
	colors  *image.RGBA
	vdd     float64
	ta      float64
	read    int
	stats   Stats
	now     func() time.Time
}

// New returns a Pipeline reading from s.
func New(s Sensor, opts *Opts) (*Pipeline, error) {
	if s == nil {
		return nil, errors.New("thermal: sensor is required")
	}
	p := &Pipeline{
		sensor:     s,
		emissivity: DefaultEmissivity,
		taShift:    DefaultTAShift,
		logger:     slog.Default(),
		colors:     image.NewRGBA(image.Rect(0, 0, InterpolatedWidth, InterpolatedHeight)),
		now:        time.Now,
	}
	if opts != nil {
		p.corrector = opts.Corrector
		if opts.Emissivity != 0 {
			p.emissivity = opts.Emissivity
		}
		if opts.TAShift != 0 {
			p.taShift = opts.TAShift
		}
		if opts.Logger != nil {
			p.logger = opts.Logger
		}
	}
	if p.corrector == nil {
		var err error
		if p.corrector, err = NewCorrector(DefaultDefects, DefaultBounds, DefaultCenter); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Frame returns the frame buffer owned by the pipeline.
func (p *Pipeline) Frame() *Frame {
	return &p.frame
}

// Stats returns the statistics so far.
func (p *Pipeline) Stats() Stats {
	return p.stats
}

// Cycle acquires a frame and processes it.
//
// A sensor failure is logged and the cycle proceeds with the stale buffer.
// The only error returned is the context's.
func (p *Pipeline) Cycle(ctx context.Context) (Result, error) {
	if err := p.Acquire(ctx); err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
	}
	return p.Process(), nil
}

// Acquire reads both subpages into the frame buffer.
//
// A failed subpage leaves its cells untouched and the last error is
// returned.
func (p *Pipeline) Acquire(ctx context.Context) error {
	var last error
	p.read = 0
	for i := 0; i < SubPages; i++ {
		raw, err := p.sensor.FrameData(ctx)
		if err != nil {
			p.stats.TransferFails++
			if ctx.Err() != nil {
				return err
			}
			if p.stats.LastFail == nil {
				p.logger.Warn("frame data failed", "err", err)
			}
			p.stats.LastFail = err
			last = err
			continue
		}
		if p.stats.LastFail != nil {
			p.logger.Info("frame data recovered", "fails", p.stats.TransferFails)
			p.stats.LastFail = nil
		}
		p.stats.GoodSubPages++
		p.read++
		p.vdd = p.sensor.SupplyVoltage(raw)
		p.ta = p.sensor.AmbientTemperature(raw)
		p.sensor.ObjectTemperatures(raw, p.emissivity, p.ta-p.taShift, &p.frame)
	}
	return last
}

// Process corrects the frame buffer, upsamples it and maps it to colors.
func (p *Pipeline) Process() Result {
	c := p.corrector.Correct(&p.frame)
	Interpolate(&p.frame, &p.interp)
	for row := 0; row < InterpolatedHeight; row++ {
		for col := 0; col < InterpolatedWidth; col++ {
			p.colors.SetRGBA(col, row, ColorOf(c.Range.Normalize(p.interp.At(row, col))))
		}
	}
	for i, v := range p.frame.Pix {
		p.samples[i] = float64(v)
	}
	mean, stddev := stat.MeanStdDev(p.samples[:], nil)

	p.stats.Cycles++
	p.stats.Repaired += c.Repaired
	if c.Repaired != 0 {
		p.logger.Debug("repaired samples", "n", c.Repaired)
	}
	return Result{
		Colors:  p.colors,
		Readout: Readout{
			Seq:      p.stats.Cycles,
			Time:     p.now().UTC(),
			Min:      c.Range.Min,
			Max:      c.Range.Max,
			Center:   c.Center,
			Vdd:      p.vdd,
			Ta:       p.ta,
			Mean:     mean,
			StdDev:   stddev,
			Repaired: c.Repaired,
			SubPages: p.read,
		},
	}
}
