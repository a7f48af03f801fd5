// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package mlx90640test implements a fake MLX90640 implementation.
package mlx90640test

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/maruel/go-mlx90640/mlx90640"
	"github.com/maruel/go-mlx90640/thermal"
)

// DefectValue is what the simulated dead cells report.
const DefectValue = 999

// Fake is a fake for a MLX90640 with its calibration applied. It implements
// thermal.Sensor.
//
// Each pixel temperature is encoded in the raw RAM word of the cell as 1/64
// °C, Ta at word 800 the same way and Vdd at word 810 in mV.
type Fake struct {
	// Period is the time FrameData waits before returning. 0 means no wait.
	Period time.Duration
	// Defects are the cells stuck at DefectValue.
	Defects []thermal.Defect
	// Err, when set, is returned by FrameData.
	Err error
	// Ambient is the simulated die temperature in °C.
	Ambient float64

	// LastEmissivity and LastTR are the arguments of the last
	// ObjectTemperatures call.
	LastEmissivity float64
	LastTR         float64

	noise   *noise
	subPage uint16
	rate    mlx90640.RefreshRate
}

// New returns a fake sensor running at rate.
func New(rate mlx90640.RefreshRate) *Fake {
	return &Fake{
		Period:  rate.Period(),
		Defects: thermal.DefaultDefects,
		Ambient: 31.5,
		noise:   makeNoise(),
		subPage: 1,
		rate:    rate,
	}
}

// FrameData implements thermal.Sensor. Subpages alternate in chess pattern.
func (f *Fake) FrameData(ctx context.Context) (*mlx90640.RawFrame, error) {
	if f.Period > 0 {
		t := time.NewTimer(f.Period)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.Err != nil {
		return nil, f.Err
	}
	f.subPage ^= 1
	if f.subPage == 0 {
		f.noise.update()
	}
	raw := &mlx90640.RawFrame{}
	for row := 0; row < thermal.Height; row++ {
		for col := 0; col < thermal.Width; col++ {
			if uint16((row+col)%2) == f.subPage {
				raw[row*thermal.Width+col] = encode(f.noise.at(row, col))
			}
		}
	}
	raw[wordTa] = encode(f.Ambient)
	raw[wordVdd] = 3300
	// Chess mode, 18 bits resolution.
	raw[mlx90640.PixelWords] = 0x1801 | uint16(f.rate)<<7
	raw[mlx90640.PixelWords+1] = f.subPage
	return raw, nil
}

// SupplyVoltage implements thermal.Sensor.
func (f *Fake) SupplyVoltage(raw *mlx90640.RawFrame) float64 {
	return float64(raw[wordVdd]) / 1000
}

// AmbientTemperature implements thermal.Sensor.
func (f *Fake) AmbientTemperature(raw *mlx90640.RawFrame) float64 {
	return decode(raw[wordTa])
}

// ObjectTemperatures implements thermal.Sensor.
func (f *Fake) ObjectTemperatures(raw *mlx90640.RawFrame, emissivity, tr float64, dst *thermal.Frame) {
	f.LastEmissivity = emissivity
	f.LastTR = tr
	sp := raw.SubPage()
	for row := 0; row < thermal.Height; row++ {
		for col := 0; col < thermal.Width; col++ {
			if (row+col)%2 == sp {
				dst.Set(row, col, float32(decode(raw[row*thermal.Width+col])))
			}
		}
	}
	for _, d := range f.Defects {
		if (d.Row+d.Col)%2 == sp {
			dst.Set(d.Row, d.Col, DefectValue)
		}
	}
}

//

const (
	wordTa  = 800
	wordVdd = 810
)

func encode(t float64) uint16 {
	return uint16(int16(math.Round(t * 64)))
}

func decode(w uint16) float64 {
	return float64(int16(w)) / 64
}

type vector struct {
	intensity float64
	x         float64
	y         float64
}

// noise is a few warm and cold blobs drifting over a room temperature
// background.
type noise struct {
	rand    *rand.Rand
	vectors []vector
}

func makeNoise() *noise {
	n := &noise{rand: rand.New(rand.NewSource(0))}
	n.vectors = make([]vector, 6)
	for i := range n.vectors {
		n.vectors[i].intensity = n.rand.NormFloat64() * 8
		n.vectors[i].x = n.rand.NormFloat64()*6 + thermal.Width/2
		n.vectors[i].y = n.rand.NormFloat64()*4 + thermal.Height/2
	}
	// A hand in front of the camera.
	n.vectors[0].intensity = 14
	return n
}

func (n *noise) update() {
	for i := range n.vectors {
		n.vectors[i].intensity += n.rand.NormFloat64() * 0.1
		n.vectors[i].x += n.rand.NormFloat64() * 0.2
		n.vectors[i].y += n.rand.NormFloat64() * 0.2
	}
}

func (n *noise) at(row, col int) float64 {
	const background = 22.
	fx, fy := float64(col), float64(row)
	v := background
	for _, vect := range n.vectors {
		distance := (vect.x-fx)*(vect.x-fx) + (vect.y-fy)*(vect.y-fy)
		v += vect.intensity / (1 + distance/8)
	}
	return math.Max(-40, math.Min(300, v))
}
