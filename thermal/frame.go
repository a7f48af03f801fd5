// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package thermal turns a 32x24 grid of MLX90640 temperatures into a 63x47
// false color image.
//
// One cycle runs Corrector.Correct, Interpolate, Normalize and ColorOf in
// that order. Pipeline ties them together and owns all the buffers.
package thermal

import (
	"image"
	"math"
)

// Sensor and output resolutions.
const (
	Width  = 32
	Height = 24

	// Original samples land on even coordinates, so the output shares its
	// boundary samples with the input.
	InterpolatedWidth  = 2*Width - 1
	InterpolatedHeight = 2*Height - 1
)

// Frame is a grid of temperatures in °C as computed by the sensor.
//
// It is 3kb so it is meant to be reused across cycles.
type Frame struct {
	Pix [Width * Height]float32
}

// At returns the temperature at (row, col).
func (f *Frame) At(row, col int) float32 {
	return f.Pix[row*Width+col]
}

// Set sets the temperature at (row, col).
func (f *Frame) Set(row, col int, v float32) {
	f.Pix[row*Width+col] = v
}

// Fill sets every sample to v.
func (f *Frame) Fill(v float32) {
	for i := range f.Pix {
		f.Pix[i] = v
	}
}

// Bounds returns the frame dimensions.
func (f *Frame) Bounds() image.Rectangle {
	return image.Rect(0, 0, Width, Height)
}

// InterpolatedFrame is the upsampled Frame.
type InterpolatedFrame struct {
	Pix [InterpolatedWidth * InterpolatedHeight]float32
}

// At returns the value at (row, col).
func (i *InterpolatedFrame) At(row, col int) float32 {
	return i.Pix[row*InterpolatedWidth+col]
}

// Set sets the value at (row, col).
func (i *InterpolatedFrame) Set(row, col int, v float32) {
	i.Pix[row*InterpolatedWidth+col] = v
}

// Bounds returns the frame dimensions.
func (i *InterpolatedFrame) Bounds() image.Rectangle {
	return image.Rect(0, 0, InterpolatedWidth, InterpolatedHeight)
}

// Point is a cell coordinate in a Frame.
type Point struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// In returns true if the point is inside a Frame.
func (p Point) In() bool {
	return p.Row >= 0 && p.Row < Height && p.Col >= 0 && p.Col < Width
}

// Defect is a cell known to be unreliable on a specific sensor unit. It is
// replaced with the average of its left and right neighbors.
type Defect Point

// Bounds is the open interval of plausible temperatures.
type Bounds struct {
	Lo float32 `json:"lo"`
	Hi float32 `json:"hi"`
}

// Contains returns true if v is strictly inside the interval. NaN is never
// contained.
func (b Bounds) Contains(v float32) bool {
	return v > b.Lo && v < b.Hi
}

// Range is the span of the valid samples of a Frame.
type Range struct {
	Min float32 `json:"min"`
	Max float32 `json:"max"`
}

// Normalize maps v from [r.Min, r.Max] to [0, Domain] and clamps the result.
//
// An empty range maps everything to 0.
func (r Range) Normalize(v float32) float64 {
	d := float64(r.Max) - float64(r.Min)
	if d <= 0 || math.IsNaN(d) {
		return 0
	}
	return clamp(Domain * (float64(v) - float64(r.Min)) / d)
}

func clamp(v float64) float64 {
	switch {
	case v > Domain:
		return Domain
	case v >= 0:
		return v
	default:
		// Includes NaN.
		return 0
	}
}
