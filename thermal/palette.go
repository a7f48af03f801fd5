// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package thermal

import (
	"image/color"
	"math"
)

// Domain is the upper bound of the normalized temperature scale. ColorOf
// accepts [0, Domain].
const Domain = 180.

// segmentSpan is the width of each segment of the ramp.
const segmentSpan = 30.

// ramp is the false color scale, from cold (dark blue) to hot (white). Each
// entry is the color at the start of a segment; the last one is the color at
// Domain.
var ramp = [...][3]float64{
	{0, 0, 20},
	{0, 0, 140},
	{120, 0, 80},
	{255, 0, 10},
	{255, 60, 0},
	{255, 235, 0},
	{255, 255, 255},
}

// ColorOf returns the color of a normalized temperature.
//
// v is clamped to [0, Domain]. The color is continuous across segments.
func ColorOf(v float64) color.RGBA {
	v = clamp(v)
	s := int(v / segmentSpan)
	if s >= len(ramp)-1 {
		s = len(ramp) - 2
	}
	t := (v - float64(s)*segmentSpan) / segmentSpan
	from, to := &ramp[s], &ramp[s+1]
	return color.RGBA{
		R: channel(from[0], to[0], t),
		G: channel(from[1], to[1], t),
		B: channel(from[2], to[2], t),
		A: 255,
	}
}

func channel(from, to, t float64) uint8 {
	return uint8(math.Round(from + (to-from)*t))
}

// Palette returns the whole ramp as a color.Palette of n entries, coldest
// first.
func Palette(n int) color.Palette {
	if n < 2 {
		n = 2
	}
	p := make(color.Palette, n)
	for i := range p {
		p[i] = ColorOf(Domain * float64(i) / float64(n-1))
	}
	return p
}
