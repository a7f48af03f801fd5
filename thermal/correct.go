// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package thermal

import "fmt"

// DefaultBounds is the range of temperature the MLX90640 can report. Anything
// outside is noise.
var DefaultBounds = Bounds{Lo: -41, Hi: 301}

// DefaultCenter is the cell reported as the center reading.
//
// It is not the geometric center, which falls between four cells.
var DefaultCenter = Point{Row: 11, Col: 15}

// DefaultDefects are the dead cells of the unit the project was developed
// with. Other units will have different ones.
var DefaultDefects = []Defect{{Row: 1, Col: 21}, {Row: 4, Col: 30}}

// Corrector repairs a Frame and extracts its statistics.
//
// Use NewCorrector to create one.
type Corrector struct {
	defects  []Defect
	valid    Bounds
	center   Point
	isDefect [Width * Height]bool
}

// NewCorrector returns a Corrector for the sensor unit.
func NewCorrector(defects []Defect, valid Bounds, center Point) (*Corrector, error) {
	if !(valid.Lo < valid.Hi) {
		return nil, fmt.Errorf("thermal: invalid bounds (%g, %g)", valid.Lo, valid.Hi)
	}
	if !center.In() {
		return nil, fmt.Errorf("thermal: center %v outside %dx%d", center, Width, Height)
	}
	c := &Corrector{defects: append([]Defect(nil), defects...), valid: valid, center: center}
	for _, d := range c.defects {
		if !Point(d).In() {
			return nil, fmt.Errorf("thermal: defect %v outside %dx%d", d, Width, Height)
		}
		c.isDefect[d.Row*Width+d.Col] = true
	}
	for _, d := range c.defects {
		if (d.Col == 0 || c.isDefect[d.Row*Width+d.Col-1]) && (d.Col == Width-1 || c.isDefect[d.Row*Width+d.Col+1]) {
			return nil, fmt.Errorf("thermal: defect %v has no usable neighbor", d)
		}
	}
	return c, nil
}

// Correction is the result of Corrector.Correct.
type Correction struct {
	Range    Range
	Center   float32
	Repaired int // Number of samples that were out of the valid bounds.
}

// Correct repairs f in place and returns its range and center value.
//
// Known defects are always replaced, whatever their current value is. Other
// samples outside the valid bounds take the value of the previous sample in scan
// order; a leading run takes the first valid sample instead.
//
// It never fails. A frame without any valid sample is zeroed.
func (c *Corrector) Correct(f *Frame) Correction {
	out := Correction{}
	first := -1
	for i, v := range f.Pix {
		if !c.isDefect[i] && c.valid.Contains(v) {
			first = i
			break
		}
	}
	if first == -1 {
		f.Fill(0)
		out.Repaired = len(f.Pix) - len(c.defects)
		out.Center = f.At(c.center.Row, c.center.Col)
		return out
	}

	prev := f.Pix[first]
	for i, v := range f.Pix {
		if c.isDefect[i] {
			continue
		}
		if c.valid.Contains(v) {
			prev = v
			continue
		}
		f.Pix[i] = prev
		out.Repaired++
	}

	for _, d := range c.defects {
		f.Set(d.Row, d.Col, c.neighbors(f, d))
	}

	out.Range = Range{Min: f.Pix[0], Max: f.Pix[0]}
	for _, v := range f.Pix[1:] {
		if v < out.Range.Min {
			out.Range.Min = v
		} else if v > out.Range.Max {
			out.Range.Max = v
		}
	}
	out.Center = f.At(c.center.Row, c.center.Col)
	return out
}

// neighbors returns the average of the same row neighbors of d.
func (c *Corrector) neighbors(f *Frame, d Defect) float32 {
	base := d.Row * Width
	left := d.Col > 0 && !c.isDefect[base+d.Col-1]
	right := d.Col < Width-1 && !c.isDefect[base+d.Col+1]
	switch {
	case left && right:
		return 0.5 * (f.Pix[base+d.Col-1] + f.Pix[base+d.Col+1])
	case left:
		return f.Pix[base+d.Col-1]
	default:
		return f.Pix[base+d.Col+1]
	}
}
