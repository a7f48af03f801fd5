// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package render draws the thermal image, its color scale and the readouts
// on a 320x240 screen.
package render

import (
	"fmt"
	"image"
	"image/color"

	"github.com/maruel/go-mlx90640/thermal"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Layout is where each element goes on the screen.
type Layout struct {
	// Size is the screen size.
	Size image.Point
	// Origin is the top left corner of the block of the interpolated cell
	// (0, 0).
	Origin image.Point
	// PixelSize is the side of the square block drawn for each interpolated
	// cell.
	PixelSize int
	// Mirror draws the columns right to left, so the image looks like a
	// mirror when the sensor faces the user.
	Mirror bool
	// Scale is the bottom left corner of the color scale bar. The bar is
	// thermal.Domain+1 pixels high.
	Scale image.Point
	// Center is the source cell marked with a crosshair.
	Center thermal.Point
}

// DefaultLayout is the ILI9341 landscape layout.
var DefaultLayout = Layout{
	Size:      image.Point{320, 240},
	Origin:    image.Point{248, 25},
	PixelSize: 4,
	Mirror:    true,
	Scale:     image.Point{255, 210},
	Center:    thermal.DefaultCenter,
}

// Readouts are the formatted values shown on screen.
type Readouts struct {
	TMax    string
	TMin    string
	TCenter string
	Vdd     string
}

// Format formats the readouts, temperatures with one decimal and the supply
// voltage with two.
func Format(r *thermal.Readout) Readouts {
	return Readouts{
		TMax:    fmt.Sprintf("%.1f", r.Max),
		TMin:    fmt.Sprintf("%.1f", r.Min),
		TCenter: fmt.Sprintf("%.1f", r.Center),
		Vdd:     fmt.Sprintf("%.2f", r.Vdd),
	}
}

// NewScreen returns a blank screen of the layout size.
func (l *Layout) NewScreen() *image.RGBA {
	return image.NewRGBA(image.Rectangle{Max: l.Size})
}

// ImageRect returns the screen area covered by a grid of size.
func (l *Layout) ImageRect(size image.Point) image.Rectangle {
	w := size.X * l.PixelSize
	h := size.Y * l.PixelSize
	if l.Mirror {
		x := l.Origin.X + l.PixelSize - w
		return image.Rect(x, l.Origin.Y, x+w, l.Origin.Y+h)
	}
	return image.Rect(l.Origin.X, l.Origin.Y, l.Origin.X+w, l.Origin.Y+h)
}

// CellCenter returns the screen position of the middle of the block of the
// interpolated cell (row, col).
func (l *Layout) CellCenter(row, col int) image.Point {
	x := l.Origin.X + col*l.PixelSize
	if l.Mirror {
		x = l.Origin.X - col*l.PixelSize
	}
	return image.Point{x + l.PixelSize/2, l.Origin.Y + row*l.PixelSize + l.PixelSize/2}
}

// Draw draws the whole screen into dst.
//
// grid is the color grid computed by thermal.Pipeline.
func (l *Layout) Draw(dst *image.RGBA, grid *image.RGBA, r *thermal.Readout) {
	draw.Draw(dst, dst.Bounds(), image.Black, image.Point{}, draw.Src)
	l.drawHeader(dst)
	l.drawScale(dst)
	l.DrawImage(dst, grid)
	l.drawReadouts(dst, r)
	l.drawCrosshair(dst)
}

// DrawImage draws only the color grid, each cell scaled to a block of
// PixelSize.
func (l *Layout) DrawImage(dst *image.RGBA, grid *image.RGBA) {
	src := grid
	if l.Mirror {
		src = mirror(grid)
	}
	draw.NearestNeighbor.Scale(dst, l.ImageRect(grid.Bounds().Size()), src, src.Bounds(), draw.Src, nil)
}

// Private details.

var (
	white  = color.RGBA{255, 255, 255, 255}
	header = color.RGBA{255, 0, 10, 255}
	lime   = color.RGBA{0, 255, 0, 255}
)

const (
	tickStep  = 30
	tickWidth = 13
	barWidth  = 8
)

func (l *Layout) drawHeader(dst *image.RGBA) {
	fill(dst, image.Rect(0, 0, l.Size.X-1, 15), header)
	text(dst, image.Point{l.Size.X/2 - 30, 2}, "Thermography")
}

func (l *Layout) drawScale(dst *image.RGBA) {
	x, y := l.Scale.X, l.Scale.Y
	for i := 0; i < 210; i += tickStep {
		fill(dst, image.Rect(x, y-i, x+tickWidth, y-i+1), white)
	}
	for i, c := range thermal.Palette(int(thermal.Domain) + 1) {
		fill(dst, image.Rect(x, y-i, x+barWidth, y-i+1), c)
	}
}

func (l *Layout) drawReadouts(dst *image.RGBA, r *thermal.Readout) {
	f := Format(r)
	x, y := l.Scale.X+20, l.Scale.Y
	text(dst, image.Point{x, l.Origin.Y}, f.TMax+" C")
	text(dst, image.Point{x, y - 5}, f.TMin+" C")
	text(dst, image.Point{40, y + 10}, "Temp: "+f.TCenter+" C")
	text(dst, image.Point{160, y + 10}, "Vin: "+f.Vdd+" V")
}

func (l *Layout) drawCrosshair(dst *image.RGBA) {
	c := l.CellCenter(2*l.Center.Row, 2*l.Center.Col)
	fill(dst, image.Rect(c.X-5, c.Y, c.X+6, c.Y+1), lime)
	fill(dst, image.Rect(c.X, c.Y-5, c.X+1, c.Y+6), lime)
}

// fill fills r with c.
func fill(dst draw.Image, r image.Rectangle, c color.Color) {
	draw.Draw(dst, r, image.NewUniform(c), image.Point{}, draw.Src)
}

// text draws s in white with its top left corner at p.
func text(dst draw.Image, p image.Point, s string) {
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(white),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(p.X, p.Y+basicfont.Face7x13.Ascent),
	}
	d.DrawString(s)
}

// mirror returns a copy of src flipped horizontally.
func mirror(src *image.RGBA) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			dst.SetRGBA(b.Dx()-1-x, y, src.RGBAAt(b.Min.X+x, b.Min.Y+y))
		}
	}
	return dst
}
