// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package thermal

import (
	"math"
	"testing"
)

func TestInterpolate_samples(t *testing.T) {
	src := rampFrame()
	dst := &InterpolatedFrame{}
	Interpolate(src, dst)
	for row := 0; row < Height; row++ {
		for col := 0; col < Width; col++ {
			if got, want := dst.At(2*row, 2*col), src.At(row, col); got != want {
				t.Fatalf("(%d, %d): %g != %g", row, col, got, want)
			}
		}
	}
}

func TestInterpolate_midpoints(t *testing.T) {
	src := rampFrame()
	dst := &InterpolatedFrame{}
	Interpolate(src, dst)
	// Even row, odd column.
	if got, want := dst.At(0, 1), 0.5*(src.At(0, 0)+src.At(0, 1)); got != want {
		t.Fatal(got, want)
	}
	// Odd row, even column.
	if got, want := dst.At(1, 0), 0.5*(src.At(0, 0)+src.At(1, 0)); got != want {
		t.Fatal(got, want)
	}
	// Odd row, odd column: mean of the four surrounding samples.
	want := 0.25 * (src.At(3, 7) + src.At(3, 8) + src.At(4, 7) + src.At(4, 8))
	if got := dst.At(7, 15); math.Abs(float64(got-want)) > 1e-4 {
		t.Fatal(got, want)
	}
}

func TestInterpolate_uniform(t *testing.T) {
	src := &Frame{}
	src.Fill(21.5)
	dst := &InterpolatedFrame{}
	for i := range dst.Pix {
		dst.Pix[i] = float32(math.NaN())
	}
	Interpolate(src, dst)
	for i, v := range dst.Pix {
		if v != 21.5 {
			t.Fatalf("%d: %g", i, v)
		}
	}
}

func TestInterpolate_bounded(t *testing.T) {
	src := &Frame{}
	for i := range src.Pix {
		src.Pix[i] = float32((i*7919)%97) - 20
	}
	dst := &InterpolatedFrame{}
	Interpolate(src, dst)
	for i, v := range dst.Pix {
		if v < -20 || v > 76 {
			t.Fatalf("%d: %g", i, v)
		}
	}
}

func TestHorizontalPass(t *testing.T) {
	src := rampFrame()
	dst := &InterpolatedFrame{}
	horizontalPass(src, dst, 3)
	for col := 0; col < InterpolatedWidth; col++ {
		if v := dst.At(6, col); v != float32(300+col*5) {
			t.Fatalf("col %d: %g", col, v)
		}
	}
	for col := 0; col < InterpolatedWidth; col++ {
		if dst.At(5, col) != 0 || dst.At(7, col) != 0 {
			t.Fatal("touched another row")
		}
	}
}

func TestVerticalPass(t *testing.T) {
	dst := &InterpolatedFrame{}
	for col := 0; col < InterpolatedWidth; col++ {
		dst.Set(2, col, float32(col))
		dst.Set(4, col, float32(3*col))
	}
	verticalPass(dst, 3)
	for col := 0; col < InterpolatedWidth; col++ {
		if v := dst.At(3, col); v != float32(2*col) {
			t.Fatalf("col %d: %g", col, v)
		}
	}
}

func BenchmarkInterpolate(b *testing.B) {
	src := rampFrame()
	dst := &InterpolatedFrame{}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		Interpolate(src, dst)
	}
}

//

// rampFrame returns a frame where each cell is 100*row + 10*col.
func rampFrame() *Frame {
	f := &Frame{}
	for row := 0; row < Height; row++ {
		for col := 0; col < Width; col++ {
			f.Set(row, col, float32(100*row+10*col))
		}
	}
	return f
}
