// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package thermal

// Interpolate upsamples src into dst with a two pass bilinear interpolation.
//
// Cells at even (row, col) are copies of src. Cells on even rows and odd
// columns are the average of their left and right neighbors. Cells on odd
// rows are the average of the rows above and below, so odd/odd cells end up
// being the average of four source samples.
//
// Every cell of dst is written.
func Interpolate(src *Frame, dst *InterpolatedFrame) {
	for i := 0; i < Height; i++ {
		horizontalPass(src, dst, i)
		if i > 0 {
			verticalPass(dst, 2*i-1)
		}
	}
}

// horizontalPass fills output row 2*i from source row i.
func horizontalPass(src *Frame, dst *InterpolatedFrame, i int) {
	row := 2 * i
	dst.Set(row, 0, src.At(i, 0))
	for j := 1; j < Width; j++ {
		dst.Set(row, 2*j, src.At(i, j))
		dst.Set(row, 2*j-1, 0.5*(dst.At(row, 2*j-2)+dst.At(row, 2*j)))
	}
}

// verticalPass fills odd output row from the fully populated rows around it.
func verticalPass(dst *InterpolatedFrame, row int) {
	above := dst.Pix[(row-1)*InterpolatedWidth : row*InterpolatedWidth]
	below := dst.Pix[(row+1)*InterpolatedWidth : (row+2)*InterpolatedWidth]
	out := dst.Pix[row*InterpolatedWidth : (row+1)*InterpolatedWidth]
	for c := range out {
		out[c] = 0.5 * (above[c] + below[c])
	}
}
