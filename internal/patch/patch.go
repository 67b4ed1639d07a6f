// Copyright (C) 2021 The ffdnet-go authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package patch

import (
	"github.com/ffdnet-go/ffdnet/internal/img"
	"gorgonia.org/tensor"
)

// Number of window placements per axis and in total for the given image
// dimensions, window size and stride
func GridSize(height, width, win, stride int) (rows, cols, total int) {
	rows = (height-win)/stride + 1
	cols = (width-win)/stride + 1
	return rows, cols, rows * cols
}

// Extracts all win x win patches of the image at the given stride into a
// (C, win, win, N) float32 tensor, N = ((H-win)/stride+1)*((W-win)/stride+1).
// Patches along the N axis follow raster order of the strided grid.
//
// Uses the sliding-window decomposition: for each of the win*win relative
// offsets (i,j), the strided sub-grid of the image starting at (i,j) yields
// exactly one pixel of every patch. This visits each output value once and
// loops O(win^2) times over grid copies rather than once per window
// placement per pixel.
//
// The caller guarantees win <= min(H,W) and stride >= 1.
func Extract(f *img.Image, win, stride int) *tensor.Dense {
	rows, cols, n := GridSize(f.Height, f.Width, win, stride)
	res := make([]float32, f.Channels*win*win*n)

	for c := 0; c < f.Channels; c++ {
		plane := f.Channel(c)
		for i := 0; i < win; i++ {
			for j := 0; j < win; j++ {
				out := res[((c*win+i)*win+j)*n:]
				for gy := 0; gy < rows; gy++ {
					src := plane[(gy*stride+i)*f.Width+j:]
					dst := out[gy*cols:]
					for gx := 0; gx < cols; gx++ {
						dst[gx] = src[gx*stride]
					}
				}
			}
		}
	}
	return tensor.New(tensor.WithShape(f.Channels, win, win, n), tensor.WithBacking(res))
}

// Copies patch n of a (C, win, win, N) extraction result into a flat
// (C, win, win) buffer
func At(patches *tensor.Dense, n int) []float32 {
	shape := patches.Shape()
	channels, win, total := shape[0], shape[1], shape[3]
	data := patches.Data().([]float32)

	res := make([]float32, channels*win*win)
	for k := range res {
		res[k] = data[k*total+n]
	}
	return res
}
