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

package noise

import (
	"github.com/ffdnet-go/ffdnet/internal/qsort"
)

// Scale factor turning the median absolute deviation of a zero-mean
// gaussian into its standard deviation: 1/Phi^-1(3/4)
const madToSigma = 1 / 0.6744897501960817

// Robust noise standard deviation estimate for one channel plane: the
// median absolute value of the finest-level diagonal wavelet detail
// coefficients, rescaled by the gaussian MAD factor (Donoho-Johnstone rule)
func estimateSigmaPlane(plane []float32, height, width int) float32 {
	rows, cols := height/2, width/2
	if rows == 0 || cols == 0 {
		return 0
	}
	hh := make([]float32, rows*cols)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			a := plane[(2*y)*width+2*x]
			b := plane[(2*y)*width+2*x+1]
			c := plane[(2*y+1)*width+2*x]
			d := plane[(2*y+1)*width+2*x+1]
			hh[y*cols+x] = (a - b - c + d) * 0.5
		}
	}
	return qsort.MedianAbs(hh) * madToSigma
}

// Noise standard deviation estimate for channel-first image data,
// averaging the per-channel estimates
func EstimateSigma(data []float32, channels, height, width int) float32 {
	pixels := height * width
	sum := float32(0)
	for c := 0; c < channels; c++ {
		sum += estimateSigmaPlane(data[c*pixels:(c+1)*pixels], height, width)
	}
	return sum / float32(channels)
}
