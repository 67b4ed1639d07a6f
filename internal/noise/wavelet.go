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
	"math"

	"github.com/ffdnet-go/ffdnet/internal/img"
	"github.com/ffdnet-go/ffdnet/internal/qsort"
)

// Wavelet shrinkage denoising with an orthonormal Haar transform: decompose
// into a multilevel coefficient pyramid, soft-threshold the detail subbands
// with the BayesShrink or VisuShrink rule, and reconstruct. Odd dimensions
// are handled by replicating the last sample of a row or column, which
// keeps the transform invertible for thresholded coefficients.

const sqrt1_2 = float32(math.Sqrt2 / 2)

// One decomposition level. rows x cols is the subband size,
// height x width the size of the plane the level was computed from.
type dwtLevel struct {
	ll, lh, hl, hh []float32
	rows, cols     int
	height, width  int
}

// Single-level 2D Haar decomposition of a height x width plane
func haarForward(src []float32, height, width int) dwtLevel {
	rows, cols := (height+1)/2, (width+1)/2

	// row pass: low and high halves per row
	rowL := make([]float32, height*cols)
	rowH := make([]float32, height*cols)
	for y := 0; y < height; y++ {
		for x := 0; x < cols; x++ {
			a := src[y*width+2*x]
			b := a
			if 2*x+1 < width {
				b = src[y*width+2*x+1]
			}
			rowL[y*cols+x] = (a + b) * sqrt1_2
			rowH[y*cols+x] = (a - b) * sqrt1_2
		}
	}

	// column pass on both halves
	lvl := dwtLevel{
		ll: make([]float32, rows*cols), lh: make([]float32, rows*cols),
		hl: make([]float32, rows*cols), hh: make([]float32, rows*cols),
		rows: rows, cols: cols, height: height, width: width,
	}
	for x := 0; x < cols; x++ {
		for y := 0; y < rows; y++ {
			la, ha := rowL[2*y*cols+x], rowH[2*y*cols+x]
			lb, hb := la, ha
			if 2*y+1 < height {
				lb, hb = rowL[(2*y+1)*cols+x], rowH[(2*y+1)*cols+x]
			}
			lvl.ll[y*cols+x] = (la + lb) * sqrt1_2
			lvl.lh[y*cols+x] = (la - lb) * sqrt1_2
			lvl.hl[y*cols+x] = (ha + hb) * sqrt1_2
			lvl.hh[y*cols+x] = (ha - hb) * sqrt1_2
		}
	}
	return lvl
}

// Single-level inverse of haarForward into a height x width plane
func haarInverse(dst []float32, lvl dwtLevel) {
	rows, cols, height, width := lvl.rows, lvl.cols, lvl.height, lvl.width

	rowL := make([]float32, height*cols)
	rowH := make([]float32, height*cols)
	for x := 0; x < cols; x++ {
		for y := 0; y < rows; y++ {
			i := y*cols + x
			rowL[2*y*cols+x] = (lvl.ll[i] + lvl.lh[i]) * sqrt1_2
			rowH[2*y*cols+x] = (lvl.hl[i] + lvl.hh[i]) * sqrt1_2
			if 2*y+1 < height {
				rowL[(2*y+1)*cols+x] = (lvl.ll[i] - lvl.lh[i]) * sqrt1_2
				rowH[(2*y+1)*cols+x] = (lvl.hl[i] - lvl.hh[i]) * sqrt1_2
			}
		}
	}
	for y := 0; y < height; y++ {
		for x := 0; x < cols; x++ {
			i := y*cols + x
			dst[y*width+2*x] = (rowL[i] + rowH[i]) * sqrt1_2
			if 2*x+1 < width {
				dst[y*width+2*x+1] = (rowL[i] - rowH[i]) * sqrt1_2
			}
		}
	}
}

// Decomposition depth: the maximum Haar level minus three, as in common
// shrinkage practice, so the coarsest subbands stay large enough for
// meaningful statistics
func dwtLevels(height, width int) int {
	min := height
	if width < min {
		min = width
	}
	levels := 0
	for min >= 2 {
		min >>= 1
		levels++
	}
	levels -= 3
	if levels < 1 {
		levels = 1
	}
	return levels
}

// In-place soft threshold
func softThreshold(a []float32, t float32) {
	for i, v := range a {
		switch {
		case v > t:
			a[i] = v - t
		case v < -t:
			a[i] = v + t
		default:
			a[i] = 0
		}
	}
}

// BayesShrink threshold for one detail subband: sigma^2 over the estimated
// signal deviation. A subband whose variance does not exceed the noise
// variance is zeroed entirely.
func bayesThreshold(d []float32, sigma float32) float32 {
	sum := float32(0)
	for _, v := range d {
		sum += v * v
	}
	variance := sum / float32(len(d))
	signalVar := variance - sigma*sigma
	if signalVar <= 0 {
		return float32(math.Inf(1))
	}
	return sigma * sigma / float32(math.Sqrt(float64(signalVar)))
}

// Denoises one channel plane of src into dst. dst and src must not alias.
func waveletPlane(dst, src []float32, height, width int, method string) {
	levels := dwtLevels(height, width)

	// decompose
	pyramid := make([]dwtLevel, levels)
	cur, curH, curW := src, height, width
	for l := 0; l < levels; l++ {
		pyramid[l] = haarForward(cur, curH, curW)
		cur, curH, curW = pyramid[l].ll, pyramid[l].rows, pyramid[l].cols
	}

	// noise level from the finest diagonal detail; MedianAbs reorders its
	// argument, so give it a scratch copy
	scratch := make([]float32, len(pyramid[0].hh))
	copy(scratch, pyramid[0].hh)
	sigma := qsort.MedianAbs(scratch) * madToSigma

	// threshold detail subbands
	visu := sigma * float32(math.Sqrt(2*math.Log(float64(height*width))))
	for l := 0; l < levels; l++ {
		for _, d := range [][]float32{pyramid[l].lh, pyramid[l].hl, pyramid[l].hh} {
			t := visu
			if method == BayesShrink {
				t = bayesThreshold(d, sigma)
			}
			if t > 0 {
				softThreshold(d, t)
			}
		}
	}

	// reconstruct
	for l := levels - 1; l > 0; l-- {
		haarInverse(pyramid[l-1].ll, pyramid[l])
	}
	haarInverse(dst, pyramid[0])
}

// Estimates the clean image from noisy channel-first data by wavelet
// shrinkage. With convertYCbCr, three-channel images are shrunk in YCbCr
// space and the result is clamped to [0,1] after conversion back.
func waveletDenoise(dst, src []float32, channels, height, width int, method string, convertYCbCr bool) {
	pixels := height * width

	if convertYCbCr && channels == 3 {
		ycc := make([]float32, len(src))
		img.RGBToYCbCr(ycc, src, pixels)
		out := make([]float32, len(src))
		for c := 0; c < channels; c++ {
			waveletPlane(out[c*pixels:(c+1)*pixels], ycc[c*pixels:(c+1)*pixels], height, width, method)
		}
		img.YCbCrToRGB(dst, out, pixels)
		for i, v := range dst {
			if v < 0 {
				dst[i] = 0
			} else if v > 1 {
				dst[i] = 1
			}
		}
		return
	}

	for c := 0; c < channels; c++ {
		waveletPlane(dst[c*pixels:(c+1)*pixels], src[c*pixels:(c+1)*pixels], height, width, method)
	}
}
