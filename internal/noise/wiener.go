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

// Adaptive Wiener filter after Lim, "Two-Dimensional Signal and Image
// Processing". Estimates local mean and variance over a k x k window with
// zero padding and a constant k*k divisor, takes the mean local variance as
// the noise power, and attenuates each pixel's deviation from the local
// mean by (1 - noise/variance). Pixels whose local variance falls below the
// noise power collapse to the local mean. Matches the classical reference
// behavior including the undefined 0/0 result on constant regions, which
// the caller's NaN fallback absorbs.

// k x k box sum with zero padding, separable implementation
func boxSum(dst, tmp, src []float32, height, width, k int) {
	half := k / 2

	// horizontal pass into tmp
	for y := 0; y < height; y++ {
		row := src[y*width : (y+1)*width]
		out := tmp[y*width : (y+1)*width]
		sum := float32(0)
		for x := 0; x < half && x < width; x++ {
			sum += row[x]
		}
		for x := 0; x < width; x++ {
			if x+half < width {
				sum += row[x+half]
			}
			out[x] = sum
			if x-half >= 0 {
				sum -= row[x-half]
			}
		}
	}

	// vertical pass into dst
	for x := 0; x < width; x++ {
		sum := float32(0)
		for y := 0; y < half && y < height; y++ {
			sum += tmp[y*width+x]
		}
		for y := 0; y < height; y++ {
			if y+half < height {
				sum += tmp[(y+half)*width+x]
			}
			dst[y*width+x] = sum
			if y-half >= 0 {
				sum -= tmp[(y-half)*width+x]
			}
		}
	}
}

// Filters one channel plane of src into dst with a k x k adaptive Wiener
// filter. dst and src must not alias.
func wienerPlane(dst, src []float32, height, width, k int) {
	n := height * width
	tmp := make([]float32, n)
	mean := make([]float32, n)
	sq := make([]float32, n)

	boxSum(mean, tmp, src, height, width, k)
	for i, v := range src {
		sq[i] = v * v
	}
	boxSum(sq, tmp, sq, height, width, k)

	norm := 1 / float32(k*k)
	noise := float32(0)
	for i := range mean {
		m := mean[i] * norm
		mean[i] = m
		v := sq[i]*norm - m*m
		sq[i] = v // local variance now
		noise += v
	}
	noise /= float32(n)

	for i, v := range sq {
		if v < noise {
			dst[i] = mean[i]
		} else {
			dst[i] = mean[i] + (src[i]-mean[i])*(1-noise/v)
		}
	}
}

// Estimates the clean image from noisy channel-first data with the
// adaptive Wiener filter, channel by channel
func wienerDenoise(dst, src []float32, channels, height, width, k int) {
	pixels := height * width
	for c := 0; c < channels; c++ {
		wienerPlane(dst[c*pixels:(c+1)*pixels], src[c*pixels:(c+1)*pixels], height, width, k)
	}
}
