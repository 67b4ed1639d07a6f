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

package img

// Full-range BT.601 luma/chroma conversions for three-channel planes in
// [0,1]. Used by the wavelet denoiser to shrink chroma independently of
// luma. Both directions operate on flat (3,H,W) data slices of equal
// length; dst and src may alias.

// Converts R,G,B planes to Y,Cb,Cr planes
func RGBToYCbCr(dst, src []float32, pixels int) {
	r, g, b := src[:pixels], src[pixels:2*pixels], src[2*pixels:3*pixels]
	y, cb, cr := dst[:pixels], dst[pixels:2*pixels], dst[2*pixels:3*pixels]
	for i := 0; i < pixels; i++ {
		rr, gg, bb := r[i], g[i], b[i]
		yy := 0.299*rr + 0.587*gg + 0.114*bb
		y[i], cb[i], cr[i] = yy, 0.5+(bb-yy)/1.772, 0.5+(rr-yy)/1.402
	}
}

// Converts Y,Cb,Cr planes back to R,G,B planes
func YCbCrToRGB(dst, src []float32, pixels int) {
	y, cb, cr := src[:pixels], src[pixels:2*pixels], src[2*pixels:3*pixels]
	r, g, b := dst[:pixels], dst[pixels:2*pixels], dst[2*pixels:3*pixels]
	for i := 0; i < pixels; i++ {
		yy, dcb, dcr := y[i], cb[i]-0.5, cr[i]-0.5
		rr := yy + 1.402*dcr
		bb := yy + 1.772*dcb
		r[i] = rr
		g[i] = (yy - 0.299*rr - 0.114*bb) / 0.587
		b[i] = bb
	}
}
