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

import (
	"fmt"
	"image"
	"image/color"

	colorful "github.com/lucasb-eyer/go-colorful"
)

func clampUint8(v float32) uint8 {
	v *= 255
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}

// Renders channel-first [0,1] pixel data of shape (C,H,W) into an 8-bit
// NRGBA image, for previews. C must be 1 or 3.
func ToNRGBA(data []float32, channels, height, width int) (*image.NRGBA, error) {
	if channels != 1 && channels != 3 {
		return nil, fmt.Errorf("cannot render %d-channel data, expected 1 or 3", channels)
	}
	if len(data) != channels*height*width {
		return nil, fmt.Errorf("data length %d does not match dimensions %dx%dx%d", len(data), channels, height, width)
	}

	pixels := height * width
	res := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			offset := y*width + x
			var c color.NRGBA
			if channels == 1 {
				v := clampUint8(data[offset])
				c = color.NRGBA{v, v, v, 255}
			} else {
				c = color.NRGBA{clampUint8(data[offset]), clampUint8(data[pixels+offset]), clampUint8(data[2*pixels+offset]), 255}
			}
			res.SetNRGBA(x, y, c)
		}
	}
	return res, nil
}

// Renders a single-valued field of shape (C,H,W) as a heat map, reducing
// multiple channels to their mean. Values are scaled so the field maximum
// maps to the hottest color, making faint noise maps visible.
func HeatMap(data []float32, channels, height, width int) (*image.NRGBA, error) {
	if len(data) != channels*height*width {
		return nil, fmt.Errorf("data length %d does not match dimensions %dx%dx%d", len(data), channels, height, width)
	}

	pixels := height * width
	max := float32(0)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			offset := y*width + x
			sum := float32(0)
			for c := 0; c < channels; c++ {
				sum += data[c*pixels+offset]
			}
			if v := sum / float32(channels); v > max {
				max = v
			}
		}
	}
	scale := float32(1)
	if max > 0 {
		scale = 1 / max
	}

	res := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			offset := y*width + x
			sum := float32(0)
			for c := 0; c < channels; c++ {
				sum += data[c*pixels+offset]
			}
			v := float64(sum / float32(channels) * scale)
			if v < 0 {
				v = 0
			}
			// cold blue (240 degrees) to hot red (0 degrees)
			r, g, b := colorful.Hsv(240*(1-v), 1, 1).RGB255()
			res.SetNRGBA(x, y, color.NRGBA{r, g, b, 255})
		}
	}
	return res, nil
}
