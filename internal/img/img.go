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
)

// A decoded image in channel-first layout. Data holds Channels planes of
// Height*Width float32 pixels each, so the value of channel c at (y,x) is
// Data[(c*Height+y)*Width+x]. Pixel values are raw 8-bit samples until
// Normalize is called, and [0,1] afterwards.
type Image struct {
	ID       int    // Sequential ID number, for log output. Counted upwards from 0
	FileName string // Original file name, if any, for log output

	Channels int // Number of channels, 1 (grayscale) or 3 (RGB)
	Height   int
	Width    int

	Data []float32 // The image data, len = Channels*Height*Width
}

// Creates an image of the given dimensions with zeroed pixel data
func NewImage(channels, height, width int) *Image {
	return &Image{
		Channels: channels,
		Height:   height,
		Width:    width,
		Data:     make([]float32, channels*height*width),
	}
}

// Number of pixels per channel plane
func (i *Image) Pixels() int { return i.Height * i.Width }

// Returns the data slice for a single channel plane
func (i *Image) Channel(c int) []float32 {
	n := i.Pixels()
	return i.Data[c*n : (c+1)*n]
}

func (i *Image) DimensionsToString() string {
	return fmt.Sprintf("%dx%dx%d", i.Channels, i.Height, i.Width)
}

// Scales all pixel values from 8-bit sample range into [0,1] by dividing
// by 255, in place
func (i *Image) Normalize() {
	factor := float32(1.0 / 255.0)
	for j, d := range i.Data {
		i.Data[j] = d * factor
	}
}
