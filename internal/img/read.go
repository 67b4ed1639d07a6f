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
	"image"
	_ "image/jpeg" // register decoders for the supported input formats
	_ "image/png"
	"io"
	"os"

	_ "golang.org/x/image/bmp"
)

// Reads an image from the file with the given name. Decodes BMP, PNG and
// JPEG based on file content. In grayscale mode a single channel plane is
// produced by isolating the green channel; otherwise the result has three
// channel planes in R, G, B order. Pixel values are raw 8-bit samples,
// call Normalize to scale into [0,1].
func NewImageFromFile(fileName string, id int, gray bool) (i *Image, err error) {
	f, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	i, err = Decode(f, gray)
	if err != nil {
		return nil, err
	}
	i.ID, i.FileName = id, fileName
	return i, nil
}

// Decodes an image from the reader into channel-first layout.
// See NewImageFromFile for channel conventions.
func Decode(r io.Reader, gray bool) (*Image, error) {
	src, _, err := image.Decode(r)
	if err != nil {
		return nil, err
	}

	bounds := src.Bounds()
	height, width := bounds.Dy(), bounds.Dx()

	channels := 3
	if gray {
		channels = 1
	}
	i := NewImage(channels, height, width)

	pixels := i.Pixels()
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r16, g16, b16, _ := src.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			offset := y*width + x
			if gray {
				// single grayscale plane from the green channel
				i.Data[offset] = float32(g16 >> 8)
			} else {
				i.Data[offset] = float32(r16 >> 8)
				i.Data[pixels+offset] = float32(g16 >> 8)
				i.Data[2*pixels+offset] = float32(b16 >> 8)
			}
		}
	}
	return i, nil
}
