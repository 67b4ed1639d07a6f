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

package dataset

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Store entry wire format: uint8 rank, rank x uint32 dimensions, then the
// float32 data in little-endian order. Dense row-major layout, so an entry
// of shape (C,H,W) carries C*H*W values.

func encodeEntry(shape []int, data []float32) []byte {
	buf := make([]byte, 1+4*len(shape)+4*len(data))
	buf[0] = uint8(len(shape))
	pos := 1
	for _, d := range shape {
		binary.LittleEndian.PutUint32(buf[pos:], uint32(d))
		pos += 4
	}
	for _, v := range data {
		binary.LittleEndian.PutUint32(buf[pos:], math.Float32bits(v))
		pos += 4
	}
	return buf
}

func decodeEntry(buf []byte) (shape []int, data []float32, err error) {
	if len(buf) < 1 {
		return nil, nil, fmt.Errorf("store entry too short: %d bytes", len(buf))
	}
	rank := int(buf[0])
	if len(buf) < 1+4*rank {
		return nil, nil, fmt.Errorf("store entry too short for rank %d: %d bytes", rank, len(buf))
	}

	pos := 1
	shape = make([]int, rank)
	values := 1
	for i := range shape {
		shape[i] = int(binary.LittleEndian.Uint32(buf[pos:]))
		values *= shape[i]
		pos += 4
	}
	if len(buf) != pos+4*values {
		return nil, nil, fmt.Errorf("store entry of shape %v has %d data bytes; want %d", shape, len(buf)-pos, 4*values)
	}

	data = make([]float32, values)
	for i := range data {
		data[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[pos:]))
		pos += 4
	}
	return shape, data, nil
}
