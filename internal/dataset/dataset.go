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
	"fmt"

	"github.com/valyala/fastrand"
	"gorgonia.org/tensor"
)

// Random-access view of a store file. The key list is read once at open
// time; every Get opens the store read-only, reads one entry and closes it
// again. No handle or cache is retained between calls, so independent Gets
// may run concurrently.
type Dataset struct {
	path string
	keys []string
}

// Opens a dataset over the store at the given path. With shuffle, the key
// order is permuted once and stays fixed for the lifetime of the handle;
// no determinism across opens is guaranteed.
func Open(path string, shuffle bool) (*Dataset, error) {
	keys, err := Keys(path)
	if err != nil {
		return nil, err
	}
	if shuffle {
		rng := fastrand.RNG{}
		for i := len(keys) - 1; i > 0; i-- {
			j := rng.Uint32n(uint32(i + 1))
			keys[i], keys[j] = keys[j], keys[i]
		}
	}
	return &Dataset{path: path, keys: keys}, nil
}

// Number of entries in the dataset
func (d *Dataset) Len() int { return len(d.keys) }

// Reads the entry at the given index in the handle's key order and returns
// it as a dense float32 tensor
func (d *Dataset) Get(index int) (*tensor.Dense, error) {
	if index < 0 || index >= len(d.keys) {
		return nil, fmt.Errorf("index %d out of range for dataset %s with %d entries", index, d.path, len(d.keys))
	}
	shape, data, err := ReadEntry(d.path, d.keys[index])
	if err != nil {
		return nil, err
	}
	return tensor.New(tensor.WithShape(shape...), tensor.WithBacking(data)), nil
}
