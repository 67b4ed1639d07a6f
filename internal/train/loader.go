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

package train

import (
	"fmt"

	"github.com/ffdnet-go/ffdnet/internal/dataset"
	"github.com/valyala/fastrand"
	"gorgonia.org/tensor"
)

// Assembles fixed-size batches from a random-access dataset. Entries of a
// batch are fetched concurrently: every dataset Get opens its own
// read-only store handle and touches only its own key, so no locking is
// needed beyond the result slots.
type Loader struct {
	ds         *dataset.Dataset
	batchSize  int
	shuffle    bool
	maxThreads int

	order []int
	rng   fastrand.RNG
}

func NewLoader(ds *dataset.Dataset, batchSize int, shuffle bool, maxThreads int) (*Loader, error) {
	if batchSize < 1 {
		return nil, fmt.Errorf("invalid batch size %d", batchSize)
	}
	if maxThreads < 1 {
		maxThreads = 1
	}
	l := &Loader{ds: ds, batchSize: batchSize, shuffle: shuffle, maxThreads: maxThreads}
	l.order = make([]int, ds.Len())
	for i := range l.order {
		l.order[i] = i
	}
	l.Reshuffle()
	return l, nil
}

// Permutes the iteration order if shuffling is enabled; called once per
// epoch by the training loop
func (l *Loader) Reshuffle() {
	if !l.shuffle {
		return
	}
	for i := len(l.order) - 1; i > 0; i-- {
		j := l.rng.Uint32n(uint32(i + 1))
		l.order[i], l.order[j] = l.order[j], l.order[i]
	}
}

// Number of full batches per epoch; a trailing partial batch is dropped
func (l *Loader) Batches() int { return l.ds.Len() / l.batchSize }

// Fetches batch i as an (N,C,H,W) tensor. All entries must share one shape.
func (l *Loader) Batch(i int) (*tensor.Dense, error) {
	if i < 0 || i >= l.Batches() {
		return nil, fmt.Errorf("batch index %d out of range, have %d batches", i, l.Batches())
	}
	indices := l.order[i*l.batchSize : (i+1)*l.batchSize]

	entries := make([]*tensor.Dense, len(indices))
	errs := make(chan error, len(indices))
	limiter := make(chan bool, l.maxThreads)
	for slot, index := range indices {
		limiter <- true
		go func(slot, index int) {
			defer func() { <-limiter }()
			e, err := l.ds.Get(index)
			entries[slot] = e
			errs <- err
		}(slot, index)
	}
	var err error
	for range indices {
		if e := <-errs; e != nil && err == nil {
			err = e
		}
	}
	if err != nil {
		return nil, err
	}

	shape := entries[0].Shape()
	if len(shape) != 3 {
		return nil, fmt.Errorf("entry has shape %v, expected (C,H,W)", shape)
	}
	sampleSize := shape.TotalSize()
	data := make([]float32, len(entries)*sampleSize)
	for slot, e := range entries {
		s := e.Shape()
		if s[0] != shape[0] || s[1] != shape[1] || s[2] != shape[2] {
			return nil, fmt.Errorf("entry shape %v differs from batch shape %v", s, shape)
		}
		copy(data[slot*sampleSize:], e.Data().([]float32))
	}
	return tensor.New(tensor.WithShape(len(entries), shape[0], shape[1], shape[2]), tensor.WithBacking(data)), nil
}
