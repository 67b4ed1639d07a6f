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
	"io"
	"path/filepath"
	"sort"

	"github.com/ffdnet-go/ffdnet/internal/img"
	"github.com/ffdnet-go/ffdnet/internal/patch"
	"github.com/pbnjay/memory"
	"github.com/valyala/fastrand"
)

// Input image filename patterns recognized by the builder
var imagePatterns = []string{"*.bmp", "*.png", "*.jpg"}

// Builds training and validation store files from directories of images.
// Single-writer, sequential: one file is scanned, patchified and appended
// at a time.
type Builder struct {
	PatchSize    int  // window size of extracted training patches
	Stride       int  // patch extraction stride
	TotalPatches int  // total training patch budget across all files
	Gray         bool // build single-channel stores

	Log io.Writer
	rng fastrand.RNG
}

// Lists the images under dir matching the recognized patterns, sorted
// lexicographically. The sort is the documented tie-break that makes the
// remainder distribution reproducible across filesystems.
func globImages(dir string) (files []string, err error) {
	for _, pattern := range imagePatterns {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}

// Builds the training store from trainDir and, if valDir is non-empty, the
// validation store from valDir. Returns the number of stored training
// patches and validation images.
func (b *Builder) PrepareData(trainDir, valDir, trainStore, valStore string) (trainCount, valCount int, err error) {
	if trainCount, err = b.buildTrain(trainDir, trainStore); err != nil {
		return 0, 0, err
	}
	if valDir == "" {
		fmt.Fprintf(b.Log, "No validation directory given, skipping validation store\n")
		return trainCount, 0, nil
	}
	if valCount, err = b.buildVal(valDir, valStore); err != nil {
		return 0, 0, err
	}
	return trainCount, valCount, nil
}

func (b *Builder) buildTrain(dir, storePath string) (count int, err error) {
	files, err := globImages(dir)
	if err != nil {
		return 0, err
	}
	if len(files) == 0 {
		return 0, fmt.Errorf("no .bmp, .png or .jpg training images found in %s", dir)
	}

	perFile, remainder, err := patch.Quota(b.TotalPatches, len(files))
	if err != nil {
		return 0, err
	}
	fmt.Fprintf(b.Log, "Building training store %s from %d files: %d patches per file, remainder %d, %d MiB physical memory\n",
		storePath, len(files), perFile, remainder, memory.TotalMemory()/1024/1024)

	w, err := CreateStore(storePath)
	if err != nil {
		return 0, err
	}
	defer w.Close()

	shape := []int{3, b.PatchSize, b.PatchSize}
	if b.Gray {
		shape[0] = 1
	}

	for id, fileName := range files {
		f, err := img.NewImageFromFile(fileName, id, b.Gray)
		if err != nil {
			return 0, err
		}
		f.Normalize()
		if b.PatchSize > f.Height || b.PatchSize > f.Width {
			return 0, fmt.Errorf("%d: image %s is %s, smaller than patch size %d", id, fileName, f.DimensionsToString(), b.PatchSize)
		}

		patches := patch.Extract(f, b.PatchSize, b.Stride)
		available := patches.Shape()[3]

		// permute patch order so consecutive keys are not spatially correlated
		perm := make([]int, available)
		for i := range perm {
			perm[i] = i
		}
		for i := available - 1; i > 0; i-- {
			j := b.rng.Uint32n(uint32(i + 1))
			perm[i], perm[j] = perm[j], perm[i]
		}

		take := patch.Take(available, perFile, &remainder)
		entries := make([][]float32, take)
		for i := 0; i < take; i++ {
			entries[i] = patch.At(patches, perm[i])
		}
		if count, err = w.Append(shape, entries); err != nil {
			return 0, err
		}

		fmt.Fprintf(b.Log, "%d: %s %s yields %d patches, storing %d, %d total\n",
			id, fileName, f.DimensionsToString(), available, take, count)
	}
	return count, nil
}

func (b *Builder) buildVal(dir, storePath string) (count int, err error) {
	files, err := globImages(dir)
	if err != nil {
		return 0, err
	}
	fmt.Fprintf(b.Log, "Building validation store %s from %d files\n", storePath, len(files))

	w, err := CreateStore(storePath)
	if err != nil {
		return 0, err
	}
	defer w.Close()

	for id, fileName := range files {
		f, err := img.NewImageFromFile(fileName, id, b.Gray)
		if err != nil {
			return 0, err
		}
		f.Normalize()

		// whole images, no patch extraction
		if count, err = w.Append([]int{f.Channels, f.Height, f.Width}, [][]float32{f.Data}); err != nil {
			return 0, err
		}
		fmt.Fprintf(b.Log, "%d: stored %s image from %s\n", id, f.DimensionsToString(), fileName)
	}
	return count, nil
}
