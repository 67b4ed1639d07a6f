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
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
	"gorgonia.org/tensor"
)

// Derives per-batch network inputs under the configured mode. Safe for
// sequential use only; create one Estimator per training loop.
type Estimator struct {
	mode Mode
	src  rand.Source

	// Number of samples where the filtered result contained NaN and the
	// zero-sigma fallback was taken. Grows silently otherwise, so callers
	// should surface it in their logs.
	NaNFallbacks int
}

// Creates an estimator for the given mode, validating the configuration
// before any image data is touched
func New(mode Mode) (*Estimator, error) {
	if mode == nil {
		return nil, fmt.Errorf("no noise mode configured, expected one of %v", modeNames)
	}
	if err := mode.validate(); err != nil {
		return nil, err
	}
	return &Estimator{mode: mode}, nil
}

// Seeds the random source used by the synthetic mode, for reproducible
// noise draws
func (e *Estimator) Seed(seed uint64) {
	e.src = rand.NewSource(seed)
}

func (e *Estimator) Mode() Mode { return e.mode }

// Derives (clean, noisy, sigma, noiseMap) from a (N,C,H,W) image batch.
// In synthetic mode the batch is treated as clean and AWGN is injected; in
// the filter modes the batch is treated as noisy and the clean image and
// noise level are estimated per sample. sigma has shape (N), the other
// results have the batch's shape.
func (e *Estimator) MakeInputs(batch *tensor.Dense) (clean, noisy, sigma, noiseMap *tensor.Dense, err error) {
	shape := batch.Shape()
	if len(shape) != 4 {
		return nil, nil, nil, nil, fmt.Errorf("batch has shape %v, expected (N,C,H,W)", shape)
	}
	n, channels, height, width := shape[0], shape[1], shape[2], shape[3]
	data := batch.Data().([]float32)

	switch m := e.mode.(type) {
	case Synthetic:
		return e.makeSynthetic(m, batch, data, n, channels, height, width)
	case Wiener:
		return e.makeFiltered(batch, data, n, channels, height, width, func(dst, src []float32) {
			wienerDenoise(dst, src, channels, height, width, m.KernelSize)
		})
	case Wavelet:
		return e.makeFiltered(batch, data, n, channels, height, width, func(dst, src []float32) {
			waveletDenoise(dst, src, channels, height, width, m.Method, m.ConvertYCbCr)
		})
	}
	return nil, nil, nil, nil, fmt.Errorf("unknown noise mode %q, expected one of %v", e.mode.ModeName(), modeNames)
}

func (e *Estimator) makeSynthetic(m Synthetic, batch *tensor.Dense, data []float32, n, channels, height, width int) (clean, noisy, sigma, noiseMap *tensor.Dense, err error) {
	sampleSize := channels * height * width
	noiseData := make([]float32, n*sampleSize)
	noisyData := make([]float32, n*sampleSize)
	sigmas := make([]float32, n)

	uniform := distuv.Uniform{Min: m.IntervalLow, Max: m.IntervalHigh, Src: e.src}
	for s := 0; s < n; s++ {
		std := uniform.Rand()
		sigmas[s] = float32(std)

		normal := distuv.Normal{Mu: 0, Sigma: std, Src: e.src}
		seg := noiseData[s*sampleSize : (s+1)*sampleSize]
		img := data[s*sampleSize : (s+1)*sampleSize]
		out := noisyData[s*sampleSize : (s+1)*sampleSize]
		for i := range seg {
			v := float32(normal.Rand())
			seg[i] = v
			out[i] = img[i] + v // noisy = clean + noise, unclamped
		}
	}

	clean = batch
	noisy = tensor.New(tensor.WithShape(n, channels, height, width), tensor.WithBacking(noisyData))
	sigma = tensor.New(tensor.WithShape(n), tensor.WithBacking(sigmas))
	noiseMap = tensor.New(tensor.WithShape(n, channels, height, width), tensor.WithBacking(noiseData))
	return clean, noisy, sigma, noiseMap, nil
}

func (e *Estimator) makeFiltered(batch *tensor.Dense, data []float32, n, channels, height, width int, filter func(dst, src []float32)) (clean, noisy, sigma, noiseMap *tensor.Dense, err error) {
	sampleSize := channels * height * width
	cleanData := make([]float32, n*sampleSize)
	noiseData := make([]float32, n*sampleSize)
	sigmas := make([]float32, n)

	for s := 0; s < n; s++ {
		src := data[s*sampleSize : (s+1)*sampleSize]
		dst := cleanData[s*sampleSize : (s+1)*sampleSize]
		filter(dst, src)

		// NaN check on the filtered sum: fall back to treating the noisy
		// image as clean with zero sigma rather than poisoning the batch
		sum := float32(0)
		for _, v := range dst {
			sum += v
		}
		if math.IsNaN(float64(sum)) {
			copy(dst, src)
			sigmas[s] = 0
			e.NaNFallbacks++
		} else {
			sigmas[s] = EstimateSigma(src, channels, height, width)
		}

		// noise map clamped to [0,1]
		nm := noiseData[s*sampleSize : (s+1)*sampleSize]
		for i := range nm {
			v := src[i] - dst[i]
			if v < 0 {
				v = 0
			} else if v > 1 {
				v = 1
			}
			nm[i] = v
		}
	}

	clean = tensor.New(tensor.WithShape(n, channels, height, width), tensor.WithBacking(cleanData))
	noisy = batch
	sigma = tensor.New(tensor.WithShape(n), tensor.WithBacking(sigmas))
	noiseMap = tensor.New(tensor.WithShape(n, channels, height, width), tensor.WithBacking(noiseData))
	return clean, noisy, sigma, noiseMap, nil
}
