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
)

// A noise mode decides how training inputs are derived from stored images:
// synthetic AWGN injection on clean images, or noise estimation from
// already-noisy images via Wiener or wavelet filtering. Exactly one mode is
// configured per run.
type Mode interface {
	ModeName() string
	validate() error
}

// Recognized wavelet shrinkage variants
const (
	BayesShrink = "BayesShrink"
	VisuShrink  = "VisuShrink"
)

var waveletMethods = []string{BayesShrink, VisuShrink}

// Recognized mode names, for error messages and CLI parsing
var modeNames = []string{"synthetic", "wiener", "wavelet"}

// Synthetic AWGN injection: treats inputs as clean, draws a noise standard
// deviation uniformly from [IntervalLow, IntervalHigh] per sample and adds
// a Gaussian noise field with that deviation
type Synthetic struct {
	IntervalLow  float64 `json:"intervalLow"`
	IntervalHigh float64 `json:"intervalHigh"`
}

func (m Synthetic) ModeName() string { return "synthetic" }

func (m Synthetic) validate() error {
	if m.IntervalLow < 0 || m.IntervalHigh < m.IntervalLow {
		return fmt.Errorf("invalid noise interval [%g,%g], want 0 <= low <= high", m.IntervalLow, m.IntervalHigh)
	}
	return nil
}

// Wiener-filter estimation: treats inputs as noisy and estimates the clean
// image with a KernelSize x KernelSize adaptive Wiener filter
type Wiener struct {
	KernelSize int `json:"kernelSize"`
}

func (m Wiener) ModeName() string { return "wiener" }

func (m Wiener) validate() error {
	if m.KernelSize < 1 || m.KernelSize%2 == 0 {
		return fmt.Errorf("invalid wiener kernel size %d, want positive odd", m.KernelSize)
	}
	return nil
}

// Wavelet-shrinkage estimation: treats inputs as noisy and estimates the
// clean image by soft-thresholding wavelet coefficients. Method selects the
// threshold rule; ConvertYCbCr shrinks three-channel images in YCbCr space
type Wavelet struct {
	Method       string `json:"method"`
	ConvertYCbCr bool   `json:"convertYCbCr"`
}

func (m Wavelet) ModeName() string { return "wavelet" }

func (m Wavelet) validate() error {
	for _, v := range waveletMethods {
		if m.Method == v {
			return nil
		}
	}
	return fmt.Errorf("unknown wavelet method %q, expected one of %v", m.Method, waveletMethods)
}

// Maps a CLI mode string onto a configured Mode, failing fast on
// unrecognized names before any image data is touched
func ParseMode(name string, intervalLow, intervalHigh float64, kernelSize int, waveletMethod string, convertYCbCr bool) (Mode, error) {
	var m Mode
	switch name {
	case "synthetic":
		m = Synthetic{IntervalLow: intervalLow, IntervalHigh: intervalHigh}
	case "wiener":
		m = Wiener{KernelSize: kernelSize}
	case "wavelet":
		m = Wavelet{Method: waveletMethod, ConvertYCbCr: convertYCbCr}
	default:
		return nil, fmt.Errorf("unknown noise mode %q, expected one of %v", name, modeNames)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}
