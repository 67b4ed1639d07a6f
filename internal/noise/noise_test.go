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
	"math"
	"strings"
	"testing"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
	"gorgonia.org/tensor"
)

func TestParseModeErrors(t *testing.T) {
	if _, err := ParseMode("median", 0, 0.3, 5, BayesShrink, false); err == nil {
		t.Errorf("parsing unknown mode succeeded; want error")
	} else if !strings.Contains(err.Error(), "median") || !strings.Contains(err.Error(), "synthetic") {
		t.Errorf("error %q does not name the invalid value and the allowed set", err)
	}

	if _, err := ParseMode("wavelet", 0, 0, 5, "HardShrink", false); err == nil {
		t.Errorf("parsing unknown wavelet method succeeded; want error")
	} else if !strings.Contains(err.Error(), "HardShrink") || !strings.Contains(err.Error(), VisuShrink) {
		t.Errorf("error %q does not name the invalid value and the allowed set", err)
	}

	if _, err := ParseMode("wiener", 0, 0, 4, "", false); err == nil {
		t.Errorf("parsing even wiener kernel succeeded; want error")
	}
	if _, err := ParseMode("synthetic", 0.5, 0.1, 0, "", false); err == nil {
		t.Errorf("parsing inverted noise interval succeeded; want error")
	}
}

func TestNewValidatesBeforeComputation(t *testing.T) {
	if _, err := New(Wavelet{Method: "bogus"}); err == nil {
		t.Errorf("estimator with bogus wavelet method created; want error")
	}
	if _, err := New(nil); err == nil {
		t.Errorf("estimator without mode created; want error")
	}
}

// flat gray batch with per-test noise, seeded for reproducibility
func noisyBatch(n, channels, height, width int, sigma float64, seed uint64) *tensor.Dense {
	normal := distuv.Normal{Mu: 0, Sigma: sigma, Src: rand.NewSource(seed)}
	data := make([]float32, n*channels*height*width)
	for i := range data {
		data[i] = 0.5 + float32(normal.Rand())
	}
	return tensor.New(tensor.WithShape(n, channels, height, width), tensor.WithBacking(data))
}

func TestMakeInputsSynthetic(t *testing.T) {
	e, err := New(Synthetic{IntervalLow: 0.2, IntervalHigh: 0.2})
	if err != nil {
		t.Fatalf("new estimator: %s", err)
	}
	e.Seed(7)

	batch := noisyBatch(2, 1, 32, 32, 0, 1) // flat 0.5 images
	clean, noisy, sigma, noiseMap, err := e.MakeInputs(batch)
	if err != nil {
		t.Fatalf("make inputs: %s", err)
	}

	if clean != batch {
		t.Errorf("synthetic clean is not the input batch")
	}
	sigmas := sigma.Data().([]float32)
	if len(sigmas) != 2 || sigmas[0] != 0.2 || sigmas[1] != 0.2 {
		t.Errorf("sigma=%v; want [0.2 0.2] for a degenerate interval", sigmas)
	}

	// noiseMap = noisy - clean exactly, no clamping
	cd, nd, md := clean.Data().([]float32), noisy.Data().([]float32), noiseMap.Data().([]float32)
	negatives := 0
	for i := range cd {
		if nd[i]-cd[i] != md[i] {
			t.Fatalf("noiseMap[%d]=%f; want noisy-clean=%f", i, md[i], nd[i]-cd[i])
		}
		if md[i] < 0 {
			negatives++
		}
	}
	if negatives == 0 {
		t.Errorf("synthetic noise map has no negative values; want unclamped gaussian noise")
	}

	// sample standard deviation of the injected noise tracks sigma
	sum, sumSq := 0.0, 0.0
	for _, v := range md {
		sum += float64(v)
		sumSq += float64(v) * float64(v)
	}
	mean := sum / float64(len(md))
	std := math.Sqrt(sumSq/float64(len(md)) - mean*mean)
	if math.Abs(std-0.2) > 0.02 {
		t.Errorf("injected noise std=%f; want about 0.2", std)
	}
}

func TestMakeInputsWiener(t *testing.T) {
	e, err := New(Wiener{KernelSize: 5})
	if err != nil {
		t.Fatalf("new estimator: %s", err)
	}

	batch := noisyBatch(1, 1, 64, 64, 0.1, 2)
	clean, noisy, sigma, noiseMap, err := e.MakeInputs(batch)
	if err != nil {
		t.Fatalf("make inputs: %s", err)
	}
	if noisy != batch {
		t.Errorf("wiener noisy is not the input batch")
	}

	s := sigma.Data().([]float32)[0]
	if s < 0.05 || s > 0.2 {
		t.Errorf("estimated sigma=%f; want near the injected 0.1", s)
	}

	// filtering must reduce deviation from the flat 0.5 truth
	cd := clean.Data().([]float32)
	nd := noisy.Data().([]float32)
	mseClean, mseNoisy := 0.0, 0.0
	for i := range cd {
		dc, dn := float64(cd[i]-0.5), float64(nd[i]-0.5)
		mseClean += dc * dc
		mseNoisy += dn * dn
	}
	if mseClean >= mseNoisy {
		t.Errorf("wiener filter did not reduce mse: %f >= %f", mseClean, mseNoisy)
	}

	for _, v := range noiseMap.Data().([]float32) {
		if v < 0 || v > 1 {
			t.Fatalf("noise map value %f outside [0,1]", v)
		}
	}
}

func TestMakeInputsNaNFallback(t *testing.T) {
	e, err := New(Wiener{KernelSize: 5})
	if err != nil {
		t.Fatalf("new estimator: %s", err)
	}

	// all-black image: local mean, variance and noise power are all zero,
	// the wiener gain is 0/0 and the filtered result is NaN
	data := make([]float32, 2*1*16*16)
	// second sample gets structure so only sample 0 takes the fallback
	normal := distuv.Normal{Mu: 0, Sigma: 0.1, Src: rand.NewSource(3)}
	for i := len(data) / 2; i < len(data); i++ {
		data[i] = 0.25 + float32(normal.Rand())
	}
	batch := tensor.New(tensor.WithShape(2, 1, 16, 16), tensor.WithBacking(data))

	clean, noisy, sigma, _, err := e.MakeInputs(batch)
	if err != nil {
		t.Fatalf("make inputs: %s", err)
	}

	sigmas := sigma.Data().([]float32)
	if sigmas[0] != 0 {
		t.Errorf("fallback sigma=%f; want exactly 0", sigmas[0])
	}
	if sigmas[1] == 0 {
		t.Errorf("sigma of structured sample is 0; want nonzero estimate")
	}
	if e.NaNFallbacks != 1 {
		t.Errorf("NaNFallbacks=%d; want 1", e.NaNFallbacks)
	}

	// fallback clean equals input noisy for the affected sample
	cd, nd := clean.Data().([]float32), noisy.Data().([]float32)
	for i := 0; i < 16*16; i++ {
		if cd[i] != nd[i] {
			t.Fatalf("fallback clean[%d]=%f; want noisy %f", i, cd[i], nd[i])
		}
	}
}

func TestMakeInputsShape(t *testing.T) {
	e, err := New(Synthetic{IntervalLow: 0, IntervalHigh: 0.1})
	if err != nil {
		t.Fatalf("new estimator: %s", err)
	}
	bad := tensor.New(tensor.WithShape(3, 8, 8), tensor.WithBacking(make([]float32, 3*8*8)))
	if _, _, _, _, err := e.MakeInputs(bad); err == nil {
		t.Errorf("make inputs on 3D tensor succeeded; want error")
	}
}

func TestEstimateSigma(t *testing.T) {
	normal := distuv.Normal{Mu: 0, Sigma: 0.08, Src: rand.NewSource(5)}
	data := make([]float32, 3*64*64)
	for i := range data {
		data[i] = 0.5 + float32(normal.Rand())
	}
	s := EstimateSigma(data, 3, 64, 64)
	if s < 0.06 || s > 0.1 {
		t.Errorf("estimated sigma=%f; want near 0.08", s)
	}
}
