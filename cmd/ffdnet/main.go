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

package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/ffdnet-go/ffdnet/internal/dataset"
	"github.com/ffdnet-go/ffdnet/internal/noise"
	"github.com/ffdnet-go/ffdnet/internal/rest"
	"github.com/ffdnet-go/ffdnet/internal/train"
	"gorgonia.org/tensor"
)

const version = "0.1.0"

var cpuprofile = flag.String("cpuprofile", "", "write cpu profile to `file`")
var memprofile = flag.String("memprofile", "", "write memory profile to `file`")

var logFile = flag.String("log", "", "tee log output to `file` in addition to stdout")

var trainDir   = flag.String("trainDir", "data/train", "read training images from `dir`")
var valDir     = flag.String("valDir", "data/val", "read validation images from `dir`, blank to skip")
var trainStore = flag.String("trainStore", "train.db", "training patch store `file`")
var valStore   = flag.String("valStore", "val.db", "validation image store `file`")
var patchSize  = flag.Int("patchSize", 50, "side length of extracted training patches in pixels")
var stride     = flag.Int("stride", 10, "stride between patch grid positions in pixels")
var patches    = flag.Int("patches", 100000, "total number of training patches to extract across all files")
var gray       = flag.Bool("gray", false, "build grayscale stores instead of RGB")

var noiseMode     = flag.String("noiseMode", "synthetic", "noise regime, one of synthetic, wiener, wavelet")
var intervalLow   = flag.Float64("intervalLow", 0, "synthetic mode: lower bound of the sigma interval, in [0,1] range")
var intervalHigh  = flag.Float64("intervalHigh", 0.2, "synthetic mode: upper bound of the sigma interval, in [0,1] range")
var kernelSize    = flag.Int("kernelSize", 5, "wiener mode: filter kernel size, positive odd")
var waveletMethod = flag.String("waveletMethod", noise.BayesShrink, "wavelet mode: threshold selection, BayesShrink or VisuShrink")
var ycbcr         = flag.Bool("ycbcr", false, "wavelet mode: denoise RGB images in YCbCr space")

var batchSize = flag.Int("batchSize", 128, "training batch size")
var epochs    = flag.Int("epochs", 80, "number of training epochs")
var expDir    = flag.String("expDir", "experiment", "experiment `dir` for checkpoints")
var resume    = flag.Bool("resume", false, "resume training from the checkpoint in the experiment dir")
var noOrthog  = flag.Bool("noOrthog", false, "disable orthogonalization of convolution kernels")
var threads   = flag.Int("threads", runtime.NumCPU(), "concurrent store reads per batch")
var seed      = flag.Uint64("seed", 0, "noise RNG seed, 0=non-deterministic")

var addr   = flag.String("addr", ":8080", "serve: listen `address`")
var chroot = flag.String("chroot", "", "serve: chroot into `dir` before serving (requires root)")
var setuid = flag.Int("setuid", -1, "serve: change to `uid` before serving, -1=keep")

func main() {
	var logWriter io.Writer = os.Stdout
	start := time.Now()
	flag.Usage = func() {
		fmt.Fprintf(logWriter, `ffdnet-go Copyright (c) 2021 The ffdnet-go authors
This program comes with ABSOLUTELY NO WARRANTY.
This is free software, and you are welcome to redistribute it under certain conditions.
Refer to https://www.gnu.org/licenses/gpl-3.0.en.html for details.

Usage: %s [-flag value] (prepare|train|serve|legal|version)

Commands:
  prepare Extract patches from training and validation images into stores
  train   Run the denoising training loop on prepared stores
  serve   Serve the store inspection API over HTTP
  legal   Show license and attribution information
  version Show version information

Flags:
`, os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	// Tee logging into a file in addition to stdout, if selected
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0666)
		if err != nil {
			fmt.Fprintf(logWriter, "Unable to open logfile '%s': %s\n", *logFile, err.Error())
			os.Exit(-1)
		}
		defer f.Close()
		logWriter = io.MultiWriter(os.Stdout, f)
	}

	// Enable CPU profiling if flagged
	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			fmt.Fprintf(logWriter, "Could not create CPU profile: %s\n", err.Error())
			os.Exit(-1)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(logWriter, "Could not start CPU profile: %s\n", err.Error())
			os.Exit(-1)
		}
		defer pprof.StopCPUProfile()
	}

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		return
	}

	var err error
	switch args[0] {
	case "prepare":
		err = cmdPrepare(logWriter)

	case "train":
		err = cmdTrain(logWriter)

	case "serve":
		if err = rest.MakeSandbox(*chroot, *setuid, logWriter); err == nil {
			err = rest.Serve(*addr)
		}

	case "legal":
		fmt.Fprintf(logWriter, "%s\n", legal)

	case "version":
		fmt.Fprintf(logWriter, "Version %s\n", version)

	case "help", "?":
		flag.Usage()

	default:
		fmt.Fprintf(logWriter, "Unknown command '%s'\n\n", args[0])
		flag.Usage()
		return
	}

	fmt.Fprintf(logWriter, "\nDone after %v\n", time.Since(start))

	// Store memory profile if flagged
	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		if err != nil {
			fmt.Fprintf(logWriter, "Could not create memory profile: %s\n", err.Error())
			os.Exit(-1)
		}
		defer f.Close()
		runtime.GC() // get up-to-date statistics
		if err := pprof.Lookup("allocs").WriteTo(f, 0); err != nil {
			fmt.Fprintf(logWriter, "Could not write allocation profile: %s\n", err.Error())
			os.Exit(-1)
		}
	}

	if err != nil {
		fmt.Fprintf(logWriter, "Error: %s\n", err.Error())
		os.Exit(-1)
	}
}

// Builds the training and validation stores from image directories
func cmdPrepare(logWriter io.Writer) error {
	b := &dataset.Builder{
		PatchSize:    *patchSize,
		Stride:       *stride,
		TotalPatches: *patches,
		Gray:         *gray,
		Log:          logWriter,
	}
	trainCount, valCount, err := b.PrepareData(*trainDir, *valDir, *trainStore, *valStore)
	if err != nil {
		return err
	}
	fmt.Fprintf(logWriter, "Stored %d training patches in %s and %d validation images in %s\n",
		trainCount, *trainStore, valCount, *valStore)
	return nil
}

// Predicts zero noise for every sample. Stands in for a plugged-in network
// and reports the raw noise energy of the batch as its loss, a lower bound
// sanity check for the data pipeline.
type baselineModel struct{}

func (baselineModel) Predict(noisy, sigma *tensor.Dense) (*tensor.Dense, error) {
	return tensor.New(tensor.WithShape(noisy.Shape()...), tensor.Of(tensor.Float32)), nil
}

// Runs the training loop over the prepared stores
func cmdTrain(logWriter io.Writer) error {
	mode, err := noise.ParseMode(*noiseMode, *intervalLow, *intervalHigh, *kernelSize, *waveletMethod, *ycbcr)
	if err != nil {
		return err
	}
	est, err := noise.New(mode)
	if err != nil {
		return err
	}
	if *seed != 0 {
		est.Seed(*seed)
	}

	trainDS, err := dataset.Open(*trainStore, true)
	if err != nil {
		return err
	}
	trainLoader, err := train.NewLoader(trainDS, *batchSize, true, *threads)
	if err != nil {
		return err
	}
	var valLoader *train.Loader
	if *valStore != "" {
		valDS, err := dataset.Open(*valStore, false)
		if err != nil {
			return err
		}
		// whole validation images differ in size, so they are scored one by one
		if valLoader, err = train.NewLoader(valDS, 1, false, 1); err != nil {
			return err
		}
	}

	fmt.Fprintf(logWriter, "Training %d epochs on %d patches in %s mode\n", *epochs, trainDS.Len(), mode.ModeName())
	loop := train.Loop{
		Model:         baselineModel{},
		Estimator:     est,
		Train:         trainLoader,
		Val:           valLoader,
		Epochs:        *epochs,
		ExperimentDir: *expDir,
		Resume:        *resume,
		NoOrthog:      *noOrthog,
		Log:           logWriter,
	}
	return loop.Run()
}
