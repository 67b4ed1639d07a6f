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
	"io"

	"github.com/ffdnet-go/ffdnet/internal/noise"
	"gorgonia.org/tensor"
)

// The denoising network is an external collaborator: it receives the noisy
// batch and the per-sample noise levels and predicts the noise pattern
type Model interface {
	Predict(noisy, sigma *tensor.Dense) (*tensor.Dense, error)
}

// Sum of squared differences between prediction and target
func SumLoss(pred, target *tensor.Dense) (float64, error) {
	p, okP := pred.Data().([]float32)
	n, okN := target.Data().([]float32)
	if !okP || !okN || len(p) != len(n) {
		return 0, fmt.Errorf("prediction shape %v does not match target shape %v", pred.Shape(), target.Shape())
	}
	sum := float64(0)
	for i := range p {
		d := float64(p[i] - n[i])
		sum += d * d
	}
	return sum, nil
}

// Per-batch training loss: summed squared error over the batch, scaled by
// 1/(2*batchSize)
func BatchLoss(pred, target *tensor.Dense, batchSize int) (float64, error) {
	sum, err := SumLoss(pred, target)
	if err != nil {
		return 0, err
	}
	return sum / (2 * float64(batchSize)), nil
}

// Drives epochs over the training loader, deriving (clean, noisy, sigma,
// noise) per batch from the estimator, feeding the model and checkpointing
// per epoch. Optimization itself lives inside the model collaborator; the
// OnBatch hook observes every training step.
type Loop struct {
	Model     Model
	Estimator *noise.Estimator
	Train     *Loader
	Val       *Loader // optional

	Epochs        int
	ExperimentDir string
	Resume        bool
	NoOrthog      bool
	Log           io.Writer

	OnBatch func(epoch, step int, loss float64)
}

func (lp *Loop) Run() error {
	training, val, startEpoch, err := Resume(lp.ExperimentDir, lp.Resume, lp.NoOrthog, lp.Log)
	if err != nil {
		return err
	}

	for epoch := startEpoch; epoch < lp.Epochs; epoch++ {
		lp.Train.Reshuffle()
		epochLoss := float64(0)
		for i := 0; i < lp.Train.Batches(); i++ {
			batch, err := lp.Train.Batch(i)
			if err != nil {
				return err
			}
			loss, err := lp.step(batch)
			if err != nil {
				return fmt.Errorf("epoch %d batch %d: %w", epoch, i, err)
			}
			epochLoss += loss
			training.Step++
			if lp.OnBatch != nil {
				lp.OnBatch(epoch, training.Step, loss)
			}
		}
		if b := lp.Train.Batches(); b > 0 {
			epochLoss /= float64(b)
		}
		fmt.Fprintf(lp.Log, "epoch %d: %d steps, mean training loss %.6g\n", epoch, training.Step, epochLoss)
		if f := lp.Estimator.NaNFallbacks; f > 0 {
			fmt.Fprintf(lp.Log, "epoch %d: WARNING %d NaN fallbacks in noise estimation so far\n", epoch, f)
		}

		if lp.Val != nil {
			valLoss, err := lp.validate()
			if err != nil {
				return err
			}
			val.Step++
			if valLoss < val.BestLoss {
				val.BestLoss = valLoss
				training.NumBadEpochs = 0
			} else {
				training.NumBadEpochs++
			}
			fmt.Fprintf(lp.Log, "epoch %d: validation loss %.6g, best %.6g, bad epochs %d\n",
				epoch, valLoss, val.BestLoss, training.NumBadEpochs)
		}

		training.StartEpoch = epoch + 1
		if err := SaveCheckpoint(lp.ExperimentDir, training, val); err != nil {
			return err
		}
	}
	return nil
}

func (lp *Loop) step(batch *tensor.Dense) (float64, error) {
	_, noisy, sigma, noiseMap, err := lp.Estimator.MakeInputs(batch)
	if err != nil {
		return 0, err
	}
	pred, err := lp.Model.Predict(noisy, sigma)
	if err != nil {
		return 0, err
	}
	return BatchLoss(pred, noiseMap, batch.Shape()[0])
}

func (lp *Loop) validate() (float64, error) {
	sum := float64(0)
	for i := 0; i < lp.Val.Batches(); i++ {
		batch, err := lp.Val.Batch(i)
		if err != nil {
			return 0, err
		}
		loss, err := lp.step(batch)
		if err != nil {
			return 0, err
		}
		sum += loss
	}
	if b := lp.Val.Batches(); b > 0 {
		sum /= float64(b)
	}
	return sum, nil
}
