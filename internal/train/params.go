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
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
)

// Checkpoint file name within an experiment directory
const checkpointFile = "ckpt.json"

// Counters carried across training runs
type TrainingParams struct {
	Step         int  `json:"step"`
	NoOrthog     bool `json:"noOrthog"`
	NumBadEpochs int  `json:"numBadEpochs"`
	StartEpoch   int  `json:"startEpoch"`
}

// Validation-side counters
type ValParams struct {
	Step     int     `json:"step"`
	BestLoss float64 `json:"bestLoss"`
}

type checkpoint struct {
	Training TrainingParams `json:"trainingParams"`
	Val      ValParams      `json:"valParams"`
}

// Loads training state for a fresh or resumed run. With resume, a missing
// checkpoint file is a fatal error rather than a silent fresh start.
func Resume(experimentDir string, resume, noOrthog bool, log io.Writer) (TrainingParams, ValParams, int, error) {
	if !resume {
		t := TrainingParams{NoOrthog: noOrthog}
		v := ValParams{BestLoss: math.MaxFloat64}
		return t, v, 0, nil
	}

	path := filepath.Join(experimentDir, checkpointFile)
	buf, err := os.ReadFile(path)
	if err != nil {
		return TrainingParams{}, ValParams{}, 0, fmt.Errorf("cannot resume training from checkpoint %s: %w", path, err)
	}
	var ck checkpoint
	if err := json.Unmarshal(buf, &ck); err != nil {
		return TrainingParams{}, ValParams{}, 0, fmt.Errorf("cannot parse checkpoint %s: %w", path, err)
	}

	fmt.Fprintf(log, "Resuming training from %s at epoch %d, step %d, best loss %g\n",
		path, ck.Training.StartEpoch, ck.Training.Step, ck.Val.BestLoss)
	return ck.Training, ck.Val, ck.Training.StartEpoch, nil
}

// Writes the checkpoint for the current epoch, creating the experiment
// directory if needed
func SaveCheckpoint(experimentDir string, t TrainingParams, v ValParams) error {
	if err := os.MkdirAll(experimentDir, 0777); err != nil {
		return err
	}
	buf, err := json.MarshalIndent(checkpoint{Training: t, Val: v}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(experimentDir, checkpointFile), buf, 0666)
}
