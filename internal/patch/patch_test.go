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

package patch

import (
	"testing"

	"github.com/ffdnet-go/ffdnet/internal/img"
)

// builds a test image whose pixel value encodes channel and position
func rampImage(channels, height, width int) *img.Image {
	f := img.NewImage(channels, height, width)
	for c := 0; c < channels; c++ {
		plane := f.Channel(c)
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				plane[y*width+x] = float32(c*1000000 + y*1000 + x)
			}
		}
	}
	return f
}

type extractTestCase struct {
	Channels, Height, Width int
	Win, Stride             int
}

func TestExtractCount(t *testing.T) {
	tcs := []extractTestCase{
		{1, 8, 8, 4, 1},
		{1, 8, 8, 4, 4},
		{3, 17, 23, 5, 3},
		{3, 50, 44, 44, 1},
		{1, 9, 9, 9, 1},
	}
	for _, tc := range tcs {
		f := rampImage(tc.Channels, tc.Height, tc.Width)
		patches := Extract(f, tc.Win, tc.Stride)

		wantN := ((tc.Height-tc.Win)/tc.Stride + 1) * ((tc.Width-tc.Win)/tc.Stride + 1)
		shape := patches.Shape()
		if shape[0] != tc.Channels || shape[1] != tc.Win || shape[2] != tc.Win || shape[3] != wantN {
			t.Errorf("%dx%dx%d win=%d stride=%d: shape=%v; want (%d,%d,%d,%d)",
				tc.Channels, tc.Height, tc.Width, tc.Win, tc.Stride, shape, tc.Channels, tc.Win, tc.Win, wantN)
		}
	}
}

func TestExtractValues(t *testing.T) {
	channels, height, width, win, stride := 3, 12, 10, 4, 2
	f := rampImage(channels, height, width)
	patches := Extract(f, win, stride)

	rows, cols, _ := GridSize(height, width, win, stride)
	for gy := 0; gy < rows; gy++ {
		for gx := 0; gx < cols; gx++ {
			p := At(patches, gy*cols+gx)
			for c := 0; c < channels; c++ {
				for i := 0; i < win; i++ {
					for j := 0; j < win; j++ {
						got := p[(c*win+i)*win+j]
						want := float32(c*1000000 + (gy*stride+i)*1000 + (gx*stride + j))
						if got != want {
							t.Fatalf("patch (%d,%d) value [%d,%d,%d]=%f; want %f", gy, gx, c, i, j, got, want)
						}
					}
				}
			}
		}
	}
}

func TestQuota(t *testing.T) {
	perFile, remainder, err := Quota(100, 7)
	if err != nil {
		t.Fatalf("quota error: %s", err)
	}
	if perFile != 14 || remainder != 2 {
		t.Errorf("quota(100,7)=(%d,%d); want (14,2)", perFile, remainder)
	}

	if _, _, err = Quota(100, 0); err == nil {
		t.Errorf("quota with zero files succeeded; want error")
	}
	if _, _, err = Quota(-1, 3); err == nil {
		t.Errorf("quota with negative budget succeeded; want error")
	}
}

func TestTakeDistribution(t *testing.T) {
	// 100 patches over 7 files: first 2 files take 15, the rest 14
	perFile, remainder, err := Quota(100, 7)
	if err != nil {
		t.Fatalf("quota error: %s", err)
	}

	total, extras := 0, 0
	for i := 0; i < 7; i++ {
		n := Take(1000, perFile, &remainder)
		if n > perFile {
			extras++
			if i >= 2 {
				t.Errorf("file %d received extra patch; want extras on earliest files only", i)
			}
		}
		total += n
	}
	if total != 100 {
		t.Errorf("stored total=%d; want 100", total)
	}
	if extras != 2 {
		t.Errorf("extras=%d; want 2", extras)
	}
	if remainder != 0 {
		t.Errorf("remainder=%d after distribution; want 0", remainder)
	}
}

func TestTakeShortFile(t *testing.T) {
	remainder := 1
	if n := Take(0, 10, &remainder); n != 0 {
		t.Errorf("take on empty file=%d; want 0", n)
	}
	if remainder != 1 {
		t.Errorf("empty file consumed remainder; want it preserved")
	}
	if n := Take(5, 10, &remainder); n != 5 {
		t.Errorf("take on short file=%d; want 5", n)
	}
}
