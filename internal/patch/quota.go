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
	"fmt"
)

// Splits a total patch budget across a number of source files. Each file
// contributes perFile patches, and the first remainder files processed
// contribute one extra patch each, so the stored total adds up to exactly
// totalPatches.
func Quota(totalPatches, nFiles int) (perFile, remainder int, err error) {
	if nFiles <= 0 {
		return 0, 0, fmt.Errorf("cannot distribute %d patches across %d files", totalPatches, nFiles)
	}
	if totalPatches < 0 {
		return 0, 0, fmt.Errorf("invalid patch budget %d", totalPatches)
	}
	return totalPatches / nFiles, totalPatches % nFiles, nil
}

// Number of patches the current file contributes: its per-file quota, plus
// one extra while remainder budget is left, capped by the patches actually
// available in the file. Decrements *remainder when the extra is granted.
// Files without any patches never consume remainder budget.
func Take(available, perFile int, remainder *int) int {
	if available <= 0 {
		return 0
	}
	n := perFile
	if *remainder > 0 {
		*remainder--
		n++
	}
	if n > available {
		n = available
	}
	return n
}
