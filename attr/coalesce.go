// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package attr

import "slices"

// Run is a maximal range of consecutive slots, End inclusive.
type Run struct {
	Start, End int
}

// Len returns the number of slots in r.
func (r Run) Len() int { return r.End - r.Start + 1 }

// Coalesce partitions slots into maximal runs of consecutive integers.
//
// The input is copied, sorted ascending and deduplicated; one run is
// produced per cluster, so {2, 5} yields two runs and {2, 3, 4} yields one.
// An empty input yields no runs.
func Coalesce(slots []int) []Run {
	if len(slots) == 0 {
		return nil
	}
	sorted := slices.Clone(slots)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	runs := make([]Run, 0, 1)
	cur := Run{Start: sorted[0], End: sorted[0]}
	for _, s := range sorted[1:] {
		if s == cur.End+1 {
			cur.End = s
			continue
		}
		runs = append(runs, cur)
		cur = Run{Start: s, End: s}
	}
	return append(runs, cur)
}
