package sifting

import (
	"math"
	"slices"
	"sort"
)

// ToleranceGroup is one cluster produced by GroupByTolerance.
type ToleranceGroup struct {
	Anchor  float64   // smallest value of the group
	Window  float64   // Anchor * tol / 100
	Members []float64 // values that joined the group, ascending
}

// ToleranceGroups is the ordered output of GroupByTolerance. Anchors are
// strictly increasing.
type ToleranceGroups []ToleranceGroup

// GroupByTolerance partitions values, sorted ascending, into clusters. The
// smallest ungrouped value becomes the anchor and every remaining value no
// larger than anchor*(1+tolPercent/100) joins it.
func GroupByTolerance(sorted []float64, tolPercent float64) ToleranceGroups {
	if len(sorted) == 0 {
		return nil
	}

	frac := tolPercent / 100.0
	groups := make(ToleranceGroups, 0, len(sorted))
	for i := 0; i < len(sorted); {
		anchor := sorted[i]
		window := anchor * frac
		j := i + 1
		for j < len(sorted) && sorted[j] <= anchor+window {
			j++
		}
		groups = append(groups, ToleranceGroup{
			Anchor:  anchor,
			Window:  window,
			Members: slices.Clone(sorted[i:j]),
		})
		i = j
	}
	return groups
}

// Bounds returns the half-open range (lo, hi] owned by group k. Interior
// boundaries sit at anchor+window/2 of the lower group, and a value exactly
// on one belongs to that group. The first group starts at -Inf. The last
// group extends to +Inf rather than stopping at its own anchor+window/2, so
// members between its half and full window are kept instead of orphaned.
func (g ToleranceGroups) Bounds(k int) (lo, hi float64) {
	lo = math.Inf(-1)
	if k > 0 {
		lo = g[k-1].Anchor + g[k-1].Window/2
	}
	hi = math.Inf(1)
	if k < len(g)-1 {
		hi = g[k].Anchor + g[k].Window/2
	}
	return lo, hi
}

// Assign returns the index of the group whose range holds v, or -1 when
// there are no groups.
func (g ToleranceGroups) Assign(v float64) int {
	if len(g) == 0 {
		return -1
	}
	return sort.Search(len(g), func(k int) bool {
		_, hi := g.Bounds(k)
		return v <= hi
	})
}

// Anchors returns the group anchors in order.
func (g ToleranceGroups) Anchors() []float64 {
	out := make([]float64, len(g))
	for i, grp := range g {
		out[i] = grp.Anchor
	}
	return out
}

// uniqueSorted returns the distinct non-NaN values of vs in ascending order.
func uniqueSorted(vs []float64) []float64 {
	out := make([]float64, 0, len(vs))
	for _, v := range vs {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// contiguousRuns splits ascending integers into runs of consecutive values.
func contiguousRuns(sorted []int) [][]int {
	if len(sorted) == 0 {
		return nil
	}
	var runs [][]int
	start := 0
	for i := 1; i < len(sorted); i++ {
		if sorted[i]-sorted[i-1] > 1 {
			runs = append(runs, sorted[start:i])
			start = i
		}
	}
	return append(runs, sorted[start:])
}
