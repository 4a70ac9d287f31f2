package sifting

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupByTolerance_Empty(t *testing.T) {
	assert.Nil(t, GroupByTolerance(nil, 1))
	assert.Equal(t, -1, ToleranceGroups(nil).Assign(3))
}

func TestGroupByTolerance_Single(t *testing.T) {
	groups := GroupByTolerance([]float64{2.5}, 10)
	require.Len(t, groups, 1)
	assert.Equal(t, 2.5, groups[0].Anchor)
	assert.InDelta(t, 0.25, groups[0].Window, 1e-12)
	assert.Equal(t, []float64{2.5}, groups[0].Members)
}

func TestGroupByTolerance_Partition(t *testing.T) {
	values := []float64{100, 100.5, 101, 101.5, 110, 120, 121}
	groups := GroupByTolerance(values, 1)

	want := ToleranceGroups{
		{Anchor: 100, Window: 1, Members: []float64{100, 100.5, 101}},
		{Anchor: 101.5, Window: 1.015, Members: []float64{101.5}},
		{Anchor: 110, Window: 1.1, Members: []float64{110}},
		{Anchor: 120, Window: 1.2, Members: []float64{120, 121}},
	}
	if diff := cmp.Diff(want, groups, cmp.Comparer(func(a, b float64) bool {
		return math.Abs(a-b) < 1e-9
	})); diff != "" {
		t.Errorf("groups mismatch (-want +got):\n%s", diff)
	}
}

func TestGroupByTolerance_Properties(t *testing.T) {
	values := []float64{0.0011, 0.00111, 0.0013, 0.25, 0.2501, 0.2502, 0.26, 1.0, 1.0004, 1.2, 3.3}

	first := GroupByTolerance(values, 0.5)
	second := GroupByTolerance(values, 0.5)
	assert.Equal(t, first, second, "grouping must be idempotent")

	seen := make(map[float64]int)
	for _, g := range first {
		for _, m := range g.Members {
			seen[m]++
		}
	}
	for _, v := range values {
		assert.Equal(t, 1, seen[v], "value %v must appear in exactly one group", v)
	}

	remaining := append([]float64(nil), values...)
	for i, g := range first {
		if i > 0 {
			assert.Greater(t, g.Anchor, first[i-1].Anchor)
		}
		assert.Equal(t, remaining[0], g.Anchor, "anchor must be the smallest ungrouped value")
		remaining = remaining[len(g.Members):]
	}
	assert.Empty(t, remaining)
}

func TestToleranceGroups_BoundsAndAssign(t *testing.T) {
	groups := GroupByTolerance([]float64{100, 200, 300}, 10)

	lo, hi := groups.Bounds(0)
	assert.True(t, math.IsInf(lo, -1))
	assert.Equal(t, 105.0, hi)

	lo, hi = groups.Bounds(1)
	assert.Equal(t, 105.0, lo)
	assert.Equal(t, 210.0, hi)

	_, hi = groups.Bounds(2)
	assert.True(t, math.IsInf(hi, 1))

	tests := []struct {
		v    float64
		want int
	}{
		{50, 0},
		{105, 0}, // borderline value stays with the lower anchor
		{105.0001, 1},
		{210, 1},
		{210.5, 2},
		{400, 2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, groups.Assign(tt.v), "Assign(%v)", tt.v)
	}
	assert.Equal(t, []float64{100, 200, 300}, groups.Anchors())
}

func TestContiguousRuns(t *testing.T) {
	assert.Nil(t, contiguousRuns(nil))
	assert.Equal(t, [][]int{{4}}, contiguousRuns([]int{4}))
	assert.Equal(t, [][]int{{0, 1, 2}, {4, 5}, {9}}, contiguousRuns([]int{0, 1, 2, 4, 5, 9}))
}

func TestUniqueSorted(t *testing.T) {
	got := uniqueSorted([]float64{3, 1, math.NaN(), 2, 3, 1})
	assert.Equal(t, []float64{1, 2, 3}, got)
}

func TestDMTolerance(t *testing.T) {
	tol := NewDMTolerance(2, 20)
	assert.InDelta(t, 2.0, tol.At(0.010), 1e-9)
	assert.InDelta(t, 20.0, tol.At(1.000), 1e-9)
	assert.InDelta(t, 11.0, tol.At(0.505), 1e-9)

	flat := NewDMTolerance(3, 3)
	assert.Equal(t, 0.0, flat.Slope)
	assert.InDelta(t, 3.0, flat.At(7), 1e-12)
}

func TestMedianAbsDeviation(t *testing.T) {
	med, mad := medianAbsDeviation([]float64{50.0, 50.1, 49.9, 50.2, 50.0})
	assert.InDelta(t, 50.0, med, 1e-12)
	assert.InDelta(t, 0.1, mad, 1e-9)

	med, mad = medianAbsDeviation([]float64{1, 2, 3, 4})
	assert.InDelta(t, 2.5, med, 1e-12)
	assert.InDelta(t, 1.0, mad, 1e-12)

	assert.True(t, math.IsNaN(median(nil)))
	assert.Equal(t, -1, argmax(nil))
	assert.Equal(t, 1, argmax([]float64{1, 5, 5, 2}))
}
