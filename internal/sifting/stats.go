package sifting

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
)

// median returns the median of xs, averaging the two central values for
// even lengths. xs is not modified.
func median(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	s := slices.Clone(xs)
	slices.Sort(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

// medianAbsDeviation returns the median of xs and the median absolute
// deviation around it.
func medianAbsDeviation(xs []float64) (med, mad float64) {
	med = median(xs)
	dev := make([]float64, len(xs))
	for i, x := range xs {
		dev[i] = math.Abs(x - med)
	}
	return med, median(dev)
}

// argmax returns the index of the first maximum of xs, or -1 for an empty
// slice.
func argmax(xs []float64) int {
	if len(xs) == 0 {
		return -1
	}
	return floats.MaxIdx(xs)
}
