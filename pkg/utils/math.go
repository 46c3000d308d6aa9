package utils

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// Mean returns the arithmetic mean of values, or 0 for an empty sample.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// Percentile returns the p-th percentile (0..100) of values using gonum's
// linearly interpolated empirical cdf. p is clamped to range and the input
// is not reordered.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := slices.Sorted(slices.Values(values))
	return stat.Quantile(math.Max(0, math.Min(p, 100))/100, stat.LinInterp, sorted, nil)
}

// P95 is Percentile(values, 95).
func P95(values []float64) float64 {
	return Percentile(values, 95)
}

// Round rounds value to the given number of decimal places.
func Round(value float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(value*scale) / scale
}
