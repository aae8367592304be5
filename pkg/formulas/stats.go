// Package formulas holds the numeric primitives the analytics modules build on.
package formulas

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// PopStdDev calculates the population (biased) standard deviation.
// A single observation has zero spread.
func PopStdDev(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.PopStdDev(data, nil)
}

// MinMax returns the smallest and largest value in data.
// ok is false for an empty slice.
func MinMax(data []float64) (lo, hi float64, ok bool) {
	if len(data) == 0 {
		return 0, 0, false
	}
	lo, hi = data[0], data[0]
	for _, v := range data[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi, true
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// LinearTrend fits y = intercept + slope*x by least squares.
// Returns ok=false when fewer than two points are supplied or the lengths differ.
func LinearTrend(x, y []float64) (intercept, slope float64, ok bool) {
	if len(x) < 2 || len(x) != len(y) {
		return 0, 0, false
	}
	intercept, slope = stat.LinearRegression(x, y, nil, false)
	if math.IsNaN(intercept) || math.IsNaN(slope) {
		return 0, 0, false
	}
	return intercept, slope, true
}

// PercentChange returns (current-previous)/previous*100, or nil if previous is zero.
func PercentChange(current, previous float64) *float64 {
	if previous == 0 {
		return nil
	}
	change := (current - previous) / previous * 100
	return &change
}
