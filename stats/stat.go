// Package stats holds small numeric helpers shared by the dataset,
// trainer, and predictor packages.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Quantile computes the q-th quantile (0 <= q <= 1) using linear
// interpolation between closest ranks. Returns NaN on an empty slice.
func Quantile(y []float64, q float64) float64 {
	if len(y) == 0 {
		return math.NaN()
	}
	q = math.Max(0.0, math.Min(1.0, q))

	yCopy := make([]float64, len(y))
	copy(yCopy, y)
	sort.Float64s(yCopy)

	pos := q * float64(len(yCopy)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return yCopy[lo]
	}
	frac := pos - float64(lo)
	return yCopy[lo]*(1.0-frac) + yCopy[hi]*frac
}

// Median returns the 50th percentile of y, NaN when empty.
func Median(y []float64) float64 {
	return Quantile(y, 0.5)
}

// SampleStdDev returns the corrected sample standard deviation, or 0 when
// fewer than 2 samples exist.
func SampleStdDev(y []float64) float64 {
	if len(y) < 2 {
		return 0
	}
	return stat.StdDev(y, nil)
}

// PopStdDev returns the uncorrected population standard deviation, or 0
// when empty.
func PopStdDev(y []float64) float64 {
	if len(y) == 0 {
		return 0
	}
	mean := stat.Mean(y, nil)
	var ss float64
	for _, v := range y {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(y)))
}

// Slope fits an ordinary least squares line to y against x = 0..len(y)-1
// and returns its slope. Fewer than 2 points yields 0.
func Slope(y []float64) float64 {
	if len(y) < 2 {
		return 0
	}
	x := make([]float64, len(y))
	for i := range x {
		x[i] = float64(i)
	}
	_, slope := stat.LinearRegression(x, y, nil, false)
	if math.IsNaN(slope) || math.IsInf(slope, 0) {
		return 0
	}
	return slope
}
