package dataset

import (
	"math"
	"slices"
)

// Quantile returns the q-th quantile of values using linear interpolation
// between the closest ranks. Values need not be sorted. It returns NaN for an
// empty input.
func Quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	return quantileSorted(sorted, q)
}

func quantileSorted(sorted []float64, q float64) float64 {
	q = min(max(q, 0), 1)

	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))

	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}

	frac := pos - float64(lo)

	return sorted[lo] + (sorted[lo+1]-sorted[lo])*frac
}

// Median returns the 0.5 quantile.
func Median(values []float64) float64 {
	return Quantile(values, 0.5)
}

// Mean returns the arithmetic mean, or NaN for an empty input.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}

	var sum float64
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}
