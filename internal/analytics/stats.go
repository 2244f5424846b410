package analytics

import (
	"math"
	"sort"
)

// sortedCopy returns the values in ascending order without touching the input.
func sortedCopy(values []float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	sort.Float64s(out)
	return out
}

// Median returns the middle value, or the mean of the two middle values for
// an even count. ok is false for empty input.
func Median(values []float64) (median float64, ok bool) {
	if len(values) == 0 {
		return 0, false
	}
	return medianSorted(sortedCopy(values)), true
}

// Mean returns the arithmetic mean. ok is false for empty input.
func Mean(values []float64) (mean float64, ok bool) {
	if len(values) == 0 {
		return 0, false
	}
	return meanSorted(sortedCopy(values)), true
}

// Quantile returns the q-th quantile (0 <= q <= 1) using linear
// interpolation between the closest ranks, position q*(n-1).
// ok is false for empty input or q outside [0, 1].
func Quantile(values []float64, q float64) (quantile float64, ok bool) {
	if len(values) == 0 || q < 0 || q > 1 || math.IsNaN(q) {
		return 0, false
	}
	return quantileSorted(sortedCopy(values), q), true
}

func medianSorted(s []float64) float64 {
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

// meanSorted sums in ascending order so the result does not depend on the
// order records arrived in.
func meanSorted(s []float64) float64 {
	var sum float64
	for _, v := range s {
		sum += v
	}
	return sum / float64(len(s))
}

func quantileSorted(s []float64, q float64) float64 {
	pos := q * float64(len(s)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return s[lo]
	}
	return s[lo] + (s[hi]-s[lo])*(pos-float64(lo))
}
