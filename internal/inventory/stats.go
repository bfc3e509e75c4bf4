package inventory

import "math"

// CVSentinel stands in for an undefined or infinite coefficient of variation.
// It is large enough to grade Z under any sensible threshold.
const CVSentinel = 999.0

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// PopulationStdDev returns the population standard deviation (divide by n).
func PopulationStdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := Mean(values)
	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)))
}

// CoefficientOfVariation returns stddev/mean using the population standard
// deviation. ok is false when the CV is undefined: fewer than two points, an
// all-zero history, or a zero mean with non-zero spread. In that case the
// returned value is CVSentinel.
func CoefficientOfVariation(values []float64) (cv float64, ok bool) {
	if len(values) < 2 {
		return CVSentinel, false
	}
	allZero := true
	for _, v := range values {
		if v != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return CVSentinel, false
	}
	mean := Mean(values)
	std := PopulationStdDev(values)
	if mean == 0 {
		return CVSentinel, false
	}
	cv = std / math.Abs(mean)
	if math.IsInf(cv, 0) || math.IsNaN(cv) || cv > CVSentinel {
		return CVSentinel, false
	}
	return cv, true
}

// NormalQuantile returns z such that P(Z <= z) = p for a standard normal Z.
// p must lie in (0, 1); values outside are clamped to ±8.
func NormalQuantile(p float64) float64 {
	switch {
	case p <= 0:
		return -8
	case p >= 1:
		return 8
	}
	return math.Sqrt2 * math.Erfinv(2*p-1)
}

// Percentile returns the p-th percentile (0..1) of an ascending sorted slice
// using the nearest-rank method.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	idx := int(math.Ceil(p*float64(n))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= n {
		idx = n - 1
	}
	return sorted[idx]
}

// RoundTo rounds v to the given number of decimal places.
func RoundTo(v float64, decimals int) float64 {
	if decimals <= 0 {
		return math.Round(v)
	}
	factor := math.Pow(10, float64(decimals))
	return math.Round(v*factor) / factor
}
