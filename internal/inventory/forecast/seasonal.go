package forecast

import "github.com/andresuchdata/stockintel/internal/inventory"

// SeasonalIndices computes multiplicative indices for a cycle of length
// seasonLength: the mean of each position divided by the overall mean. ok is
// false when there are fewer than minCycles complete cycles or the series
// mean is zero.
func SeasonalIndices(values []float64, seasonLength, minCycles int) (indices []float64, ok bool) {
	if seasonLength < 2 || minCycles < 1 || len(values) < seasonLength*minCycles {
		return nil, false
	}
	overall := inventory.Mean(values)
	if overall <= 0 {
		return nil, false
	}

	sums := make([]float64, seasonLength)
	counts := make([]int, seasonLength)
	for t, v := range values {
		sums[t%seasonLength] += v
		counts[t%seasonLength]++
	}

	indices = make([]float64, seasonLength)
	for p := range indices {
		indices[p] = (sums[p] / float64(counts[p])) / overall
	}
	return indices, true
}

func deseasonalize(values, indices []float64) []float64 {
	out := make([]float64, len(values))
	for t, v := range values {
		idx := indices[t%len(indices)]
		if idx > 0 {
			out[t] = v / idx
		}
	}
	return out
}

// reseasonalize scales forecast h (0-based) by the index of position n+h.
func reseasonalize(forecast, indices []float64, n int) {
	for h := range forecast {
		forecast[h] *= indices[(n+h)%len(indices)]
	}
}

type seasonality struct {
	enabled   bool
	length    int
	minCycles int
}

// projectSeries runs the optional seasonal adjustment around project and
// clamps the result at zero. adjusted reports whether indices were applied.
func projectSeries(values []float64, periods int, spec MethodSpec, season seasonality) (out []float64, adjusted bool) {
	fitOn := values
	var indices []float64
	if season.enabled {
		if idx, ok := SeasonalIndices(values, season.length, season.minCycles); ok {
			indices = idx
			fitOn = deseasonalize(values, idx)
			adjusted = true
		}
	}

	out = project(fitOn, periods, spec)
	if adjusted {
		reseasonalize(out, indices, len(values))
	}
	clampNonNegative(out)
	return out, adjusted
}
