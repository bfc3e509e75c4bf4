package inventory

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoefficientOfVariation(t *testing.T) {
	testCases := []struct {
		name    string
		values  []float64
		wantCV  float64
		defined bool
	}{
		{"constant demand", []float64{10, 10, 10, 10}, 0, true},
		{"alternating demand", []float64{0, 20, 0, 20}, 1.0, true},
		{"single point", []float64{5}, CVSentinel, false},
		{"empty", nil, CVSentinel, false},
		{"all zero", []float64{0, 0, 0}, CVSentinel, false},
		{"zero mean with spread", []float64{-5, 5}, CVSentinel, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cv, ok := CoefficientOfVariation(tc.values)
			assert.Equal(t, tc.defined, ok)
			assert.InDelta(t, tc.wantCV, cv, 1e-9)
		})
	}
}

func TestPopulationStdDev(t *testing.T) {
	assert.InDelta(t, 2.0, PopulationStdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9}), 1e-9)
	assert.Equal(t, 0.0, PopulationStdDev(nil))
}

func TestNormalQuantile(t *testing.T) {
	assert.InDelta(t, 0, NormalQuantile(0.5), 1e-9)
	assert.InDelta(t, 1.2816, NormalQuantile(0.90), 1e-3)
	assert.InDelta(t, 1.6449, NormalQuantile(0.95), 1e-3)
	assert.InDelta(t, 2.3263, NormalQuantile(0.99), 1e-3)
	assert.Equal(t, 8.0, NormalQuantile(1))
	assert.False(t, math.IsInf(NormalQuantile(0), 0))
}

func TestPercentile(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	assert.Equal(t, 5.0, Percentile(sorted, 0.5))
	assert.Equal(t, 9.0, Percentile(sorted, 0.9))
	assert.Equal(t, 10.0, Percentile(sorted, 0.99))
	assert.Equal(t, 1.0, Percentile(sorted, 0))
	assert.Equal(t, 0.0, Percentile(nil, 0.5))
}
