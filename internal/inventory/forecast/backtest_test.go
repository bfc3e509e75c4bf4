package forecast

import (
	"testing"

	"github.com/andresuchdata/stockintel/internal/inventory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sma3 = MethodSpec{Method: MethodSMA, Params: Params{Window: 3}}

func TestBacktest_PerfectFitIsZero(t *testing.T) {
	res, err := Backtest([]float64{8, 8, 8, 8, 8, 8}, 3, sma3, BacktestOptions{})
	require.NoError(t, err)

	assert.Equal(t, StatusOK, res.Status)
	assert.Equal(t, 0.0, res.MAPE)
	assert.Equal(t, ConfidenceHigh, res.Confidence)
	assert.Equal(t, 3, res.Holdout)
}

func TestBacktest_LinearTrendWithHolt(t *testing.T) {
	holt := MethodSpec{Method: MethodHolt, Params: Params{Alpha: 0.3, Beta: 0.1}}

	res, err := Backtest([]float64{10, 20, 30, 40, 50, 60}, 2, holt, BacktestOptions{})
	require.NoError(t, err)

	assert.InDelta(t, 0, res.MAPE, 1e-9)
	assert.InDeltaSlice(t, []float64{50, 60}, res.Predicted, 1e-9)
}

func TestBacktest_MAPE(t *testing.T) {
	// SMA(3) over [10,10,10] predicts 10 against actuals [8, 12].
	res, err := Backtest([]float64{10, 10, 10, 8, 12}, 2, sma3, BacktestOptions{})
	require.NoError(t, err)

	want := (2.0/8 + 2.0/12) / 2 * 100
	assert.InDelta(t, want, res.MAPE, 1e-9)
	assert.Equal(t, ConfidenceMedium, res.Confidence)
	assert.Equal(t, []float64{8, 12}, res.Actuals)
}

func TestBacktest_ZeroActualsExcluded(t *testing.T) {
	res, err := Backtest([]float64{10, 10, 10, 0, 20}, 2, sma3, BacktestOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Evaluated)
	assert.Equal(t, 1, res.ZeroActual)
	assert.InDelta(t, 50.0, res.MAPE, 1e-9)
	assert.Equal(t, ConfidenceLow, res.Confidence)
}

func TestBacktest_AllZeroActuals(t *testing.T) {
	res, err := Backtest([]float64{4, 4, 0, 0}, 2, sma3, BacktestOptions{})
	require.NoError(t, err)

	assert.Equal(t, 0.0, res.MAPE)
	assert.Equal(t, 0, res.Evaluated)
	assert.Equal(t, 2, res.ZeroActual)
}

func TestBacktest_HoldoutShrinks(t *testing.T) {
	res, err := Backtest([]float64{5, 6, 7, 8}, 6, sma3, BacktestOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Holdout)

	short, err := Backtest([]float64{5, 6}, 1, sma3, BacktestOptions{})
	require.NoError(t, err)
	assert.Equal(t, StatusInsufficientData, short.Status)
	assert.Equal(t, ConfidenceUnknown, short.Confidence)
}

func TestBacktest_InvalidArguments(t *testing.T) {
	_, err := Backtest([]float64{1, 2, 3}, 0, sma3, BacktestOptions{})
	assert.ErrorIs(t, err, inventory.ErrInvalidArgument)

	_, err = Backtest([]float64{1, 2, 3}, 1, MethodSpec{Method: "arima"}, BacktestOptions{})
	assert.ErrorIs(t, err, inventory.ErrInvalidArgument)
}

func TestBacktest_MAPENeverNegative(t *testing.T) {
	series := []float64{3, 0, 9, 1, 14, 2, 0, 7}
	for _, spec := range []MethodSpec{
		sma3,
		{Method: MethodSES, Params: Params{Alpha: 0.4}},
		{Method: MethodHolt, Params: Params{Alpha: 0.5, Beta: 0.5}},
	} {
		for periods := 1; periods <= 6; periods++ {
			res, err := Backtest(series, periods, spec, BacktestOptions{})
			require.NoError(t, err)
			assert.GreaterOrEqual(t, res.MAPE, 0.0)
		}
	}
}

func TestConfidenceFromMAPE(t *testing.T) {
	assert.Equal(t, ConfidenceHigh, ConfidenceFromMAPE(9.99))
	assert.Equal(t, ConfidenceMedium, ConfidenceFromMAPE(10))
	assert.Equal(t, ConfidenceMedium, ConfidenceFromMAPE(24.9))
	assert.Equal(t, ConfidenceLow, ConfidenceFromMAPE(25))
}
