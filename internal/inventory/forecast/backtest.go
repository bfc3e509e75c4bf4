package forecast

import (
	"fmt"
	"math"

	"github.com/andresuchdata/stockintel/internal/inventory"
)

// Confidence buckets backtest accuracy.
type Confidence string

const (
	ConfidenceHigh    Confidence = "high"
	ConfidenceMedium  Confidence = "medium"
	ConfidenceLow     Confidence = "low"
	ConfidenceUnknown Confidence = "unknown"
)

// MAPE thresholds, in percent.
const (
	HighConfidenceMaxMAPE   = 10.0
	MediumConfidenceMaxMAPE = 25.0
)

// MinTrainingPeriods is the shortest training window a backtest fits on.
const MinTrainingPeriods = 2

// Status tells a real result from a "not applicable" one.
type Status string

const (
	StatusOK               Status = "ok"
	StatusInsufficientData Status = "insufficient_data"
)

// BacktestResult is the holdout accuracy of a method.
type BacktestResult struct {
	Status     Status     `json:"status"`
	Reason     string     `json:"reason,omitempty"`
	MAPE       float64    `json:"mape"` // percent
	Confidence Confidence `json:"confidence"`
	Holdout    int        `json:"holdout"`
	Evaluated  int        `json:"evaluated"`    // holdout periods with actual > 0
	ZeroActual int        `json:"zero_actuals"` // holdout periods excluded from MAPE
	Actuals    []float64  `json:"actuals,omitempty"`
	Predicted  []float64  `json:"predicted,omitempty"`
}

// ConfidenceFromMAPE buckets a MAPE (percent).
func ConfidenceFromMAPE(mape float64) Confidence {
	switch {
	case mape < HighConfidenceMaxMAPE:
		return ConfidenceHigh
	case mape < MediumConfidenceMaxMAPE:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// MAPE returns the mean absolute percentage error over periods with a
// positive actual. When every actual is zero it returns 0 by convention.
func MAPE(actuals, predicted []float64) (mape float64, evaluated int) {
	var sum float64
	for i, a := range actuals {
		if a <= 0 || i >= len(predicted) {
			continue
		}
		sum += math.Abs(a-predicted[i]) / a
		evaluated++
	}
	if evaluated == 0 {
		return 0, 0
	}
	return sum / float64(evaluated) * 100, evaluated
}

// BacktestOptions controls seasonal adjustment during the replay.
type BacktestOptions struct {
	SeasonalAdjust  bool
	SeasonLength    int
	MinSeasonCycles int
}

// Backtest withholds the last periods observations, fits spec on the rest
// and scores the forecast against the withheld actuals. When the series is
// too short to keep MinTrainingPeriods for training the holdout shrinks; if
// not even one period can be held out the result is insufficient_data.
func Backtest(values []float64, periods int, spec MethodSpec, opts BacktestOptions) (*BacktestResult, error) {
	if periods < 1 {
		return nil, fmt.Errorf("backtest periods must be >= 1, got %d: %w", periods, inventory.ErrInvalidArgument)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if err := validateValues(values); err != nil {
		return nil, err
	}

	holdout := periods
	if len(values)-holdout < MinTrainingPeriods {
		holdout = len(values) - MinTrainingPeriods
	}
	if holdout < 1 {
		return &BacktestResult{
			Status:     StatusInsufficientData,
			Reason:     fmt.Sprintf("need at least %d periods to backtest, have %d", MinTrainingPeriods+1, len(values)),
			Confidence: ConfidenceUnknown,
		}, nil
	}

	train := values[:len(values)-holdout]
	actuals := append([]float64(nil), values[len(values)-holdout:]...)
	predicted, _ := projectSeries(train, holdout, spec, seasonality{
		enabled:   opts.SeasonalAdjust,
		length:    opts.SeasonLength,
		minCycles: opts.MinSeasonCycles,
	})

	mape, evaluated := MAPE(actuals, predicted)
	return &BacktestResult{
		Status:     StatusOK,
		MAPE:       mape,
		Confidence: ConfidenceFromMAPE(mape),
		Holdout:    holdout,
		Evaluated:  evaluated,
		ZeroActual: holdout - evaluated,
		Actuals:    actuals,
		Predicted:  predicted,
	}, nil
}
