// Package forecast produces demand forecasts with rule-based method
// selection (SMA, SES, Holt's linear trend), optional multiplicative seasonal
// adjustment and holdout backtesting.
package forecast

import (
	"fmt"
	"time"

	"github.com/andresuchdata/stockintel/internal/inventory"
)

// ManualSelectionReason is recorded when the caller forces a method.
const ManualSelectionReason = "manual"

// Options tunes method selection and seasonal adjustment.
type Options struct {
	SMAWindow        int
	SESAlpha         float64
	OverstockAlpha   float64
	FastAlpha        float64
	HoltAlpha        float64
	HoltBeta         float64
	TrendThreshold   float64 // |YoY growth| at which Holt's is chosen, e.g. 0.10
	StableMaxCV      float64 // CV under which ungraded demand counts as stable
	HighTurnoverRate float64 // annual turnover at which an item is fast-moving
	SeasonLength     int
	MinSeasonCycles  int
	MinHistory       int
	MaxHorizon       int // largest number of periods a caller may request
}

// DefaultOptions returns the standard tuning.
func DefaultOptions() Options {
	return Options{
		SMAWindow:        3,
		SESAlpha:         0.3,
		OverstockAlpha:   0.1,
		FastAlpha:        0.5,
		HoltAlpha:        0.3,
		HoltBeta:         0.1,
		TrendThreshold:   0.10,
		StableMaxCV:      0.5,
		HighTurnoverRate: 12,
		SeasonLength:     12,
		MinSeasonCycles:  2,
		MinHistory:       2,
		MaxHorizon:       730,
	}
}

// Validate checks every rule in the table would produce a valid spec.
func (o Options) Validate() error {
	for _, r := range DefaultRules(o) {
		if err := r.Spec.Validate(); err != nil {
			return fmt.Errorf("rule %s: %w", r.Name, err)
		}
	}
	if o.MinHistory < 2 {
		return fmt.Errorf("min history must be >= 2, got %d: %w", o.MinHistory, inventory.ErrInvalidArgument)
	}
	if o.MaxHorizon < 1 {
		return fmt.Errorf("max horizon must be >= 1, got %d: %w", o.MaxHorizon, inventory.ErrInvalidArgument)
	}
	if o.SeasonLength < 2 || o.MinSeasonCycles < 1 {
		return fmt.Errorf("season length must be >= 2 and cycles >= 1: %w", inventory.ErrInvalidArgument)
	}
	return nil
}

// Request asks for a forecast of one SKU.
type Request struct {
	SKU            string             `json:"sku"`
	History        []Point            `json:"history"`
	Granularity    Granularity        `json:"granularity"`
	Periods        int                `json:"periods"`
	ABCGrade       inventory.ABCGrade `json:"abc_grade,omitempty"`
	XYZGrade       inventory.XYZGrade `json:"xyz_grade,omitempty"`
	TurnoverRate   *float64           `json:"turnover_rate,omitempty"`
	YoYGrowthRate  *float64           `json:"yoy_growth_rate,omitempty"`
	IsOverstock    *bool              `json:"is_overstock,omitempty"`
	SeasonalAdjust bool               `json:"seasonal_adjust"`
	Manual         *MethodSpec        `json:"manual,omitempty"`
}

// Result is a forecast, or an explicit insufficient_data outcome.
type Result struct {
	SKU                string          `json:"sku"`
	Status             Status          `json:"status"`
	Reason             string          `json:"reason,omitempty"`
	Method             Method          `json:"method,omitempty"`
	MethodLabel        string          `json:"method_label,omitempty"`
	Params             Params          `json:"params"`
	Forecast           []float64       `json:"forecast"`
	Periods            []time.Time     `json:"periods"`
	Confidence         Confidence      `json:"confidence"`
	MAPE               float64         `json:"mape"`
	Backtest           *BacktestResult `json:"backtest,omitempty"`
	SelectionRule      string          `json:"selection_rule,omitempty"`
	SelectionReason    string          `json:"selection_reason,omitempty"`
	SeasonallyAdjusted bool            `json:"seasonally_adjusted"`
	HistoryLength      int             `json:"history_length"`
}

// Forecaster selects a method and projects demand forward.
type Forecaster struct {
	opts  Options
	rules []Rule
}

// NewForecaster creates a forecaster using the default rule table for opts.
func NewForecaster(opts Options) (*Forecaster, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Forecaster{opts: opts, rules: DefaultRules(opts)}, nil
}

// NewForecasterWithRules uses a custom selection table. The last rule should
// match everything.
func NewForecasterWithRules(opts Options, rules []Rule) (*Forecaster, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return nil, fmt.Errorf("selection table is empty: %w", inventory.ErrInvalidArgument)
	}
	for _, r := range rules {
		if err := r.Spec.Validate(); err != nil {
			return nil, fmt.Errorf("rule %s: %w", r.Name, err)
		}
	}
	return &Forecaster{opts: opts, rules: rules}, nil
}

// CheckHorizon rejects period counts outside [1, MaxHorizon].
func (f *Forecaster) CheckHorizon(periods int) error {
	if periods < 1 || periods > f.opts.MaxHorizon {
		return fmt.Errorf("forecast periods must be in [1, %d], got %d: %w", f.opts.MaxHorizon, periods, inventory.ErrInvalidArgument)
	}
	return nil
}

// Forecast produces req.Periods future values. Fewer than MinHistory periods
// of history yields Status insufficient_data and no values. The backtest
// annotates the result and never blocks it.
func (f *Forecaster) Forecast(req Request) (*Result, error) {
	if err := f.CheckHorizon(req.Periods); err != nil {
		return nil, err
	}
	if req.Manual != nil {
		if err := req.Manual.Validate(); err != nil {
			return nil, err
		}
	}
	gran := req.Granularity
	if gran == "" {
		gran = Monthly
	}

	series, err := FillGaps(req.History, gran)
	if err != nil {
		return nil, err
	}
	values := Values(series)

	result := &Result{
		SKU:           req.SKU,
		Confidence:    ConfidenceUnknown,
		HistoryLength: len(values),
	}
	if len(values) < f.opts.MinHistory {
		result.Status = StatusInsufficientData
		result.Reason = fmt.Sprintf("need at least %d periods of history, have %d", f.opts.MinHistory, len(values))
		return result, nil
	}

	var spec MethodSpec
	if req.Manual != nil {
		spec = *req.Manual
		result.SelectionRule = ManualSelectionReason
		result.SelectionReason = ManualSelectionReason
	} else {
		ctx := f.selectionContext(req, values)
		rule, ok := Select(f.rules, ctx)
		if !ok {
			return nil, fmt.Errorf("no selection rule matched sku %q: %w", req.SKU, inventory.ErrInvalidArgument)
		}
		spec = rule.Spec
		result.SelectionRule = rule.Name
		result.SelectionReason = rule.Reason(ctx)
	}

	season := seasonality{enabled: req.SeasonalAdjust, length: f.opts.SeasonLength, minCycles: f.opts.MinSeasonCycles}
	forecast, adjusted := projectSeries(values, req.Periods, spec, season)
	if req.SeasonalAdjust && !adjusted {
		result.SelectionReason += fmt.Sprintf("; seasonal adjustment skipped (needs %d full cycles of %d periods)",
			f.opts.MinSeasonCycles, f.opts.SeasonLength)
	}

	result.Status = StatusOK
	result.Method = spec.Method
	result.MethodLabel = spec.Method.Label()
	result.Params = spec.Params
	result.Forecast = forecast
	result.Periods = futurePeriods(series[len(series)-1].Period, gran, req.Periods)
	result.SeasonallyAdjusted = adjusted

	bt, err := Backtest(values, req.Periods, spec, BacktestOptions{
		SeasonalAdjust:  req.SeasonalAdjust,
		SeasonLength:    f.opts.SeasonLength,
		MinSeasonCycles: f.opts.MinSeasonCycles,
	})
	if err == nil {
		result.Backtest = bt
		if bt.Status == StatusOK {
			result.MAPE = bt.MAPE
			result.Confidence = bt.Confidence
		}
	}

	return result, nil
}

func (f *Forecaster) selectionContext(req Request, values []float64) SelectionContext {
	cv, defined := inventory.CoefficientOfVariation(values)
	ctx := SelectionContext{
		ABCGrade:      req.ABCGrade,
		XYZGrade:      req.XYZGrade,
		CV:            cv,
		CVDefined:     defined,
		YoYGrowthRate: req.YoYGrowthRate,
		TurnoverRate:  req.TurnoverRate,
		HistoryLength: len(values),
	}
	if req.IsOverstock != nil {
		ctx.IsOverstock = *req.IsOverstock
	}
	return ctx
}
