package forecast

import (
	"fmt"
	"math"

	"github.com/andresuchdata/stockintel/internal/inventory"
)

// SelectionContext is what the selection rules look at.
type SelectionContext struct {
	ABCGrade      inventory.ABCGrade
	XYZGrade      inventory.XYZGrade
	CV            float64
	CVDefined     bool
	YoYGrowthRate *float64
	TurnoverRate  *float64
	IsOverstock   bool
	HistoryLength int
}

// Rule is one row of the selection table. Rules are evaluated in order and
// the first whose When matches wins.
type Rule struct {
	Name   string
	When   func(SelectionContext) bool
	Spec   MethodSpec
	Reason func(SelectionContext) string
}

// DefaultRules builds the selection table from opts:
//
//	trend       |YoY growth| >= TrendThreshold      -> Holt's
//	overstock   item flagged overstocked            -> SES, low alpha
//	stable      grade X, or CV < StableMaxCV        -> SMA
//	fast-moving turnover >= HighTurnoverRate        -> SES, high alpha
//	default     anything else                       -> SES
func DefaultRules(opts Options) []Rule {
	return []Rule{
		{
			Name: "trend",
			When: func(c SelectionContext) bool {
				return c.YoYGrowthRate != nil && math.Abs(*c.YoYGrowthRate) >= opts.TrendThreshold
			},
			Spec: MethodSpec{Method: MethodHolt, Params: Params{Alpha: opts.HoltAlpha, Beta: opts.HoltBeta}},
			Reason: func(c SelectionContext) string {
				return fmt.Sprintf("significant trend: YoY growth %+.1f%% exceeds ±%.1f%%",
					*c.YoYGrowthRate*100, opts.TrendThreshold*100)
			},
		},
		{
			Name: "overstock",
			When: func(c SelectionContext) bool { return c.IsOverstock },
			Spec: MethodSpec{Method: MethodSES, Params: Params{Alpha: opts.OverstockAlpha}},
			Reason: func(SelectionContext) string {
				return fmt.Sprintf("overstocked item: damped smoothing (alpha %.2f) avoids chasing recent spikes", opts.OverstockAlpha)
			},
		},
		{
			Name: "stable",
			When: func(c SelectionContext) bool {
				if c.XYZGrade != "" {
					return c.XYZGrade == inventory.GradeX
				}
				return c.CVDefined && c.CV < opts.StableMaxCV
			},
			Spec: MethodSpec{Method: MethodSMA, Params: Params{Window: opts.SMAWindow}},
			Reason: func(c SelectionContext) string {
				return fmt.Sprintf("stable demand (%s): %d-period moving average", describeVariability(c), opts.SMAWindow)
			},
		},
		{
			Name: "fast-moving",
			When: func(c SelectionContext) bool {
				return c.TurnoverRate != nil && *c.TurnoverRate >= opts.HighTurnoverRate
			},
			Spec: MethodSpec{Method: MethodSES, Params: Params{Alpha: opts.FastAlpha}},
			Reason: func(c SelectionContext) string {
				return fmt.Sprintf("fast-moving item (turnover %.1f/yr): responsive smoothing (alpha %.2f)", *c.TurnoverRate, opts.FastAlpha)
			},
		},
		{
			Name: "default",
			When: func(SelectionContext) bool { return true },
			Spec: MethodSpec{Method: MethodSES, Params: Params{Alpha: opts.SESAlpha}},
			Reason: func(c SelectionContext) string {
				return fmt.Sprintf("variable demand without strong trend (%s): exponential smoothing (alpha %.2f)", describeVariability(c), opts.SESAlpha)
			},
		},
	}
}

// Select returns the first matching rule. ok is false only for an empty or
// exhausted table.
func Select(rules []Rule, ctx SelectionContext) (rule Rule, ok bool) {
	for _, r := range rules {
		if r.When(ctx) {
			return r, true
		}
	}
	return Rule{}, false
}

func describeVariability(c SelectionContext) string {
	cv := "undefined"
	if c.CVDefined {
		cv = fmt.Sprintf("%.2f", c.CV)
	}
	if c.XYZGrade != "" {
		return fmt.Sprintf("grade %s, CV %s", c.XYZGrade, cv)
	}
	return "CV " + cv
}
