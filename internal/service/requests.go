package service

import (
	"time"

	"github.com/andresuchdata/stockintel/internal/inventory/abcxyz"
	"github.com/andresuchdata/stockintel/internal/inventory/forecast"
	"github.com/andresuchdata/stockintel/internal/inventory/gradechange"
	"github.com/andresuchdata/stockintel/internal/inventory/reorder"
	"github.com/andresuchdata/stockintel/internal/inventory/simulation"
)

type ClassifyRequest struct {
	Items []abcxyz.Item `json:"items"`
	// Period ("2006-01") is required when Persist is set.
	Period  string `json:"period,omitempty"`
	Persist bool   `json:"persist"`
}

type ClassifyResponse struct {
	*abcxyz.Result
	RunID     string `json:"run_id,omitempty"`
	Period    string `json:"period,omitempty"`
	Persisted int    `json:"persisted"`
}

type BacktestRequest struct {
	SKU            string               `json:"sku"`
	History        []forecast.Point     `json:"history"`
	Granularity    forecast.Granularity `json:"granularity,omitempty"`
	Periods        int                  `json:"periods"`
	Method         forecast.MethodSpec  `json:"method"`
	SeasonalAdjust bool                 `json:"seasonal_adjust"`
}

type ReorderRequest struct {
	Items []reorder.Input `json:"items"`
	// ServiceLevel overrides the configured policy for this call.
	ServiceLevel *float64 `json:"service_level,omitempty"`
}

type ReorderResponse struct {
	Recommendations []*reorder.Recommendation `json:"recommendations"`
	Ranked          []*reorder.Recommendation `json:"ranked"`
}

type SimulateRequest struct {
	Inputs []simulation.Input `json:"inputs"`
	Seed   *int64             `json:"seed,omitempty"`
}

type SweepRequest struct {
	Input  simulation.Input `json:"input"`
	Deltas []float64        `json:"deltas"`
}

type GradeChangeQuery struct {
	ProductIDs   []string `json:"product_ids"`
	HighRiskOnly bool     `json:"high_risk_only"`
}

type GradeChangeReport struct {
	Changes []gradechange.Change `json:"changes"`
	Summary gradechange.Summary  `json:"summary"`
}

// EvaluateRequest selects the products and history window of a portfolio
// evaluation. Zero values fall back to service defaults.
type EvaluateRequest struct {
	ProductIDs     []string             `json:"product_ids"`
	SKUs           []string             `json:"skus"`
	Limit          int                  `json:"limit"`
	From           time.Time            `json:"from"`
	To             time.Time            `json:"to"`
	Granularity    forecast.Granularity `json:"granularity,omitempty"`
	Horizon        int                  `json:"horizon"`
	SeasonalAdjust bool                 `json:"seasonal_adjust"`
	Simulate       bool                 `json:"simulate"`
	Trials         int                  `json:"trials"`
	Seed           *int64               `json:"seed,omitempty"`
}
