package pipeline

import (
	"time"

	"github.com/andresuchdata/stockintel/internal/domain"
	"github.com/andresuchdata/stockintel/internal/inventory/abcxyz"
	"github.com/andresuchdata/stockintel/internal/inventory/forecast"
	"github.com/andresuchdata/stockintel/internal/inventory/reorder"
	"github.com/andresuchdata/stockintel/internal/inventory/simulation"
)

// Config holds configuration for a pipeline runner
type Config struct {
	WorkerCount    int                  // Number of concurrent SKU workers
	Granularity    forecast.Granularity // Bucket size of the demand history
	From           time.Time            // History window start, zero for the first sale
	To             time.Time            // History window end (exclusive), zero for the last sale
	Horizon        int                  // Forecast periods per SKU
	SeasonalAdjust bool
	Simulate       bool   // Run the stockout simulation per SKU
	Trials         int    // Simulation trials per SKU, 0 for the simulator default
	Seed           *int64 // Base seed for reproducible simulations
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		WorkerCount: 4,
		Granularity: forecast.Monthly,
		Horizon:     3,
		Simulate:    true,
	}
}

// RunStatus represents the current state of a pipeline run
type RunStatus string

const (
	StatusPending    RunStatus = "pending"
	StatusProcessing RunStatus = "processing"
	StatusCompleted  RunStatus = "completed"
	StatusPartial    RunStatus = "completed_with_errors"
	StatusFailed     RunStatus = "failed"
)

// Run tracks a single evaluation of a set of SKUs
type Run struct {
	ID           string     `json:"id"`
	Status       RunStatus  `json:"status"`
	TotalSKUs    int        `json:"total_skus"`
	Completed    int        `json:"completed"`
	Partial      int        `json:"partial"`
	Failed       int        `json:"failed"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

// SKUInput is everything the pipeline needs for one SKU.
type SKUInput struct {
	Product domain.Product   `json:"product"`
	History []forecast.Point `json:"history"`
	// Value ranks the SKU in the ABC analysis, usually revenue over the
	// history window.
	Value float64 `json:"value"`
}

// Evaluation is the per-SKU output of a run.
type Evaluation struct {
	ProductID      string                  `json:"product_id"`
	SKU            string                  `json:"sku"`
	Status         domain.EvaluationStatus `json:"status"`
	Error          string                  `json:"error,omitempty"`
	Warnings       []string                `json:"warnings,omitempty"` // why a partial evaluation is partial
	Classification *abcxyz.Classification  `json:"classification,omitempty"`
	Forecast       *forecast.Result        `json:"forecast,omitempty"`
	Recommendation *reorder.Recommendation `json:"recommendation,omitempty"`
	Simulation     *simulation.Result      `json:"simulation,omitempty"`
	Metrics        DemandMetrics           `json:"metrics"`
	DurationMS     int64                   `json:"duration_ms"`
}

// degrade marks the evaluation partial and records why.
func (e *Evaluation) degrade(err error) {
	e.Status = domain.EvaluationPartial
	e.Warnings = append(e.Warnings, err.Error())
}

// DemandMetrics are the daily demand statistics derived from the history.
type DemandMetrics struct {
	AvgDailySales      float64  `json:"avg_daily_sales"`
	ForecastDailySales *float64 `json:"forecast_daily_sales,omitempty"`
	DemandStdDev       float64  `json:"demand_std_dev"`
	MaxDailySales      float64  `json:"max_daily_sales"`
	TurnoverRate       *float64 `json:"turnover_rate,omitempty"`
	YoYGrowthRate      *float64 `json:"yoy_growth_rate,omitempty"`
}

// Report is the result of Runner.Run.
type Report struct {
	Run            Run                       `json:"run"`
	Classification abcxyz.Summary            `json:"classification"`
	Evaluations    []*Evaluation             `json:"evaluations"`
	Ranked         []*reorder.Recommendation `json:"ranked_recommendations"`
}
