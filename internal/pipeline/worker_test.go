package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/stockintel/internal/domain"
	"github.com/andresuchdata/stockintel/internal/inventory"
	"github.com/andresuchdata/stockintel/internal/inventory/abcxyz"
	"github.com/andresuchdata/stockintel/internal/inventory/forecast"
	"github.com/andresuchdata/stockintel/internal/inventory/reorder"
	"github.com/andresuchdata/stockintel/internal/inventory/simulation"
)

func f64(v float64) *float64 { return &v }

func monthly(quantities ...float64) []forecast.Point {
	points := make([]forecast.Point, len(quantities))
	for i, q := range quantities {
		points[i] = forecast.Point{
			Period:   time.Date(2024, time.Month(i+1), 1, 0, 0, 0, 0, time.UTC),
			Quantity: q,
		}
	}
	return points
}

func newTestRunner(t *testing.T, cfg Config) *Runner {
	t.Helper()
	classifier, err := abcxyz.NewClassifier(abcxyz.DefaultThresholds())
	require.NoError(t, err)
	forecaster, err := forecast.NewForecaster(forecast.DefaultOptions())
	require.NoError(t, err)
	optimizer, err := reorder.NewOptimizer(reorder.DefaultPolicy())
	require.NoError(t, err)
	simOpts := simulation.DefaultOptions()
	simOpts.Trials = 500
	simulator, err := simulation.NewSimulator(simOpts)
	require.NoError(t, err)

	r, err := NewRunner(cfg, classifier, forecaster, optimizer, simulator)
	require.NoError(t, err)
	return r
}

func testInputs() []SKUInput {
	return []SKUInput{
		{
			Product: domain.Product{ID: "p1", SKU: "FAST", CurrentStock: f64(10), LeadTimeDays: 10, CostPrice: 5, UnitPrice: 8},
			History: monthly(100, 110, 90, 100, 105, 95),
			Value:   9000,
		},
		{
			Product: domain.Product{ID: "p2", SKU: "NEW", CurrentStock: f64(0), LeadTimeDays: 5, CostPrice: 2},
			History: monthly(30),
			Value:   1000,
		},
		{
			Product: domain.Product{ID: "p3", SKU: "BAD"},
			History: monthly(5, -1),
			Value:   10,
		},
	}
}

func TestRunner_Run(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WorkerCount = 2
	seed := int64(42)
	cfg.Seed = &seed
	r := newTestRunner(t, cfg)

	report, err := r.Run(context.Background(), testInputs())
	require.NoError(t, err)

	assert.NotEmpty(t, report.Run.ID)
	assert.Equal(t, StatusPartial, report.Run.Status)
	assert.Equal(t, 3, report.Run.TotalSKUs)
	assert.Equal(t, 1, report.Run.Completed)
	assert.Equal(t, 1, report.Run.Partial)
	assert.Equal(t, 1, report.Run.Failed)
	require.NotNil(t, report.Run.CompletedAt)

	require.Len(t, report.Evaluations, 3)
	fast, fresh, bad := report.Evaluations[0], report.Evaluations[1], report.Evaluations[2]

	assert.Equal(t, "FAST", fast.SKU)
	assert.Equal(t, domain.EvaluationCompleted, fast.Status)
	require.NotNil(t, fast.Classification)
	assert.Equal(t, inventory.GradeA, fast.Classification.ABCGrade)
	assert.Equal(t, inventory.GradeX, fast.Classification.XYZGrade)
	require.NotNil(t, fast.Forecast)
	assert.Equal(t, forecast.StatusOK, fast.Forecast.Status)
	assert.Len(t, fast.Forecast.Forecast, 3)
	require.NotNil(t, fast.Metrics.ForecastDailySales)
	assert.InDelta(t, 100/(365.0/12), fast.Metrics.AvgDailySales, 1e-9)
	require.NotNil(t, fast.Recommendation)
	assert.True(t, fast.Recommendation.Eligible)
	assert.Greater(t, fast.Recommendation.RecommendedQty, 0)
	require.NotNil(t, fast.Simulation)
	assert.Equal(t, 500, fast.Simulation.Trials)
	assert.Equal(t, simulation.DeriveSeed(seed, "p1"), fast.Simulation.Seed)

	assert.Equal(t, domain.EvaluationPartial, fresh.Status)
	assert.Equal(t, forecast.StatusInsufficientData, fresh.Forecast.Status)
	assert.Nil(t, fresh.Metrics.ForecastDailySales)
	require.NotNil(t, fresh.Recommendation)

	assert.Equal(t, domain.EvaluationFailed, bad.Status)
	assert.Contains(t, bad.Error, "demand history")
	assert.Nil(t, bad.Recommendation)

	assert.Equal(t, 2, report.Classification.TotalItems)

	require.NotEmpty(t, report.Ranked)
	assert.Equal(t, 1, report.Ranked[0].Priority)
	for _, rec := range report.Ranked {
		assert.NotEqual(t, "BAD", rec.SKU)
	}
}

func TestRunner_SeededRunsAreReproducible(t *testing.T) {
	cfg := DefaultConfig()
	seed := int64(7)
	cfg.Seed = &seed

	first, err := newTestRunner(t, cfg).Run(context.Background(), testInputs())
	require.NoError(t, err)
	cfg.WorkerCount = 1
	second, err := newTestRunner(t, cfg).Run(context.Background(), testInputs())
	require.NoError(t, err)

	for i := range first.Evaluations {
		a, b := first.Evaluations[i], second.Evaluations[i]
		if a.Simulation == nil {
			assert.Nil(t, b.Simulation)
			continue
		}
		require.NotNil(t, b.Simulation)
		assert.Equal(t, a.Simulation.StockoutProbability, b.Simulation.StockoutProbability)
		assert.Equal(t, a.Simulation.ExpectedShortfall, b.Simulation.ExpectedShortfall)
	}
}

func TestRunner_AllFailed(t *testing.T) {
	r := newTestRunner(t, DefaultConfig())

	report, err := r.Run(context.Background(), []SKUInput{
		{Product: domain.Product{ID: "x"}, History: monthly(-5)},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, report.Run.Status)
	assert.Equal(t, 1, report.Run.Failed)
	assert.Empty(t, report.Ranked)
}

func TestRunner_SkipsSimulationWhenDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Simulate = false
	r := newTestRunner(t, cfg)

	report, err := r.Run(context.Background(), testInputs()[:1])
	require.NoError(t, err)
	require.Len(t, report.Evaluations, 1)
	assert.Nil(t, report.Evaluations[0].Simulation)
	assert.Equal(t, StatusCompleted, report.Run.Status)
}

func TestRunner_UnknownStockIsNotSimulated(t *testing.T) {
	cfg := DefaultConfig()
	seed := int64(11)
	cfg.Seed = &seed
	r := newTestRunner(t, cfg)

	report, err := r.Run(context.Background(), []SKUInput{{
		Product: domain.Product{ID: "p1", SKU: "UNCOUNTED", LeadTimeDays: 7, CostPrice: 3},
		History: monthly(40, 45, 50, 42),
		Value:   500,
	}})
	require.NoError(t, err)
	require.Len(t, report.Evaluations, 1)

	ev := report.Evaluations[0]
	assert.Equal(t, domain.EvaluationPartial, ev.Status)
	assert.Nil(t, ev.Simulation)
	require.Len(t, ev.Warnings, 1)
	assert.Contains(t, ev.Warnings[0], "current stock unknown")
	require.NotNil(t, ev.Recommendation)
	assert.True(t, ev.Recommendation.Eligible)
	assert.Equal(t, 1, report.Run.Partial)
	assert.Equal(t, StatusCompleted, report.Run.Status)
}

func TestRunner_InsufficientForecastRecordsWarning(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Simulate = false
	r := newTestRunner(t, cfg)

	report, err := r.Run(context.Background(), testInputs()[1:2])
	require.NoError(t, err)
	ev := report.Evaluations[0]
	assert.Equal(t, domain.EvaluationPartial, ev.Status)
	require.Len(t, ev.Warnings, 1)
	assert.Contains(t, ev.Warnings[0], inventory.ErrInsufficientData.Error())
}

func TestRunner_HistoryWindowCountsUnsoldMonths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Simulate = false
	cfg.From = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	cfg.To = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	r := newTestRunner(t, cfg)

	report, err := r.Run(context.Background(), []SKUInput{{
		Product: domain.Product{ID: "p1", SKU: "STOPPED", CurrentStock: f64(50), LeadTimeDays: 7, CostPrice: 6},
		History: monthly(100, 100, 100),
		Value:   3000,
	}})
	require.NoError(t, err)

	ev := report.Evaluations[0]
	require.NotNil(t, ev.Forecast)
	assert.Equal(t, 12, ev.Forecast.HistoryLength)
	require.NotNil(t, ev.Classification)
	assert.Equal(t, inventory.GradeZ, ev.Classification.XYZGrade)
	for _, v := range ev.Forecast.Forecast {
		assert.Less(t, v, 10.0)
	}
}

func TestNewRunner_RejectsInvertedWindow(t *testing.T) {
	classifier, err := abcxyz.NewClassifier(abcxyz.DefaultThresholds())
	require.NoError(t, err)
	forecaster, err := forecast.NewForecaster(forecast.DefaultOptions())
	require.NoError(t, err)
	optimizer, err := reorder.NewOptimizer(reorder.DefaultPolicy())
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.From = time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	cfg.To = cfg.From
	_, err = NewRunner(cfg, classifier, forecaster, optimizer, nil)
	assert.Error(t, err)
}

func TestRunner_Cancelled(t *testing.T) {
	r := newTestRunner(t, DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := r.Run(ctx, testInputs())
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StatusFailed, report.Run.Status)
}

func TestNewRunner_RequiresComponents(t *testing.T) {
	_, err := NewRunner(DefaultConfig(), nil, nil, nil, nil)
	assert.Error(t, err)
}

func TestComputeDemandMetrics(t *testing.T) {
	values := make([]float64, 24)
	for i := range values {
		values[i] = 10
		if i >= 12 {
			values[i] = 12
		}
	}

	m := ComputeDemandMetrics(values, forecast.Monthly, f64(100))
	require.NotNil(t, m.YoYGrowthRate)
	assert.InDelta(t, 0.2, *m.YoYGrowthRate, 1e-9)
	require.NotNil(t, m.TurnoverRate)
	assert.InDelta(t, m.AvgDailySales*365/100, *m.TurnoverRate, 1e-9)
	assert.InDelta(t, 12/(365.0/12), m.MaxDailySales, 1e-9)

	daily := ComputeDemandMetrics([]float64{2, 4}, forecast.Daily, nil)
	assert.InDelta(t, 3, daily.AvgDailySales, 1e-9)
	assert.InDelta(t, 1, daily.DemandStdDev, 1e-9)
	assert.Nil(t, daily.TurnoverRate)
	assert.Nil(t, daily.YoYGrowthRate)

	assert.Equal(t, DemandMetrics{}, ComputeDemandMetrics(nil, forecast.Monthly, nil))
}
