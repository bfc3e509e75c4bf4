package pipeline

import (
	"fmt"
	"math"

	"github.com/andresuchdata/stockintel/internal/domain"
	"github.com/andresuchdata/stockintel/internal/inventory"
	"github.com/andresuchdata/stockintel/internal/inventory/abcxyz"
	"github.com/andresuchdata/stockintel/internal/inventory/forecast"
	"github.com/andresuchdata/stockintel/internal/inventory/reorder"
	"github.com/andresuchdata/stockintel/internal/inventory/simulation"
)

// DaysPerPeriod converts a per-period quantity into a per-day quantity.
func DaysPerPeriod(g forecast.Granularity) float64 {
	if g == forecast.Daily {
		return 1
	}
	return 365.0 / 12
}

func periodsPerYear(g forecast.Granularity) int {
	if g == forecast.Daily {
		return 365
	}
	return 12
}

// ComputeDemandMetrics derives daily demand statistics from a gap-filled
// series. Per-period variance is scaled to a daily one assuming independent
// days.
func ComputeDemandMetrics(values []float64, g forecast.Granularity, currentStock *float64) DemandMetrics {
	days := DaysPerPeriod(g)
	m := DemandMetrics{}
	if len(values) == 0 {
		return m
	}

	m.AvgDailySales = inventory.Mean(values) / days
	m.DemandStdDev = inventory.PopulationStdDev(values) / math.Sqrt(days)
	for _, v := range values {
		m.MaxDailySales = math.Max(m.MaxDailySales, v/days)
	}

	if currentStock != nil && *currentStock > 0 && m.AvgDailySales > 0 {
		turnover := m.AvgDailySales * 365 / *currentStock
		m.TurnoverRate = &turnover
	}

	// YoY growth: last full year against the one before it
	n := periodsPerYear(g)
	if len(values) >= 2*n {
		var last, prior float64
		for _, v := range values[len(values)-n:] {
			last += v
		}
		for _, v := range values[len(values)-2*n : len(values)-n] {
			prior += v
		}
		if prior > 0 {
			growth := last/prior - 1
			m.YoYGrowthRate = &growth
		}
	}
	return m
}

type evaluator struct {
	forecaster *forecast.Forecaster
	optimizer  *reorder.Optimizer
	simulator  *simulation.Simulator
	cfg        Config
}

// evaluate runs forecaster → optimizer → simulator for one SKU.
func (e *evaluator) evaluate(in SKUInput, series []forecast.Point, cls *abcxyz.Classification) (*Evaluation, error) {
	p := in.Product
	ev := &Evaluation{
		ProductID:      p.ID,
		SKU:            p.Key(),
		Status:         domain.EvaluationCompleted,
		Classification: cls,
	}

	abc, xyz := p.ABCGrade, p.XYZGrade
	if cls != nil {
		abc, xyz = cls.ABCGrade, cls.XYZGrade
	}

	values := forecast.Values(series)
	metrics := ComputeDemandMetrics(values, e.cfg.Granularity, p.CurrentStock)

	// 1. Forecast
	overstock := p.IsOverstock
	fc, err := e.forecaster.Forecast(forecast.Request{
		SKU:            p.Key(),
		History:        series,
		Granularity:    e.cfg.Granularity,
		Periods:        e.cfg.Horizon,
		ABCGrade:       abc,
		XYZGrade:       xyz,
		TurnoverRate:   metrics.TurnoverRate,
		YoYGrowthRate:  metrics.YoYGrowthRate,
		IsOverstock:    &overstock,
		SeasonalAdjust: e.cfg.SeasonalAdjust,
	})
	if err != nil {
		return nil, err
	}
	ev.Forecast = fc
	if fc.Status == forecast.StatusOK {
		daily := inventory.Mean(fc.Forecast) / DaysPerPeriod(e.cfg.Granularity)
		metrics.ForecastDailySales = &daily
	} else {
		ev.degrade(fmt.Errorf("forecast: %s: %w", fc.Reason, inventory.ErrInsufficientData))
	}
	ev.Metrics = metrics

	// 2. Reorder recommendation
	rin := reorder.Input{
		ProductID:          p.ID,
		SKU:                p.Key(),
		CurrentStock:       p.CurrentStock,
		OnOrder:            p.OnOrder,
		SafetyStock:        p.SafetyStock,
		ReorderPoint:       p.ReorderPoint,
		AvgDailySales:      metrics.AvgDailySales,
		ForecastDailySales: metrics.ForecastDailySales,
		ABCGrade:           abc,
		XYZGrade:           xyz,
		MOQ:                p.MOQ,
		LeadTimeDays:       p.LeadTimeDays,
		LeadTimeStdDev:     p.LeadTimeStdDev,
		UnitPrice:          p.UnitPrice,
		CostPrice:          p.CostPrice,
	}
	if len(values) >= 2 {
		sd := metrics.DemandStdDev
		rin.DemandStdDev = &sd
	}
	if p.MaxLeadTime != nil && len(values) > 0 {
		maxDaily := metrics.MaxDailySales
		rin.MaxDailySales = &maxDaily
		rin.MaxLeadTime = p.MaxLeadTime
	}
	rec, err := e.optimizer.Recommend(rin)
	if err != nil {
		return nil, err
	}
	ev.Recommendation = rec

	// 3. Stockout simulation under the recommended policy. Unknown stock
	// is not simulated as empty stock.
	if e.cfg.Simulate && e.simulator != nil {
		if p.CurrentStock == nil {
			ev.degrade(fmt.Errorf("simulation skipped, current stock unknown: %w", inventory.ErrInsufficientData))
			return ev, nil
		}
		ss, rop := float64(rec.SafetyStock), float64(rec.ReorderPoint)
		sin := simulation.Input{
			ProductID:          p.ID,
			CurrentStock:       *p.CurrentStock,
			AverageDailyDemand: rec.DailyDemand,
			DemandStdDev:       metrics.DemandStdDev,
			LeadTimeDays:       p.LeadTimeDays,
			LeadTimeStdDev:     p.LeadTimeStdDev,
			SafetyStock:        &ss,
			ReorderPoint:       &rop,
			ServiceLevel:       rec.ServiceLevel,
			Trials:             e.cfg.Trials,
		}
		if e.cfg.Seed != nil {
			seed := simulation.DeriveSeed(*e.cfg.Seed, p.ID)
			sin.Seed = &seed
		}
		sim, err := e.simulator.Simulate(sin)
		if err != nil {
			return nil, err
		}
		ev.Simulation = sim
	}

	return ev, nil
}
