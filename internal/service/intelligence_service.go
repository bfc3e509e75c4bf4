// Package service wires the inventory core to storage, cache and metrics.
// Handlers and the CLI call it; the core packages never see config.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/stockintel/internal/cache"
	"github.com/andresuchdata/stockintel/internal/config"
	"github.com/andresuchdata/stockintel/internal/domain"
	"github.com/andresuchdata/stockintel/internal/inventory"
	"github.com/andresuchdata/stockintel/internal/inventory/abcxyz"
	"github.com/andresuchdata/stockintel/internal/inventory/forecast"
	"github.com/andresuchdata/stockintel/internal/inventory/gradechange"
	"github.com/andresuchdata/stockintel/internal/inventory/reorder"
	"github.com/andresuchdata/stockintel/internal/inventory/simulation"
	"github.com/andresuchdata/stockintel/internal/pipeline"
	"github.com/andresuchdata/stockintel/internal/repository"
	"github.com/andresuchdata/stockintel/pkg/metrics"
)

// Options are the explicit algorithm settings of the service.
type Options struct {
	Thresholds     abcxyz.Thresholds
	Forecast       forecast.Options
	Policy         reorder.Policy
	Simulation     simulation.Options
	DefaultHorizon int
	Workers        int
}

func DefaultOptions() Options {
	return Options{
		Thresholds:     abcxyz.DefaultThresholds(),
		Forecast:       forecast.DefaultOptions(),
		Policy:         reorder.DefaultPolicy(),
		Simulation:     simulation.DefaultOptions(),
		DefaultHorizon: 3,
		Workers:        4,
	}
}

// OptionsFromConfig converts the loaded configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := DefaultOptions()
	opts.Forecast = cfg.ForecastOptions()
	opts.Policy = cfg.ReorderPolicy()
	opts.Simulation = cfg.SimulationOptions()
	if cfg.Forecast.DefaultHorizon > 0 {
		opts.DefaultHorizon = cfg.Forecast.DefaultHorizon
	}
	if cfg.Pipeline.Workers > 0 {
		opts.Workers = cfg.Pipeline.Workers
	}
	return opts
}

// Dependencies are the storage backends. Any of them may be nil; operations
// that need a missing one fail with ErrUnavailable.
type Dependencies struct {
	Products repository.ProductRepository
	Demand   repository.DemandRepository
	Grades   repository.GradeHistoryRepository
	Cache    cache.ResultCache
}

// ErrUnavailable is returned when an operation needs a backend the service
// was built without.
var ErrUnavailable = errors.New("backend not configured")

type IntelligenceService struct {
	deps       Dependencies
	opts       Options
	classifier *abcxyz.Classifier
	forecaster *forecast.Forecaster
	optimizer  *reorder.Optimizer
	simulator  *simulation.Simulator
}

func NewIntelligenceService(deps Dependencies, opts Options) (*IntelligenceService, error) {
	classifier, err := abcxyz.NewClassifier(opts.Thresholds)
	if err != nil {
		return nil, fmt.Errorf("classifier: %w", err)
	}
	forecaster, err := forecast.NewForecaster(opts.Forecast)
	if err != nil {
		return nil, fmt.Errorf("forecaster: %w", err)
	}
	optimizer, err := reorder.NewOptimizer(opts.Policy)
	if err != nil {
		return nil, fmt.Errorf("optimizer: %w", err)
	}
	simulator, err := simulation.NewSimulator(opts.Simulation)
	if err != nil {
		return nil, fmt.Errorf("simulator: %w", err)
	}
	if deps.Cache == nil {
		deps.Cache = cache.NewNoopResultCache()
	}
	if opts.DefaultHorizon < 1 {
		opts.DefaultHorizon = 1
	}
	if err := forecaster.CheckHorizon(opts.DefaultHorizon); err != nil {
		return nil, fmt.Errorf("default horizon: %w", err)
	}

	return &IntelligenceService{
		deps:       deps,
		opts:       opts,
		classifier: classifier,
		forecaster: forecaster,
		optimizer:  optimizer,
		simulator:  simulator,
	}, nil
}

// Policy returns the organization reorder policy in effect.
func (s *IntelligenceService) Policy() reorder.Policy { return s.opts.Policy }

// Classify grades the items and, when req.Persist is set, stores one grade
// history row per item for req.Period. Existing rows for that period are kept.
func (s *IntelligenceService) Classify(ctx context.Context, req ClassifyRequest) (*ClassifyResponse, error) {
	started := time.Now()

	var period time.Time
	if req.Persist {
		if s.deps.Grades == nil {
			return nil, fmt.Errorf("grade history: %w", ErrUnavailable)
		}
		p, err := domain.ParsePeriod(req.Period)
		if err != nil {
			return nil, fmt.Errorf("period %q must be YYYY-MM: %w", req.Period, inventory.ErrInvalidArgument)
		}
		period = p
	}

	result, err := s.classifier.Classify(req.Items)
	metrics.ObserveComputation("classify", outcomeOf(err), started)
	if err != nil {
		return nil, err
	}

	resp := &ClassifyResponse{Result: result}
	if !req.Persist {
		return resp, nil
	}

	resp.RunID = uuid.NewString()
	resp.Period = period.Format("2006-01")
	skus := s.lookupSKUs(ctx, req.Items)

	entries := make([]domain.GradeHistoryEntry, 0, len(result.Items))
	for _, c := range result.Items {
		entries = append(entries, domain.GradeHistoryEntry{
			RunID:         resp.RunID,
			ProductID:     c.ID,
			SKU:           skus[c.ID],
			Period:        period,
			ABCGrade:      c.ABCGrade,
			XYZGrade:      c.XYZGrade,
			CombinedGrade: c.CombinedGrade,
		})
	}

	inserted, err := s.deps.Grades.SaveSnapshot(ctx, entries)
	if err != nil {
		return nil, fmt.Errorf("save grade snapshot: %w", err)
	}
	resp.Persisted = inserted

	log.Info().
		Str("run_id", resp.RunID).
		Str("period", resp.Period).
		Int("items", len(entries)).
		Int("inserted", inserted).
		Msg("Grade snapshot saved")

	return resp, nil
}

// lookupSKUs maps product IDs to SKU codes, falling back to the ID.
func (s *IntelligenceService) lookupSKUs(ctx context.Context, items []abcxyz.Item) map[string]string {
	out := make(map[string]string, len(items))
	ids := make([]string, 0, len(items))
	for _, it := range items {
		out[it.ID] = it.ID
		ids = append(ids, it.ID)
	}
	if s.deps.Products == nil {
		return out
	}

	products, err := s.deps.Products.ListProducts(ctx, domain.ProductFilter{ProductIDs: ids})
	if err != nil {
		log.Warn().Err(err).Msg("classify: product lookup failed, using product IDs as SKUs")
		return out
	}
	for _, p := range products {
		out[p.ID] = p.Key()
	}
	return out
}

// Forecast returns a cached result for an identical request when available.
func (s *IntelligenceService) Forecast(ctx context.Context, req forecast.Request) (*forecast.Result, error) {
	started := time.Now()

	var cached forecast.Result
	if ok, err := s.deps.Cache.Get(ctx, cache.KindForecast, req.SKU, req, &cached); err == nil && ok {
		return &cached, nil
	} else if err != nil {
		log.Warn().Err(err).Str("sku", req.SKU).Msg("forecast: cache get failed")
	}

	result, err := s.forecaster.Forecast(req)
	if err != nil {
		metrics.ObserveComputation("forecast", outcomeOf(err), started)
		return nil, err
	}
	metrics.ObserveComputation("forecast", string(result.Status), started)

	if err := s.deps.Cache.Set(ctx, cache.KindForecast, req.SKU, req, result); err != nil {
		log.Warn().Err(err).Str("sku", req.SKU).Msg("forecast: cache set failed")
	}

	return result, nil
}

func (s *IntelligenceService) Backtest(ctx context.Context, req BacktestRequest) (*forecast.BacktestResult, error) {
	started := time.Now()

	if err := s.forecaster.CheckHorizon(req.Periods); err != nil {
		metrics.ObserveComputation("backtest", outcomeOf(err), started)
		return nil, err
	}

	var cached forecast.BacktestResult
	if ok, err := s.deps.Cache.Get(ctx, cache.KindBacktest, req.SKU, req, &cached); err == nil && ok {
		return &cached, nil
	} else if err != nil {
		log.Warn().Err(err).Str("sku", req.SKU).Msg("backtest: cache get failed")
	}

	gran := req.Granularity
	if gran == "" {
		gran = forecast.Monthly
	}
	series, err := forecast.FillGaps(req.History, gran)
	if err != nil {
		metrics.ObserveComputation("backtest", outcomeOf(err), started)
		return nil, err
	}

	result, err := forecast.Backtest(forecast.Values(series), req.Periods, req.Method, forecast.BacktestOptions{
		SeasonalAdjust:  req.SeasonalAdjust,
		SeasonLength:    s.opts.Forecast.SeasonLength,
		MinSeasonCycles: s.opts.Forecast.MinSeasonCycles,
	})
	if err != nil {
		metrics.ObserveComputation("backtest", outcomeOf(err), started)
		return nil, err
	}
	metrics.ObserveComputation("backtest", string(result.Status), started)

	if err := s.deps.Cache.Set(ctx, cache.KindBacktest, req.SKU, req, result); err != nil {
		log.Warn().Err(err).Str("sku", req.SKU).Msg("backtest: cache set failed")
	}
	return result, nil
}

// InvalidateCache drops cached forecasts and backtests for sku, or every
// cached result when sku is empty.
func (s *IntelligenceService) InvalidateCache(ctx context.Context, sku string) error {
	if sku == "" {
		return s.deps.Cache.InvalidateAll(ctx)
	}
	for _, kind := range []cache.Kind{cache.KindForecast, cache.KindBacktest} {
		if err := s.deps.Cache.InvalidateSKU(ctx, kind, sku); err != nil {
			return err
		}
	}
	return nil
}

// Reorder computes a recommendation per item and the ranked reorder list.
func (s *IntelligenceService) Reorder(ctx context.Context, req ReorderRequest) (*ReorderResponse, error) {
	started := time.Now()

	optimizer := s.optimizer
	if req.ServiceLevel != nil {
		o, err := reorder.NewOptimizer(s.opts.Policy.WithServiceLevel(*req.ServiceLevel))
		if err != nil {
			metrics.ObserveComputation("reorder", outcomeOf(err), started)
			return nil, err
		}
		optimizer = o
	}

	recs, err := optimizer.RecommendAll(req.Items)
	metrics.ObserveComputation("reorder", outcomeOf(err), started)
	if err != nil {
		return nil, err
	}

	return &ReorderResponse{
		Recommendations: recs,
		Ranked:          reorder.Rank(recs),
	}, nil
}

func (s *IntelligenceService) Simulate(ctx context.Context, req SimulateRequest) ([]*simulation.Result, error) {
	started := time.Now()

	results, err := s.simulator.SimulateBatch(ctx, req.Inputs, req.Seed)
	metrics.ObserveComputation("simulate", outcomeOf(err), started)
	if err != nil {
		return nil, err
	}

	trials := 0
	for _, r := range results {
		trials += r.Trials
	}
	metrics.SimulationTrialsTotal.Add(float64(trials))

	log.Debug().Int("skus", len(results)).Int("trials", trials).Dur("duration", time.Since(started)).Msg("Simulation batch done")
	return results, nil
}

func (s *IntelligenceService) SweepSafetyStock(ctx context.Context, req SweepRequest) ([]simulation.SweepPoint, error) {
	started := time.Now()

	points, err := s.simulator.SweepSafetyStock(req.Input, req.Deltas)
	metrics.ObserveComputation("simulate_sweep", outcomeOf(err), started)
	if err != nil {
		return nil, err
	}
	if len(points) > 0 {
		metrics.SimulationTrialsTotal.Add(float64(len(points) * s.trialsFor(req.Input)))
	}
	return points, nil
}

func (s *IntelligenceService) trialsFor(in simulation.Input) int {
	switch {
	case in.Trials <= 0:
		return s.opts.Simulation.Trials
	case in.Trials > s.opts.Simulation.MaxTrials:
		return s.opts.Simulation.MaxTrials
	}
	return in.Trials
}

// GradeChanges compares the two most recent grade snapshots of each product.
func (s *IntelligenceService) GradeChanges(ctx context.Context, q GradeChangeQuery) (*GradeChangeReport, error) {
	if s.deps.Grades == nil {
		return nil, fmt.Errorf("grade history: %w", ErrUnavailable)
	}
	started := time.Now()

	rows, err := s.deps.Grades.LatestTwo(ctx, q.ProductIDs)
	if err != nil {
		metrics.ObserveComputation("grade_changes", "error", started)
		return nil, fmt.Errorf("load grade history: %w", err)
	}

	entries := make([]gradechange.Entry, len(rows))
	for i, row := range rows {
		entries[i] = row.TrackerEntry()
	}
	changes := gradechange.LatestChanges(entries)
	summary := gradechange.Summarize(changes)
	metrics.ObserveComputation("grade_changes", "ok", started)

	return &GradeChangeReport{
		Changes: gradechange.Filter(changes, q.HighRiskOnly),
		Summary: summary,
	}, nil
}

// EvaluatePortfolio loads products and their demand, then runs the full
// classify → forecast → reorder → simulate pipeline over them.
func (s *IntelligenceService) EvaluatePortfolio(ctx context.Context, req EvaluateRequest) (*pipeline.Report, error) {
	if s.deps.Products == nil || s.deps.Demand == nil {
		return nil, fmt.Errorf("product and demand repositories: %w", ErrUnavailable)
	}
	started := time.Now()

	products, err := s.deps.Products.ListProducts(ctx, domain.ProductFilter{
		ProductIDs: req.ProductIDs,
		SKUs:       req.SKUs,
		Limit:      req.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	ids := make([]string, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}
	demand, err := s.deps.Demand.GetDemandSeries(ctx, ids, req.From, req.To)
	if err != nil {
		return nil, fmt.Errorf("load demand: %w", err)
	}

	inputs := make([]pipeline.SKUInput, len(products))
	for i, p := range products {
		inputs[i] = BuildSKUInput(p, demand[p.ID])
	}

	cfg := pipeline.Config{
		WorkerCount:    s.opts.Workers,
		Granularity:    req.Granularity,
		From:           req.From,
		To:             req.To,
		Horizon:        req.Horizon,
		SeasonalAdjust: req.SeasonalAdjust,
		Simulate:       req.Simulate,
		Trials:         req.Trials,
		Seed:           req.Seed,
	}
	if cfg.Horizon < 1 {
		cfg.Horizon = s.opts.DefaultHorizon
	}
	if err := s.forecaster.CheckHorizon(cfg.Horizon); err != nil {
		return nil, err
	}

	runner, err := pipeline.NewRunner(cfg, s.classifier, s.forecaster, s.optimizer, s.simulator)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, inventory.ErrInvalidArgument)
	}

	report, err := runner.Run(ctx, inputs)
	metrics.ObserveComputation("evaluate", outcomeOf(err), started)
	if err != nil {
		return nil, err
	}

	trials := 0
	for _, ev := range report.Evaluations {
		if ev.Simulation != nil {
			trials += ev.Simulation.Trials
		}
	}
	if trials > 0 {
		metrics.SimulationTrialsTotal.Add(float64(trials))
	}
	return report, nil
}

// BuildSKUInput turns a product and its demand rows into pipeline input. The
// ABC value is the recorded revenue, or quantity at unit price when no
// revenue was recorded.
func BuildSKUInput(p domain.Product, points []domain.DemandPoint) pipeline.SKUInput {
	in := pipeline.SKUInput{
		Product: p,
		History: make([]forecast.Point, len(points)),
	}
	var revenue, quantity float64
	for i, dp := range points {
		in.History[i] = forecast.Point{Period: dp.Period, Quantity: dp.Quantity}
		revenue += dp.Revenue
		quantity += dp.Quantity
	}
	in.Value = revenue
	if revenue == 0 {
		in.Value = quantity * p.UnitPrice
	}
	return in
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case inventory.IsInvalidArgument(err):
		return "invalid"
	default:
		return "error"
	}
}

// DefaultHorizon is the forecast horizon used when a caller gives none.
func (s *IntelligenceService) DefaultHorizon() int { return s.opts.DefaultHorizon }
