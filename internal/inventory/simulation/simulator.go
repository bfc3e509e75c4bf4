// Package simulation estimates stockout risk with a seeded Monte Carlo model
// of lead-time demand.
package simulation

import (
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/andresuchdata/stockintel/internal/inventory"
)

// Options bounds the cost of a simulation run.
type Options struct {
	Trials    int // default trial count
	MaxTrials int // requested trial counts above this are clamped
	ChunkSize int // trials per seeded chunk
	Workers   int // concurrent chunks
	MaxSweep  int // most safety-stock deltas one sweep may try
}

func DefaultOptions() Options {
	return Options{
		Trials:    10000,
		MaxTrials: 200000,
		ChunkSize: 1000,
		Workers:   runtime.GOMAXPROCS(0),
		MaxSweep:  50,
	}
}

func (o Options) Validate() error {
	if o.Trials < 1 || o.MaxTrials < o.Trials {
		return fmt.Errorf("trials must be in [1, max_trials], got %d/%d: %w", o.Trials, o.MaxTrials, inventory.ErrInvalidArgument)
	}
	if o.ChunkSize < 1 || o.Workers < 1 || o.MaxSweep < 1 {
		return fmt.Errorf("chunk size, workers and max sweep must be >= 1: %w", inventory.ErrInvalidArgument)
	}
	return nil
}

// Input describes one SKU. Demand is per day; lead time is in days.
type Input struct {
	ProductID          string   `json:"product_id"`
	CurrentStock       float64  `json:"current_stock"`
	AverageDailyDemand float64  `json:"average_daily_demand"`
	DemandStdDev       float64  `json:"demand_std_dev"`
	LeadTimeDays       float64  `json:"lead_time_days"`
	LeadTimeStdDev     *float64 `json:"lead_time_std_dev,omitempty"`

	// SafetyStock defaults to z(ServiceLevel)·sqrt(LT·σd² + d²·σLT²).
	SafetyStock *float64 `json:"safety_stock,omitempty"`
	// ReorderPoint defaults to d·LT + SafetyStock.
	ReorderPoint *float64 `json:"reorder_point,omitempty"`
	ServiceLevel float64  `json:"service_level"`

	Seed   *int64 `json:"seed,omitempty"`
	Trials int    `json:"trials,omitempty"`
}

// Percentiles of a per-trial outcome.
type Percentiles struct {
	P50 float64 `json:"p50"`
	P90 float64 `json:"p90"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

// Result aggregates all trials of one run.
type Result struct {
	ProductID string `json:"product_id"`
	Trials    int    `json:"trials"`
	Seed      int64  `json:"seed"`

	SafetyStock        float64 `json:"safety_stock"`
	ReorderPoint       float64 `json:"reorder_point"`
	AvailableAtReorder float64 `json:"available_at_reorder"`

	StockoutProbability  float64 `json:"stockout_probability"`
	ServiceLevelAchieved float64 `json:"service_level_achieved"`
	TargetServiceLevel   float64 `json:"target_service_level"`
	ExpectedStockoutDays float64 `json:"expected_stockout_days"`
	StockoutDaysIfShort  float64 `json:"stockout_days_if_short"`
	ExpectedShortfall    float64 `json:"expected_shortfall"`
	FillRate             float64 `json:"fill_rate"`
	AvgLeadTimeDemand    float64 `json:"avg_lead_time_demand"`

	Shortfall   Percentiles `json:"shortfall_percentiles"`
	EndingStock Percentiles `json:"ending_stock_percentiles"`
}

// Simulator runs replenishment-cycle trials.
type Simulator struct {
	opts Options
}

func NewSimulator(opts Options) (*Simulator, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Simulator{opts: opts}, nil
}

// Options returns the simulator configuration.
func (s *Simulator) Options() Options { return s.opts }

type trial struct {
	stockout     bool
	stockoutDays float64
	shortfall    float64
	ending       float64
	demand       float64
}

// Simulate runs in.Trials (or the default) trials. Each trial samples a lead
// time L ~ N(LT, σLT) and a lead-time demand N(d·L, σd·√L), both truncated at
// zero, and compares it with the stock on hand when the order is placed:
// min(current stock, reorder point). Trials are split into fixed-size chunks
// seeded seed+chunk, so the outcome for a seed does not depend on Workers.
func (s *Simulator) Simulate(in Input) (*Result, error) {
	if err := ValidateInput(in); err != nil {
		return nil, err
	}

	trials := in.Trials
	if trials <= 0 {
		trials = s.opts.Trials
	}
	if trials > s.opts.MaxTrials {
		trials = s.opts.MaxTrials
	}
	seed := time.Now().UnixNano()
	if in.Seed != nil {
		seed = *in.Seed
	}

	d, sd, lt := in.AverageDailyDemand, in.DemandStdDev, in.LeadTimeDays
	slt := 0.0
	if in.LeadTimeStdDev != nil {
		slt = *in.LeadTimeStdDev
	}
	ss := SafetyStockFor(in)
	rop := d*lt + ss
	if in.ReorderPoint != nil {
		rop = *in.ReorderPoint
	}
	available := math.Max(0, math.Min(in.CurrentStock, rop))

	results := make([]trial, trials)
	chunks := (trials + s.opts.ChunkSize - 1) / s.opts.ChunkSize

	var g errgroup.Group
	g.SetLimit(s.opts.Workers)
	for c := 0; c < chunks; c++ {
		start := c * s.opts.ChunkSize
		end := min(start+s.opts.ChunkSize, trials)
		chunkSeed := seed + int64(c)
		g.Go(func() error {
			rng := rand.New(rand.NewSource(chunkSeed))
			for i := start; i < end; i++ {
				results[i] = runTrial(rng, d, sd, lt, slt, available)
			}
			return nil
		})
	}
	_ = g.Wait()

	log.Debug().
		Str("product_id", in.ProductID).
		Int("trials", trials).
		Int64("seed", seed).
		Int("chunks", chunks).
		Msg("stockout simulation finished")

	res := aggregate(results)
	res.ProductID = in.ProductID
	res.Trials = trials
	res.Seed = seed
	res.SafetyStock = ss
	res.ReorderPoint = rop
	res.AvailableAtReorder = available
	res.TargetServiceLevel = in.ServiceLevel
	return res, nil
}

// runTrial always draws the lead-time shock before the demand shock so a
// seed maps to the same random stream regardless of the inputs.
func runTrial(rng *rand.Rand, d, sd, lt, slt, available float64) trial {
	z1, z2 := rng.NormFloat64(), rng.NormFloat64()

	l := math.Max(0, lt+slt*z1)
	demand := math.Max(0, d*l+sd*math.Sqrt(l)*z2)

	t := trial{demand: demand, ending: math.Max(0, available-demand)}
	if demand > available {
		t.stockout = true
		t.shortfall = demand - available
		t.stockoutDays = l * (1 - available/demand)
	}
	return t
}

func aggregate(trials []trial) *Result {
	n := float64(len(trials))
	shortfalls := make([]float64, len(trials))
	endings := make([]float64, len(trials))

	var stockouts int
	var days, shortfall, demand float64
	for i, t := range trials {
		if t.stockout {
			stockouts++
		}
		days += t.stockoutDays
		shortfall += t.shortfall
		demand += t.demand
		shortfalls[i] = t.shortfall
		endings[i] = t.ending
	}
	sort.Float64s(shortfalls)
	sort.Float64s(endings)

	res := &Result{
		StockoutProbability:  float64(stockouts) / n,
		ExpectedStockoutDays: days / n,
		ExpectedShortfall:    shortfall / n,
		AvgLeadTimeDemand:    demand / n,
		FillRate:             1,
		Shortfall:            percentiles(shortfalls),
		EndingStock:          percentiles(endings),
	}
	res.ServiceLevelAchieved = 1 - res.StockoutProbability
	if stockouts > 0 {
		res.StockoutDaysIfShort = days / float64(stockouts)
	}
	if demand > 0 {
		res.FillRate = 1 - shortfall/demand
	}
	return res
}

func percentiles(sorted []float64) Percentiles {
	return Percentiles{
		P50: inventory.Percentile(sorted, 0.50),
		P90: inventory.Percentile(sorted, 0.90),
		P95: inventory.Percentile(sorted, 0.95),
		P99: inventory.Percentile(sorted, 0.99),
	}
}

// SafetyStockFor returns in.SafetyStock, or the combined-variance safety
// stock for in.ServiceLevel when it is not set.
func SafetyStockFor(in Input) float64 {
	if in.SafetyStock != nil {
		return *in.SafetyStock
	}
	slt := 0.0
	if in.LeadTimeStdDev != nil {
		slt = *in.LeadTimeStdDev
	}
	v := in.LeadTimeDays*in.DemandStdDev*in.DemandStdDev + in.AverageDailyDemand*in.AverageDailyDemand*slt*slt
	return math.Max(0, inventory.NormalQuantile(in.ServiceLevel)*math.Sqrt(v))
}

// ValidateInput rejects negative or non-finite statistics.
func ValidateInput(in Input) error {
	var errs error
	check := func(name string, v float64) {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			errs = multierr.Append(errs, fmt.Errorf("%s must be a finite number >= 0, got %v: %w", name, v, inventory.ErrInvalidArgument))
		}
	}
	check("average_daily_demand", in.AverageDailyDemand)
	check("demand_std_dev", in.DemandStdDev)
	check("lead_time_days", in.LeadTimeDays)
	if in.LeadTimeStdDev != nil {
		check("lead_time_std_dev", *in.LeadTimeStdDev)
	}
	if in.SafetyStock != nil {
		check("safety_stock", *in.SafetyStock)
	}
	if in.ReorderPoint != nil {
		check("reorder_point", *in.ReorderPoint)
	}
	if math.IsNaN(in.CurrentStock) || math.IsInf(in.CurrentStock, 0) {
		errs = multierr.Append(errs, fmt.Errorf("current_stock must be finite: %w", inventory.ErrInvalidArgument))
	}
	if in.SafetyStock == nil && (in.ServiceLevel <= 0 || in.ServiceLevel >= 1) {
		errs = multierr.Append(errs, fmt.Errorf("service_level must be in (0, 1) when safety_stock is not given, got %v: %w",
			in.ServiceLevel, inventory.ErrInvalidArgument))
	}
	if in.Trials < 0 {
		errs = multierr.Append(errs, fmt.Errorf("trials must be >= 0, got %d: %w", in.Trials, inventory.ErrInvalidArgument))
	}
	return errs
}
