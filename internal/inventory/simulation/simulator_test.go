package simulation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/stockintel/internal/inventory"
	"github.com/andresuchdata/stockintel/internal/inventory/reorder"
)

func f64(v float64) *float64 { return &v }
func i64(v int64) *int64     { return &v }

func newTestSimulator(t *testing.T) *Simulator {
	t.Helper()
	s, err := NewSimulator(DefaultOptions())
	require.NoError(t, err)
	return s
}

func volatileInput() Input {
	return Input{
		ProductID:          "SKU-1",
		CurrentStock:       1e6,
		AverageDailyDemand: 20,
		DemandStdDev:       4,
		LeadTimeDays:       9,
		LeadTimeStdDev:     f64(1.5),
		ServiceLevel:       0.95,
		Seed:               i64(42),
		Trials:             5000,
	}
}

func TestSimulate_ReproducibleWithSeed(t *testing.T) {
	s := newTestSimulator(t)

	first, err := s.Simulate(volatileInput())
	require.NoError(t, err)
	second, err := s.Simulate(volatileInput())
	require.NoError(t, err)

	assert.Equal(t, first.StockoutProbability, second.StockoutProbability)
	assert.Equal(t, first.ExpectedStockoutDays, second.ExpectedStockoutDays)
	assert.Equal(t, first, second)
	assert.Equal(t, int64(42), first.Seed)
	assert.Equal(t, 5000, first.Trials)
}

func TestSimulate_IndependentOfWorkerCount(t *testing.T) {
	serialOpts := DefaultOptions()
	serialOpts.Workers = 1
	serial, err := NewSimulator(serialOpts)
	require.NoError(t, err)

	parallelOpts := DefaultOptions()
	parallelOpts.Workers = 8
	parallel, err := NewSimulator(parallelOpts)
	require.NoError(t, err)

	a, err := serial.Simulate(volatileInput())
	require.NoError(t, err)
	b, err := parallel.Simulate(volatileInput())
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestSimulate_HigherServiceLevelLowersStockoutRisk(t *testing.T) {
	s := newTestSimulator(t)
	base := reorder.Input{AvgDailySales: 20, LeadTimeDays: 9, DemandStdDev: f64(4), LeadTimeStdDev: f64(1.5)}

	run := func(sl float64) (int, *Result) {
		o, err := reorder.NewOptimizer(reorder.DefaultPolicy().WithServiceLevel(sl))
		require.NoError(t, err)
		ss, _ := o.SafetyStock(base)

		in := volatileInput()
		in.ServiceLevel = sl
		in.SafetyStock = f64(float64(ss))
		in.Trials = 20000
		res, err := s.Simulate(in)
		require.NoError(t, err)
		return ss, res
	}

	ssLow, low := run(0.90)
	ssHigh, high := run(0.99)

	assert.Greater(t, ssHigh, ssLow)
	assert.Less(t, high.StockoutProbability, low.StockoutProbability)
	assert.Greater(t, high.ServiceLevelAchieved, low.ServiceLevelAchieved)
	assert.InDelta(t, 0.10, low.StockoutProbability, 0.03)
	assert.InDelta(t, 0.01, high.StockoutProbability, 0.015)
}

func TestSimulate_DeterministicDemand(t *testing.T) {
	s := newTestSimulator(t)

	covered, err := s.Simulate(Input{
		CurrentStock: 100, AverageDailyDemand: 10, LeadTimeDays: 5,
		SafetyStock: f64(0), Seed: i64(1), Trials: 200,
	})
	require.NoError(t, err)
	assert.Equal(t, 50.0, covered.ReorderPoint)
	assert.Equal(t, 0.0, covered.StockoutProbability)
	assert.Equal(t, 1.0, covered.ServiceLevelAchieved)
	assert.Equal(t, 1.0, covered.FillRate)

	short, err := s.Simulate(Input{
		CurrentStock: 30, AverageDailyDemand: 10, LeadTimeDays: 5,
		SafetyStock: f64(0), Seed: i64(1), Trials: 200,
	})
	require.NoError(t, err)
	assert.Equal(t, 1.0, short.StockoutProbability)
	assert.InDelta(t, 2.0, short.ExpectedStockoutDays, 1e-9)
	assert.InDelta(t, 20.0, short.ExpectedShortfall, 1e-9)
	assert.InDelta(t, 0.6, short.FillRate, 1e-9)
	assert.InDelta(t, 20.0, short.Shortfall.P99, 1e-9)
}

func TestSimulate_ZeroDemand(t *testing.T) {
	s := newTestSimulator(t)

	res, err := s.Simulate(Input{CurrentStock: 0, LeadTimeDays: 5, SafetyStock: f64(0), Seed: i64(3), Trials: 100})
	require.NoError(t, err)

	assert.Equal(t, 0.0, res.StockoutProbability)
	assert.Equal(t, 1.0, res.FillRate)
}

func TestSimulate_TrialsClampedToMax(t *testing.T) {
	opts := DefaultOptions()
	opts.Trials = 100
	opts.MaxTrials = 500
	s, err := NewSimulator(opts)
	require.NoError(t, err)

	in := volatileInput()
	in.Trials = 10000
	res, err := s.Simulate(in)
	require.NoError(t, err)
	assert.Equal(t, 500, res.Trials)

	in.Trials = 0
	res, err = s.Simulate(in)
	require.NoError(t, err)
	assert.Equal(t, 100, res.Trials)
}

func TestSimulate_DefaultsSafetyStockFromServiceLevel(t *testing.T) {
	s := newTestSimulator(t)

	res, err := s.Simulate(Input{
		CurrentStock: 1000, AverageDailyDemand: 10, DemandStdDev: 3, LeadTimeDays: 4,
		ServiceLevel: 0.95, Seed: i64(5), Trials: 100,
	})
	require.NoError(t, err)

	assert.InDelta(t, 1.6448536*3*2, res.SafetyStock, 1e-4)
	assert.InDelta(t, 40+res.SafetyStock, res.ReorderPoint, 1e-9)
	assert.Equal(t, res.ReorderPoint, res.AvailableAtReorder)
}

func TestSimulate_ProbabilitiesInRange(t *testing.T) {
	s := newTestSimulator(t)

	for _, stock := range []float64{-10, 0, 50, 150, 250} {
		in := volatileInput()
		in.CurrentStock = stock
		in.Trials = 2000
		res, err := s.Simulate(in)
		require.NoError(t, err)

		assert.GreaterOrEqual(t, res.StockoutProbability, 0.0)
		assert.LessOrEqual(t, res.StockoutProbability, 1.0)
		assert.InDelta(t, 1, res.StockoutProbability+res.ServiceLevelAchieved, 1e-12)
		assert.GreaterOrEqual(t, res.ExpectedStockoutDays, 0.0)
		assert.LessOrEqual(t, res.Shortfall.P50, res.Shortfall.P99)
	}
}

func TestSimulate_InvalidInput(t *testing.T) {
	s := newTestSimulator(t)

	_, err := s.Simulate(Input{AverageDailyDemand: -1, ServiceLevel: 0.9})
	assert.ErrorIs(t, err, inventory.ErrInvalidArgument)

	_, err = s.Simulate(Input{AverageDailyDemand: 1, LeadTimeDays: 2})
	assert.ErrorIs(t, err, inventory.ErrInvalidArgument, "service level required without safety stock")

	_, err = s.Simulate(Input{AverageDailyDemand: 1, LeadTimeDays: 2, SafetyStock: f64(1), LeadTimeStdDev: f64(-1)})
	assert.ErrorIs(t, err, inventory.ErrInvalidArgument)
}

func TestSweepSafetyStock(t *testing.T) {
	s := newTestSimulator(t)

	in := volatileInput()
	in.SafetyStock = f64(0)
	points, err := s.SweepSafetyStock(in, []float64{0, 10, 20, 40, 80})
	require.NoError(t, err)
	require.Len(t, points, 5)

	for i := 1; i < len(points); i++ {
		assert.LessOrEqual(t, points[i].StockoutProbability, points[i-1].StockoutProbability)
		assert.Greater(t, points[i].ReorderPoint, points[i-1].ReorderPoint)
	}
	assert.Greater(t, points[0].StockoutProbability, points[4].StockoutProbability)
	assert.Equal(t, 80.0, points[4].SafetyStock)

	_, err = s.SweepSafetyStock(in, nil)
	assert.ErrorIs(t, err, inventory.ErrInvalidArgument)

	_, err = s.SweepSafetyStock(in, []float64{-5})
	assert.ErrorIs(t, err, inventory.ErrInvalidArgument)
}

func TestSimulateBatch_OrderIndependent(t *testing.T) {
	s := newTestSimulator(t)

	a := volatileInput()
	a.ProductID, a.Seed = "A", nil
	b := volatileInput()
	b.ProductID, b.Seed, b.CurrentStock = "B", nil, 100

	forward, err := s.SimulateBatch(context.Background(), []Input{a, b}, i64(7))
	require.NoError(t, err)
	backward, err := s.SimulateBatch(context.Background(), []Input{b, a}, i64(7))
	require.NoError(t, err)

	require.Len(t, forward, 2)
	assert.Equal(t, "A", forward[0].ProductID)
	assert.Equal(t, forward[0], backward[1])
	assert.Equal(t, forward[1], backward[0])
	assert.Equal(t, DeriveSeed(7, "A"), forward[0].Seed)
	assert.NotEqual(t, forward[0].Seed, forward[1].Seed)
}

func TestSweepSafetyStock_RejectsTooManyDeltas(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxSweep = 3
	s, err := NewSimulator(opts)
	require.NoError(t, err)

	in := volatileInput()
	in.Trials = 100
	points, err := s.SweepSafetyStock(in, []float64{0, 1, 2})
	require.NoError(t, err)
	assert.Len(t, points, 3)

	_, err = s.SweepSafetyStock(in, make([]float64, 4))
	assert.ErrorIs(t, err, inventory.ErrInvalidArgument)

	opts.MaxSweep = 0
	_, err = NewSimulator(opts)
	assert.ErrorIs(t, err, inventory.ErrInvalidArgument)
}

func TestSimulateBatch_ValidatesAll(t *testing.T) {
	s := newTestSimulator(t)

	_, err := s.SimulateBatch(context.Background(), []Input{
		{ProductID: "bad-1", AverageDailyDemand: -1, SafetyStock: f64(0)},
		{ProductID: "bad-2", DemandStdDev: -1, SafetyStock: f64(0)},
	}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad-1")
	assert.Contains(t, err.Error(), "bad-2")
}
