package simulation

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/andresuchdata/stockintel/internal/inventory"
)

// SweepPoint is the outcome for one safety-stock increment.
type SweepPoint struct {
	Delta                float64 `json:"delta"`
	SafetyStock          float64 `json:"safety_stock"`
	ReorderPoint         float64 `json:"reorder_point"`
	StockoutProbability  float64 `json:"stockout_probability"`
	ExpectedStockoutDays float64 `json:"expected_stockout_days"`
	FillRate             float64 `json:"fill_rate"`
}

// SweepSafetyStock re-runs in with safety stock raised by each delta. All
// runs share one seed so differences come from the policy, not the noise.
func (s *Simulator) SweepSafetyStock(in Input, deltas []float64) ([]SweepPoint, error) {
	if len(deltas) == 0 {
		return nil, fmt.Errorf("sweep needs at least one delta: %w", inventory.ErrInvalidArgument)
	}
	if len(deltas) > s.opts.MaxSweep {
		return nil, fmt.Errorf("sweep accepts at most %d deltas, got %d: %w", s.opts.MaxSweep, len(deltas), inventory.ErrInvalidArgument)
	}
	if err := ValidateInput(in); err != nil {
		return nil, err
	}
	if in.Seed == nil {
		seed := time.Now().UnixNano()
		in.Seed = &seed
	}

	base := SafetyStockFor(in)
	points := make([]SweepPoint, 0, len(deltas))
	for _, delta := range deltas {
		run := in
		ss := base + delta
		if ss < 0 {
			return nil, fmt.Errorf("delta %v makes safety stock negative: %w", delta, inventory.ErrInvalidArgument)
		}
		run.SafetyStock = &ss
		if in.ReorderPoint != nil {
			rop := *in.ReorderPoint + delta
			run.ReorderPoint = &rop
		}

		res, err := s.Simulate(run)
		if err != nil {
			return nil, err
		}
		points = append(points, SweepPoint{
			Delta:                delta,
			SafetyStock:          res.SafetyStock,
			ReorderPoint:         res.ReorderPoint,
			StockoutProbability:  res.StockoutProbability,
			ExpectedStockoutDays: res.ExpectedStockoutDays,
			FillRate:             res.FillRate,
		})
	}
	return points, nil
}

// SimulateBatch runs every input concurrently. Inputs without their own seed
// get baseSeed combined with a hash of their product ID, so a SKU's result
// does not depend on its position in the batch. Results keep input order.
func (s *Simulator) SimulateBatch(ctx context.Context, inputs []Input, baseSeed *int64) ([]*Result, error) {
	var errs error
	for i, in := range inputs {
		if err := ValidateInput(in); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("input %d (%s): %w", i, in.ProductID, err))
		}
	}
	if errs != nil {
		return nil, errs
	}

	base := time.Now().UnixNano()
	if baseSeed != nil {
		base = *baseSeed
	}

	out := make([]*Result, len(inputs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for i, in := range inputs {
		if in.Seed == nil {
			seed := DeriveSeed(base, in.ProductID)
			in.Seed = &seed
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := s.Simulate(in)
			if err != nil {
				return fmt.Errorf("simulate %s: %w", in.ProductID, err)
			}
			out[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// DeriveSeed mixes a product ID into a base seed.
func DeriveSeed(base int64, productID string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(productID))
	return base ^ int64(h.Sum64())
}
