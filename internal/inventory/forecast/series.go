package forecast

import (
	"fmt"
	"math"
	"time"

	"github.com/andresuchdata/stockintel/internal/inventory"
)

// Granularity is the bucket size of a demand series.
type Granularity string

const (
	Daily   Granularity = "daily"
	Monthly Granularity = "monthly"
)

// Point is one period of demand for a SKU.
type Point struct {
	Period   time.Time `json:"period"`
	Quantity float64   `json:"quantity"`
}

// Valid reports whether g is a supported granularity.
func (g Granularity) Valid() bool {
	return g == Daily || g == Monthly
}

// Truncate returns the start of the bucket containing t, in UTC.
func (g Granularity) Truncate(t time.Time) time.Time {
	t = t.UTC()
	if g == Daily {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Next returns the start of the bucket after t.
func (g Granularity) Next(t time.Time) time.Time {
	if g == Daily {
		return t.AddDate(0, 0, 1)
	}
	return t.AddDate(0, 1, 0)
}

// MaxFilledPeriods bounds the length of a gap-filled series.
const MaxFilledPeriods = 20000

// FillGaps buckets points by granularity, sums duplicates and inserts
// zero-quantity buckets for missing periods between the first and last
// observed period. The result is ordered by period.
func FillGaps(points []Point, g Granularity) ([]Point, error) {
	return FillGapsBetween(points, g, time.Time{}, time.Time{})
}

// FillGapsBetween is FillGaps over the window [from, to). Periods of the
// window without sales count as zero demand, including leading and trailing
// ones; points outside the window are ignored. A zero from or to falls back
// to the first or last observed period.
func FillGapsBetween(points []Point, g Granularity, from, to time.Time) ([]Point, error) {
	if !g.Valid() {
		return nil, fmt.Errorf("unknown granularity %q: %w", g, inventory.ErrInvalidArgument)
	}
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		return nil, fmt.Errorf("window start %s must be before end %s: %w",
			from.Format("2006-01-02"), to.Format("2006-01-02"), inventory.ErrInvalidArgument)
	}

	buckets := make(map[time.Time]float64, len(points))
	var first, last time.Time
	observed := false
	for i, p := range points {
		if p.Quantity < 0 || math.IsNaN(p.Quantity) || math.IsInf(p.Quantity, 0) {
			return nil, fmt.Errorf("point %d (%s): quantity must be a finite number >= 0, got %v: %w",
				i, p.Period.Format("2006-01-02"), p.Quantity, inventory.ErrInvalidArgument)
		}
		if (!from.IsZero() && p.Period.Before(from)) || (!to.IsZero() && !p.Period.Before(to)) {
			continue
		}
		t := g.Truncate(p.Period)
		buckets[t] += p.Quantity
		if !observed || t.Before(first) {
			first = t
		}
		if !observed || t.After(last) {
			last = t
		}
		observed = true
	}

	start, end := first, last
	if !from.IsZero() {
		start = g.Truncate(from)
	}
	if !to.IsZero() {
		end = g.Truncate(to.Add(-time.Nanosecond))
	}
	if (!observed && (from.IsZero() || to.IsZero())) || end.Before(start) {
		return nil, nil
	}

	var out []Point
	for t := start; !t.After(end); t = g.Next(t) {
		if len(out) == MaxFilledPeriods {
			return nil, fmt.Errorf("window %s to %s spans more than %d %s periods: %w",
				start.Format("2006-01-02"), end.Format("2006-01-02"), MaxFilledPeriods, g, inventory.ErrInvalidArgument)
		}
		out = append(out, Point{Period: t, Quantity: buckets[t]})
	}
	return out, nil
}

// Values extracts the quantities of points in order.
func Values(points []Point) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Quantity
	}
	return out
}

func futurePeriods(last time.Time, g Granularity, n int) []time.Time {
	out := make([]time.Time, n)
	t := last
	for i := range out {
		t = g.Next(t)
		out[i] = t
	}
	return out
}

func validateValues(values []float64) error {
	for i, v := range values {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("history[%d] must be a finite number >= 0, got %v: %w", i, v, inventory.ErrInvalidArgument)
		}
	}
	return nil
}
