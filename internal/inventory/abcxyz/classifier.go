// Package abcxyz grades SKUs on two axes: ABC by cumulative revenue share and
// XYZ by the coefficient of variation of historical demand.
package abcxyz

import (
	"fmt"
	"math"
	"sort"

	"github.com/andresuchdata/stockintel/internal/inventory"
	"go.uber.org/multierr"
)

// shareEpsilon absorbs floating point noise when comparing cumulative shares
// against the cut points, so 8000/10000 counts as exactly 80%.
const shareEpsilon = 1e-9

// Thresholds are the cut points of both axes.
type Thresholds struct {
	ACumulativeShare float64 // A while cumulative share <= this (0.80)
	BCumulativeShare float64 // B while cumulative share <= this (0.95)
	XMaxCV           float64 // X when CV < this (0.5)
	YMaxCV           float64 // Y when CV < this (1.0); Z otherwise
}

// DefaultThresholds returns the 80/95 Pareto cuts and 0.5/1.0 CV cuts.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ACumulativeShare: 0.80,
		BCumulativeShare: 0.95,
		XMaxCV:           0.5,
		YMaxCV:           1.0,
	}
}

// Validate checks the cut points are ordered and within range.
func (t Thresholds) Validate() error {
	if t.ACumulativeShare <= 0 || t.ACumulativeShare > t.BCumulativeShare || t.BCumulativeShare > 1 {
		return fmt.Errorf("abc cut points must satisfy 0 < A <= B <= 1, got %.2f/%.2f: %w",
			t.ACumulativeShare, t.BCumulativeShare, inventory.ErrInvalidArgument)
	}
	if t.XMaxCV <= 0 || t.XMaxCV > t.YMaxCV {
		return fmt.Errorf("xyz cut points must satisfy 0 < X <= Y, got %.2f/%.2f: %w",
			t.XMaxCV, t.YMaxCV, inventory.ErrInvalidArgument)
	}
	return nil
}

// Item is one SKU to classify.
type Item struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Value         float64   `json:"value"` // revenue or proxy, >= 0
	DemandHistory []float64 `json:"demand_history"`
}

// Classification is the grade assignment of a single item.
type Classification struct {
	ID                     string                  `json:"id"`
	Name                   string                  `json:"name"`
	ABCGrade               inventory.ABCGrade      `json:"abc_grade"`
	XYZGrade               inventory.XYZGrade      `json:"xyz_grade"`
	CombinedGrade          inventory.CombinedGrade `json:"combined_grade"`
	CoefficientOfVariation float64                 `json:"coefficient_of_variation"`
	CVDefined              bool                    `json:"cv_defined"`
	Value                  float64                 `json:"value"`
	ValueShare             float64                 `json:"value_share"`
	CumulativeShare        float64                 `json:"cumulative_share"`
	Rank                   int                     `json:"rank"` // 1-based position by descending value
	Strategy               string                  `json:"strategy"`
}

// GradeSummary aggregates one grade.
type GradeSummary struct {
	Count      int     `json:"count"`
	Value      float64 `json:"value"`
	ValueShare float64 `json:"value_share"`
}

// Summary is the 9-cell matrix plus per-axis totals.
type Summary struct {
	TotalItems int                                 `json:"total_items"`
	TotalValue float64                             `json:"total_value"`
	Matrix     map[inventory.CombinedGrade]int     `json:"matrix"`
	ABC        map[inventory.ABCGrade]GradeSummary `json:"abc"`
	XYZ        map[inventory.XYZGrade]GradeSummary `json:"xyz"`
}

// Result holds one Classification per input item, in input order.
type Result struct {
	Items   []Classification `json:"items"`
	Summary Summary          `json:"summary"`
}

// Classifier assigns ABC-XYZ grades.
type Classifier struct {
	thresholds Thresholds
}

// NewClassifier creates a classifier with the given cut points.
func NewClassifier(thresholds Thresholds) (*Classifier, error) {
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}
	return &Classifier{thresholds: thresholds}, nil
}

// Classify grades every item. An empty list yields an empty result with a
// zeroed summary. Items with equal value keep their input order when ranked,
// so the grade boundary is deterministic.
func (c *Classifier) Classify(items []Item) (*Result, error) {
	if err := validateItems(items); err != nil {
		return nil, err
	}

	result := &Result{
		Items:   make([]Classification, len(items)),
		Summary: newSummary(),
	}
	if len(items) == 0 {
		return result, nil
	}

	order := make([]int, len(items))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return items[order[a]].Value > items[order[b]].Value
	})

	var total float64
	for _, it := range items {
		total += it.Value
	}

	var cumulative float64
	for rank, idx := range order {
		it := items[idx]
		cumulative += it.Value

		var share, cumShare float64
		if total > 0 {
			share = it.Value / total
			cumShare = cumulative / total
		}

		abc := c.gradeABC(rank, it.Value, cumShare, total)
		cv, defined := inventory.CoefficientOfVariation(it.DemandHistory)
		xyz := c.gradeXYZ(cv, defined)
		combined := inventory.Combine(abc, xyz)

		result.Items[idx] = Classification{
			ID:                     it.ID,
			Name:                   it.Name,
			ABCGrade:               abc,
			XYZGrade:               xyz,
			CombinedGrade:          combined,
			CoefficientOfVariation: cv,
			CVDefined:              defined,
			Value:                  it.Value,
			ValueShare:             share,
			CumulativeShare:        cumShare,
			Rank:                   rank + 1,
			Strategy:               Strategy(combined),
		}
	}

	result.Summary = summarize(result.Items, total)
	return result, nil
}

// gradeABC applies the cumulative-share cuts. The top-ranked item with a
// positive value is always A, so a single dominant SKU is never demoted.
func (c *Classifier) gradeABC(rank int, value, cumShare, total float64) inventory.ABCGrade {
	if total <= 0 || value <= 0 {
		return inventory.GradeC
	}
	switch {
	case rank == 0, cumShare <= c.thresholds.ACumulativeShare+shareEpsilon:
		return inventory.GradeA
	case cumShare <= c.thresholds.BCumulativeShare+shareEpsilon:
		return inventory.GradeB
	default:
		return inventory.GradeC
	}
}

// GradeXYZ grades a CV with the default cut points.
func GradeXYZ(cv float64) inventory.XYZGrade {
	c := Classifier{thresholds: DefaultThresholds()}
	return c.gradeXYZ(cv, true)
}

// gradeXYZ: boundaries are inclusive toward the lower grade, so CV = 0.5 is
// Y and CV = 1.0 is Z. An undefined CV grades Z.
func (c *Classifier) gradeXYZ(cv float64, defined bool) inventory.XYZGrade {
	if !defined {
		return inventory.GradeZ
	}
	switch {
	case cv < c.thresholds.XMaxCV:
		return inventory.GradeX
	case cv < c.thresholds.YMaxCV:
		return inventory.GradeY
	default:
		return inventory.GradeZ
	}
}

func validateItems(items []Item) error {
	var errs error
	seen := make(map[string]struct{}, len(items))
	for i, it := range items {
		if it.ID == "" {
			errs = multierr.Append(errs, fmt.Errorf("item %d: empty id: %w", i, inventory.ErrInvalidArgument))
			continue
		}
		if _, dup := seen[it.ID]; dup {
			errs = multierr.Append(errs, fmt.Errorf("item %s: duplicate id: %w", it.ID, inventory.ErrInvalidArgument))
		}
		seen[it.ID] = struct{}{}
		if it.Value < 0 || math.IsNaN(it.Value) || math.IsInf(it.Value, 0) {
			errs = multierr.Append(errs, fmt.Errorf("item %s: value must be a finite number >= 0, got %v: %w", it.ID, it.Value, inventory.ErrInvalidArgument))
		}
		for j, q := range it.DemandHistory {
			if q < 0 || math.IsNaN(q) || math.IsInf(q, 0) {
				errs = multierr.Append(errs, fmt.Errorf("item %s: demand[%d] must be a finite number >= 0, got %v: %w", it.ID, j, q, inventory.ErrInvalidArgument))
				break
			}
		}
	}
	return errs
}

func newSummary() Summary {
	s := Summary{
		Matrix: make(map[inventory.CombinedGrade]int, 9),
		ABC:    make(map[inventory.ABCGrade]GradeSummary, 3),
		XYZ:    make(map[inventory.XYZGrade]GradeSummary, 3),
	}
	for _, g := range inventory.CombinedGrades() {
		s.Matrix[g] = 0
	}
	for _, g := range inventory.ABCGrades {
		s.ABC[g] = GradeSummary{}
	}
	for _, g := range inventory.XYZGrades {
		s.XYZ[g] = GradeSummary{}
	}
	return s
}

func summarize(items []Classification, total float64) Summary {
	s := newSummary()
	s.TotalItems = len(items)
	s.TotalValue = total
	for _, it := range items {
		s.Matrix[it.CombinedGrade]++

		abc := s.ABC[it.ABCGrade]
		abc.Count++
		abc.Value += it.Value
		s.ABC[it.ABCGrade] = abc

		xyz := s.XYZ[it.XYZGrade]
		xyz.Count++
		xyz.Value += it.Value
		s.XYZ[it.XYZGrade] = xyz
	}
	if total > 0 {
		for g, v := range s.ABC {
			v.ValueShare = v.Value / total
			s.ABC[g] = v
		}
		for g, v := range s.XYZ {
			v.ValueShare = v.Value / total
			s.XYZ[g] = v
		}
	}
	return s
}
