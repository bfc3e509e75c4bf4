// Package gradechange diffs grade snapshots between evaluation periods.
package gradechange

import (
	"fmt"
	"sort"
	"time"

	"github.com/andresuchdata/stockintel/internal/inventory"
)

// Type classifies a grade transition.
type Type string

const (
	TypeNew       Type = "new"
	TypeUpgrade   Type = "upgrade"
	TypeDowngrade Type = "downgrade"
	TypeLateral   Type = "lateral"
)

// Risk is the qualitative signal attached to a change.
type Risk string

const (
	RiskHigh   Risk = "high"
	RiskMedium Risk = "medium"
	RiskLow    Risk = "low"
	RiskNone   Risk = "none"
)

// Entry is one persisted grade snapshot row.
type Entry struct {
	ProductID     string                  `json:"product_id" db:"product_id"`
	SKU           string                  `json:"sku" db:"sku"`
	Period        time.Time               `json:"period" db:"period"`
	ABCGrade      inventory.ABCGrade      `json:"abc_grade" db:"abc_grade"`
	XYZGrade      inventory.XYZGrade      `json:"xyz_grade" db:"xyz_grade"`
	CombinedGrade inventory.CombinedGrade `json:"combined_grade" db:"combined_grade"`
}

// Grade returns the combined grade, deriving it when the row has none.
func (e Entry) Grade() inventory.CombinedGrade {
	if e.CombinedGrade != "" {
		return e.CombinedGrade
	}
	return inventory.Combine(e.ABCGrade, e.XYZGrade)
}

// Change is the diff between a product's two latest snapshots.
type Change struct {
	ProductID      string                  `json:"product_id"`
	SKU            string                  `json:"sku"`
	Type           Type                    `json:"type"`
	PreviousGrade  inventory.CombinedGrade `json:"previous_grade,omitempty"`
	CurrentGrade   inventory.CombinedGrade `json:"current_grade"`
	PreviousPeriod *time.Time              `json:"previous_period,omitempty"`
	CurrentPeriod  time.Time               `json:"current_period"`
	Steps          int                     `json:"steps"` // positive for upgrades
	Risk           Risk                    `json:"risk"`
	Action         string                  `json:"action"`
}

// Compare derives the change from prev (nil for a first snapshot) to curr.
func Compare(prev *Entry, curr Entry) Change {
	c := Change{
		ProductID:     curr.ProductID,
		SKU:           curr.SKU,
		CurrentGrade:  curr.Grade(),
		CurrentPeriod: curr.Period,
	}
	if prev == nil {
		c.Type, c.Risk = TypeNew, RiskLow
		c.Action = fmt.Sprintf("New %s item: apply the %s stocking strategy", c.CurrentGrade, c.CurrentGrade)
		return c
	}

	c.PreviousGrade = prev.Grade()
	period := prev.Period
	c.PreviousPeriod = &period
	c.Steps = c.PreviousGrade.Rank() - c.CurrentGrade.Rank()

	switch {
	case c.Steps > 0:
		c.Type, c.Risk = TypeUpgrade, RiskLow
		c.Action = upgradeAction(c)
	case c.Steps < 0:
		c.Type = TypeDowngrade
		c.Risk, c.Action = downgradeRisk(c)
	default:
		c.Type, c.Risk = TypeLateral, RiskNone
		c.Action = "No change"
	}
	return c
}

func upgradeAction(c Change) string {
	if c.CurrentGrade.ABC() != c.PreviousGrade.ABC() {
		return fmt.Sprintf("Value grew to %s: review safety stock and supplier capacity", c.CurrentGrade.ABC())
	}
	return "Demand became more predictable: safety stock can be reduced"
}

func downgradeRisk(c Change) (Risk, string) {
	switch {
	case c.PreviousGrade.ABC() == inventory.GradeA:
		return RiskHigh, fmt.Sprintf("Former A item dropped to %s: investigate lost sales and reduce open orders", c.CurrentGrade)
	case c.CurrentGrade.XYZ() == inventory.GradeZ:
		return RiskHigh, "Demand became erratic: raise safety stock or switch to order-on-demand"
	}
	return RiskMedium, fmt.Sprintf("Downgraded to %s: lower reorder quantities and watch for overstock", c.CurrentGrade)
}

// LatestChanges groups entries by product and diffs each product's two most
// recent periods. Output is sorted by product ID.
func LatestChanges(entries []Entry) []Change {
	byProduct := make(map[string][]Entry)
	for _, e := range entries {
		byProduct[e.ProductID] = append(byProduct[e.ProductID], e)
	}

	ids := make([]string, 0, len(byProduct))
	for id := range byProduct {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]Change, 0, len(ids))
	for _, id := range ids {
		rows := byProduct[id]
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Period.After(rows[j].Period) })
		if len(rows) == 1 {
			out = append(out, Compare(nil, rows[0]))
			continue
		}
		out = append(out, Compare(&rows[1], rows[0]))
	}
	return out
}

// Summary counts changes. Lateral changes do not count as changed.
type Summary struct {
	Total      int          `json:"total"`
	Changed    int          `json:"changed"`
	HighRisk   int          `json:"high_risk"`
	ByType     map[Type]int `json:"by_type"`
	Upgrades   int          `json:"upgrades"`
	Downgrades int          `json:"downgrades"`
	New        int          `json:"new"`
}

func Summarize(changes []Change) Summary {
	s := Summary{
		Total:  len(changes),
		ByType: map[Type]int{TypeNew: 0, TypeUpgrade: 0, TypeDowngrade: 0, TypeLateral: 0},
	}
	for _, c := range changes {
		s.ByType[c.Type]++
		if c.Type != TypeLateral {
			s.Changed++
		}
		if c.Risk == RiskHigh {
			s.HighRisk++
		}
	}
	s.Upgrades = s.ByType[TypeUpgrade]
	s.Downgrades = s.ByType[TypeDowngrade]
	s.New = s.ByType[TypeNew]
	return s
}

// Filter keeps the non-lateral changes, optionally only high-risk ones.
func Filter(changes []Change, highRiskOnly bool) []Change {
	out := make([]Change, 0, len(changes))
	for _, c := range changes {
		if c.Type == TypeLateral || (highRiskOnly && c.Risk != RiskHigh) {
			continue
		}
		out = append(out, c)
	}
	return out
}
