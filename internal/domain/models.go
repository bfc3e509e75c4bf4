package domain

import (
	"time"

	"github.com/andresuchdata/stockintel/internal/inventory"
	"github.com/andresuchdata/stockintel/internal/inventory/gradechange"
)

// Product is the master data of one SKU together with its latest inventory
// snapshot. Nullable numbers are pointers: nil means unknown, not zero.
type Product struct {
	ID             string             `json:"id" db:"id"`
	SKU            string             `json:"sku" db:"sku"`
	Name           string             `json:"name" db:"name"`
	UnitPrice      float64            `json:"unit_price" db:"unit_price"`
	CostPrice      float64            `json:"cost_price" db:"cost_price"`
	MOQ            float64            `json:"moq" db:"moq"`
	LeadTimeDays   float64            `json:"lead_time_days" db:"lead_time_days"`
	LeadTimeStdDev *float64           `json:"lead_time_std_dev,omitempty" db:"lead_time_std_dev"`
	MaxLeadTime    *float64           `json:"max_lead_time,omitempty" db:"max_lead_time"`
	SafetyStock    *float64           `json:"safety_stock,omitempty" db:"safety_stock"`
	ReorderPoint   *float64           `json:"reorder_point,omitempty" db:"reorder_point"`
	CurrentStock   *float64           `json:"current_stock,omitempty" db:"current_stock"`
	OnOrder        float64            `json:"on_order" db:"on_order"`
	ABCGrade       inventory.ABCGrade `json:"abc_grade,omitempty" db:"abc_grade"`
	XYZGrade       inventory.XYZGrade `json:"xyz_grade,omitempty" db:"xyz_grade"`
	IsOverstock    bool               `json:"is_overstock" db:"is_overstock"`
	UpdatedAt      time.Time          `json:"updated_at" db:"updated_at"`
}

// Key is the SKU code, falling back to the product ID.
func (p Product) Key() string {
	if p.SKU != "" {
		return p.SKU
	}
	return p.ID
}

// DemandPoint is one period of sales for a product.
type DemandPoint struct {
	ProductID string    `json:"product_id" db:"product_id"`
	Period    time.Time `json:"period" db:"period"`
	Quantity  float64   `json:"quantity" db:"quantity"`
	Revenue   float64   `json:"revenue" db:"revenue"`
}

// ProductFilter narrows product listings. Empty fields match everything.
type ProductFilter struct {
	ProductIDs []string `json:"product_ids"`
	SKUs       []string `json:"skus"`
	Limit      int      `json:"limit"`
}

// GradeHistoryEntry is a persisted classification snapshot row. Rows are
// written once per product per period and never updated.
type GradeHistoryEntry struct {
	ID            int64                   `json:"id" db:"id"`
	RunID         string                  `json:"run_id" db:"run_id"`
	ProductID     string                  `json:"product_id" db:"product_id"`
	SKU           string                  `json:"sku" db:"sku"`
	Period        time.Time               `json:"period" db:"period"`
	ABCGrade      inventory.ABCGrade      `json:"abc_grade" db:"abc_grade"`
	XYZGrade      inventory.XYZGrade      `json:"xyz_grade" db:"xyz_grade"`
	CombinedGrade inventory.CombinedGrade `json:"combined_grade" db:"combined_grade"`
	CreatedAt     time.Time               `json:"created_at" db:"created_at"`
}

// TrackerEntry converts the row for the grade-change tracker.
func (e GradeHistoryEntry) TrackerEntry() gradechange.Entry {
	return gradechange.Entry{
		ProductID:     e.ProductID,
		SKU:           e.SKU,
		Period:        e.Period,
		ABCGrade:      e.ABCGrade,
		XYZGrade:      e.XYZGrade,
		CombinedGrade: e.CombinedGrade,
	}
}

// PeriodStart truncates t to the first day of its month in UTC. Grade
// snapshots are keyed by this value.
func PeriodStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// ParsePeriod parses "2006-01" into a period start.
func ParsePeriod(s string) (time.Time, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return time.Time{}, err
	}
	return PeriodStart(t), nil
}
