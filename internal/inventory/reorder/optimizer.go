// Package reorder computes safety stock, reorder point, economic order
// quantity and a final recommended order quantity per SKU, and ranks the
// resulting recommendations by urgency.
package reorder

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/andresuchdata/stockintel/internal/inventory"
)

// Basis names how the recommended quantity was reached.
type Basis string

const (
	BasisEOQ      Basis = "eoq"
	BasisROP      Basis = "rop"
	BasisMinOrder Basis = "min_order"
	BasisNone     Basis = "none"
)

// SafetyStockMethod names the formula that produced the safety stock.
type SafetyStockMethod string

const (
	SafetyStockCombined    SafetyStockMethod = "combined_variance"
	SafetyStockDemandOnly  SafetyStockMethod = "demand_variance"
	SafetyStockLeadTime    SafetyStockMethod = "lead_time_variance"
	SafetyStockMaxLeadTime SafetyStockMethod = "max_lead_time"
	SafetyStockExisting    SafetyStockMethod = "existing"
	SafetyStockNone        SafetyStockMethod = "none"
)

// Urgency is 0 (no action) to 3 (out of stock).
type Urgency int

const (
	UrgencyNone Urgency = iota
	UrgencyLow
	UrgencyHigh
	UrgencyCritical
)

func (u Urgency) String() string {
	switch u {
	case UrgencyLow:
		return "low"
	case UrgencyHigh:
		return "high"
	case UrgencyCritical:
		return "critical"
	}
	return "none"
}

// Input is the per-SKU data the optimizer needs. Pointer fields are optional;
// nil means "unknown", which is different from zero.
type Input struct {
	ProductID string `json:"product_id"`
	SKU       string `json:"sku"`

	CurrentStock *float64 `json:"current_stock,omitempty"`
	OnOrder      float64  `json:"on_order"`
	SafetyStock  *float64 `json:"safety_stock,omitempty"`  // existing value from product master
	ReorderPoint *float64 `json:"reorder_point,omitempty"` // existing value from product master

	AvgDailySales      float64  `json:"avg_daily_sales"`
	ForecastDailySales *float64 `json:"forecast_daily_sales,omitempty"`
	DemandStdDev       *float64 `json:"demand_std_dev,omitempty"` // daily
	MaxDailySales      *float64 `json:"max_daily_sales,omitempty"`
	MaxLeadTime        *float64 `json:"max_lead_time,omitempty"`

	ABCGrade inventory.ABCGrade `json:"abc_grade,omitempty"`
	XYZGrade inventory.XYZGrade `json:"xyz_grade,omitempty"`

	MOQ            float64  `json:"moq"`
	LeadTimeDays   float64  `json:"lead_time_days"`
	LeadTimeStdDev *float64 `json:"lead_time_std_dev,omitempty"`
	UnitPrice      float64  `json:"unit_price"`
	CostPrice      float64  `json:"cost_price"`
}

// Recommendation is the optimizer output for one SKU.
type Recommendation struct {
	ProductID string             `json:"product_id"`
	SKU       string             `json:"sku"`
	ABCGrade  inventory.ABCGrade `json:"abc_grade,omitempty"`
	XYZGrade  inventory.XYZGrade `json:"xyz_grade,omitempty"`

	Eligible          bool              `json:"eligible"`
	RecommendedQty    int               `json:"recommended_qty"`
	Method            Basis             `json:"method"`
	SafetyStock       int               `json:"safety_stock"`
	SafetyStockMethod SafetyStockMethod `json:"safety_stock_method"`
	ReorderPoint      int               `json:"reorder_point"`
	EOQ               int               `json:"eoq"`
	Urgency           Urgency           `json:"urgency_level"`
	Priority          int               `json:"priority,omitempty"`

	DailyDemand  float64  `json:"daily_demand"`
	ServiceLevel float64  `json:"service_level"`
	Z            float64  `json:"z"`
	Multiplier   float64  `json:"multiplier"`
	StockRatio   *float64 `json:"stock_ratio,omitempty"`   // current stock / reorder point
	DaysOfCover  *float64 `json:"days_of_cover,omitempty"` // current stock / daily demand

	OrderValue decimal.Decimal `json:"order_value"`
	Reason     string          `json:"reason"`
}

// Optimizer applies a Policy to Inputs.
type Optimizer struct {
	policy Policy
	z      float64
}

func NewOptimizer(policy Policy) (*Optimizer, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &Optimizer{policy: policy, z: inventory.NormalQuantile(policy.ServiceLevel)}, nil
}

// Policy returns the policy the optimizer was built with.
func (o *Optimizer) Policy() Policy { return o.policy }

// Recommend computes the recommendation for one SKU.
func (o *Optimizer) Recommend(in Input) (*Recommendation, error) {
	if err := ValidateInput(in); err != nil {
		return nil, err
	}

	rec := &Recommendation{
		ProductID:    in.ProductID,
		SKU:          in.SKU,
		ABCGrade:     in.ABCGrade,
		XYZGrade:     in.XYZGrade,
		ServiceLevel: o.policy.ServiceLevel,
		Z:            o.z,
		Multiplier:   o.policy.Multiplier(in.ABCGrade, in.XYZGrade),
		OrderValue:   decimal.Zero,
	}

	// 1. Daily demand: forecast when available, history otherwise
	d := in.AvgDailySales
	if in.ForecastDailySales != nil {
		d = *in.ForecastDailySales
	}
	rec.DailyDemand = d

	// 2. Safety stock
	ss, ssMethod := o.safetyStock(in, d, rec.Multiplier)
	rec.SafetyStock = ss
	rec.SafetyStockMethod = ssMethod

	// 3. Reorder point = (daily demand × lead time) + safety stock
	rec.ReorderPoint = reorderPoint(in, d, ss)

	// 4. Economic order quantity
	rec.EOQ = EOQ(d*o.policy.DaysPerYear, o.policy.OrderingCost, in.CostPrice, o.policy.HoldingRate)

	if rec.SafetyStock >= MaxUnits || rec.ReorderPoint >= MaxUnits || rec.EOQ >= MaxUnits {
		return nil, fmt.Errorf("sku %s: stock levels exceed %d units (safety stock %d, reorder point %d, eoq %d): %w",
			in.key(), MaxUnits, rec.SafetyStock, rec.ReorderPoint, rec.EOQ, inventory.ErrInvalidArgument)
	}

	// 5. Stock position
	if in.CurrentStock != nil {
		stock := *in.CurrentStock
		if rec.ReorderPoint > 0 {
			ratio := stock / float64(rec.ReorderPoint)
			rec.StockRatio = &ratio
		}
		if d > 0 {
			cover := math.Max(0, stock) / d
			rec.DaysOfCover = &cover
		}
	}

	// 6. Eligibility: stock position at or below reorder point, or unknown stock
	position := in.OnOrder
	if in.CurrentStock != nil {
		position += *in.CurrentStock
		rec.Eligible = position <= float64(rec.ReorderPoint)
	} else {
		rec.Eligible = true
	}
	rec.Urgency = urgency(in.CurrentStock, rec.ReorderPoint, rec.Eligible)

	if !rec.Eligible {
		rec.Method = BasisNone
		rec.Reason = fmt.Sprintf("stock position %.0f is above reorder point %d", position, rec.ReorderPoint)
		return rec, nil
	}

	// 7. Quantity: larger of EOQ and the gap to the reorder point, floored at MOQ
	gap := ceilUnits(float64(rec.ReorderPoint) - position)

	qty, basis := rec.EOQ, BasisEOQ
	if gap > qty {
		qty, basis = gap, BasisROP
	}
	moq := ceilUnits(in.MOQ)
	switch {
	case qty <= 0:
		qty, basis = 0, BasisNone
		rec.Reason = "no demand to cover"
	case qty < moq:
		rec.Reason = fmt.Sprintf("%s quantity %d below minimum order %d", basis, qty, moq)
		qty, basis = moq, BasisMinOrder
	case basis == BasisEOQ:
		rec.Reason = fmt.Sprintf("order economic quantity %d (covers reorder gap %d)", qty, gap)
	default:
		rec.Reason = fmt.Sprintf("reorder gap %d exceeds economic quantity %d", gap, rec.EOQ)
	}
	if in.CurrentStock == nil && qty > 0 {
		rec.Reason += "; current stock unknown, treated as eligible"
	}

	rec.RecommendedQty = qty
	rec.Method = basis
	rec.OrderValue = decimal.NewFromInt(int64(qty)).Mul(decimal.NewFromFloat(in.CostPrice)).Round(2)
	return rec, nil
}

// RecommendAll runs Recommend for every input. All validation failures are
// reported together and no recommendations are returned in that case.
func (o *Optimizer) RecommendAll(inputs []Input) ([]*Recommendation, error) {
	var errs error
	for i, in := range inputs {
		if err := ValidateInput(in); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("input %d (%s): %w", i, in.key(), err))
		}
	}
	if errs != nil {
		return nil, errs
	}

	out := make([]*Recommendation, 0, len(inputs))
	for _, in := range inputs {
		rec, err := o.Recommend(in)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// SafetyStock returns the safety stock the optimizer would compute for in.
func (o *Optimizer) SafetyStock(in Input) (int, SafetyStockMethod) {
	d := in.AvgDailySales
	if in.ForecastDailySales != nil {
		d = *in.ForecastDailySales
	}
	return o.safetyStock(in, d, o.policy.Multiplier(in.ABCGrade, in.XYZGrade))
}

func (o *Optimizer) safetyStock(in Input, d, mult float64) (int, SafetyStockMethod) {
	lt := in.LeadTimeDays
	switch {
	case in.DemandStdDev != nil && in.LeadTimeStdDev != nil:
		sd, slt := *in.DemandStdDev, *in.LeadTimeStdDev
		v := lt*sd*sd + d*d*slt*slt
		return ceilUnits(o.z * math.Sqrt(v) * mult), SafetyStockCombined
	case in.DemandStdDev != nil:
		return ceilUnits(o.z * *in.DemandStdDev * math.Sqrt(lt) * mult), SafetyStockDemandOnly
	case in.LeadTimeStdDev != nil && d > 0:
		return ceilUnits(o.z * d * *in.LeadTimeStdDev * mult), SafetyStockLeadTime
	case in.MaxDailySales != nil && in.MaxLeadTime != nil:
		// (max daily sales × max lead time) - (daily sales × lead time)
		return ceilUnits((*in.MaxDailySales**in.MaxLeadTime - d*lt) * mult), SafetyStockMaxLeadTime
	case in.SafetyStock != nil:
		return ceilUnits(*in.SafetyStock), SafetyStockExisting
	}
	return 0, SafetyStockNone
}

func reorderPoint(in Input, d float64, ss int) int {
	if d > 0 && in.LeadTimeDays > 0 {
		return ceilUnits(d*in.LeadTimeDays + float64(ss))
	}
	if in.ReorderPoint != nil {
		return ceilUnits(*in.ReorderPoint)
	}
	return ss
}

// EOQ is ceil(sqrt(2·D·S / (cost·holdingRate))). It is 0 when annual demand,
// ordering cost or unit cost is not positive.
func EOQ(annualDemand, orderingCost, unitCost, holdingRate float64) int {
	holding := unitCost * holdingRate
	if annualDemand <= 0 || orderingCost <= 0 || holding <= 0 {
		return 0
	}
	return ceilUnits(math.Sqrt(2 * annualDemand * orderingCost / holding))
}

func urgency(stock *float64, rop int, eligible bool) Urgency {
	switch {
	case !eligible:
		return UrgencyNone
	case stock == nil:
		return UrgencyHigh
	case *stock <= 0:
		return UrgencyCritical
	case *stock <= 0.5*float64(rop):
		return UrgencyHigh
	}
	return UrgencyLow
}

// MaxUnits is the largest unit count a recommendation may carry. Inputs that
// would need more are rejected.
const MaxUnits = math.MaxInt32

// ceilUnits rounds up to whole units, absorbing float noise, floors at 0 and
// saturates at MaxUnits.
func ceilUnits(v float64) int {
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	if v >= MaxUnits {
		return MaxUnits
	}
	return int(math.Ceil(v - 1e-9))
}

// ValidateInput rejects values that indicate a caller bug.
func ValidateInput(in Input) error {
	var errs error
	check := func(name string, v float64) {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			errs = multierr.Append(errs, fmt.Errorf("%s must be a finite number >= 0, got %v: %w", name, v, inventory.ErrInvalidArgument))
		}
	}
	checkOpt := func(name string, v *float64) {
		if v != nil {
			check(name, *v)
		}
	}

	check("on_order", in.OnOrder)
	check("avg_daily_sales", in.AvgDailySales)
	check("moq", in.MOQ)
	check("lead_time_days", in.LeadTimeDays)
	check("unit_price", in.UnitPrice)
	check("cost_price", in.CostPrice)
	checkOpt("safety_stock", in.SafetyStock)
	checkOpt("reorder_point", in.ReorderPoint)
	checkOpt("forecast_daily_sales", in.ForecastDailySales)
	checkOpt("demand_std_dev", in.DemandStdDev)
	checkOpt("max_daily_sales", in.MaxDailySales)
	checkOpt("max_lead_time", in.MaxLeadTime)
	checkOpt("lead_time_std_dev", in.LeadTimeStdDev)
	if in.CurrentStock != nil && (math.IsNaN(*in.CurrentStock) || math.IsInf(*in.CurrentStock, 0)) {
		errs = multierr.Append(errs, fmt.Errorf("current_stock must be finite: %w", inventory.ErrInvalidArgument))
	}
	if in.ABCGrade != "" && !in.ABCGrade.Valid() {
		errs = multierr.Append(errs, fmt.Errorf("unknown abc grade %q: %w", in.ABCGrade, inventory.ErrInvalidArgument))
	}
	if in.XYZGrade != "" && !in.XYZGrade.Valid() {
		errs = multierr.Append(errs, fmt.Errorf("unknown xyz grade %q: %w", in.XYZGrade, inventory.ErrInvalidArgument))
	}
	return errs
}

func (in Input) key() string {
	if s := strings.TrimSpace(in.SKU); s != "" {
		return s
	}
	return in.ProductID
}
