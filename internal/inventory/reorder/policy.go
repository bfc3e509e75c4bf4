package reorder

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/andresuchdata/stockintel/internal/inventory"
)

// Policy is the organization-level configuration every optimizer call uses.
type Policy struct {
	ServiceLevel float64 // target probability of no stockout per cycle, (0, 1)
	HoldingRate  float64 // yearly holding cost as a fraction of unit cost
	OrderingCost float64 // fixed cost per purchase order
	DaysPerYear  float64

	// GradeMultipliers scale safety stock. Keys are combined grades ("AX")
	// or ABC letters ("A"); the combined key wins. Missing grades use 1.
	GradeMultipliers map[string]float64
}

// DefaultPolicy is a 95% service level with a 25% holding rate.
func DefaultPolicy() Policy {
	return Policy{
		ServiceLevel: 0.95,
		HoldingRate:  0.25,
		OrderingCost: 50,
		DaysPerYear:  365,
	}
}

func (p Policy) Validate() error {
	if p.ServiceLevel <= 0 || p.ServiceLevel >= 1 {
		return fmt.Errorf("service level must be in (0, 1), got %v: %w", p.ServiceLevel, inventory.ErrInvalidArgument)
	}
	if p.HoldingRate <= 0 {
		return fmt.Errorf("holding rate must be > 0, got %v: %w", p.HoldingRate, inventory.ErrInvalidArgument)
	}
	if p.OrderingCost < 0 {
		return fmt.Errorf("ordering cost must be >= 0, got %v: %w", p.OrderingCost, inventory.ErrInvalidArgument)
	}
	if p.DaysPerYear <= 0 {
		return fmt.Errorf("days per year must be > 0, got %v: %w", p.DaysPerYear, inventory.ErrInvalidArgument)
	}
	for k, v := range p.GradeMultipliers {
		if v <= 0 {
			return fmt.Errorf("grade multiplier %s must be > 0, got %v: %w", k, v, inventory.ErrInvalidArgument)
		}
	}
	return nil
}

// WithServiceLevel returns a copy of p targeting sl.
func (p Policy) WithServiceLevel(sl float64) Policy {
	p.ServiceLevel = sl
	return p
}

// Multiplier returns the safety-stock multiplier for a grade pair.
func (p Policy) Multiplier(abc inventory.ABCGrade, xyz inventory.XYZGrade) float64 {
	if m, ok := p.GradeMultipliers[string(inventory.Combine(abc, xyz))]; ok && abc != "" && xyz != "" {
		return m
	}
	if m, ok := p.GradeMultipliers[string(abc)]; ok && abc != "" {
		return m
	}
	return 1
}

// ParseMultipliers parses "AX:1.3,A:1.2,CZ:0.8" into a multiplier table.
func ParseMultipliers(s string) (map[string]float64, error) {
	out := map[string]float64{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, raw, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("grade multiplier %q must look like GRADE:VALUE: %w", part, inventory.ErrInvalidArgument)
		}
		key = strings.ToUpper(strings.TrimSpace(key))
		if len(key) == 2 {
			if _, err := inventory.ParseCombinedGrade(key); err != nil {
				return nil, err
			}
		} else if !inventory.ABCGrade(key).Valid() {
			return nil, fmt.Errorf("unknown grade %q in multipliers: %w", key, inventory.ErrInvalidArgument)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil || v <= 0 {
			return nil, fmt.Errorf("grade multiplier %s=%q must be a positive number: %w", key, raw, inventory.ErrInvalidArgument)
		}
		out[key] = v
	}
	return out, nil
}

// FormatMultipliers is the inverse of ParseMultipliers with sorted keys.
func FormatMultipliers(m map[string]float64) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ":" + strconv.FormatFloat(m[k], 'f', -1, 64)
	}
	return strings.Join(parts, ",")
}
