package reorder

import "sort"

// Rank returns the eligible recommendations with a non-zero quantity, most
// urgent first, and sets their 1-based Priority. Within an urgency level
// A-grade items come first, then the lowest stock ratio, then SKU and
// product ID, so unchanged data always ranks the same way.
func Rank(recs []*Recommendation) []*Recommendation {
	out := make([]*Recommendation, 0, len(recs))
	for _, r := range recs {
		if r != nil && r.Eligible && r.RecommendedQty > 0 {
			out = append(out, r)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Urgency != b.Urgency {
			return a.Urgency > b.Urgency
		}
		if ra, rb := a.ABCGrade.Rank(), b.ABCGrade.Rank(); ra != rb {
			return ra < rb
		}
		if ra, rb := ratioOf(a), ratioOf(b); ra != rb {
			return ra < rb
		}
		if a.SKU != b.SKU {
			return a.SKU < b.SKU
		}
		return a.ProductID < b.ProductID
	})

	for i, r := range out {
		r.Priority = i + 1
	}
	return out
}

// ratioOf treats an unknown stock ratio as zero stock.
func ratioOf(r *Recommendation) float64 {
	if r.StockRatio == nil {
		return 0
	}
	return *r.StockRatio
}
