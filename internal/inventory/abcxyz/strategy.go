package abcxyz

import "github.com/andresuchdata/stockintel/internal/inventory"

var strategies = map[inventory.CombinedGrade]string{
	"AX": "Maintain low safety stock with frequent small orders; automate replenishment",
	"AY": "Hold moderate safety stock and review forecasts every cycle",
	"AZ": "Increase safety stock and monitor closely; consider make-to-order for peaks",
	"BX": "Automate replenishment at standard service level with periodic review",
	"BY": "Keep standard safety stock and review forecasts monthly",
	"BZ": "Hold higher safety stock or order on demand; review supplier lead times",
	"CX": "Order in economic batches with minimal safety stock",
	"CY": "Keep lean stock and consolidate orders with other items",
	"CZ": "Order on demand only; candidate for delisting review",
}

// Strategy returns the canned replenishment strategy for a combined grade.
func Strategy(grade inventory.CombinedGrade) string {
	if s, ok := strategies[grade]; ok {
		return s
	}
	return "Review manually"
}
