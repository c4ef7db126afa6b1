package decision

import (
	"fmt"

	"github.com/andresuchdata/restock-advisor/internal/domain"
)

// explain renders the decision from the same numbers used to classify it.
func explain(d domain.InventoryDecision, overstockMultiplier, overstockLimit float64, reviewDays int) string {
	demand := fmt.Sprintf("Forecast demand averages %.2f units/day; reorder point %.2f = %.2f/day x %d lead-time days + %.2f safety stock.",
		d.AverageDailyDemand, d.ReorderPoint, d.AverageDailyDemand, d.LeadTimeDays, d.SafetyStock)

	switch d.RiskLevel {
	case domain.RiskUnderstock:
		return fmt.Sprintf("Understock (%s): current stock %d is below the reorder point %.2f. %s Order %d units to reach the target stock of %.2f (%d-day review period).",
			d.Severity, d.CurrentStock, d.ReorderPoint, demand, d.ReorderQuantity, d.TargetStock, reviewDays)
	case domain.RiskOverstock:
		return fmt.Sprintf("Overstock (%s): current stock %d exceeds %.2fx the target stock of %.2f (limit %.2f). %s No reorder needed.",
			d.Severity, d.CurrentStock, overstockMultiplier, d.TargetStock, overstockLimit, demand)
	default:
		msg := fmt.Sprintf("Healthy: current stock %d is at or above the reorder point %.2f and at or below the overstock limit %.2f (%.2fx target %.2f). %s",
			d.CurrentStock, d.ReorderPoint, overstockLimit, overstockMultiplier, d.TargetStock, demand)
		if d.ReorderQuantity > 0 {
			msg += fmt.Sprintf(" %d units would top up to the target.", d.ReorderQuantity)
		}
		return msg
	}
}
