package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RiskLevel is the inventory risk classification of a decision.
type RiskLevel string

const (
	RiskNone       RiskLevel = "none"
	RiskUnderstock RiskLevel = "understock"
	RiskOverstock  RiskLevel = "overstock"
)

// Severity grades how far a risky product is from its healthy band.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

var severityRank = map[Severity]int{
	SeverityLow:    1,
	SeverityMedium: 2,
	SeverityHigh:   3,
}

// Rank orders severities; unknown values rank 0.
func (s Severity) Rank() int {
	return severityRank[s]
}

// ParseSeverity returns the severity for a case-sensitive label.
func ParseSeverity(label string) (Severity, bool) {
	s := Severity(label)
	_, ok := severityRank[s]
	return s, ok
}

// InventoryDecision is the reorder recommendation derived from a forecast.
type InventoryDecision struct {
	ProductID          int64           `json:"product_id"`
	CurrentStock       int             `json:"current_stock"`
	LeadTimeDays       int             `json:"lead_time_days"`
	AverageDailyDemand float64         `json:"average_daily_demand"`
	DemandStdDev       float64         `json:"demand_std_dev"`
	SafetyStock        float64         `json:"safety_stock"`
	ReorderPoint       float64         `json:"reorder_point"`
	TargetStock        float64         `json:"target_stock"`
	ReorderQuantity    int             `json:"reorder_quantity"`
	RiskLevel          RiskLevel       `json:"risk_level"`
	Severity           Severity        `json:"severity,omitempty"`
	Explanation        string          `json:"explanation"`
	DaysUntilStockout  *float64        `json:"days_until_stockout,omitempty"`
	EconomicOrderQty   int             `json:"economic_order_qty"`
	ReorderCost        decimal.Decimal `json:"reorder_cost"`
	Model              ModelRef        `json:"model"`
	ComputedAt         time.Time       `json:"computed_at"`
}

// Complete reports whether the decision was fully computed. Zero values from
// cancelled or failed runs are never complete.
func (d InventoryDecision) Complete() bool {
	return d.ProductID != 0 &&
		d.RiskLevel != "" &&
		d.Explanation != "" &&
		!d.ComputedAt.IsZero()
}

// InventoryAlert is a persisted risk notice for a product.
type InventoryAlert struct {
	ID             string     `json:"id" db:"id"`
	ProductID      int64      `json:"product_id" db:"product_id"`
	RiskLevel      RiskLevel  `json:"risk_level" db:"risk_level"`
	Severity       Severity   `json:"severity" db:"severity"`
	Explanation    string     `json:"explanation" db:"explanation"`
	CurrentStock   int        `json:"current_stock" db:"current_stock"`
	ReorderPoint   float64    `json:"reorder_point" db:"reorder_point"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	Acknowledged   bool       `json:"acknowledged" db:"acknowledged"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty" db:"acknowledged_at"`
}

// AlertFilter narrows alert listings.
type AlertFilter struct {
	ProductID    int64
	RiskLevel    RiskLevel
	Acknowledged *bool
	Limit        int
}

// AlertSummary counts open alerts by kind.
type AlertSummary struct {
	Total      int    `json:"total"`
	Understock int    `json:"understock"`
	Overstock  int    `json:"overstock"`
	HighRisk   int    `json:"high_risk"`
	Text       string `json:"text"`
}
