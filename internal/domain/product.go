package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a stocked item together with its replenishment parameters.
type Product struct {
	ID           int64           `json:"id" db:"id"`
	SKU          string          `json:"sku" db:"sku"`
	Name         string          `json:"name" db:"name"`
	Category     string          `json:"category" db:"category"`
	CurrentStock int             `json:"current_stock" db:"current_stock"`
	LeadTimeDays int             `json:"lead_time_days" db:"lead_time_days"`
	UnitCost     decimal.Decimal `json:"unit_cost" db:"unit_cost"`

	// SafetyStockFloor is the static minimum safety stock in units.
	SafetyStockFloor float64 `json:"safety_stock_floor" db:"safety_stock_floor"`
	// SafetyStockMultiplier overrides the configured service-level multiplier when set.
	SafetyStockMultiplier *float64 `json:"safety_stock_multiplier,omitempty" db:"safety_stock_multiplier"`

	LastReorderPoint *float64   `json:"last_reorder_point,omitempty" db:"last_reorder_point"`
	LastReorderQty   *int       `json:"last_reorder_qty,omitempty" db:"last_reorder_qty"`
	LastRiskLevel    *string    `json:"last_risk_level,omitempty" db:"last_risk_level"`
	LastDecisionAt   *time.Time `json:"last_decision_at,omitempty" db:"last_decision_at"`

	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// SalesObservation is the quantity sold for one product on one calendar day.
type SalesObservation struct {
	ProductID int64     `json:"product_id" db:"product_id"`
	Date      time.Time `json:"date" db:"sale_date"`
	Quantity  float64   `json:"quantity" db:"quantity"`
}

// Recommendation is the "last recommendation" metadata written back to a product.
type Recommendation struct {
	ProductID       int64
	ReorderPoint    float64
	ReorderQuantity int
	RiskLevel       RiskLevel
	DecidedAt       time.Time
}

// TrendDirection classifies how recent demand compares to earlier demand.
type TrendDirection string

const (
	TrendIncreasing       TrendDirection = "increasing"
	TrendDecreasing       TrendDirection = "decreasing"
	TrendStable           TrendDirection = "stable"
	TrendInsufficientData TrendDirection = "insufficient_data"
)

// TrendAnalysis compares the first and second half of a sales window.
type TrendAnalysis struct {
	ProductID       int64          `json:"product_id"`
	Direction       TrendDirection `json:"trend"`
	RatePct         float64        `json:"rate_pct"`
	FirstPeriodAvg  float64        `json:"first_period_avg"`
	SecondPeriodAvg float64        `json:"second_period_avg"`
	LatestAverage   float64        `json:"latest_average"`
}

// DateOnly truncates t to midnight UTC of its calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
