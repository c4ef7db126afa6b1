// Package decision turns a demand forecast and a product's stock position into
// a reorder recommendation with a risk classification.
package decision

import (
	"fmt"
	"math"
	"time"

	"github.com/andresuchdata/restock-advisor/internal/domain"
	"github.com/andresuchdata/restock-advisor/internal/features"
	"github.com/shopspring/decimal"
)

const (
	understockHighRatio   = 0.5
	understockMediumRatio = 0.75
	daysPerYear           = 365
	// eps absorbs float noise before rounding quantities up to whole units.
	eps = 1e-9
)

type Engine struct {
	policy Policy
	now    func() time.Time
}

type Option func(*Engine)

// WithClock fixes the timestamp stamped on decisions.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(policy Policy, opts ...Option) *Engine {
	e := &Engine{policy: policy, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Policy() Policy {
	return e.policy
}

// Decide derives the reorder point, order-up-to quantity and risk level for a
// product. Inputs are validated before anything is computed.
func (e *Engine) Decide(product domain.Product, fc *domain.Forecast) (domain.InventoryDecision, error) {
	if err := e.validate(product, fc); err != nil {
		return domain.InventoryDecision{}, err
	}

	quantities := fc.Quantities()
	avg, _ := features.MeanStd(quantities)
	lead := product.LeadTimeDays

	window := lead
	if window > len(quantities) {
		window = len(quantities)
	}
	_, sigma := features.MeanStd(quantities[:window])

	z := e.policy.SafetyStockMultiplier
	if product.SafetyStockMultiplier != nil {
		z = *product.SafetyStockMultiplier
	}
	safety := math.Max(z*sigma*math.Sqrt(float64(lead)), product.SafetyStockFloor)

	review := e.policy.reviewPeriod(len(quantities))
	reorderPoint := round2(avg*float64(lead) + safety)
	target := round2(reorderPoint + avg*float64(review))
	overstockLimit := round2(target * e.policy.OverstockMultiplier)

	stock := float64(product.CurrentStock)
	qty := int(math.Ceil(math.Max(0, target-stock) - eps))
	if qty < 0 {
		qty = 0
	}

	d := domain.InventoryDecision{
		ProductID:          product.ID,
		CurrentStock:       product.CurrentStock,
		LeadTimeDays:       lead,
		AverageDailyDemand: round2(avg),
		DemandStdDev:       round2(sigma),
		SafetyStock:        round2(safety),
		ReorderPoint:       reorderPoint,
		TargetStock:        target,
		ReorderQuantity:    qty,
		EconomicOrderQty:   e.economicOrderQty(avg),
		ReorderCost:        product.UnitCost.Mul(decimal.NewFromInt(int64(qty))),
		Model:              fc.Model,
		ComputedAt:         e.now().UTC(),
	}

	if avg > 0 {
		days := round2(stock / avg)
		d.DaysUntilStockout = &days
	}

	switch {
	case stock < reorderPoint:
		d.RiskLevel = domain.RiskUnderstock
		d.Severity = understockSeverity(stock, reorderPoint)
	case stock > overstockLimit:
		d.RiskLevel = domain.RiskOverstock
		d.Severity = e.overstockSeverity(stock, target)
	default:
		d.RiskLevel = domain.RiskNone
	}

	d.Explanation = explain(d, e.policy.OverstockMultiplier, overstockLimit, review)
	return d, nil
}

func (e *Engine) validate(product domain.Product, fc *domain.Forecast) error {
	if err := e.policy.Validate(); err != nil {
		return err
	}
	switch {
	case fc == nil || len(fc.Points) == 0:
		return fmt.Errorf("%w: product %d has an empty forecast", domain.ErrInvalidConfiguration, product.ID)
	case fc.ProductID != 0 && fc.ProductID != product.ID:
		return fmt.Errorf("%w: forecast for product %d applied to product %d", domain.ErrInvalidConfiguration, fc.ProductID, product.ID)
	case product.LeadTimeDays < 0:
		return fmt.Errorf("%w: product %d has negative lead time %d", domain.ErrInvalidConfiguration, product.ID, product.LeadTimeDays)
	case product.CurrentStock < 0:
		return fmt.Errorf("%w: product %d has negative stock %d", domain.ErrInvalidConfiguration, product.ID, product.CurrentStock)
	case product.SafetyStockFloor < 0:
		return fmt.Errorf("%w: product %d has negative safety stock floor", domain.ErrInvalidConfiguration, product.ID)
	case product.SafetyStockMultiplier != nil && *product.SafetyStockMultiplier < 0:
		return fmt.Errorf("%w: product %d has negative safety stock multiplier", domain.ErrInvalidConfiguration, product.ID)
	}
	for _, p := range fc.Points {
		if p.PredictedQuantity < 0 || math.IsNaN(p.PredictedQuantity) || math.IsInf(p.PredictedQuantity, 0) {
			return fmt.Errorf("%w: forecast day %d has invalid quantity %g", domain.ErrInvalidConfiguration, p.DayOffset, p.PredictedQuantity)
		}
	}
	return nil
}

// economicOrderQty is the classic EOQ sqrt(2DS/H) on annualised demand.
func (e *Engine) economicOrderQty(avgDaily float64) int {
	if avgDaily <= 0 || e.policy.HoldingCost <= 0 {
		return 0
	}
	annual := avgDaily * daysPerYear
	return int(math.Round(math.Sqrt(2 * annual * e.policy.OrderCost / e.policy.HoldingCost)))
}

func understockSeverity(stock, reorderPoint float64) domain.Severity {
	ratio := stock / reorderPoint
	switch {
	case ratio <= understockHighRatio:
		return domain.SeverityHigh
	case ratio <= understockMediumRatio:
		return domain.SeverityMedium
	default:
		return domain.SeverityLow
	}
}

func (e *Engine) overstockSeverity(stock, target float64) domain.Severity {
	if target <= 0 || stock/target >= e.policy.OverstockHighRatio {
		return domain.SeverityHigh
	}
	return domain.SeverityMedium
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
