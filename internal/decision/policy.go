package decision

import (
	"fmt"

	"github.com/andresuchdata/restock-advisor/internal/config"
	"github.com/andresuchdata/restock-advisor/internal/domain"
)

// Policy holds the inventory control parameters shared by every product.
type Policy struct {
	SafetyStockMultiplier float64
	// ReviewPeriodDays of 0 uses the forecast horizon.
	ReviewPeriodDays    int
	OverstockMultiplier float64
	OverstockHighRatio  float64
	OrderCost           float64
	HoldingCost         float64
}

// PolicyFromConfig maps the forecast configuration section onto a Policy.
func PolicyFromConfig(cfg config.ForecastConfig) Policy {
	return Policy{
		SafetyStockMultiplier: cfg.SafetyStockMultiplier,
		ReviewPeriodDays:      cfg.ReviewPeriodDays,
		OverstockMultiplier:   cfg.OverstockMultiplier,
		OverstockHighRatio:    cfg.OverstockHighRatio,
		OrderCost:             cfg.OrderCost,
		HoldingCost:           cfg.HoldingCost,
	}
}

// DefaultPolicy returns the policy built from default configuration.
func DefaultPolicy() Policy {
	return PolicyFromConfig(config.DefaultForecastConfig())
}

func (p Policy) Validate() error {
	switch {
	case p.SafetyStockMultiplier < 0:
		return fmt.Errorf("%w: safety stock multiplier must not be negative, got %g", domain.ErrInvalidConfiguration, p.SafetyStockMultiplier)
	case p.ReviewPeriodDays < 0:
		return fmt.Errorf("%w: review period must not be negative, got %d", domain.ErrInvalidConfiguration, p.ReviewPeriodDays)
	case p.OverstockMultiplier <= 0:
		return fmt.Errorf("%w: overstock multiplier must be positive, got %g", domain.ErrInvalidConfiguration, p.OverstockMultiplier)
	case p.OverstockHighRatio < 0:
		return fmt.Errorf("%w: overstock high ratio must not be negative, got %g", domain.ErrInvalidConfiguration, p.OverstockHighRatio)
	case p.OrderCost < 0 || p.HoldingCost < 0:
		return fmt.Errorf("%w: order and holding costs must not be negative", domain.ErrInvalidConfiguration)
	}
	return nil
}

func (p Policy) reviewPeriod(horizon int) int {
	if p.ReviewPeriodDays > 0 {
		return p.ReviewPeriodDays
	}
	return horizon
}
