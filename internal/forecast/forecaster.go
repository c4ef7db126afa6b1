package forecast

import (
	"fmt"
	"math"

	"github.com/andresuchdata/restock-advisor/internal/domain"
	"github.com/andresuchdata/restock-advisor/internal/features"
)

// DefaultMaxHorizonDays bounds the horizon when MaxHorizonDays is unset.
const DefaultMaxHorizonDays = 90

// Forecaster rolls a one-day model forward over a horizon.
type Forecaster struct {
	// LookbackDays trims history before building the series. 0 keeps all.
	LookbackDays int
	// MaxHorizonDays is the longest horizon Forecast accepts. 0 means
	// DefaultMaxHorizonDays.
	MaxHorizonDays int
}

// NewForecaster returns a Forecaster that considers the trailing lookbackDays
// of history.
func NewForecaster(lookbackDays int) *Forecaster {
	return &Forecaster{LookbackDays: lookbackDays, MaxHorizonDays: DefaultMaxHorizonDays}
}

// CheckHorizon reports ErrInvalidConfiguration for a horizon outside
// [1, MaxHorizonDays].
func (f *Forecaster) CheckHorizon(horizonDays int) error {
	limit := f.MaxHorizonDays
	if limit <= 0 {
		limit = DefaultMaxHorizonDays
	}
	switch {
	case horizonDays < 1:
		return fmt.Errorf("%w: horizon must be at least 1 day, got %d", domain.ErrInvalidConfiguration, horizonDays)
	case horizonDays > limit:
		return fmt.Errorf("%w: horizon must be at most %d days, got %d", domain.ErrInvalidConfiguration, limit, horizonDays)
	}
	return nil
}

// Forecast predicts demand for each of the horizonDays after the last observed
// date. Each prediction is fed back as the next day's history.
func (f *Forecaster) Forecast(product domain.Product, history []domain.SalesObservation, model *LoadedModel, horizonDays int) (*domain.Forecast, error) {
	if err := f.CheckHorizon(horizonDays); err != nil {
		return nil, err
	}
	if model == nil || model.Model == nil {
		return nil, fmt.Errorf("product %d: %w", product.ID, domain.ErrModelNotAvailable)
	}

	series := features.NewSeries(product.ID, features.Lookback(history, f.LookbackDays))
	if series.Len() == 0 {
		return nil, fmt.Errorf("product %d: %w", product.ID, domain.ErrInsufficientHistory)
	}

	out := &domain.Forecast{
		ProductID:    product.ID,
		ForecastDate: series.End(),
		Model:        model.Ref,
		Points:       make([]domain.ForecastPoint, 0, horizonDays),
	}

	rolling := series.Clone()
	for offset := 1; offset <= horizonDays; offset++ {
		target := series.DateAt(series.Len() - 1 + offset)
		fv, err := rolling.FeaturesAt(target)
		if err != nil {
			return nil, fmt.Errorf("forecast day %d: %w", offset, err)
		}

		qty := model.Model.Predict(features.Vector(fv))
		if math.IsNaN(qty) || math.IsInf(qty, 0) || qty < 0 {
			qty = 0
		}
		rolling.Append(qty)

		out.Points = append(out.Points, domain.ForecastPoint{
			DayOffset:         offset,
			Date:              target,
			PredictedQuantity: qty,
			ErrorEstimate:     model.ErrorEstimate,
		})
	}

	return out, nil
}
