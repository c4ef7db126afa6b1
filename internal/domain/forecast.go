package domain

import (
	"fmt"
	"time"
)

// GlobalModelKey is the artifact key of the model trained on all products.
const GlobalModelKey = "global"

// ModelKey returns the artifact key for a product's own model.
func ModelKey(productID int64) string {
	return fmt.Sprintf("product-%d", productID)
}

// FeatureVector is the derived feature set for one product on one date.
type FeatureVector struct {
	ProductID int64              `json:"product_id"`
	Date      time.Time          `json:"date"`
	Values    map[string]float64 `json:"values"`
}

// ModelRef identifies one stored version of a trained model.
type ModelRef struct {
	Key     string `json:"key"`
	Kind    string `json:"kind"`
	Version string `json:"version"`
}

func (r ModelRef) String() string {
	if r.Version == "" {
		return r.Key + "/" + r.Kind
	}
	return r.Key + "/" + r.Kind + "@" + r.Version
}

// ForecastPoint is the prediction for a single day of the horizon.
type ForecastPoint struct {
	DayOffset         int       `json:"day_offset"`
	Date              time.Time `json:"date"`
	PredictedQuantity float64   `json:"predicted_quantity"`
	ErrorEstimate     float64   `json:"error_estimate"`
}

// Forecast is an N-day-ahead forecast for one product. Points carry
// contiguous day offsets starting at 1.
type Forecast struct {
	ProductID    int64           `json:"product_id"`
	ForecastDate time.Time       `json:"forecast_date"`
	Model        ModelRef        `json:"model"`
	Points       []ForecastPoint `json:"points"`
}

// Quantities returns the predicted quantities in horizon order.
func (f *Forecast) Quantities() []float64 {
	out := make([]float64, len(f.Points))
	for i, p := range f.Points {
		out[i] = p.PredictedQuantity
	}
	return out
}

// Total returns the predicted demand over the whole horizon.
func (f *Forecast) Total() float64 {
	var sum float64
	for _, p := range f.Points {
		sum += p.PredictedQuantity
	}
	return sum
}

// ModelEvaluation is one candidate's held-out score in a training run.
type ModelEvaluation struct {
	ID           int64     `json:"id" db:"id"`
	RunID        string    `json:"run_id" db:"run_id"`
	ModelKind    string    `json:"model_kind" db:"model_kind"`
	ProductKey   string    `json:"product_key" db:"product_key"`
	ModelVersion string    `json:"model_version" db:"model_version"`
	MAE          float64   `json:"mae" db:"mae"`
	RMSE         float64   `json:"rmse" db:"rmse"`
	R2           float64   `json:"r2" db:"r2_score"`
	TrainSamples int       `json:"train_samples" db:"train_samples"`
	TestSamples  int       `json:"test_samples" db:"test_samples"`
	TrainSplit   float64   `json:"train_split" db:"train_split"`
	Selected     bool      `json:"selected" db:"selected"`
	Notes        string    `json:"notes" db:"notes"`
	EvaluatedAt  time.Time `json:"evaluated_at" db:"evaluated_at"`
}
