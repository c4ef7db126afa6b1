// Package forecast holds the demand models and the multi-day rollout that
// turns a trained model into an N-day forecast.
package forecast

import (
	"github.com/andresuchdata/restock-advisor/internal/domain"
	"github.com/andresuchdata/restock-advisor/internal/features"
)

// Kind names a model variant.
type Kind string

const (
	KindLinear       Kind = "linear_regression"
	KindRandomForest Kind = "random_forest"
	KindNaiveMean    Kind = "naive_mean"
)

// Model predicts one day of demand from a feature vector laid out in
// features.Names order.
type Model interface {
	Kind() Kind
	Predict(x []float64) float64
}

// Trainer fits a model on labeled samples.
type Trainer interface {
	Kind() Kind
	Fit(samples []features.Sample) (Model, error)
}

// LoadedModel is a decoded artifact ready to forecast with.
type LoadedModel struct {
	Ref   domain.ModelRef
	Model Model
	// ErrorEstimate is the held-out MAE recorded when the model was selected.
	ErrorEstimate float64
}

// DefaultTrainers returns the candidate set in selection tie-break order.
func DefaultTrainers() []Trainer {
	return []Trainer{
		LinearTrainer{},
		NewForestTrainer(),
	}
}

func columns(samples []features.Sample) ([][]float64, []float64) {
	x := make([][]float64, len(samples))
	y := make([]float64, len(samples))
	for i, s := range samples {
		x[i] = s.Features
		y[i] = s.Actual
	}
	return x, y
}
