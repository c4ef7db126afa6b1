package forecast

import (
	"github.com/andresuchdata/restock-advisor/internal/features"
)

var rollingMean7Index = func() int {
	for i, name := range features.Names {
		if name == features.RollingMean7 {
			return i
		}
	}
	panic("rolling_mean_7 missing from feature names")
}()

// NaiveMean predicts the trailing 7-day mean. It is only stored as an explicit
// fallback for products without enough history to evaluate real models.
type NaiveMean struct{}

func (NaiveMean) Kind() Kind { return KindNaiveMean }

func (NaiveMean) Predict(x []float64) float64 {
	if rollingMean7Index >= len(x) {
		return 0
	}
	return x[rollingMean7Index]
}

// NaiveTrainer returns NaiveMean regardless of the samples.
type NaiveTrainer struct{}

func (NaiveTrainer) Kind() Kind { return KindNaiveMean }

func (NaiveTrainer) Fit([]features.Sample) (Model, error) {
	return NaiveMean{}, nil
}
