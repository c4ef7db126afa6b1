package evaluation

import (
	"math"

	"github.com/andresuchdata/restock-advisor/internal/features"
	"github.com/andresuchdata/restock-advisor/internal/forecast"
)

// TestFraction is the share of labeled points held out for scoring.
const TestFraction = 0.2

// Split divides samples chronologically. The test slice holds the last
// ceil(fraction*n) samples; nothing is shuffled.
func Split(samples []features.Sample, fraction float64) (train, test []features.Sample) {
	n := len(samples)
	testSize := int(math.Ceil(fraction * float64(n)))
	if testSize > n {
		testSize = n
	}
	return samples[:n-testSize], samples[n-testSize:]
}

// Score runs model over test and returns MAE, RMSE and R². Predictions are
// clamped the same way the forecaster clamps them.
func Score(model forecast.Model, test []features.Sample) forecast.Metrics {
	actual := make([]float64, len(test))
	predicted := make([]float64, len(test))
	for i, s := range test {
		actual[i] = s.Actual
		predicted[i] = clamp(model.Predict(s.Features))
	}
	return forecast.Metrics{
		MAE:         MAE(actual, predicted),
		RMSE:        RMSE(actual, predicted),
		R2:          R2(actual, predicted),
		TestSamples: len(test),
	}
}

func clamp(q float64) float64 {
	if math.IsNaN(q) || math.IsInf(q, 0) || q < 0 {
		return 0
	}
	return q
}

func MAE(actual, predicted []float64) float64 {
	if len(actual) == 0 {
		return 0
	}
	var sum float64
	for i := range actual {
		sum += math.Abs(actual[i] - predicted[i])
	}
	return sum / float64(len(actual))
}

func RMSE(actual, predicted []float64) float64 {
	if len(actual) == 0 {
		return 0
	}
	var sum float64
	for i := range actual {
		d := actual[i] - predicted[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(actual)))
}

// R2 is the coefficient of determination. A constant actual series scores 1
// when predicted exactly and 0 otherwise.
func R2(actual, predicted []float64) float64 {
	if len(actual) == 0 {
		return 0
	}
	mean, _ := features.MeanStd(actual)

	var ssRes, ssTot float64
	for i := range actual {
		r := actual[i] - predicted[i]
		t := actual[i] - mean
		ssRes += r * r
		ssTot += t * t
	}

	if ssTot == 0 {
		if ssRes == 0 {
			return 1
		}
		return 0
	}
	return 1 - ssRes/ssTot
}
