package features

import (
	"github.com/andresuchdata/restock-advisor/internal/domain"
)

const (
	trendMinDays    = 7
	trendWindowDays = 30
	trendBand       = 0.10
)

// Trend compares average daily sales in the two halves of the trailing 30 days.
// A change beyond ±10% counts as increasing or decreasing.
func (s Series) Trend() domain.TrendAnalysis {
	result := domain.TrendAnalysis{ProductID: s.ProductID}
	if len(s.Values) < trendMinDays {
		result.Direction = domain.TrendInsufficientData
		return result
	}

	values := s.Values
	if len(values) > trendWindowDays {
		values = values[len(values)-trendWindowDays:]
	}

	mid := len(values) / 2
	first, _ := MeanStd(values[:mid])
	second, _ := MeanStd(values[mid:])
	latest, _ := MeanStd(values[len(values)-trendMinDays:])

	result.FirstPeriodAvg = first
	result.SecondPeriodAvg = second
	result.LatestAverage = latest

	switch {
	case first == 0 && second > 0:
		result.Direction = domain.TrendIncreasing
		result.RatePct = 100
	case first == 0:
		result.Direction = domain.TrendStable
	case second > first*(1+trendBand):
		result.Direction = domain.TrendIncreasing
		result.RatePct = (second - first) / first * 100
	case second < first*(1-trendBand):
		result.Direction = domain.TrendDecreasing
		result.RatePct = (first - second) / first * 100
	default:
		result.Direction = domain.TrendStable
	}

	return result
}
