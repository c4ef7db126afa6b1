package features

import (
	"math"
	"testing"
	"time"

	"github.com/andresuchdata/restock-advisor/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2024-01-01 is a Monday.
var monday = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func observations(productID int64, start time.Time, quantities ...float64) []domain.SalesObservation {
	out := make([]domain.SalesObservation, len(quantities))
	for i, q := range quantities {
		out[i] = domain.SalesObservation{ProductID: productID, Date: start.AddDate(0, 0, i), Quantity: q}
	}
	return out
}

func ramp(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i + 1)
	}
	return out
}

func TestBuildRejectsEmptyHistory(t *testing.T) {
	_, err := Build(1, nil, monday)
	assert.ErrorIs(t, err, domain.ErrInsufficientHistory)
}

func TestBuildRejectsTargetWithoutPriorSales(t *testing.T) {
	history := observations(1, monday, 3, 4)
	_, err := Build(1, history, monday)
	assert.ErrorIs(t, err, domain.ErrInsufficientHistory)
}

func TestBuildLagsAndRollingStats(t *testing.T) {
	history := observations(7, monday, ramp(20)...)
	target := monday.AddDate(0, 0, 20)

	fv, err := Build(7, history, target)
	require.NoError(t, err)

	assert.Equal(t, int64(7), fv.ProductID)
	assert.Equal(t, 20.0, fv.Values[Lag1])
	assert.Equal(t, 14.0, fv.Values[Lag7])
	assert.Equal(t, 7.0, fv.Values[Lag14])
	assert.InDelta(t, 17.0, fv.Values[RollingMean7], 1e-9)
	assert.InDelta(t, 2.0, fv.Values[RollingStd7], 1e-9)
	assert.InDelta(t, 13.5, fv.Values[RollingMean14], 1e-9)
	assert.InDelta(t, math.Sqrt(195.0/12.0), fv.Values[RollingStd14], 1e-9)
}

func TestBuildShortHistoryZeroesMissingLags(t *testing.T) {
	history := observations(1, monday, 5, 6, 7)
	fv, err := Build(1, history, monday.AddDate(0, 0, 3))
	require.NoError(t, err)

	assert.Equal(t, 7.0, fv.Values[Lag1])
	assert.Equal(t, 0.0, fv.Values[Lag7])
	assert.Equal(t, 0.0, fv.Values[Lag14])
	assert.InDelta(t, 6.0, fv.Values[RollingMean7], 1e-9)
	assert.InDelta(t, math.Sqrt(2.0/3.0), fv.Values[RollingStd7], 1e-9)
	assert.InDelta(t, 6.0, fv.Values[RollingMean14], 1e-9)
}

func TestBuildSinglePointHasZeroStdDev(t *testing.T) {
	fv, err := Build(1, observations(1, monday, 9), monday.AddDate(0, 0, 1))
	require.NoError(t, err)

	assert.Equal(t, 9.0, fv.Values[RollingMean7])
	assert.Equal(t, 0.0, fv.Values[RollingStd7])
	assert.Equal(t, 0.0, fv.Values[RollingStd14])
}

func TestBuildCalendarFeatures(t *testing.T) {
	history := observations(1, monday, ramp(20)...)

	sunday := monday.AddDate(0, 0, 20)
	fv, err := Build(1, history, sunday)
	require.NoError(t, err)
	assert.Equal(t, 6.0, fv.Values[DayOfWeek])
	assert.Equal(t, 1.0, fv.Values[IsWeekend])
	assert.Equal(t, 21.0, fv.Values[DayOfMonth])

	wednesday := monday.AddDate(0, 0, 2)
	fv, err = Build(1, history, wednesday)
	require.NoError(t, err)
	assert.Equal(t, 2.0, fv.Values[DayOfWeek])
	assert.Equal(t, 0.0, fv.Values[IsWeekend])
}

func TestBuildIgnoresObservationsOnOrAfterTarget(t *testing.T) {
	history := observations(1, monday, 1, 2, 3, 100, 100)
	fv, err := Build(1, history, monday.AddDate(0, 0, 3))
	require.NoError(t, err)

	assert.Equal(t, 3.0, fv.Values[Lag1])
	assert.InDelta(t, 2.0, fv.Values[RollingMean7], 1e-9)
}

func TestNewSeriesFillsGapsWithZero(t *testing.T) {
	history := []domain.SalesObservation{
		{ProductID: 1, Date: monday.AddDate(0, 0, 2), Quantity: 6},
		{ProductID: 1, Date: monday, Quantity: 4},
	}

	s := NewSeries(1, history)
	assert.Equal(t, []float64{4, 0, 6}, s.Values)
	assert.Equal(t, monday, s.Start)
	assert.Equal(t, monday.AddDate(0, 0, 2), s.End())
}

func TestFeaturesAtPastEndTreatsMissingDaysAsZero(t *testing.T) {
	s := NewSeries(1, observations(1, monday, 5, 5, 5))
	fv, err := s.FeaturesAt(s.End().AddDate(0, 0, 3))
	require.NoError(t, err)

	assert.Equal(t, 0.0, fv.Values[Lag1])
	assert.InDelta(t, 3.0, fv.Values[RollingMean7], 1e-9)
}

func TestSamplesUseOnlyPriorDays(t *testing.T) {
	s := NewSeries(3, observations(3, monday, ramp(10)...))
	samples := s.Samples()

	require.Len(t, samples, 9)
	for i, sample := range samples {
		assert.Equal(t, float64(i+2), sample.Actual)
		assert.Equal(t, float64(i+1), sample.Features[0], "lag_1 must be the previous day")
		assert.Len(t, sample.Features, len(Names))
	}
}

func TestColumnOrderIsStable(t *testing.T) {
	// Persisted models are decoded against this order.
	assert.Equal(t, []string{
		"lag_1", "lag_7", "lag_14",
		"rolling_mean_7", "rolling_std_7",
		"rolling_mean_14", "rolling_std_14",
		"day_of_week", "is_weekend", "day_of_month",
	}, Names)
}

func TestAppendExtendsSeries(t *testing.T) {
	s := NewSeries(1, observations(1, monday, 1, 2))
	c := s.Clone()
	c.Append(3)

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, monday.AddDate(0, 0, 2), c.End())
}

func TestLookback(t *testing.T) {
	history := observations(1, monday, ramp(30)...)

	trimmed := Lookback(history, 7)
	require.Len(t, trimmed, 7)
	assert.Equal(t, 24.0, trimmed[0].Quantity)
	assert.Len(t, Lookback(history, 0), 30)
}

func TestMeanStd(t *testing.T) {
	mean, std := MeanStd([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.InDelta(t, 5.0, mean, 1e-9)
	assert.InDelta(t, 2.0, std, 1e-9)

	mean, std = MeanStd(nil)
	assert.Zero(t, mean)
	assert.Zero(t, std)
}

func TestTrend(t *testing.T) {
	tests := []struct {
		name string
		qty  []float64
		want domain.TrendDirection
	}{
		{"too short", []float64{1, 2, 3}, domain.TrendInsufficientData},
		{"flat", []float64{5, 5, 5, 5, 5, 5, 5, 5}, domain.TrendStable},
		{"rising", []float64{2, 2, 2, 2, 8, 8, 8, 8}, domain.TrendIncreasing},
		{"falling", []float64{8, 8, 8, 8, 2, 2, 2, 2}, domain.TrendDecreasing},
		{"from zero", []float64{0, 0, 0, 0, 3, 3, 3, 3}, domain.TrendIncreasing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewSeries(1, observations(1, monday, tt.qty...)).Trend()
			assert.Equal(t, tt.want, got.Direction)
		})
	}

	rising := NewSeries(1, observations(1, monday, 2, 2, 2, 2, 8, 8, 8, 8)).Trend()
	assert.InDelta(t, 300.0, rising.RatePct, 1e-9)
	assert.InDelta(t, 2.0, rising.FirstPeriodAvg, 1e-9)
	assert.InDelta(t, 8.0, rising.SecondPeriodAvg, 1e-9)
}
