// Package features turns a product's daily sales history into fixed-width
// numeric feature vectors for the demand models.
package features

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/andresuchdata/restock-advisor/internal/domain"
)

const (
	Lag1          = "lag_1"
	Lag7          = "lag_7"
	Lag14         = "lag_14"
	RollingMean7  = "rolling_mean_7"
	RollingStd7   = "rolling_std_7"
	RollingMean14 = "rolling_mean_14"
	RollingStd14  = "rolling_std_14"
	DayOfWeek     = "day_of_week"
	IsWeekend     = "is_weekend"
	DayOfMonth    = "day_of_month"
)

// Names is the column order models are trained and queried with.
var Names = []string{
	Lag1, Lag7, Lag14,
	RollingMean7, RollingStd7,
	RollingMean14, RollingStd14,
	DayOfWeek, IsWeekend, DayOfMonth,
}

const day = 24 * time.Hour

// Sample is one labeled training point: the features known before Date and
// the quantity actually sold on Date.
type Sample struct {
	ProductID int64
	Date      time.Time
	Features  []float64
	Actual    float64
}

// Series is a dense daily sales series. Missing dates are stored as zero.
type Series struct {
	ProductID int64
	Start     time.Time
	Values    []float64
}

// NewSeries densifies observations into a Series spanning the first to the last
// observed date. Later duplicates of a date replace earlier ones.
func NewSeries(productID int64, history []domain.SalesObservation) Series {
	if len(history) == 0 {
		return Series{ProductID: productID}
	}

	sorted := make([]domain.SalesObservation, len(history))
	copy(sorted, history)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	start := domain.DateOnly(sorted[0].Date)
	end := domain.DateOnly(sorted[len(sorted)-1].Date)
	values := make([]float64, daysBetween(start, end)+1)
	for _, obs := range sorted {
		values[daysBetween(start, domain.DateOnly(obs.Date))] = obs.Quantity
	}

	return Series{ProductID: productID, Start: start, Values: values}
}

// Len returns the number of days covered.
func (s Series) Len() int {
	return len(s.Values)
}

// DateAt returns the calendar date of index i.
func (s Series) DateAt(i int) time.Time {
	return s.Start.Add(time.Duration(i) * day)
}

// End returns the last covered date. It is the zero time for an empty series.
func (s Series) End() time.Time {
	if len(s.Values) == 0 {
		return time.Time{}
	}
	return s.DateAt(len(s.Values) - 1)
}

// Append extends the series by one day.
func (s *Series) Append(quantity float64) {
	s.Values = append(s.Values, quantity)
}

// Clone returns a copy whose values can be appended to independently.
func (s Series) Clone() Series {
	values := make([]float64, len(s.Values), len(s.Values)+16)
	copy(values, s.Values)
	return Series{ProductID: s.ProductID, Start: s.Start, Values: values}
}

// FeaturesAt builds the feature vector for target using only days strictly
// before it. Days between the end of the series and target count as zero sales.
func (s Series) FeaturesAt(target time.Time) (domain.FeatureVector, error) {
	target = domain.DateOnly(target)
	if len(s.Values) == 0 {
		return domain.FeatureVector{}, fmt.Errorf("product %d: %w", s.ProductID, domain.ErrInsufficientHistory)
	}

	n := daysBetween(s.Start, target)
	if n <= 0 {
		return domain.FeatureVector{}, fmt.Errorf("product %d has no sales before %s: %w",
			s.ProductID, target.Format("2006-01-02"), domain.ErrInsufficientHistory)
	}

	mean7, std7 := s.window(n, 7)
	mean14, std14 := s.window(n, 14)
	dow := weekdayIndex(target)

	weekend := 0.0
	if dow >= 5 {
		weekend = 1
	}

	return domain.FeatureVector{
		ProductID: s.ProductID,
		Date:      target,
		Values: map[string]float64{
			Lag1:          s.lag(n, 1),
			Lag7:          s.lag(n, 7),
			Lag14:         s.lag(n, 14),
			RollingMean7:  mean7,
			RollingStd7:   std7,
			RollingMean14: mean14,
			RollingStd14:  std14,
			DayOfWeek:     float64(dow),
			IsWeekend:     weekend,
			DayOfMonth:    float64(target.Day()),
		},
	}, nil
}

// Samples returns one labeled sample per day after the first.
func (s Series) Samples() []Sample {
	if len(s.Values) < 2 {
		return nil
	}

	samples := make([]Sample, 0, len(s.Values)-1)
	for i := 1; i < len(s.Values); i++ {
		date := s.DateAt(i)
		fv, err := s.FeaturesAt(date)
		if err != nil {
			continue
		}
		samples = append(samples, Sample{
			ProductID: s.ProductID,
			Date:      date,
			Features:  Vector(fv),
			Actual:    s.Values[i],
		})
	}
	return samples
}

// Build produces the feature vector for target from raw observations.
func Build(productID int64, history []domain.SalesObservation, target time.Time) (domain.FeatureVector, error) {
	if len(history) == 0 {
		return domain.FeatureVector{}, fmt.Errorf("product %d: %w", productID, domain.ErrInsufficientHistory)
	}
	return NewSeries(productID, history).FeaturesAt(target)
}

// Vector lays a feature vector out in Names order.
func Vector(fv domain.FeatureVector) []float64 {
	out := make([]float64, len(Names))
	for i, name := range Names {
		out[i] = fv.Values[name]
	}
	return out
}

// Lookback keeps observations within the trailing number of days ending at the
// last observation. days <= 0 keeps everything.
func Lookback(history []domain.SalesObservation, days int) []domain.SalesObservation {
	if days <= 0 || len(history) == 0 {
		return history
	}

	last := domain.DateOnly(history[0].Date)
	for _, obs := range history {
		if d := domain.DateOnly(obs.Date); d.After(last) {
			last = d
		}
	}
	cutoff := last.Add(-time.Duration(days-1) * day)

	out := make([]domain.SalesObservation, 0, len(history))
	for _, obs := range history {
		if !domain.DateOnly(obs.Date).Before(cutoff) {
			out = append(out, obs)
		}
	}
	return out
}

// valueAt returns the quantity at index i, treating days past the end as zero.
func (s Series) valueAt(i int) float64 {
	if i < 0 || i >= len(s.Values) {
		return 0
	}
	return s.Values[i]
}

func (s Series) lag(n, k int) float64 {
	if n-k < 0 {
		return 0
	}
	return s.valueAt(n - k)
}

// window returns the population mean and standard deviation of the up to w
// days before index n.
func (s Series) window(n, w int) (float64, float64) {
	from := n - w
	if from < 0 {
		from = 0
	}

	points := make([]float64, 0, n-from)
	for i := from; i < n; i++ {
		points = append(points, s.valueAt(i))
	}
	return MeanStd(points)
}

// MeanStd returns the mean and population standard deviation of values.
// The deviation is 0 for fewer than two values.
func MeanStd(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	if len(values) < 2 {
		return mean, 0
	}

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(len(values)))
}

// weekdayIndex maps Monday to 0 and Sunday to 6.
func weekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

func daysBetween(from, to time.Time) int {
	return int(math.Round(to.Sub(from).Hours() / 24))
}
