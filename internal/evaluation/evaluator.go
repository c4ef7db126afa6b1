// Package evaluation trains candidate demand models, scores them on a
// chronological hold-out and persists the winner.
package evaluation

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/andresuchdata/restock-advisor/internal/config"
	"github.com/andresuchdata/restock-advisor/internal/domain"
	"github.com/andresuchdata/restock-advisor/internal/features"
	"github.com/andresuchdata/restock-advisor/internal/forecast"
	"github.com/andresuchdata/restock-advisor/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const metricTolerance = 1e-12

// ModelSaver persists encoded artifacts.
type ModelSaver interface {
	SaveModel(ctx context.Context, ref domain.ModelRef, blob []byte) error
}

// Candidate is one fitted and scored model.
type Candidate struct {
	Kind    forecast.Kind
	Model   forecast.Model
	Metrics forecast.Metrics
	Err     error
}

// Result describes one training run.
type Result struct {
	RunID       string
	Ref         domain.ModelRef
	Selected    Candidate
	Evaluations []domain.ModelEvaluation
	// Fallback is set when the naive model was stored because history was too short.
	Fallback bool
}

type Evaluator struct {
	artifacts   ModelSaver
	evaluations repository.EvaluationRepository
	trainers    []forecast.Trainer
	cfg         config.ForecastConfig
	now         func() time.Time
	newRunID    func() string
}

type Option func(*Evaluator)

// WithTrainers replaces the candidate set. Order is the selection tie-break.
func WithTrainers(trainers ...forecast.Trainer) Option {
	return func(e *Evaluator) { e.trainers = trainers }
}

func WithClock(now func() time.Time) Option {
	return func(e *Evaluator) { e.now = now }
}

func WithRunIDs(next func() string) Option {
	return func(e *Evaluator) { e.newRunID = next }
}

func New(artifacts ModelSaver, evaluations repository.EvaluationRepository, cfg config.ForecastConfig, opts ...Option) *Evaluator {
	e := &Evaluator{
		artifacts:   artifacts,
		evaluations: evaluations,
		trainers:    forecast.DefaultTrainers(),
		cfg:         cfg,
		now:         time.Now,
		newRunID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// TrainProduct evaluates every candidate on one product's history and stores
// the winner under the product's model key.
func (e *Evaluator) TrainProduct(ctx context.Context, productID int64, history []domain.SalesObservation) (*Result, error) {
	series := features.NewSeries(productID, history)
	return e.train(ctx, domain.ModelKey(productID), series.Samples(), series.Len() > 0)
}

// TrainGlobal pools the samples of every product, ordered by date, into the
// global fallback model.
func (e *Evaluator) TrainGlobal(ctx context.Context, histories map[int64][]domain.SalesObservation) (*Result, error) {
	var samples []features.Sample
	for productID, history := range histories {
		samples = append(samples, features.NewSeries(productID, history).Samples()...)
	}
	sort.SliceStable(samples, func(i, j int) bool {
		if !samples[i].Date.Equal(samples[j].Date) {
			return samples[i].Date.Before(samples[j].Date)
		}
		return samples[i].ProductID < samples[j].ProductID
	})
	return e.train(ctx, domain.GlobalModelKey, samples, len(samples) > 0)
}

func (e *Evaluator) train(ctx context.Context, key string, samples []features.Sample, hasHistory bool) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(samples) < e.cfg.MinTrainingPoints {
		if e.cfg.FallbackNaive && hasHistory {
			return e.storeFallback(ctx, key, samples)
		}
		return nil, fmt.Errorf("%s has %d labeled points, need %d: %w",
			key, len(samples), e.cfg.MinTrainingPoints, domain.ErrInsufficientHistory)
	}

	train, test := Split(samples, TestFraction)
	candidates := make([]Candidate, 0, len(e.trainers))
	for _, tr := range e.trainers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		c := Candidate{Kind: tr.Kind()}
		model, err := tr.Fit(train)
		if err != nil {
			c.Err = err
			log.Warn().Err(err).Str("model_key", key).Str("model", string(tr.Kind())).Msg("candidate failed to train")
		} else {
			c.Model = model
			c.Metrics = Score(model, test)
			c.Metrics.TrainSamples = len(train)
		}
		candidates = append(candidates, c)
	}

	best := Select(candidates)
	if best < 0 {
		return nil, fmt.Errorf("no candidate model could be trained for %s", key)
	}

	runID := e.newRunID()
	evaluatedAt := e.now().UTC()
	winner := candidates[best]
	ref := domain.ModelRef{Key: key, Kind: string(winner.Kind), Version: version(evaluatedAt, runID)}

	if err := e.persist(ctx, ref, winner, evaluatedAt); err != nil {
		return nil, err
	}

	// Candidates that failed to fit have no metrics and are left out of the
	// audit rows.
	evals := make([]domain.ModelEvaluation, 0, len(candidates))
	for i, c := range candidates {
		if c.Err != nil {
			continue
		}
		eval := domain.ModelEvaluation{
			RunID:        runID,
			ModelKind:    string(c.Kind),
			ProductKey:   key,
			MAE:          c.Metrics.MAE,
			RMSE:         c.Metrics.RMSE,
			R2:           c.Metrics.R2,
			TrainSamples: len(train),
			TestSamples:  len(test),
			TrainSplit:   1 - TestFraction,
			EvaluatedAt:  evaluatedAt,
		}
		if i == best {
			eval.Selected = true
			eval.ModelVersion = ref.Version
		}
		evals = append(evals, eval)
	}

	if err := e.evaluations.SaveEvaluations(ctx, evals); err != nil {
		return nil, fmt.Errorf("record evaluations for %s: %w", key, err)
	}

	log.Info().
		Str("model_key", key).
		Str("model", ref.String()).
		Float64("mae", winner.Metrics.MAE).
		Float64("r2", winner.Metrics.R2).
		Int("train_samples", len(train)).
		Int("test_samples", len(test)).
		Msg("model selected")

	return &Result{RunID: runID, Ref: ref, Selected: winner, Evaluations: evals}, nil
}

func (e *Evaluator) storeFallback(ctx context.Context, key string, samples []features.Sample) (*Result, error) {
	model := forecast.NaiveMean{}
	c := Candidate{Kind: model.Kind(), Model: model, Metrics: Score(model, samples)}

	runID := e.newRunID()
	evaluatedAt := e.now().UTC()
	ref := domain.ModelRef{Key: key, Kind: string(c.Kind), Version: version(evaluatedAt, runID)}

	if err := e.persist(ctx, ref, c, evaluatedAt); err != nil {
		return nil, err
	}

	eval := domain.ModelEvaluation{
		RunID:        runID,
		ModelKind:    string(c.Kind),
		ProductKey:   key,
		ModelVersion: ref.Version,
		MAE:          c.Metrics.MAE,
		RMSE:         c.Metrics.RMSE,
		R2:           c.Metrics.R2,
		TestSamples:  len(samples),
		Selected:     true,
		Notes:        fmt.Sprintf("fallback: %d labeled points, need %d", len(samples), e.cfg.MinTrainingPoints),
		EvaluatedAt:  evaluatedAt,
	}
	if err := e.evaluations.SaveEvaluations(ctx, []domain.ModelEvaluation{eval}); err != nil {
		return nil, fmt.Errorf("record evaluations for %s: %w", key, err)
	}

	log.Warn().Str("model_key", key).Int("labeled_points", len(samples)).Msg("stored naive fallback model")

	return &Result{RunID: runID, Ref: ref, Selected: c, Evaluations: []domain.ModelEvaluation{eval}, Fallback: true}, nil
}

func (e *Evaluator) persist(ctx context.Context, ref domain.ModelRef, c Candidate, trainedAt time.Time) error {
	blob, err := forecast.Encode(c.Model, c.Metrics, trainedAt)
	if err != nil {
		return err
	}
	if err := e.artifacts.SaveModel(ctx, ref, blob); err != nil {
		return fmt.Errorf("store model %s: %w", ref, err)
	}
	return nil
}

// Select returns the index of the candidate with the lowest MAE, breaking ties
// by higher R² and then by position. Failed candidates are skipped; -1 means
// none succeeded.
func Select(candidates []Candidate) int {
	best := -1
	for i, c := range candidates {
		if c.Err != nil || c.Model == nil || math.IsNaN(c.Metrics.MAE) {
			continue
		}
		if best < 0 {
			best = i
			continue
		}

		b := candidates[best].Metrics
		switch {
		case c.Metrics.MAE < b.MAE-metricTolerance:
			best = i
		case math.Abs(c.Metrics.MAE-b.MAE) <= metricTolerance && c.Metrics.R2 > b.R2+metricTolerance:
			best = i
		}
	}
	return best
}

// version sorts chronologically and stays unique per run.
func version(at time.Time, runID string) string {
	short := runID
	if len(short) > 8 {
		short = short[:8]
	}
	return at.Format("20060102T150405Z") + "-" + short
}
