package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/restock-advisor/internal/alerting"
	"github.com/andresuchdata/restock-advisor/internal/cache"
	"github.com/andresuchdata/restock-advisor/internal/config"
	"github.com/andresuchdata/restock-advisor/internal/decision"
	"github.com/andresuchdata/restock-advisor/internal/domain"
	"github.com/andresuchdata/restock-advisor/internal/evaluation"
	"github.com/andresuchdata/restock-advisor/internal/features"
	"github.com/andresuchdata/restock-advisor/internal/forecast"
	"github.com/andresuchdata/restock-advisor/internal/repository"
	"github.com/andresuchdata/restock-advisor/internal/storage"
	"github.com/rs/zerolog/log"
)

// ModelStore is the artifact store the service trains into and forecasts from.
type ModelStore interface {
	SaveModel(ctx context.Context, ref domain.ModelRef, blob []byte) error
	LoadModel(ctx context.Context, key string) (*storage.Artifact, error)
}

// DecisionResult is everything one decide cycle produced for a product.
type DecisionResult struct {
	Forecast *domain.Forecast         `json:"forecast"`
	Decision domain.InventoryDecision `json:"decision"`
	Alert    *domain.InventoryAlert   `json:"alert,omitempty"`
}

type RestockService struct {
	store      repository.Store
	models     ModelStore
	cache      cache.ForecastCache
	forecaster *forecast.Forecaster
	evaluator  *evaluation.Evaluator
	engine     *decision.Engine
	emitter    *alerting.Emitter
	horizon    int
}

type settings struct {
	now      func() time.Time
	trainers []forecast.Trainer
}

type Option func(*settings)

// WithClock fixes the time used for decisions, evaluations and alerts.
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

// WithTrainers overrides the candidate models.
func WithTrainers(trainers ...forecast.Trainer) Option {
	return func(s *settings) { s.trainers = trainers }
}

func NewRestockService(
	store repository.Store,
	models ModelStore,
	forecastCache cache.ForecastCache,
	cfg config.ForecastConfig,
	alertCfg config.AlertConfig,
	opts ...Option,
) (*RestockService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if forecastCache == nil {
		forecastCache = cache.NewNoopForecastCache()
	}

	st := settings{now: time.Now}
	for _, opt := range opts {
		opt(&st)
	}

	evalOpts := []evaluation.Option{evaluation.WithClock(st.now)}
	if len(st.trainers) > 0 {
		evalOpts = append(evalOpts, evaluation.WithTrainers(st.trainers...))
	}

	emitter, err := alerting.NewEmitter(store.Alerts, domain.Severity(alertCfg.MinSeverity), alerting.WithClock(st.now))
	if err != nil {
		return nil, err
	}

	return &RestockService{
		store:      store,
		models:     models,
		cache:      forecastCache,
		forecaster: &forecast.Forecaster{LookbackDays: cfg.LookbackDays, MaxHorizonDays: cfg.MaxHorizonDays},
		evaluator:  evaluation.New(models, store.Evaluations, cfg, evalOpts...),
		engine:     decision.NewEngine(decision.PolicyFromConfig(cfg), decision.WithClock(st.now)),
		emitter:    emitter,
		horizon:    cfg.HorizonDays,
	}, nil
}

// LoadModel resolves the product's own model, then the global model.
func (s *RestockService) LoadModel(ctx context.Context, productID int64) (*forecast.LoadedModel, error) {
	for _, key := range []string{domain.ModelKey(productID), domain.GlobalModelKey} {
		artifact, err := s.models.LoadModel(ctx, key)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load model %s: %w", key, err)
		}

		model, metrics, err := forecast.Decode(artifact.Blob)
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", artifact.Ref, err)
		}
		return &forecast.LoadedModel{Ref: artifact.Ref, Model: model, ErrorEstimate: metrics.MAE}, nil
	}
	return nil, fmt.Errorf("product %d: %w", productID, domain.ErrModelNotAvailable)
}

// Forecast returns an horizonDays-ahead forecast. A non-positive horizon uses
// the configured default.
func (s *RestockService) Forecast(ctx context.Context, productID int64, horizonDays int) (*domain.Forecast, error) {
	product, err := s.store.Products.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	return s.forecast(ctx, product, horizonDays)
}

func (s *RestockService) forecast(ctx context.Context, product *domain.Product, horizonDays int) (*domain.Forecast, error) {
	if horizonDays <= 0 {
		horizonDays = s.horizon
	}
	if err := s.forecaster.CheckHorizon(horizonDays); err != nil {
		return nil, err
	}

	history, err := s.store.Sales.ListObservations(ctx, product.ID)
	if err != nil {
		return nil, fmt.Errorf("list sales for product %d: %w", product.ID, err)
	}

	model, err := s.LoadModel(ctx, product.ID)
	if err != nil {
		return nil, err
	}

	var key cache.ForecastKey
	if len(history) > 0 {
		key = cache.ForecastKey{
			ProductID:    product.ID,
			ModelVersion: model.Ref.String(),
			LastObserved: history[len(history)-1].Date,
			HorizonDays:  horizonDays,
		}
		if fc, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			return fc, nil
		} else if err != nil {
			log.Warn().Err(err).Int64("product_id", product.ID).Msg("restock: cache get forecast failed")
		}
	}

	fc, err := s.forecaster.Forecast(*product, history, model, horizonDays)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, key, fc); err != nil {
		log.Warn().Err(err).Int64("product_id", product.ID).Msg("restock: cache set forecast failed")
	}
	return fc, nil
}

// Decide runs forecast, decision, recommendation write-back and alerting for
// one product. Nothing is written unless the decision is complete and the
// context is still live.
func (s *RestockService) Decide(ctx context.Context, productID int64) (*DecisionResult, error) {
	product, err := s.store.Products.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	fc, err := s.forecast(ctx, product, s.horizon)
	if err != nil {
		return nil, err
	}

	d, err := s.engine.Decide(*product, fc)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !d.Complete() {
		return nil, fmt.Errorf("decision for product %d is incomplete", productID)
	}

	if err := s.store.Products.SaveRecommendation(ctx, domain.Recommendation{
		ProductID:       d.ProductID,
		ReorderPoint:    d.ReorderPoint,
		ReorderQuantity: d.ReorderQuantity,
		RiskLevel:       d.RiskLevel,
		DecidedAt:       d.ComputedAt,
	}); err != nil {
		return nil, fmt.Errorf("save recommendation: %w", err)
	}

	alert, err := s.emitter.Emit(ctx, d)
	if err != nil {
		return nil, err
	}

	return &DecisionResult{Forecast: fc, Decision: d, Alert: alert}, nil
}

// Train evaluates candidate models on a product's history and stores the winner.
func (s *RestockService) Train(ctx context.Context, productID int64) (*evaluation.Result, error) {
	if _, err := s.store.Products.GetProduct(ctx, productID); err != nil {
		return nil, err
	}

	history, err := s.store.Sales.ListObservations(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list sales for product %d: %w", productID, err)
	}

	result, err := s.evaluator.TrainProduct(ctx, productID, history)
	if err != nil {
		return nil, err
	}

	if err := s.cache.InvalidateProduct(ctx, productID); err != nil {
		log.Warn().Err(err).Int64("product_id", productID).Msg("restock: cache invalidate failed")
	}
	return result, nil
}

// TrainGlobal trains the fallback model on every product's history.
func (s *RestockService) TrainGlobal(ctx context.Context) (*evaluation.Result, error) {
	products, err := s.store.Products.ListProducts(ctx)
	if err != nil {
		return nil, err
	}

	histories := make(map[int64][]domain.SalesObservation, len(products))
	for _, p := range products {
		history, err := s.store.Sales.ListObservations(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("list sales for product %d: %w", p.ID, err)
		}
		histories[p.ID] = history
	}

	result, err := s.evaluator.TrainGlobal(ctx, histories)
	if err != nil {
		return nil, err
	}

	if err := s.cache.InvalidateAll(ctx); err != nil {
		log.Warn().Err(err).Msg("restock: cache invalidate failed")
	}
	return result, nil
}

// Evaluations lists recorded evaluations for a model key ("global" or "product-<id>").
func (s *RestockService) Evaluations(ctx context.Context, modelKey string, limit int) ([]domain.ModelEvaluation, error) {
	return s.store.Evaluations.ListEvaluations(ctx, modelKey, limit)
}

// Trend compares recent demand halves for a product.
func (s *RestockService) Trend(ctx context.Context, productID int64) (domain.TrendAnalysis, error) {
	if _, err := s.store.Products.GetProduct(ctx, productID); err != nil {
		return domain.TrendAnalysis{}, err
	}

	history, err := s.store.Sales.ListObservations(ctx, productID)
	if err != nil {
		return domain.TrendAnalysis{}, fmt.Errorf("list sales for product %d: %w", productID, err)
	}
	return features.NewSeries(productID, history).Trend(), nil
}

func (s *RestockService) ProductIDs(ctx context.Context) ([]int64, error) {
	products, err := s.store.Products.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}
	return ids, nil
}

func (s *RestockService) Alerts(ctx context.Context, filter domain.AlertFilter) ([]domain.InventoryAlert, error) {
	return s.store.Alerts.ListAlerts(ctx, filter)
}

func (s *RestockService) AlertSummary(ctx context.Context) (domain.AlertSummary, error) {
	return s.emitter.Summary(ctx)
}

func (s *RestockService) AcknowledgeAlert(ctx context.Context, id string) error {
	return s.emitter.Acknowledge(ctx, id)
}
