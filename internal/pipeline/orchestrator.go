package pipeline

import (
	"context"
	"fmt"

	"github.com/andresuchdata/restock-advisor/internal/domain"
	"github.com/rs/zerolog/log"
)

// Orchestrator coordinates a full batch: optional global retrain, then one
// Runner pass over every known product.
type Orchestrator struct {
	processor ProductProcessor
	runner    *Runner
	cfg       RunnerConfig
}

// NewOrchestrator creates a new Orchestrator.
func NewOrchestrator(processor ProductProcessor, runner *Runner, cfg RunnerConfig) *Orchestrator {
	return &Orchestrator{
		processor: processor,
		runner:    runner,
		cfg:       cfg,
	}
}

// RunAll processes every product. With Retrain set, the global fallback model
// is refreshed first.
func (o *Orchestrator) RunAll(ctx context.Context) (*domain.PipelineRun, error) {
	ids, err := o.processor.ProductIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	if o.cfg.Retrain {
		if _, err := o.processor.TrainGlobal(ctx); err != nil {
			if !domain.IsForecastUnavailable(err) {
				return nil, fmt.Errorf("failed to train global model: %w", err)
			}
			log.Warn().Err(err).Msg("pipeline: global model not retrained")
		}
	}

	return o.runner.Run(ctx, ids)
}
