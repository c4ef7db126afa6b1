package pipeline

import (
	"context"

	"github.com/andresuchdata/restock-advisor/internal/evaluation"
	"github.com/andresuchdata/restock-advisor/internal/service"
)

// ProductProcessor runs one product's read/derive/write cycle.
type ProductProcessor interface {
	Decide(ctx context.Context, productID int64) (*service.DecisionResult, error)
	Train(ctx context.Context, productID int64) (*evaluation.Result, error)
	TrainGlobal(ctx context.Context) (*evaluation.Result, error)
	ProductIDs(ctx context.Context) ([]int64, error)
}

// RunnerConfig holds configuration for a batch run
type RunnerConfig struct {
	WorkerCount int  // Number of concurrent workers
	Retrain     bool // Retrain each product's model before deciding
}

// DefaultRunnerConfig returns sensible defaults
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		WorkerCount: 4,
	}
}
