package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/andresuchdata/restock-advisor/internal/domain"
	"github.com/andresuchdata/restock-advisor/internal/repository"
	"github.com/andresuchdata/restock-advisor/internal/service"
	"github.com/rs/zerolog/log"
)

// Runner fans products out over a fixed pool of workers. Each worker owns one
// product at a time.
type Runner struct {
	processor ProductProcessor
	runs      repository.RunRepository
	config    RunnerConfig
	now       func() time.Time
	mu        sync.Mutex
}

// NewRunner creates a new batch runner
func NewRunner(processor ProductProcessor, runs repository.RunRepository, config RunnerConfig) *Runner {
	return &Runner{
		processor: processor,
		runs:      runs,
		config:    config,
		now:       time.Now,
	}
}

// WithClock sets the clock used for run and job timestamps.
func (r *Runner) WithClock(now func() time.Time) *Runner {
	r.now = now
	return r
}

// Run decides every product in productIDs and records the run and its jobs.
func (r *Runner) Run(ctx context.Context, productIDs []int64) (*domain.PipelineRun, error) {
	log.Info().Int("products", len(productIDs)).Msg("pipeline: starting batch run")

	run := &domain.PipelineRun{
		Status:        domain.RunPending,
		TotalProducts: len(productIDs),
		StartedAt:     r.now().UTC(),
	}
	if err := r.runs.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create pipeline run: %w", err)
	}

	// Create product jobs
	jobs := make([]*domain.ProductJob, len(productIDs))
	for i, id := range productIDs {
		job := &domain.ProductJob{
			RunID:     run.ID,
			ProductID: id,
			Status:    domain.JobQueued,
		}
		if err := r.runs.SaveJob(ctx, job); err != nil {
			return nil, fmt.Errorf("failed to create product job: %w", err)
		}
		jobs[i] = job
	}

	run.Status = domain.RunProcessing
	if err := r.runs.UpdateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to update pipeline run: %w", err)
	}

	err := r.processParallel(ctx, run, jobs)

	completedAt := r.now().UTC()
	run.CompletedAt = &completedAt
	if err != nil {
		run.Status = domain.RunFailed
		run.ErrorMessage = err.Error()
	} else {
		run.Status = domain.RunCompleted
	}

	// The run record is finalised even when ctx was cancelled.
	if uerr := r.runs.UpdateRun(context.WithoutCancel(ctx), run); uerr != nil {
		return run, fmt.Errorf("failed to complete pipeline run: %w", uerr)
	}

	log.Info().
		Int64("run_id", run.ID).
		Str("status", string(run.Status)).
		Int("completed", run.Completed).
		Int("skipped", run.Skipped).
		Int("failed", run.Failed).
		Int("alerts", run.AlertsEmitted).
		Msg("pipeline: batch run finished")

	return run, err
}

// processParallel processes jobs using a worker pool
func (r *Runner) processParallel(ctx context.Context, run *domain.PipelineRun, jobs []*domain.ProductJob) error {
	workerCount := r.config.WorkerCount
	if workerCount < 1 {
		workerCount = 1
	}

	jobChan := make(chan *domain.ProductJob, len(jobs))
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for job := range jobChan {
				r.processProduct(ctx, run, job, workerID)
			}
		}(i)
	}

	// Enqueue jobs
	var enqueueErr error
enqueue:
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			enqueueErr = err
			break
		}
		select {
		case <-ctx.Done():
			enqueueErr = ctx.Err()
			break enqueue
		case jobChan <- job:
		}
	}
	close(jobChan)

	// Wait for all workers
	wg.Wait()

	if enqueueErr != nil {
		r.cancelQueued(ctx, run, jobs, enqueueErr)
		return enqueueErr
	}
	return ctx.Err()
}

// cancelQueued fails the jobs that never reached a worker.
func (r *Runner) cancelQueued(ctx context.Context, run *domain.PipelineRun, jobs []*domain.ProductJob, cause error) {
	processedAt := r.now().UTC()
	for _, job := range jobs {
		if job.Status != domain.JobQueued {
			continue
		}
		job.Status = domain.JobFailed
		job.ErrorMessage = "cancelled: " + cause.Error()
		job.ProcessedAt = &processedAt
		run.Failed++
		if err := r.runs.SaveJob(context.WithoutCancel(ctx), job); err != nil {
			log.Warn().Err(err).Int64("run_id", run.ID).Int64("product_id", job.ProductID).Msg("pipeline: failed to record cancelled job")
		}
	}
}

// processProduct runs one product and records the outcome on its job.
func (r *Runner) processProduct(ctx context.Context, run *domain.PipelineRun, job *domain.ProductJob, workerID int) {
	startTime := time.Now()
	logger := log.With().Int64("run_id", run.ID).Int64("product_id", job.ProductID).Int("worker", workerID).Logger()

	job.Status = domain.JobProcessing
	if err := r.runs.SaveJob(ctx, job); err != nil {
		logger.Warn().Err(err).Msg("pipeline: failed to update job status")
	}

	if r.config.Retrain && ctx.Err() == nil {
		if _, err := r.processor.Train(ctx, job.ProductID); err != nil && !domain.IsForecastUnavailable(err) {
			logger.Warn().Err(err).Msg("pipeline: retrain failed, using existing model")
		}
	}

	// A Decide that returned without error has already persisted its result.
	var result *service.DecisionResult
	err := ctx.Err()
	if err == nil {
		result, err = r.processor.Decide(ctx, job.ProductID)
	}

	processedAt := r.now().UTC()
	job.ProcessedAt = &processedAt

	r.mu.Lock()
	switch {
	case err == nil:
		job.Status = domain.JobCompleted
		job.RiskLevel = string(result.Decision.RiskLevel)
		run.Completed++
		if result.Alert != nil {
			run.AlertsEmitted++
		}
	case domain.IsForecastUnavailable(err):
		job.Status = domain.JobSkipped
		job.ErrorMessage = err.Error()
		run.Skipped++
	default:
		job.Status = domain.JobFailed
		job.ErrorMessage = err.Error()
		run.Failed++
	}
	r.mu.Unlock()

	if serr := r.runs.SaveJob(context.WithoutCancel(ctx), job); serr != nil {
		logger.Warn().Err(serr).Msg("pipeline: failed to record job result")
	}

	event := logger.Debug()
	if err != nil && !errors.Is(err, context.Canceled) && !domain.IsForecastUnavailable(err) {
		event = logger.Error().Err(err)
	}
	event.Str("status", string(job.Status)).Dur("took", time.Since(startTime)).Msg("pipeline: product processed")
}
