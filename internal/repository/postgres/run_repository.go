package postgres

import (
	"context"
	"fmt"

	"github.com/andresuchdata/restock-advisor/internal/domain"
)

type runRepository struct {
	db *DB
}

func NewRunRepository(db *DB) *runRepository {
	return &runRepository{db: db}
}

func (r *runRepository) CreateRun(ctx context.Context, run *domain.PipelineRun) error {
	query := `
		INSERT INTO pipeline_runs (status, total_products, started_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	if err := r.db.QueryRowContext(ctx, query, run.Status, run.TotalProducts, run.StartedAt).Scan(&run.ID); err != nil {
		return fmt.Errorf("failed to create pipeline run: %w", err)
	}
	return nil
}

func (r *runRepository) UpdateRun(ctx context.Context, run *domain.PipelineRun) error {
	query := `
		UPDATE pipeline_runs SET
			status = :status,
			total_products = :total_products,
			completed = :completed,
			skipped = :skipped,
			failed = :failed,
			alerts_emitted = :alerts_emitted,
			completed_at = :completed_at,
			error_message = :error_message
		WHERE id = :id
	`
	if _, err := r.db.NamedExecContext(ctx, query, run); err != nil {
		return fmt.Errorf("failed to update pipeline run %d: %w", run.ID, err)
	}
	return nil
}

func (r *runRepository) GetRun(ctx context.Context, id int64) (*domain.PipelineRun, error) {
	query := `
		SELECT id, status, total_products, completed, skipped, failed, alerts_emitted,
			started_at, completed_at, COALESCE(error_message, '') AS error_message
		FROM pipeline_runs
		WHERE id = $1
	`
	var run domain.PipelineRun
	if err := r.db.GetContext(ctx, &run, query, id); err != nil {
		if notFound(err) {
			return nil, fmt.Errorf("run %d: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get pipeline run %d: %w", id, err)
	}
	return &run, nil
}

func (r *runRepository) SaveJob(ctx context.Context, job *domain.ProductJob) error {
	if job.ID == 0 {
		query := `
			INSERT INTO product_jobs (run_id, product_id, status, risk_level, error_message, processed_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`
		err := r.db.QueryRowContext(ctx, query,
			job.RunID, job.ProductID, job.Status, job.RiskLevel, job.ErrorMessage, job.ProcessedAt,
		).Scan(&job.ID)
		if err != nil {
			return fmt.Errorf("failed to create job for product %d: %w", job.ProductID, err)
		}
		return nil
	}

	query := `
		UPDATE product_jobs
		SET status = $2, risk_level = $3, error_message = $4, processed_at = $5
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, job.ID, job.Status, job.RiskLevel, job.ErrorMessage, job.ProcessedAt); err != nil {
		return fmt.Errorf("failed to update job %d: %w", job.ID, err)
	}
	return nil
}

func (r *runRepository) ListJobs(ctx context.Context, runID int64) ([]domain.ProductJob, error) {
	query := `
		SELECT id, run_id, product_id, status, COALESCE(risk_level, '') AS risk_level,
			COALESCE(error_message, '') AS error_message, processed_at
		FROM product_jobs
		WHERE run_id = $1
		ORDER BY id
	`
	var jobs []domain.ProductJob
	if err := r.db.SelectContext(ctx, &jobs, query, runID); err != nil {
		return nil, fmt.Errorf("failed to list jobs for run %d: %w", runID, err)
	}
	return jobs, nil
}
