package postgres

import (
	"context"
	"fmt"

	"github.com/andresuchdata/restock-advisor/internal/domain"
	"github.com/jmoiron/sqlx"
)

type evaluationRepository struct {
	db *DB
}

func NewEvaluationRepository(db *DB) *evaluationRepository {
	return &evaluationRepository{db: db}
}

func (r *evaluationRepository) SaveEvaluations(ctx context.Context, evaluations []domain.ModelEvaluation) error {
	if len(evaluations) == 0 {
		return nil
	}

	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO model_evaluations (
				run_id, model_kind, product_key, model_version, mae, rmse, r2_score,
				train_samples, test_samples, train_split, selected, notes, evaluated_at
			) VALUES (
				:run_id, :model_kind, :product_key, :model_version, :mae, :rmse, :r2_score,
				:train_samples, :test_samples, :train_split, :selected, :notes, :evaluated_at
			)
		`
		for _, e := range evaluations {
			if _, err := tx.NamedExecContext(ctx, query, e); err != nil {
				return fmt.Errorf("failed to insert evaluation for %s/%s: %w", e.ProductKey, e.ModelKind, err)
			}
		}
		return nil
	})
}

func (r *evaluationRepository) ListEvaluations(ctx context.Context, productKey string, limit int) ([]domain.ModelEvaluation, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, run_id, model_kind, product_key, model_version, mae, rmse, r2_score,
			train_samples, test_samples, train_split, selected, notes, evaluated_at
		FROM model_evaluations
		WHERE ($1 = '' OR product_key = $1)
		ORDER BY evaluated_at DESC, id DESC
		LIMIT $2
	`
	var out []domain.ModelEvaluation
	if err := r.db.SelectContext(ctx, &out, query, productKey, limit); err != nil {
		return nil, fmt.Errorf("failed to list evaluations: %w", err)
	}
	return out, nil
}
