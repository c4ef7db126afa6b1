package postgres

import (
	"context"
	"fmt"

	"github.com/andresuchdata/restock-advisor/internal/domain"
	"github.com/jmoiron/sqlx"
)

type salesRepository struct {
	db *DB
}

func NewSalesRepository(db *DB) *salesRepository {
	return &salesRepository{db: db}
}

func (r *salesRepository) ListObservations(ctx context.Context, productID int64) ([]domain.SalesObservation, error) {
	query := `
		SELECT product_id, sale_date, quantity
		FROM sales_daily
		WHERE product_id = $1
		ORDER BY sale_date ASC
	`
	var out []domain.SalesObservation
	if err := r.db.SelectContext(ctx, &out, query, productID); err != nil {
		return nil, fmt.Errorf("failed to list sales for product %d: %w", productID, err)
	}
	return out, nil
}

func (r *salesRepository) UpsertObservations(ctx context.Context, observations []domain.SalesObservation) (int, error) {
	if len(observations) == 0 {
		return 0, nil
	}

	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO sales_daily (product_id, sale_date, quantity, updated_at)
			VALUES ($1, $2, $3, NOW())
			ON CONFLICT (product_id, sale_date)
			DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = NOW()
		`

		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, obs := range observations {
			if _, err := stmt.ExecContext(ctx, obs.ProductID, domain.DateOnly(obs.Date), obs.Quantity); err != nil {
				return fmt.Errorf("failed to upsert sales for product %d: %w", obs.ProductID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(observations), nil
}
