package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/andresuchdata/restock-advisor/internal/domain"
)

const alertColumns = `id, product_id, risk_level, severity, explanation, current_stock,
	reorder_point, created_at, acknowledged, acknowledged_at`

type alertRepository struct {
	db *DB
}

func NewAlertRepository(db *DB) *alertRepository {
	return &alertRepository{db: db}
}

func (r *alertRepository) FindOpen(ctx context.Context, productID int64, risk domain.RiskLevel) (*domain.InventoryAlert, error) {
	query := `SELECT ` + alertColumns + `
		FROM inventory_alerts
		WHERE product_id = $1 AND risk_level = $2 AND acknowledged = FALSE
		ORDER BY created_at DESC
		LIMIT 1
	`
	var a domain.InventoryAlert
	if err := r.db.GetContext(ctx, &a, query, productID, string(risk)); err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find open alert for product %d: %w", productID, err)
	}
	return &a, nil
}

func (r *alertRepository) CreateAlert(ctx context.Context, a *domain.InventoryAlert) error {
	query := `
		INSERT INTO inventory_alerts (` + alertColumns + `)
		VALUES (:id, :product_id, :risk_level, :severity, :explanation, :current_stock,
			:reorder_point, :created_at, :acknowledged, :acknowledged_at)
		ON CONFLICT (product_id, risk_level) WHERE NOT acknowledged DO NOTHING
	`
	res, err := r.db.NamedExecContext(ctx, query, a)
	if err != nil {
		return fmt.Errorf("failed to create alert for product %d: %w", a.ProductID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to create alert for product %d: %w", a.ProductID, err)
	}
	if n == 0 {
		return fmt.Errorf("product %d %s: %w", a.ProductID, a.RiskLevel, domain.ErrAlertOpen)
	}
	return nil
}

func (r *alertRepository) ListAlerts(ctx context.Context, filter domain.AlertFilter) ([]domain.InventoryAlert, error) {
	query := `SELECT ` + alertColumns + ` FROM inventory_alerts`

	var conditions []string
	var args []interface{}
	argCounter := 1

	if filter.ProductID != 0 {
		conditions = append(conditions, fmt.Sprintf("product_id = $%d", argCounter))
		args = append(args, filter.ProductID)
		argCounter++
	}
	if filter.RiskLevel != "" {
		conditions = append(conditions, fmt.Sprintf("risk_level = $%d", argCounter))
		args = append(args, string(filter.RiskLevel))
		argCounter++
	}
	if filter.Acknowledged != nil {
		conditions = append(conditions, fmt.Sprintf("acknowledged = $%d", argCounter))
		args = append(args, *filter.Acknowledged)
		argCounter++
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argCounter)
		args = append(args, filter.Limit)
	}

	var out []domain.InventoryAlert
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	return out, nil
}

func (r *alertRepository) AcknowledgeAlert(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE inventory_alerts SET acknowledged = TRUE, acknowledged_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("failed to acknowledge alert %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("alert %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
