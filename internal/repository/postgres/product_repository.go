package postgres

import (
	"context"
	"fmt"

	"github.com/andresuchdata/restock-advisor/internal/domain"
)

const productColumns = `
	id, sku, name, category, current_stock, lead_time_days, unit_cost,
	safety_stock_floor, safety_stock_multiplier,
	last_reorder_point, last_reorder_qty, last_risk_level, last_decision_at,
	updated_at`

type productRepository struct {
	db *DB
}

func NewProductRepository(db *DB) *productRepository {
	return &productRepository{db: db}
}

func (r *productRepository) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	var p domain.Product
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		if notFound(err) {
			return nil, fmt.Errorf("product %d: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get product %d: %w", id, err)
	}
	return &p, nil
}

func (r *productRepository) GetProductBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	var p domain.Product
	query := `SELECT ` + productColumns + ` FROM products WHERE sku = $1`
	if err := r.db.GetContext(ctx, &p, query, sku); err != nil {
		if notFound(err) {
			return nil, fmt.Errorf("product sku %q: %w", sku, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get product %q: %w", sku, err)
	}
	return &p, nil
}

func (r *productRepository) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	query := `SELECT ` + productColumns + ` FROM products ORDER BY id`
	if err := r.db.SelectContext(ctx, &products, query); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

func (r *productRepository) UpsertProduct(ctx context.Context, p *domain.Product) (int64, error) {
	query := `
		INSERT INTO products (
			sku, name, category, current_stock, lead_time_days, unit_cost,
			safety_stock_floor, safety_stock_multiplier, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (sku)
		DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			current_stock = EXCLUDED.current_stock,
			lead_time_days = EXCLUDED.lead_time_days,
			unit_cost = EXCLUDED.unit_cost,
			safety_stock_floor = EXCLUDED.safety_stock_floor,
			safety_stock_multiplier = EXCLUDED.safety_stock_multiplier,
			updated_at = NOW()
		RETURNING id
	`
	var id int64
	err := r.db.QueryRowContext(ctx, query,
		p.SKU,
		p.Name,
		p.Category,
		p.CurrentStock,
		p.LeadTimeDays,
		p.UnitCost,
		p.SafetyStockFloor,
		p.SafetyStockMultiplier,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert product: %w", err)
	}
	p.ID = id
	return id, nil
}

func (r *productRepository) SaveRecommendation(ctx context.Context, rec domain.Recommendation) error {
	query := `
		UPDATE products SET
			last_reorder_point = $2,
			last_reorder_qty = $3,
			last_risk_level = $4,
			last_decision_at = $5,
			updated_at = NOW()
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		rec.ProductID, rec.ReorderPoint, rec.ReorderQuantity, string(rec.RiskLevel), rec.DecidedAt)
	if err != nil {
		return fmt.Errorf("failed to save recommendation for product %d: %w", rec.ProductID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("product %d: %w", rec.ProductID, domain.ErrNotFound)
	}
	return nil
}
