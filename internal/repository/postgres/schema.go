package postgres

import (
	"context"
	"fmt"
)

// Schema creates every table the repositories use. Statements are idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS products (
	id BIGSERIAL PRIMARY KEY,
	sku TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	current_stock INTEGER NOT NULL DEFAULT 0,
	lead_time_days INTEGER NOT NULL DEFAULT 0,
	unit_cost NUMERIC(14, 4) NOT NULL DEFAULT 0,
	safety_stock_floor DOUBLE PRECISION NOT NULL DEFAULT 0,
	safety_stock_multiplier DOUBLE PRECISION,
	last_reorder_point DOUBLE PRECISION,
	last_reorder_qty INTEGER,
	last_risk_level TEXT,
	last_decision_at TIMESTAMPTZ,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS sales_daily (
	product_id BIGINT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
	sale_date DATE NOT NULL,
	quantity DOUBLE PRECISION NOT NULL CHECK (quantity >= 0),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (product_id, sale_date)
);

CREATE TABLE IF NOT EXISTS model_evaluations (
	id BIGSERIAL PRIMARY KEY,
	run_id TEXT NOT NULL,
	model_kind TEXT NOT NULL,
	product_key TEXT NOT NULL,
	model_version TEXT NOT NULL,
	mae DOUBLE PRECISION NOT NULL,
	rmse DOUBLE PRECISION NOT NULL,
	r2_score DOUBLE PRECISION NOT NULL,
	train_samples INTEGER NOT NULL,
	test_samples INTEGER NOT NULL,
	train_split DOUBLE PRECISION NOT NULL,
	selected BOOLEAN NOT NULL DEFAULT FALSE,
	notes TEXT NOT NULL DEFAULT '',
	evaluated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_model_evaluations_key ON model_evaluations (product_key, evaluated_at DESC);

CREATE TABLE IF NOT EXISTS inventory_alerts (
	id TEXT PRIMARY KEY,
	product_id BIGINT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
	risk_level TEXT NOT NULL,
	severity TEXT NOT NULL,
	explanation TEXT NOT NULL,
	current_stock INTEGER NOT NULL,
	reorder_point DOUBLE PRECISION NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	acknowledged BOOLEAN NOT NULL DEFAULT FALSE,
	acknowledged_at TIMESTAMPTZ
);
DROP INDEX IF EXISTS idx_inventory_alerts_open;
CREATE UNIQUE INDEX IF NOT EXISTS idx_inventory_alerts_open_unique ON inventory_alerts (product_id, risk_level) WHERE NOT acknowledged;

CREATE TABLE IF NOT EXISTS pipeline_runs (
	id BIGSERIAL PRIMARY KEY,
	status TEXT NOT NULL,
	total_products INTEGER NOT NULL DEFAULT 0,
	completed INTEGER NOT NULL DEFAULT 0,
	skipped INTEGER NOT NULL DEFAULT 0,
	failed INTEGER NOT NULL DEFAULT 0,
	alerts_emitted INTEGER NOT NULL DEFAULT 0,
	started_at TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ,
	error_message TEXT
);

CREATE TABLE IF NOT EXISTS product_jobs (
	id BIGSERIAL PRIMARY KEY,
	run_id BIGINT NOT NULL REFERENCES pipeline_runs(id) ON DELETE CASCADE,
	product_id BIGINT NOT NULL,
	status TEXT NOT NULL,
	risk_level TEXT,
	error_message TEXT,
	processed_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_product_jobs_run ON product_jobs (run_id);
`

// EnsureSchema creates missing tables. It does not alter existing ones.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
