// Package repository declares the stores the restock pipeline reads from and
// writes to. Implementations live in the postgres and memory subpackages.
package repository

import (
	"context"
	"time"

	"github.com/andresuchdata/restock-advisor/internal/domain"
)

// SalesRepository is the sales history store.
type SalesRepository interface {
	// ListObservations returns a product's daily sales in ascending date order.
	ListObservations(ctx context.Context, productID int64) ([]domain.SalesObservation, error)
	// UpsertObservations inserts or replaces (product, date) rows and returns how many were written.
	UpsertObservations(ctx context.Context, observations []domain.SalesObservation) (int, error)
}

type ProductRepository interface {
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	GetProductBySKU(ctx context.Context, sku string) (*domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
	UpsertProduct(ctx context.Context, product *domain.Product) (int64, error)
	// SaveRecommendation writes the "last recommendation" columns of a product.
	SaveRecommendation(ctx context.Context, rec domain.Recommendation) error
}

// EvaluationRepository is an append-only log of model evaluations.
type EvaluationRepository interface {
	SaveEvaluations(ctx context.Context, evaluations []domain.ModelEvaluation) error
	ListEvaluations(ctx context.Context, productKey string, limit int) ([]domain.ModelEvaluation, error)
}

type AlertRepository interface {
	// FindOpen returns the unacknowledged alert for (product, risk), or nil.
	FindOpen(ctx context.Context, productID int64, risk domain.RiskLevel) (*domain.InventoryAlert, error)
	// CreateAlert fails with domain.ErrAlertOpen when an unacknowledged alert
	// for the same product and risk level exists.
	CreateAlert(ctx context.Context, alert *domain.InventoryAlert) error
	ListAlerts(ctx context.Context, filter domain.AlertFilter) ([]domain.InventoryAlert, error)
	AcknowledgeAlert(ctx context.Context, id string, at time.Time) error
}

// RunRepository records batch runs and their per-product jobs.
type RunRepository interface {
	CreateRun(ctx context.Context, run *domain.PipelineRun) error
	UpdateRun(ctx context.Context, run *domain.PipelineRun) error
	GetRun(ctx context.Context, id int64) (*domain.PipelineRun, error)
	SaveJob(ctx context.Context, job *domain.ProductJob) error
	ListJobs(ctx context.Context, runID int64) ([]domain.ProductJob, error)
}

// Store bundles every repository the application wires together.
type Store struct {
	Products    ProductRepository
	Sales       SalesRepository
	Evaluations EvaluationRepository
	Alerts      AlertRepository
	Runs        RunRepository
}
