// Package memory provides in-process repository implementations used by tests
// and the demo server mode.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/andresuchdata/restock-advisor/internal/domain"
	"github.com/andresuchdata/restock-advisor/internal/repository"
)

// Store holds every record in maps guarded by one mutex.
type Store struct {
	mu sync.RWMutex

	products    map[int64]domain.Product
	sales       map[int64]map[time.Time]float64
	evaluations []domain.ModelEvaluation
	alerts      []domain.InventoryAlert
	runs        map[int64]domain.PipelineRun
	jobs        map[int64][]domain.ProductJob

	nextProductID int64
	nextEvalID    int64
	nextRunID     int64
	nextJobID     int64
}

func NewStore() *Store {
	return &Store{
		products: make(map[int64]domain.Product),
		sales:    make(map[int64]map[time.Time]float64),
		runs:     make(map[int64]domain.PipelineRun),
		jobs:     make(map[int64][]domain.ProductJob),
	}
}

// Repositories exposes the store through the repository interfaces.
func (s *Store) Repositories() repository.Store {
	return repository.Store{
		Products:    s,
		Sales:       s,
		Evaluations: s,
		Alerts:      s,
		Runs:        s,
	}
}

var (
	_ repository.ProductRepository    = (*Store)(nil)
	_ repository.SalesRepository      = (*Store)(nil)
	_ repository.EvaluationRepository = (*Store)(nil)
	_ repository.AlertRepository      = (*Store)(nil)
	_ repository.RunRepository        = (*Store)(nil)
)

// products

func (s *Store) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, fmt.Errorf("product %d: %w", id, domain.ErrNotFound)
	}
	return &p, nil
}

func (s *Store) GetProductBySKU(_ context.Context, sku string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.products {
		if p.SKU == sku {
			p := p
			return &p, nil
		}
	}
	return nil, fmt.Errorf("product sku %q: %w", sku, domain.ErrNotFound)
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpsertProduct(_ context.Context, product *domain.Product) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.ID == 0 {
		for id, p := range s.products {
			if product.SKU != "" && p.SKU == product.SKU {
				product.ID = id
				break
			}
		}
	}
	if product.ID == 0 {
		s.nextProductID++
		product.ID = s.nextProductID
	}
	if product.ID > s.nextProductID {
		s.nextProductID = product.ID
	}

	s.products[product.ID] = *product
	return product.ID, nil
}

func (s *Store) SaveRecommendation(_ context.Context, rec domain.Recommendation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[rec.ProductID]
	if !ok {
		return fmt.Errorf("product %d: %w", rec.ProductID, domain.ErrNotFound)
	}

	point := rec.ReorderPoint
	qty := rec.ReorderQuantity
	risk := string(rec.RiskLevel)
	at := rec.DecidedAt
	p.LastReorderPoint = &point
	p.LastReorderQty = &qty
	p.LastRiskLevel = &risk
	p.LastDecisionAt = &at
	p.UpdatedAt = at

	s.products[rec.ProductID] = p
	return nil
}

// sales

func (s *Store) ListObservations(_ context.Context, productID int64) ([]domain.SalesObservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	days := s.sales[productID]
	out := make([]domain.SalesObservation, 0, len(days))
	for date, qty := range days {
		out = append(out, domain.SalesObservation{ProductID: productID, Date: date, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *Store) UpsertObservations(_ context.Context, observations []domain.SalesObservation) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, obs := range observations {
		days, ok := s.sales[obs.ProductID]
		if !ok {
			days = make(map[time.Time]float64)
			s.sales[obs.ProductID] = days
		}
		days[domain.DateOnly(obs.Date)] = obs.Quantity
	}
	return len(observations), nil
}

// evaluations

func (s *Store) SaveEvaluations(_ context.Context, evaluations []domain.ModelEvaluation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range evaluations {
		s.nextEvalID++
		e.ID = s.nextEvalID
		s.evaluations = append(s.evaluations, e)
	}
	return nil
}

// ListEvaluations returns the newest evaluations first.
func (s *Store) ListEvaluations(_ context.Context, productKey string, limit int) ([]domain.ModelEvaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.ModelEvaluation
	for i := len(s.evaluations) - 1; i >= 0; i-- {
		e := s.evaluations[i]
		if productKey != "" && e.ProductKey != productKey {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// alerts

func (s *Store) FindOpen(_ context.Context, productID int64, risk domain.RiskLevel) (*domain.InventoryAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.alerts {
		if a.ProductID == productID && a.RiskLevel == risk && !a.Acknowledged {
			a := a
			return &a, nil
		}
	}
	return nil, nil
}

func (s *Store) CreateAlert(_ context.Context, alert *domain.InventoryAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !alert.Acknowledged {
		for _, a := range s.alerts {
			if a.ProductID == alert.ProductID && a.RiskLevel == alert.RiskLevel && !a.Acknowledged {
				return fmt.Errorf("product %d %s: %w", alert.ProductID, alert.RiskLevel, domain.ErrAlertOpen)
			}
		}
	}
	s.alerts = append(s.alerts, *alert)
	return nil
}

// ListAlerts returns matching alerts, newest first.
func (s *Store) ListAlerts(_ context.Context, filter domain.AlertFilter) ([]domain.InventoryAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.InventoryAlert
	for i := len(s.alerts) - 1; i >= 0; i-- {
		a := s.alerts[i]
		if filter.ProductID != 0 && a.ProductID != filter.ProductID {
			continue
		}
		if filter.RiskLevel != "" && a.RiskLevel != filter.RiskLevel {
			continue
		}
		if filter.Acknowledged != nil && a.Acknowledged != *filter.Acknowledged {
			continue
		}
		out = append(out, a)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (s *Store) AcknowledgeAlert(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.alerts {
		if s.alerts[i].ID == id {
			s.alerts[i].Acknowledged = true
			s.alerts[i].AcknowledgedAt = &at
			return nil
		}
	}
	return fmt.Errorf("alert %s: %w", id, domain.ErrNotFound)
}

// runs

func (s *Store) CreateRun(_ context.Context, run *domain.PipelineRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextRunID++
	run.ID = s.nextRunID
	s.runs[run.ID] = *run
	return nil
}

func (s *Store) UpdateRun(_ context.Context, run *domain.PipelineRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[run.ID]; !ok {
		return fmt.Errorf("run %d: %w", run.ID, domain.ErrNotFound)
	}
	s.runs[run.ID] = *run
	return nil
}

func (s *Store) GetRun(_ context.Context, id int64) (*domain.PipelineRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("run %d: %w", id, domain.ErrNotFound)
	}
	return &run, nil
}

// SaveJob inserts the job on first save and replaces it afterwards.
func (s *Store) SaveJob(_ context.Context, job *domain.ProductJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := s.jobs[job.RunID]
	if job.ID != 0 {
		for i := range jobs {
			if jobs[i].ID == job.ID {
				jobs[i] = *job
				return nil
			}
		}
	}

	s.nextJobID++
	job.ID = s.nextJobID
	s.jobs[job.RunID] = append(jobs, *job)
	return nil
}

func (s *Store) ListJobs(_ context.Context, runID int64) ([]domain.ProductJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.ProductJob, len(s.jobs[runID]))
	copy(out, s.jobs[runID])
	return out, nil
}
