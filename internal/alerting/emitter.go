// Package alerting persists risk alerts for inventory decisions.
package alerting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/restock-advisor/internal/domain"
	"github.com/andresuchdata/restock-advisor/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Emitter struct {
	alerts      repository.AlertRepository
	minSeverity domain.Severity
	now         func() time.Time
	newID       func() string
}

type Option func(*Emitter)

func WithClock(now func() time.Time) Option {
	return func(e *Emitter) { e.now = now }
}

func WithIDs(next func() string) Option {
	return func(e *Emitter) { e.newID = next }
}

// NewEmitter returns an Emitter that ignores decisions below minSeverity.
// An empty minSeverity emits every risky decision.
func NewEmitter(alerts repository.AlertRepository, minSeverity domain.Severity, opts ...Option) (*Emitter, error) {
	if minSeverity == "" {
		minSeverity = domain.SeverityLow
	}
	if _, ok := domain.ParseSeverity(string(minSeverity)); !ok {
		return nil, fmt.Errorf("%w: unknown alert severity %q", domain.ErrInvalidConfiguration, minSeverity)
	}

	e := &Emitter{
		alerts:      alerts,
		minSeverity: minSeverity,
		now:         time.Now,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Emit creates an alert for a risky decision unless one is already open for
// the same product and risk level. It returns nil when nothing was created.
func (e *Emitter) Emit(ctx context.Context, d domain.InventoryDecision) (*domain.InventoryAlert, error) {
	if !d.Complete() {
		return nil, fmt.Errorf("%w: decision for product %d is incomplete", domain.ErrInvalidConfiguration, d.ProductID)
	}
	if d.RiskLevel == domain.RiskNone {
		return nil, nil
	}
	if d.Severity.Rank() < e.minSeverity.Rank() {
		return nil, nil
	}

	open, err := e.alerts.FindOpen(ctx, d.ProductID, d.RiskLevel)
	if err != nil {
		return nil, fmt.Errorf("check open alerts for product %d: %w", d.ProductID, err)
	}
	if open != nil {
		log.Debug().
			Int64("product_id", d.ProductID).
			Str("risk", string(d.RiskLevel)).
			Str("alert_id", open.ID).
			Msg("open alert exists, skipping")
		return nil, nil
	}

	alert := &domain.InventoryAlert{
		ID:           e.newID(),
		ProductID:    d.ProductID,
		RiskLevel:    d.RiskLevel,
		Severity:     d.Severity,
		Explanation:  d.Explanation,
		CurrentStock: d.CurrentStock,
		ReorderPoint: d.ReorderPoint,
		CreatedAt:    e.now().UTC(),
	}
	if err := e.alerts.CreateAlert(ctx, alert); err != nil {
		if errors.Is(err, domain.ErrAlertOpen) {
			log.Debug().Int64("product_id", d.ProductID).Str("risk", string(d.RiskLevel)).Msg("open alert created concurrently, skipping")
			return nil, nil
		}
		return nil, fmt.Errorf("create alert for product %d: %w", d.ProductID, err)
	}

	log.Info().
		Int64("product_id", d.ProductID).
		Str("risk", string(d.RiskLevel)).
		Str("severity", string(d.Severity)).
		Msg("inventory alert emitted")
	return alert, nil
}

// Acknowledge marks an alert as handled so a new one may be raised later.
func (e *Emitter) Acknowledge(ctx context.Context, id string) error {
	return e.alerts.AcknowledgeAlert(ctx, id, e.now().UTC())
}

// Summary counts the currently open alerts.
func (e *Emitter) Summary(ctx context.Context) (domain.AlertSummary, error) {
	open := false
	alerts, err := e.alerts.ListAlerts(ctx, domain.AlertFilter{Acknowledged: &open})
	if err != nil {
		return domain.AlertSummary{}, fmt.Errorf("list open alerts: %w", err)
	}
	return Summarize(alerts), nil
}

// Summarize counts alerts by risk and severity and renders a one-line summary.
func Summarize(alerts []domain.InventoryAlert) domain.AlertSummary {
	var s domain.AlertSummary
	for _, a := range alerts {
		s.Total++
		switch a.RiskLevel {
		case domain.RiskUnderstock:
			s.Understock++
		case domain.RiskOverstock:
			s.Overstock++
		}
		if a.Severity == domain.SeverityHigh {
			s.HighRisk++
		}
	}

	if s.Total == 0 {
		s.Text = "No open inventory alerts."
		return s
	}
	s.Text = fmt.Sprintf("%d open alerts: %d understock, %d overstock, %d high severity.",
		s.Total, s.Understock, s.Overstock, s.HighRisk)
	return s
}
