package alerting

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andresuchdata/restock-advisor/internal/domain"
	"github.com/andresuchdata/restock-advisor/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 8, 1, 9, 0, 0, 0, time.UTC)

func decision(productID int64, risk domain.RiskLevel, severity domain.Severity) domain.InventoryDecision {
	return domain.InventoryDecision{
		ProductID:    productID,
		CurrentStock: 5,
		ReorderPoint: 30,
		RiskLevel:    risk,
		Severity:     severity,
		Explanation:  fmt.Sprintf("%s for %d", risk, productID),
		ComputedAt:   now,
	}
}

func newEmitter(t *testing.T, minSeverity domain.Severity) (*Emitter, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	ids := 0
	e, err := NewEmitter(store, minSeverity,
		WithClock(func() time.Time { return now }),
		WithIDs(func() string { ids++; return fmt.Sprintf("alert-%d", ids) }),
	)
	require.NoError(t, err)
	return e, store
}

func TestEmitCreatesAlertForRiskyDecision(t *testing.T) {
	e, store := newEmitter(t, domain.SeverityLow)

	alert, err := e.Emit(context.Background(), decision(1, domain.RiskUnderstock, domain.SeverityHigh))
	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.Equal(t, "alert-1", alert.ID)
	assert.Equal(t, "understock for 1", alert.Explanation)
	assert.Equal(t, now, alert.CreatedAt)
	assert.False(t, alert.Acknowledged)

	all, err := store.ListAlerts(context.Background(), domain.AlertFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestEmitSkipsNoneRisk(t *testing.T) {
	e, _ := newEmitter(t, domain.SeverityLow)
	alert, err := e.Emit(context.Background(), decision(1, domain.RiskNone, ""))
	require.NoError(t, err)
	assert.Nil(t, alert)
}

func TestEmitNeverDuplicatesOpenAlert(t *testing.T) {
	ctx := context.Background()
	e, store := newEmitter(t, domain.SeverityLow)
	d := decision(1, domain.RiskUnderstock, domain.SeverityMedium)

	first, err := e.Emit(ctx, d)
	require.NoError(t, err)
	require.NotNil(t, first)

	for i := 0; i < 3; i++ {
		again, err := e.Emit(ctx, d)
		require.NoError(t, err)
		assert.Nil(t, again)
	}

	// a different risk for the same product is a separate alert
	other, err := e.Emit(ctx, decision(1, domain.RiskOverstock, domain.SeverityMedium))
	require.NoError(t, err)
	assert.NotNil(t, other)

	require.NoError(t, e.Acknowledge(ctx, first.ID))
	renewed, err := e.Emit(ctx, d)
	require.NoError(t, err)
	assert.NotNil(t, renewed)

	all, err := store.ListAlerts(ctx, domain.AlertFilter{ProductID: 1})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

// blindAlerts never reports an open alert, so every Emit reaches CreateAlert.
type blindAlerts struct {
	*memory.Store
}

func (blindAlerts) FindOpen(context.Context, int64, domain.RiskLevel) (*domain.InventoryAlert, error) {
	return nil, nil
}

func TestEmitConcurrentCallsCreateOneAlert(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	var ids atomic.Int64
	e, err := NewEmitter(blindAlerts{store}, domain.SeverityLow,
		WithClock(func() time.Time { return now }),
		WithIDs(func() string { return fmt.Sprintf("alert-%d", ids.Add(1)) }),
	)
	require.NoError(t, err)

	d := decision(7, domain.RiskUnderstock, domain.SeverityHigh)
	var created atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			alert, err := e.Emit(ctx, d)
			assert.NoError(t, err)
			if alert != nil {
				created.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), created.Load())
	all, err := store.ListAlerts(ctx, domain.AlertFilter{ProductID: 7})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestEmitRespectsMinimumSeverity(t *testing.T) {
	e, _ := newEmitter(t, domain.SeverityMedium)

	low, err := e.Emit(context.Background(), decision(1, domain.RiskUnderstock, domain.SeverityLow))
	require.NoError(t, err)
	assert.Nil(t, low)

	high, err := e.Emit(context.Background(), decision(1, domain.RiskUnderstock, domain.SeverityHigh))
	require.NoError(t, err)
	assert.NotNil(t, high)
}

func TestEmitRejectsIncompleteDecision(t *testing.T) {
	e, _ := newEmitter(t, domain.SeverityLow)
	_, err := e.Emit(context.Background(), domain.InventoryDecision{ProductID: 1, RiskLevel: domain.RiskUnderstock})
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}

func TestNewEmitterRejectsUnknownSeverity(t *testing.T) {
	_, err := NewEmitter(memory.NewStore(), "urgent")
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}

func TestSummary(t *testing.T) {
	ctx := context.Background()
	e, _ := newEmitter(t, domain.SeverityLow)

	empty, err := e.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, "No open inventory alerts.", empty.Text)

	_, err = e.Emit(ctx, decision(1, domain.RiskUnderstock, domain.SeverityHigh))
	require.NoError(t, err)
	_, err = e.Emit(ctx, decision(2, domain.RiskUnderstock, domain.SeverityLow))
	require.NoError(t, err)
	_, err = e.Emit(ctx, decision(3, domain.RiskOverstock, domain.SeverityMedium))
	require.NoError(t, err)

	s, err := e.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 2, s.Understock)
	assert.Equal(t, 1, s.Overstock)
	assert.Equal(t, 1, s.HighRisk)
	assert.Equal(t, "3 open alerts: 2 understock, 1 overstock, 1 high severity.", s.Text)
}
