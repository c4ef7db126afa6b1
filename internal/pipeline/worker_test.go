package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/andresuchdata/restock-advisor/internal/domain"
	"github.com/andresuchdata/restock-advisor/internal/evaluation"
	"github.com/andresuchdata/restock-advisor/internal/repository/memory"
	"github.com/andresuchdata/restock-advisor/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProcessor struct {
	mu       sync.Mutex
	ids      []int64
	outcomes map[int64]error
	risks    map[int64]domain.RiskLevel
	decided  []int64
	trained  []int64
	global   int
	cancel   context.CancelFunc
}

func (f *fakeProcessor) Decide(ctx context.Context, productID int64) (*service.DecisionResult, error) {
	f.mu.Lock()
	f.decided = append(f.decided, productID)
	if f.cancel != nil {
		f.cancel()
	}
	f.mu.Unlock()

	if err := f.outcomes[productID]; err != nil {
		return nil, err
	}
	risk := f.risks[productID]
	if risk == "" {
		risk = domain.RiskNone
	}
	res := &service.DecisionResult{Decision: domain.InventoryDecision{ProductID: productID, RiskLevel: risk}}
	if risk != domain.RiskNone {
		res.Alert = &domain.InventoryAlert{ProductID: productID, RiskLevel: risk}
	}
	return res, nil
}

func (f *fakeProcessor) Train(_ context.Context, productID int64) (*evaluation.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trained = append(f.trained, productID)
	return nil, domain.ErrInsufficientHistory
}

func (f *fakeProcessor) TrainGlobal(context.Context) (*evaluation.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.global++
	return &evaluation.Result{}, nil
}

func (f *fakeProcessor) ProductIDs(context.Context) ([]int64, error) {
	return f.ids, nil
}

func fixedClock() time.Time {
	return time.Date(2024, 3, 1, 2, 0, 0, 0, time.UTC)
}

func TestRunnerRecordsJobOutcomes(t *testing.T) {
	store := memory.NewStore()
	proc := &fakeProcessor{
		outcomes: map[int64]error{
			2: domain.ErrInsufficientHistory,
			3: fmt.Errorf("load model: %w", domain.ErrModelNotAvailable),
			4: errors.New("database exploded"),
		},
		risks: map[int64]domain.RiskLevel{1: domain.RiskUnderstock, 5: domain.RiskOverstock},
	}
	runner := NewRunner(proc, store, RunnerConfig{WorkerCount: 3}).WithClock(fixedClock)

	run, err := runner.Run(context.Background(), []int64{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)

	assert.Equal(t, domain.RunCompleted, run.Status)
	assert.Equal(t, 6, run.TotalProducts)
	assert.Equal(t, 3, run.Completed)
	assert.Equal(t, 2, run.Skipped)
	assert.Equal(t, 1, run.Failed)
	assert.Equal(t, 2, run.AlertsEmitted)
	require.NotNil(t, run.CompletedAt)

	stored, err := store.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.Completed, stored.Completed)

	jobs, err := store.ListJobs(context.Background(), run.ID)
	require.NoError(t, err)
	require.Len(t, jobs, 6)

	byProduct := make(map[int64]domain.ProductJob)
	for _, j := range jobs {
		byProduct[j.ProductID] = j
	}
	assert.Equal(t, domain.JobCompleted, byProduct[1].Status)
	assert.Equal(t, string(domain.RiskUnderstock), byProduct[1].RiskLevel)
	assert.Equal(t, domain.JobSkipped, byProduct[2].Status)
	assert.Equal(t, domain.JobSkipped, byProduct[3].Status)
	assert.Equal(t, domain.JobFailed, byProduct[4].Status)
	assert.Contains(t, byProduct[4].ErrorMessage, "database exploded")
	assert.Equal(t, string(domain.RiskNone), byProduct[6].RiskLevel)
	assert.ElementsMatch(t, []int64{1, 2, 3, 4, 5, 6}, proc.decided)
}

func TestRunnerEmptyBatch(t *testing.T) {
	store := memory.NewStore()
	runner := NewRunner(&fakeProcessor{}, store, DefaultRunnerConfig())

	run, err := runner.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, domain.RunCompleted, run.Status)
	assert.Zero(t, run.TotalProducts)
}

func TestRunnerCancelledBeforeStart(t *testing.T) {
	store := memory.NewStore()
	proc := &fakeProcessor{}
	runner := NewRunner(proc, store, RunnerConfig{WorkerCount: 2})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// CreateRun on the memory store ignores ctx, so the run is recorded and
	// marked failed.
	run, err := runner.Run(ctx, []int64{1, 2, 3})
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, run)
	assert.Equal(t, domain.RunFailed, run.Status)
	assert.Zero(t, run.Completed)
	assert.Equal(t, 3, run.Failed)
	assert.Empty(t, proc.decided)

	stored, gerr := store.GetRun(context.Background(), run.ID)
	require.NoError(t, gerr)
	assert.Equal(t, domain.RunFailed, stored.Status)
	assert.Equal(t, 3, stored.Failed)

	jobs, jerr := store.ListJobs(context.Background(), run.ID)
	require.NoError(t, jerr)
	require.Len(t, jobs, 3)
	for _, j := range jobs {
		assert.Equal(t, domain.JobFailed, j.Status)
		assert.Contains(t, j.ErrorMessage, "cancelled")
		assert.NotNil(t, j.ProcessedAt)
	}
}

func TestRunnerCancelledMidRunKeepsPersistedDecision(t *testing.T) {
	store := memory.NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	proc := &fakeProcessor{cancel: cancel}
	runner := NewRunner(proc, store, RunnerConfig{WorkerCount: 1})

	run, err := runner.Run(ctx, []int64{1, 2, 3})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, domain.RunFailed, run.Status)
	assert.Equal(t, []int64{1}, proc.decided)
	assert.Equal(t, 1, run.Completed)
	assert.Equal(t, 2, run.Failed)
	assert.Equal(t, run.TotalProducts, run.Completed+run.Skipped+run.Failed)

	jobs, err := store.ListJobs(context.Background(), run.ID)
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	for _, j := range jobs {
		if j.ProductID == 1 {
			assert.Equal(t, domain.JobCompleted, j.Status)
			continue
		}
		assert.Equal(t, domain.JobFailed, j.Status)
		assert.Contains(t, j.ErrorMessage, "cancel")
	}
}

func TestRunnerRetrainsBeforeDeciding(t *testing.T) {
	store := memory.NewStore()
	proc := &fakeProcessor{}
	runner := NewRunner(proc, store, RunnerConfig{WorkerCount: 2, Retrain: true})

	run, err := runner.Run(context.Background(), []int64{7, 8})
	require.NoError(t, err)
	assert.Equal(t, 2, run.Completed)
	assert.ElementsMatch(t, []int64{7, 8}, proc.trained)
}

func TestOrchestratorRunAll(t *testing.T) {
	store := memory.NewStore()
	proc := &fakeProcessor{ids: []int64{1, 2}}
	cfg := RunnerConfig{WorkerCount: 2, Retrain: true}
	orch := NewOrchestrator(proc, NewRunner(proc, store, cfg), cfg)

	run, err := orch.RunAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, run.TotalProducts)
	assert.Equal(t, 1, proc.global)
}

func TestSchedulerRegistersRuns(t *testing.T) {
	store := memory.NewStore()
	proc := &fakeProcessor{}
	orch := NewOrchestrator(proc, NewRunner(proc, store, DefaultRunnerConfig()), DefaultRunnerConfig())

	s := NewScheduler(context.Background())
	_, err := s.ScheduleRuns("0 0 2 * * *", orch)
	require.NoError(t, err)
	assert.Len(t, s.Entries(), 1)

	_, err = s.ScheduleRuns("not a cron spec", orch)
	assert.Error(t, err)

	s.Start()
	s.Stop()
}
