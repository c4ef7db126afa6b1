package pipeline

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Scheduler triggers batch runs on a cron schedule with seconds precision.
type Scheduler struct {
	cron    *cron.Cron
	baseCtx context.Context
}

func NewScheduler(baseCtx context.Context) *Scheduler {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		baseCtx: baseCtx,
	}
}

func (s *Scheduler) Add(spec string, job func(context.Context)) (cron.EntryID, error) {
	return s.cron.AddFunc(spec, func() {
		job(s.baseCtx)
	})
}

// ScheduleRuns registers o.RunAll on spec.
func (s *Scheduler) ScheduleRuns(spec string, o *Orchestrator) (cron.EntryID, error) {
	return s.Add(spec, func(ctx context.Context) {
		if ctx.Err() != nil {
			return
		}
		if _, err := o.RunAll(ctx); err != nil {
			log.Error().Err(err).Msg("scheduled batch run failed")
		}
	})
}

func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

func (s *Scheduler) Start() {
	log.Info().Msg("cron started")
	s.cron.Start()
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info().Msg("cron stopped")
}
