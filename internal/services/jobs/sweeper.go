package jobs

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/tanglebrook/vicinity/internal/interfaces"
)

// Sweeper runs the expiry sweep on a cron schedule. It can also carry the
// storage GC for expired place-detail records, which shares the scheduler.
type Sweeper struct {
	cron     *cron.Cron
	jobs     interfaces.JobService
	details  interfaces.DetailsStorage
	logger   arbor.ILogger
	schedule string
	running  bool
}

// NewSweeper creates a sweeper for the given cron schedule, e.g. "@every 1m".
func NewSweeper(schedule string, jobService interfaces.JobService, logger arbor.ILogger) *Sweeper {
	return &Sweeper{
		cron:     cron.New(),
		jobs:     jobService,
		logger:   logger,
		schedule: schedule,
	}
}

// WithStorageGC registers expired detail-record reclamation on the same
// schedule. Must be called before Start.
func (s *Sweeper) WithStorageGC(details interfaces.DetailsStorage) *Sweeper {
	s.details = details
	return s
}

// Start registers the sweep and begins the scheduler.
func (s *Sweeper) Start() error {
	if s.running {
		return fmt.Errorf("sweeper already running")
	}

	_, err := s.cron.AddFunc(s.schedule, func() {
		s.jobs.SweepExpired(context.Background())

		if s.details != nil {
			if _, err := s.details.DeleteExpired(context.Background()); err != nil {
				s.logger.Warn().Err(err).Msg("Detail record GC failed")
			}
		}
	})
	if err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.schedule, err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info().Str("schedule", s.schedule).Msg("Job expiry sweeper started")
	return nil
}

// Stop halts the scheduler and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	if !s.running {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.running = false
	s.logger.Info().Msg("Job expiry sweeper stopped")
}
