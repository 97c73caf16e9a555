// Package jobs implements the in-memory search-job store and lifecycle.
// Records live for a bounded retention window; a cron sweep removes expired
// ones. Reads are ownership-checked and every non-disclosable miss collapses
// into the same not-found answer.
package jobs

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/tanglebrook/vicinity/internal/common"
	"github.com/tanglebrook/vicinity/internal/interfaces"
	"github.com/tanglebrook/vicinity/internal/models"
)

// Service implements the JobService interface
type Service struct {
	store        *jobStore
	logger       arbor.ILogger
	eventService interfaces.EventService
	pipeline     interfaces.SearchPipeline
	validate     *validator.Validate
	ttl          time.Duration
}

// NewService creates a new job service
func NewService(config *common.Config, pipeline interfaces.SearchPipeline, eventService interfaces.EventService, logger arbor.ILogger) interfaces.JobService {
	return &Service{
		store:        newJobStore(),
		logger:       logger,
		eventService: eventService,
		pipeline:     pipeline,
		validate:     validator.New(),
		ttl:          config.JobTTL(),
	}
}

// CreateJob validates the request, stores a PENDING job owned by the session
// and hands execution to a detached goroutine. The accepted snapshot is
// returned immediately.
func (s *Service) CreateJob(ctx context.Context, sessionID string, req *models.SearchRequest) (*models.SearchJob, error) {
	if sessionID == "" {
		return nil, models.NewClassifiedError(models.ErrorKindAuthMissing, models.ErrSessionRequired)
	}
	if req == nil {
		return nil, models.NewClassifiedError(models.ErrorKindSchemaInvalid, models.ErrInvalidRequest)
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, models.NewClassifiedError(models.ErrorKindSchemaInvalid, err)
	}

	job := models.NewSearchJob(common.NewJobID(), req, sessionID, s.ttl)
	s.store.put(job)

	// Ownership must be on record before any event can be published, so a
	// subscription racing the create resolves correctly.
	s.eventService.RegisterJob(job.ID, sessionID)
	s.publish(job.Snapshot(), "accepted", "Search accepted")

	s.logger.Info().
		Str("job_id", job.ID).
		Str("session_id", sessionID).
		Str("query", req.Query).
		Msg("Search job created")

	common.SafeGo(s.logger, "searchJob:"+job.ID, func() {
		s.run(job.ID)
	})

	return job.Snapshot(), nil
}

// GetJob returns a snapshot of the job for its owner. Unknown ids, expired
// records, ownerless legacy records and foreign sessions all return the same
// not-found error so callers cannot probe for other sessions' jobs.
func (s *Service) GetJob(ctx context.Context, sessionID string, jobID string) (*models.SearchJob, error) {
	snapshot := s.store.snapshot(jobID)
	if snapshot == nil {
		return nil, models.ErrJobNotFound
	}
	if snapshot.IsExpired(time.Now()) {
		return nil, models.ErrJobNotFound
	}
	if snapshot.OwnerSessionID == "" || sessionID == "" || sessionID != snapshot.OwnerSessionID {
		return nil, models.ErrJobNotFound
	}
	return snapshot, nil
}

// SweepExpired removes jobs past their retention TTL along with their event
// channels. Returns the number removed.
func (s *Service) SweepExpired(ctx context.Context) int {
	removed := s.store.sweep(time.Now())
	for _, jobID := range removed {
		s.eventService.DropJob(jobID)
	}
	if len(removed) > 0 {
		s.logger.Info().Int("removed", len(removed)).Msg("Swept expired search jobs")
	}
	return len(removed)
}

// Count returns the number of live jobs
func (s *Service) Count() int {
	return s.store.count()
}

// run executes the pipeline for one job and drives it to a terminal state.
// The goroutine is detached from the creating request, so it runs on its own
// context.
func (s *Service) run(jobID string) {
	ctx := context.Background()

	snapshot := s.store.mutate(jobID, func(job *models.SearchJob) {
		if err := job.MarkRunning(); err != nil {
			s.logger.Warn().Err(err).Str("job_id", jobID).Msg("Job could not start")
		}
	})
	if snapshot == nil {
		// Swept between create and start.
		return
	}
	s.publish(snapshot, "started", "Search started")

	job := s.store.get(jobID)
	if job == nil {
		return
	}

	progress := func(pct int, stage string) {
		updated := s.store.mutate(jobID, func(j *models.SearchJob) {
			j.SetProgress(pct)
		})
		if updated != nil {
			s.publish(updated, stage, "")
		}
	}

	result, err := s.pipeline.Execute(ctx, job, progress)
	if err != nil {
		kind := models.Classify(err)
		failed := s.store.mutate(jobID, func(j *models.SearchJob) {
			if markErr := j.MarkFailed(kind, err.Error()); markErr != nil {
				s.logger.Warn().Err(markErr).Str("job_id", jobID).Msg("Failed terminal transition")
			}
		})
		if failed != nil {
			s.publish(failed, "failed", err.Error())
		}
		s.logger.Warn().
			Err(err).
			Str("job_id", jobID).
			Str("error_kind", string(kind)).
			Msg("Search job failed")
		return
	}

	done := s.store.mutate(jobID, func(j *models.SearchJob) {
		if markErr := j.MarkSuccess(result); markErr != nil {
			s.logger.Warn().Err(markErr).Str("job_id", jobID).Msg("Failed terminal transition")
		}
	})
	if done != nil {
		s.publish(done, "completed", "Search completed")
	}

	s.logger.Info().
		Str("job_id", jobID).
		Int("places", len(result.Places)).
		Bool("cache_hit", result.CacheHit).
		Msg("Search job completed")
}

// publish emits a job update built from a snapshot.
func (s *Service) publish(snapshot *models.SearchJob, stage, message string) {
	s.eventService.Publish(&models.JobEvent{
		Type:           models.EventJobUpdate,
		JobID:          snapshot.ID,
		OwnerSessionID: snapshot.OwnerSessionID,
		State:          snapshot.State,
		ProgressPct:    snapshot.ProgressPct,
		Stage:          stage,
		Message:        message,
		ErrorKind:      snapshot.ErrorKind,
		Timestamp:      time.Now(),
	})
}
