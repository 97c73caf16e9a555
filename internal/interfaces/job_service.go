package interfaces

import (
	"context"

	"github.com/tanglebrook/vicinity/internal/models"
)

// JobService manages the lifecycle of asynchronous search jobs.
type JobService interface {
	// CreateJob validates the request, creates a PENDING job owned by the
	// session, and starts asynchronous execution. Returns the accepted job.
	CreateJob(ctx context.Context, sessionID string, req *models.SearchRequest) (*models.SearchJob, error)

	// GetJob returns a snapshot of the job identified by jobID, but only
	// when the requesting session owns it. A missing, expired, foreign, or
	// ownerless job all produce models.ErrJobNotFound with no way to tell
	// the cases apart.
	GetJob(ctx context.Context, sessionID string, jobID string) (*models.SearchJob, error)

	// SweepExpired removes jobs past their retention TTL. Returns the number
	// of jobs removed.
	SweepExpired(ctx context.Context) int

	// Count returns the number of live jobs.
	Count() int
}

// SearchPipeline executes one search job end to end: gating, intent
// extraction, query construction, the cached provider call, and ranking.
type SearchPipeline interface {
	Execute(ctx context.Context, job *models.SearchJob, progress func(pct int, stage string)) (*models.SearchResult, error)
}
