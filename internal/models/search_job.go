// -----------------------------------------------------------------------
// Search Job - Asynchronous search request lifecycle
// -----------------------------------------------------------------------

package models

import (
	"fmt"
	"time"
)

// JobState represents the lifecycle state of a search job.
// Transitions are monotonic: PENDING -> RUNNING -> {DONE_SUCCESS | DONE_FAILED}.
type JobState string

const (
	JobStatePending JobState = "PENDING"
	JobStateRunning JobState = "RUNNING"
	JobStateSuccess JobState = "DONE_SUCCESS"
	JobStateFailed  JobState = "DONE_FAILED"
)

// rank orders states for monotonicity checks. Terminal states share the top
// rank so neither can replace the other.
func (s JobState) rank() int {
	switch s {
	case JobStatePending:
		return 0
	case JobStateRunning:
		return 1
	case JobStateSuccess, JobStateFailed:
		return 2
	default:
		return -1
	}
}

// IsTerminal returns true for the two DONE states.
func (s JobState) IsTerminal() bool {
	return s == JobStateSuccess || s == JobStateFailed
}

// SearchJob tracks one search request from acceptance to a terminal state.
// The record is mutated only by the pipeline execution that owns it; the job
// store guards map-level add/remove/sweep.
type SearchJob struct {
	ID             string         `json:"id"`
	OwnerSessionID string         `json:"owner_session_id"`
	Request        *SearchRequest `json:"request"`
	State          JobState       `json:"state"`
	ProgressPct    int            `json:"progress_pct"`
	CreatedAt      time.Time      `json:"created_at"`
	ExpiresAt      time.Time      `json:"expires_at"`
	StartedAt      *time.Time     `json:"started_at,omitempty"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
	Result         *SearchResult  `json:"result,omitempty"`
	ErrorKind      ErrorKind      `json:"error_kind,omitempty"`
	ErrorMessage   string         `json:"error_message,omitempty"`
}

// NewSearchJob creates a PENDING job bound to the owner's session.
func NewSearchJob(id string, req *SearchRequest, ownerSessionID string, ttl time.Duration) *SearchJob {
	now := time.Now()
	return &SearchJob{
		ID:             id,
		OwnerSessionID: ownerSessionID,
		Request:        req,
		State:          JobStatePending,
		ProgressPct:    0,
		CreatedAt:      now,
		ExpiresAt:      now.Add(ttl),
	}
}

// transition enforces the monotonic state machine. A terminal job never
// re-enters an earlier state and never switches to the other terminal state.
func (j *SearchJob) transition(to JobState) error {
	if to.rank() <= j.State.rank() {
		return fmt.Errorf("invalid job state transition %s -> %s", j.State, to)
	}
	j.State = to
	return nil
}

// MarkRunning moves the job to RUNNING.
func (j *SearchJob) MarkRunning() error {
	if err := j.transition(JobStateRunning); err != nil {
		return err
	}
	now := time.Now()
	j.StartedAt = &now
	return nil
}

// MarkSuccess moves the job to DONE_SUCCESS and attaches the result.
// Result is set if and only if the job succeeds.
func (j *SearchJob) MarkSuccess(result *SearchResult) error {
	if result == nil {
		return fmt.Errorf("success requires a result")
	}
	if err := j.transition(JobStateSuccess); err != nil {
		return err
	}
	now := time.Now()
	j.CompletedAt = &now
	j.Result = result
	j.ProgressPct = 100
	return nil
}

// MarkFailed moves the job to DONE_FAILED with a classified error.
// Error is set if and only if the job fails.
func (j *SearchJob) MarkFailed(kind ErrorKind, message string) error {
	if err := j.transition(JobStateFailed); err != nil {
		return err
	}
	now := time.Now()
	j.CompletedAt = &now
	j.ErrorKind = kind
	j.ErrorMessage = message
	return nil
}

// SetProgress clamps and records pipeline progress. Terminal jobs keep their
// final percentage.
func (j *SearchJob) SetProgress(pct int) {
	if j.State.IsTerminal() {
		return
	}
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	j.ProgressPct = pct
}

// IsExpired reports whether the record is past its TTL.
func (j *SearchJob) IsExpired(now time.Time) bool {
	return now.After(j.ExpiresAt)
}

// Snapshot returns a shallow copy safe to hand to readers while the owning
// pipeline keeps mutating the original.
func (j *SearchJob) Snapshot() *SearchJob {
	copied := *j
	return &copied
}
