package models

import "time"

// EventType identifies the kind of message pushed to subscribers.
type EventType string

const (
	// EventJobUpdate carries job lifecycle and progress changes.
	EventJobUpdate EventType = "job_update"
	// EventHeartbeat is a connection liveness signal. It carries no job
	// payload and is never stored in a job's backlog.
	EventHeartbeat EventType = "heartbeat"
	// EventSubscribed acknowledges a subscription request.
	EventSubscribed EventType = "subscribed"
)

// JobEvent is a single notification about a job's progress or terminal state.
type JobEvent struct {
	Type           EventType `json:"type"`
	JobID          string    `json:"job_id,omitempty"`
	OwnerSessionID string    `json:"-"`
	State          JobState  `json:"state,omitempty"`
	ProgressPct    int       `json:"progress_pct,omitempty"`
	Stage          string    `json:"stage,omitempty"`
	Message        string    `json:"message,omitempty"`
	ErrorKind      ErrorKind `json:"error_kind,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	Sequence       uint64    `json:"sequence,omitempty"`
}

// Terminal reports whether this event announces a finished job.
func (e *JobEvent) Terminal() bool {
	return e.Type == EventJobUpdate && e.State.IsTerminal()
}
