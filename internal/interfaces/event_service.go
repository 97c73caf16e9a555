package interfaces

import (
	"github.com/tanglebrook/vicinity/internal/models"
)

// EventSink receives events for delivery to a connected client. Sinks must
// not block; slow consumers are the transport layer's problem.
type EventSink func(event *models.JobEvent)

// EventService manages job-scoped pub/sub with ownership checks.
//
// A subscription only becomes active when the subscribing session owns the
// job. Subscriptions for unknown jobs stay pending and activate when a
// matching job registers; pending subscriptions that never match are dropped
// silently so subscribers cannot probe for foreign job IDs.
type EventService interface {
	// RegisterJob records a job's ownership so subscriptions can be matched.
	// Activates any pending subscriptions from the owning session.
	RegisterJob(jobID, ownerSessionID string)

	// Publish delivers an event to all active subscribers of the job and
	// appends it to the job's backlog for late subscribers. Events for
	// unregistered jobs are dropped.
	Publish(event *models.JobEvent)

	// Subscribe registers interest in a job's events on behalf of a session.
	// If the job is known and owned by the session the subscription is active
	// immediately and the job's backlog is replayed in order through sink.
	Subscribe(clientID, sessionID, jobID string, sink EventSink)

	// Unsubscribe removes a single job subscription for a client.
	Unsubscribe(clientID, jobID string)

	// UnsubscribeAll removes every subscription held by a client. Called on
	// connection close.
	UnsubscribeAll(clientID string)

	// DropJob forgets a job's ownership record and backlog. Called when the
	// job record itself is swept.
	DropJob(jobID string)
}
