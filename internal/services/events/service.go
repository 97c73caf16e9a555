// Package events implements job-scoped pub/sub with ownership checks.
// Subscriptions racing ahead of job creation are held pending and activated
// once the job registers; non-owners are dropped without any signal that the
// job exists.
package events

import (
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/tanglebrook/vicinity/internal/interfaces"
	"github.com/tanglebrook/vicinity/internal/models"
)

// Service implements the EventService interface
type Service struct {
	mu      sync.Mutex
	logger  arbor.ILogger
	jobs    map[string]*jobChannel
	pending map[string][]pendingSub
	seq     uint64
}

// jobChannel tracks one job's ownership, subscribers and event backlog.
type jobChannel struct {
	ownerSessionID string
	backlog        []*models.JobEvent
	subs           map[string]interfaces.EventSink
}

// pendingSub is a subscription waiting for its job to register.
type pendingSub struct {
	clientID  string
	sessionID string
	sink      interfaces.EventSink
}

// NewService creates a new event service
func NewService(logger arbor.ILogger) interfaces.EventService {
	return &Service{
		logger:  logger,
		jobs:    make(map[string]*jobChannel),
		pending: make(map[string][]pendingSub),
	}
}

// RegisterJob records a job's ownership and activates matching pending
// subscriptions. Pending subscriptions from other sessions are dropped
// silently.
func (s *Service) RegisterJob(jobID, ownerSessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	channel, exists := s.jobs[jobID]
	if !exists {
		channel = &jobChannel{
			ownerSessionID: ownerSessionID,
			subs:           make(map[string]interfaces.EventSink),
		}
		s.jobs[jobID] = channel
	}

	waiting := s.pending[jobID]
	delete(s.pending, jobID)

	activated := 0
	for _, sub := range waiting {
		if ownerSessionID != "" && sub.sessionID == ownerSessionID {
			channel.subs[sub.clientID] = sub.sink
			activated++
		}
	}

	if len(waiting) > 0 {
		s.logger.Debug().
			Str("job_id", jobID).
			Int("pending", len(waiting)).
			Int("activated", activated).
			Msg("Resolved pending subscriptions")
	}
}

// Publish delivers an event to the job's active subscribers in emission
// order and appends it to the backlog for late subscribers. Events for
// unregistered jobs are dropped.
func (s *Service) Publish(event *models.JobEvent) {
	if event == nil || event.JobID == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	channel, exists := s.jobs[event.JobID]
	if !exists {
		s.logger.Debug().Str("job_id", event.JobID).Msg("Dropping event for unregistered job")
		return
	}

	s.seq++
	event.Sequence = s.seq
	channel.backlog = append(channel.backlog, event)

	// Sinks are contractually non-blocking; delivering under the lock is
	// what preserves per-subscriber emission order.
	for _, sink := range channel.subs {
		sink(event)
	}
}

// Subscribe registers interest in a job's events. Known jobs activate
// immediately when the session owns them, replaying the backlog in order.
// Unknown jobs hold the subscription pending. A session that does not own
// the job gets no signal either way.
func (s *Service) Subscribe(clientID, sessionID, jobID string, sink interfaces.EventSink) {
	if sink == nil || jobID == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	channel, exists := s.jobs[jobID]
	if !exists {
		s.pending[jobID] = append(s.pending[jobID], pendingSub{
			clientID:  clientID,
			sessionID: sessionID,
			sink:      sink,
		})
		s.logger.Debug().Str("job_id", jobID).Str("client_id", clientID).Msg("Subscription held pending")
		return
	}

	if channel.ownerSessionID == "" || sessionID != channel.ownerSessionID {
		s.logger.Debug().Str("job_id", jobID).Str("client_id", clientID).Msg("Subscription dropped, ownership mismatch")
		return
	}

	channel.subs[clientID] = sink

	// Replay everything emitted before this subscriber attached.
	for _, event := range channel.backlog {
		sink(event)
	}
}

// Unsubscribe removes a single job subscription for a client
func (s *Service) Unsubscribe(clientID, jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if channel, exists := s.jobs[jobID]; exists {
		delete(channel.subs, clientID)
	}
	s.removePending(clientID, jobID)
}

// UnsubscribeAll removes every subscription held by a client
func (s *Service) UnsubscribeAll(clientID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, channel := range s.jobs {
		delete(channel.subs, clientID)
	}
	for jobID := range s.pending {
		s.removePending(clientID, jobID)
	}
}

// DropJob forgets a job's ownership record, backlog and subscriptions
func (s *Service) DropJob(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.jobs, jobID)
	delete(s.pending, jobID)
}

// removePending deletes a client's pending entries for a job. Caller holds
// the lock.
func (s *Service) removePending(clientID, jobID string) {
	waiting := s.pending[jobID]
	if len(waiting) == 0 {
		return
	}

	kept := waiting[:0]
	for _, sub := range waiting {
		if sub.clientID != clientID {
			kept = append(kept, sub)
		}
	}

	if len(kept) == 0 {
		delete(s.pending, jobID)
	} else {
		s.pending[jobID] = kept
	}
}
