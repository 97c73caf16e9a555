package jobs

import (
	"sync"
	"time"

	"github.com/tanglebrook/vicinity/internal/models"
)

// jobStore is the mutex-guarded job map. Records are mutated only through
// mutate, which runs the callback under the lock and hands back a snapshot,
// so readers never observe a half-applied transition.
type jobStore struct {
	mu   sync.RWMutex
	jobs map[string]*models.SearchJob
}

func newJobStore() *jobStore {
	return &jobStore{jobs: make(map[string]*models.SearchJob)}
}

func (s *jobStore) put(job *models.SearchJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

// get returns the live record. Only the owning pipeline goroutine may hold
// this outside the lock, and only for read access to immutable fields.
func (s *jobStore) get(jobID string) *models.SearchJob {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jobs[jobID]
}

func (s *jobStore) snapshot(jobID string) *models.SearchJob {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil
	}
	return job.Snapshot()
}

func (s *jobStore) mutate(jobID string, fn func(*models.SearchJob)) *models.SearchJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil
	}
	fn(job)
	return job.Snapshot()
}

func (s *jobStore) sweep(now time.Time) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed []string
	for id, job := range s.jobs {
		if job.IsExpired(now) {
			delete(s.jobs, id)
			removed = append(removed, id)
		}
	}
	return removed
}

func (s *jobStore) count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}
