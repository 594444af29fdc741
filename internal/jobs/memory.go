package jobs

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps jobs in process. Records older than ttl are dropped
// lazily on access.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]Job
	ttl  time.Duration
	now  func() time.Time
}

// NewMemoryStore creates an in-process store. A zero ttl keeps jobs forever.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		jobs: make(map[string]Job),
		ttl:  ttl,
		now:  time.Now,
	}
}

func (s *MemoryStore) Save(ctx context.Context, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
	s.evictLocked()
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Job, error) {
	s.mu.RLock()
	job, ok := s.jobs[id]
	s.mu.RUnlock()

	if !ok || s.expired(job) {
		return Job{}, notFound(id)
	}
	return job, nil
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) expired(job Job) bool {
	return s.ttl > 0 && job.Status.Terminal() && job.FinishedAt != nil &&
		s.now().Sub(*job.FinishedAt) > s.ttl
}

func (s *MemoryStore) evictLocked() {
	for id, job := range s.jobs {
		if s.expired(job) {
			delete(s.jobs, id)
		}
	}
}
