package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStatus is an in-process StatusStore used when no Redis is configured.
type MemoryStatus struct {
	mu   sync.RWMutex
	ttl  time.Duration
	now  func() time.Time
	jobs map[string]memoryEntry
}

type memoryEntry struct {
	st      Status
	expires time.Time
}

// NewMemoryStatus returns a store whose records expire ttl after their last
// update. A zero ttl keeps records forever.
func NewMemoryStatus(ttl time.Duration) *MemoryStatus {
	return &MemoryStatus{ttl: ttl, now: time.Now, jobs: map[string]memoryEntry{}}
}

func (s *MemoryStatus) Set(_ context.Context, jobID string, st Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := memoryEntry{st: st}
	if s.ttl > 0 {
		e.expires = s.now().Add(s.ttl)
	}
	s.jobs[jobID] = e
	s.sweep()
	return nil
}

func (s *MemoryStatus) Get(_ context.Context, jobID string) (Status, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.jobs[jobID]
	if !ok || s.expired(e) {
		return Status{}, false, nil
	}
	return e.st, true, nil
}

func (s *MemoryStatus) Close() error { return nil }

func (s *MemoryStatus) expired(e memoryEntry) bool {
	return !e.expires.IsZero() && s.now().After(e.expires)
}

// sweep drops expired records; caller holds the write lock.
func (s *MemoryStatus) sweep() {
	for id, e := range s.jobs {
		if s.expired(e) {
			delete(s.jobs, id)
		}
	}
}
