// Package limiter bounds how many CPU heavy jobs run at once.
package limiter

import (
	"context"
	"strings"
	"sync"
)

// Slots hands out a fixed number of in-process slots per key.
type Slots struct {
	max int
	mu  sync.Mutex
	sem map[string]chan struct{}
}

func New(maxInflight int) *Slots {
	if maxInflight <= 0 {
		maxInflight = 2
	}
	return &Slots{max: maxInflight, sem: map[string]chan struct{}{}}
}

func (s *Slots) ch(key string) chan struct{} {
	key = strings.ToLower(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.sem[key]
	if !ok {
		ch = make(chan struct{}, s.max)
		s.sem[key] = ch
	}
	return ch
}

// Allow tries to reserve a slot for key without waiting.
// Returns a release function and true if allowed; otherwise a no-op and false.
func (s *Slots) Allow(key string) (func(), bool) {
	ch := s.ch(key)
	select {
	case ch <- struct{}{}:
		return func() { <-ch }, true
	default:
		return func() {}, false
	}
}

// Acquire waits for a slot for key or until ctx is done.
func (s *Slots) Acquire(ctx context.Context, key string) (func(), error) {
	ch := s.ch(key)
	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// InUse returns the number of held slots for key.
func (s *Slots) InUse(key string) int { return len(s.ch(key)) }
