package orchestrator

import (
	"sync"
	"time"

	"github.com/SP007-sun/pdfX/internal/document"
)

type sessionEntry struct {
	id       string
	name     string
	session  *document.Session
	created  time.Time
	lastUsed time.Time
}

type registry struct {
	mu    sync.Mutex
	items map[string]*sessionEntry
	now   func() time.Time
}

func newRegistry() *registry {
	return &registry{items: map[string]*sessionEntry{}, now: time.Now}
}

func (r *registry) add(e *sessionEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.created = r.now()
	e.lastUsed = e.created
	r.items[e.id] = e
}

// get returns the entry and marks it used.
func (r *registry) get(id string) (*sessionEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.items[id]
	if ok {
		e.lastUsed = r.now()
	}
	return e, ok
}

func (r *registry) remove(id string) (*sessionEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.items[id]
	if ok {
		delete(r.items, id)
	}
	return e, ok
}

// expire removes and returns entries last used before cutoff.
func (r *registry) expire(cutoff time.Time) []*sessionEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*sessionEntry
	for id, e := range r.items {
		if e.lastUsed.Before(cutoff) {
			out = append(out, e)
			delete(r.items, id)
		}
	}
	return out
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}
