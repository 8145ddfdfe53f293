package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type entry struct {
	session *Session
	expires time.Time
}

// Registry maps browser session IDs to server-side sessions. Entries expire
// ttl after their last use.
type Registry struct {
	backend Backend
	ttl     time.Duration
	logger  *zap.Logger
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
}

func NewRegistry(backend Backend, ttl time.Duration, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		backend:  backend,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*entry),
	}
}

// Create starts an empty session and returns its ID.
func (r *Registry) Create() (string, *Session) {
	id := uuid.NewString()
	s := New(r.backend, NewMemoryTokenStore(), r.logger.With(zap.String("session", id[:8])))

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id] = &entry{session: s, expires: r.now().Add(r.ttl)}
	return id, s
}

// Get returns the live session for id and extends its lifetime.
func (r *Registry) Get(id string) (*Session, bool) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	now := r.now()
	if !now.Before(e.expires) {
		delete(r.sessions, id)
		return nil, false
	}
	e.expires = now.Add(r.ttl)
	return e.session, true
}

// Remove logs the session out and forgets it.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	e, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if ok {
		_ = e.session.Logout()
	}
}

// Sweep drops expired sessions and returns how many were removed.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	n := 0
	for id, e := range r.sessions {
		if !now.Before(e.expires) {
			delete(r.sessions, id)
			n++
		}
	}
	return n
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
