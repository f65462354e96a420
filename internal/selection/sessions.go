package selection

import (
	"sync"

	"molecule/pkg/domain"
	dErrors "molecule/pkg/domain-errors"
)

// Sessions keeps one Context per session id.
type Sessions struct {
	registry Registry
	opts     []Option
	limit    int

	mu       sync.RWMutex
	contexts map[domain.SessionID]*Context
}

// DefaultSessionLimit bounds concurrently open sessions.
const DefaultSessionLimit = 10000

func NewSessions(registry Registry, limit int, opts ...Option) *Sessions {
	if limit <= 0 {
		limit = DefaultSessionLimit
	}
	return &Sessions{
		registry: registry,
		opts:     opts,
		limit:    limit,
		contexts: make(map[domain.SessionID]*Context),
	}
}

// Open starts a session with the initial selection given to NewSessions, or
// an empty one.
func (s *Sessions) Open() (*Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.contexts) >= s.limit {
		return nil, dErrors.Newf(dErrors.CodeConflict, "session limit of %d reached", s.limit)
	}
	id := domain.NewSessionID()
	c := NewContext(id, s.registry, s.opts...)
	s.contexts[id] = c
	return c, nil
}

func (s *Sessions) Get(id domain.SessionID) (*Context, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contexts[id]
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "session %s not found", id)
	}
	return c, nil
}

func (s *Sessions) Close(id domain.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contexts[id]; !ok {
		return dErrors.Newf(dErrors.CodeNotFound, "session %s not found", id)
	}
	delete(s.contexts, id)
	return nil
}

func (s *Sessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.contexts)
}
