package session

import (
	"context"
	"sync"
	"time"

	"rezscan/internal/errors"

	"github.com/google/uuid"
)

// Store keeps controllers by session id
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Controller
	factory  func() *Controller
	ttl      time.Duration
}

// NewStore creates a store whose sessions are built by factory.
// A ttl of zero keeps sessions until they are deleted.
func NewStore(factory func() *Controller, ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*Controller),
		factory:  factory,
		ttl:      ttl,
	}
}

// Create starts a new idle session and returns its id
func (s *Store) Create() (string, *Controller) {
	id := uuid.NewString()
	c := s.factory()

	s.mu.Lock()
	s.sessions[id] = c
	s.mu.Unlock()
	return id, c
}

// Get looks a session up by id
func (s *Store) Get(id string) (*Controller, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeSessionNotFound, "Session not found", err).
			WithContext("session_id", id)
	}

	s.mu.RLock()
	c, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, errors.NewValidationError(errors.ErrCodeSessionNotFound, "Session not found", nil).
			WithContext("session_id", id)
	}
	return c, nil
}

// Delete removes a session. It reports whether the session existed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

// Len returns the number of live sessions
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep drops sessions idle since before now-ttl. Sessions with a submission
// in flight are kept.
func (s *Store) Sweep(now time.Time) int {
	if s.ttl <= 0 {
		return 0
	}
	cutoff := now.Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, c := range s.sessions {
		if c.State() == StateSubmitting {
			continue
		}
		if c.LastUpdated().Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// RunJanitor sweeps expired sessions every interval until ctx is done
func (s *Store) RunJanitor(ctx context.Context, interval time.Duration, logger *errors.Logger) {
	if s.ttl <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := s.Sweep(now); n > 0 && logger != nil {
				logger.Debug("Expired idle sessions", "removed", n, "remaining", s.Len())
			}
		}
	}
}
