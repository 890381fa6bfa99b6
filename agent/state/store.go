package state

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	DefaultTimeout = 30 * time.Minute
	maxIDAttempts  = 8
)

// StoreOption customizes Store.
type StoreOption func(*Store)

func WithTimeout(timeout time.Duration) StoreOption {
	return func(s *Store) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithEvictionHook is called with the id of every session removed for
// inactivity, outside the store lock.
func WithEvictionHook(fn func(sessionID string)) StoreOption {
	return func(s *Store) {
		s.onEvict = fn
	}
}

func WithIDGenerator(gen func() string) StoreOption {
	return func(s *Store) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// Store owns every live session. One mutex guards the map and is only held
// for in-memory work, never across model or retrieval calls.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session

	timeout time.Duration
	now     func() time.Time
	newID   func() string
	onEvict func(sessionID string)
}

func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		sessions: make(map[string]*Session, 64),
		timeout:  DefaultTimeout,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Create allocates a fresh session and returns its id.
func (s *Store) Create(customerID string) string {
	now := s.now().UTC()

	s.mu.Lock()
	id := s.allocateIDLocked()
	s.sessions[id] = newSession(id, strings.TrimSpace(customerID), now)
	s.mu.Unlock()

	log.Info().Str("session_id", id).Msg("session created")
	return id
}

func (s *Store) allocateIDLocked() string {
	var id string
	for i := 0; i < maxIDAttempts; i++ {
		id = s.newID()
		if _, taken := s.sessions[id]; !taken {
			return id
		}
	}
	// A generator that keeps colliding is broken; fall back to a random uuid.
	for {
		id = uuid.NewString()
		if _, taken := s.sessions[id]; !taken {
			return id
		}
	}
}

// Get returns a snapshot of a live session. It is NOT a pure read: a hit
// refreshes LastActivity, and an expired entry is evicted before reporting
// a miss.
func (s *Store) Get(sessionID string) (Session, bool) {
	now := s.now().UTC()

	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		return Session{}, false
	}
	if sess.expired(now, s.timeout) {
		delete(s.sessions, sessionID)
		s.mu.Unlock()
		log.Info().Str("session_id", sessionID).Msg("session expired, removed on access")
		s.evicted(sessionID)
		return Session{}, false
	}
	sess.touch(now)
	snap := sess.snapshot()
	s.mu.Unlock()
	return snap, true
}

// GetOrCreate resumes sessionID when it is live, otherwise starts a new
// session. Two concurrent calls with the same unknown id each create their
// own session; callers must use the returned id.
func (s *Store) GetOrCreate(sessionID, customerID string) Session {
	if id := strings.TrimSpace(sessionID); id != "" {
		if sess, ok := s.Get(id); ok {
			return sess
		}
		log.Info().Str("session_id", id).Msg("session not found, creating new session")
	}

	now := s.now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.allocateIDLocked()
	sess := newSession(id, strings.TrimSpace(customerID), now)
	s.sessions[id] = sess
	log.Info().Str("session_id", id).Msg("session created")
	return sess.snapshot()
}

// Update merges p into the session in one critical section. A session that
// vanished or expired in the meantime is ignored; an expired one is evicted
// rather than revived.
func (s *Store) Update(sessionID string, p Patch) {
	now := s.now().UTC()

	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		return
	}
	if sess.expired(now, s.timeout) {
		delete(s.sessions, sessionID)
		s.mu.Unlock()
		log.Info().Str("session_id", sessionID).Msg("session expired, update dropped")
		s.evicted(sessionID)
		return
	}
	sess.apply(p)
	sess.touch(now)
	s.mu.Unlock()
}

func (s *Store) IncrementMessageCount(sessionID string) {
	s.Update(sessionID, Patch{CountMessage: true})
}

// SweepExpired drops every expired session and returns how many went.
func (s *Store) SweepExpired() int {
	now := s.now().UTC()

	s.mu.Lock()
	var removed []string
	for id, sess := range s.sessions {
		if sess.expired(now, s.timeout) {
			delete(s.sessions, id)
			removed = append(removed, id)
		}
	}
	remaining := len(s.sessions)
	s.mu.Unlock()

	if len(removed) > 0 {
		log.Info().Int("removed", len(removed)).Int("active", remaining).Msg("expired sessions cleaned up")
	}
	for _, id := range removed {
		s.evicted(id)
	}
	return len(removed)
}

func (s *Store) evicted(sessionID string) {
	if s.onEvict != nil {
		s.onEvict(sessionID)
	}
}

// Count reports stored sessions without re-validating expiry.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// StartJanitor sweeps every interval until ctx is done.
func (s *Store) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.SweepExpired()
			}
		}
	}()
}
