package state

import "context"

// SessionContextStore memoizes static context on the session record itself,
// so the entry disappears together with the session.
type SessionContextStore struct {
	sessions *Store
}

func NewSessionContextStore(sessions *Store) *SessionContextStore {
	return &SessionContextStore{sessions: sessions}
}

func (s *SessionContextStore) Get(_ context.Context, sessionID string) (string, bool, error) {
	if sessionID == "" {
		return "", false, ErrInvalidSession
	}
	sess, ok := s.sessions.Get(sessionID)
	if !ok || sess.CachedContext == nil {
		return "", false, nil
	}
	return *sess.CachedContext, true, nil
}

// Put is a no-op when the session has already expired.
func (s *SessionContextStore) Put(_ context.Context, sessionID string, content string) error {
	if sessionID == "" {
		return ErrInvalidSession
	}
	s.sessions.Update(sessionID, Patch{CachedContext: &content})
	return nil
}
