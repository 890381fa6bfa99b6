package state

import (
	"slices"
	"time"
)

// Session is one ongoing conversation. Values handed out by Store are
// snapshots; mutate through Store.Update.
type Session struct {
	ID         string `json:"session_id"`
	CustomerID string `json:"customer_id,omitempty"`

	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`

	MessageCount   int      `json:"message_count"`
	RoutingHistory []string `json:"routing_history"` // append-only

	// CachedContext is the memoized static context for the session.
	// nil means not fetched yet; "" is a memoized empty/failed fetch.
	CachedContext *string `json:"cached_context,omitempty"`
}

// Patch is the closed set of fields a caller may merge into a session.
type Patch struct {
	CustomerID    *string
	AppendRoute   string
	CountMessage  bool
	CachedContext *string
}

func newSession(id, customerID string, now time.Time) *Session {
	return &Session{
		ID:             id,
		CustomerID:     customerID,
		CreatedAt:      now,
		LastActivity:   now,
		RoutingHistory: []string{},
	}
}

// touch keeps LastActivity monotonic even if the clock steps backwards.
func (s *Session) touch(now time.Time) {
	if now.After(s.LastActivity) {
		s.LastActivity = now
	}
}

func (s *Session) expired(now time.Time, timeout time.Duration) bool {
	return now.Sub(s.LastActivity) > timeout
}

func (s *Session) apply(p Patch) {
	if p.CustomerID != nil {
		s.CustomerID = *p.CustomerID
	}
	if p.AppendRoute != "" {
		s.RoutingHistory = append(s.RoutingHistory, p.AppendRoute)
	}
	if p.CountMessage {
		s.MessageCount++
	}
	if p.CachedContext != nil {
		v := *p.CachedContext
		s.CachedContext = &v
	}
}

func (s *Session) snapshot() Session {
	out := *s
	out.RoutingHistory = slices.Clone(s.RoutingHistory)
	if out.RoutingHistory == nil {
		out.RoutingHistory = []string{}
	}
	if s.CachedContext != nil {
		v := *s.CachedContext
		out.CachedContext = &v
	}
	return out
}
