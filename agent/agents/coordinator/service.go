package coordinator

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"

	auditx "github.com/tanpawarit/Chative-Support-Router/agent/audit"
	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
	nodex "github.com/tanpawarit/Chative-Support-Router/agent/nodes/coordinator"
	statex "github.com/tanpawarit/Chative-Support-Router/agent/state"
)

var ErrInvalidMessage = contractx.ErrInvalidMessage

// SessionStore is the part of *state.Store the coordinator drives.
type SessionStore interface {
	GetOrCreate(sessionID, customerID string) statex.Session
	Update(sessionID string, p statex.Patch)
	SweepExpired() int
	Count() int
}

type ChatRequest struct {
	Message    string `json:"message"`
	SessionID  string `json:"session_id,omitempty"`
	CustomerID string `json:"customer_id,omitempty"`
}

type ChatResponse struct {
	Response  string    `json:"response"`
	RoutedTo  string    `json:"routed_to"`
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
}

type Option func(*Coordinator)

func WithAudit(recorder auditx.Recorder) Option {
	return func(c *Coordinator) {
		if recorder != nil {
			c.audit = recorder
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

type Coordinator struct {
	sessions SessionStore
	router   contractx.Router
	audit    auditx.Recorder

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	now func() time.Time
}

func New(sessions SessionStore, router contractx.Router, opts ...Option) (*Coordinator, error) {
	if sessions == nil {
		return nil, errors.New("session store is required")
	}
	if router == nil {
		return nil, errors.New("router is required")
	}

	c := &Coordinator{
		sessions: sessions,
		router:   router,
		audit:    auditx.Noop{},
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	graphRunner, err := c.compileChatGraph(context.Background())
	if err != nil {
		return nil, err
	}
	c.graphRunner = graphRunner

	return c, nil
}

// Chat runs one customer turn end to end. The returned session id is always
// the one the turn was recorded against, which differs from req.SessionID
// when that session had expired or never existed.
func (c *Coordinator) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	out, err := c.graphRunner.Invoke(ctx, nodex.GraphInput{
		Message:    req.Message,
		SessionID:  req.SessionID,
		CustomerID: req.CustomerID,
	})
	if err != nil {
		return ChatResponse{}, err
	}

	log.Info().
		Str("session_id", out.SessionID).
		Str("routed_to", out.RoutedTo).
		Msg("chat turn completed")

	return ChatResponse{
		Response:  out.Response,
		RoutedTo:  out.RoutedTo,
		SessionID: out.SessionID,
		Timestamp: out.Timestamp,
	}, nil
}

func (c *Coordinator) SessionCount() int {
	return c.sessions.Count()
}

// SweepSessions drops expired sessions and returns how many remain.
func (c *Coordinator) SweepSessions() int {
	c.sessions.SweepExpired()
	return c.sessions.Count()
}
