package coordinatornode

import (
	"strings"
	"time"

	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
	statex "github.com/tanpawarit/Chative-Support-Router/agent/state"
)

type GraphInput struct {
	Message    string
	SessionID  string
	CustomerID string
}

type GraphOutput struct {
	Response  string
	RoutedTo  string
	SessionID string
	Timestamp time.Time
}

type GraphState struct {
	Message    string
	SessionID  string
	CustomerID string
	Now        time.Time

	Session statex.Session
	Reply   contractx.Reply
}

// ValidateRequest rejects blank messages before any session is touched.
func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	if strings.TrimSpace(in.Message) == "" {
		return nil, contractx.ErrInvalidMessage
	}

	return &GraphState{
		Message:    in.Message,
		SessionID:  strings.TrimSpace(in.SessionID),
		CustomerID: strings.TrimSpace(in.CustomerID),
		Now:        nowFn().UTC(),
	}, nil
}
