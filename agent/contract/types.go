package contract

import (
	"context"
	"strings"
)

type AgentType string

const (
	AgentTypeSupervisor AgentType = "supervisor"
	AgentTypeBilling    AgentType = "billing"
	AgentTypeTechnical  AgentType = "technical"
	AgentTypePolicy     AgentType = "policy"
)

// Label is the human-facing name reported as routed_to.
func (a AgentType) Label() string {
	switch a {
	case AgentTypeBilling:
		return "Billing Support"
	case AgentTypeTechnical:
		return "Technical Support"
	case AgentTypePolicy:
		return "Policy & Compliance"
	default:
		return "Supervisor"
	}
}

func (a AgentType) IsSpecialist() bool {
	return a == AgentTypeBilling || a == AgentTypeTechnical || a == AgentTypePolicy
}

// Reply is the routing decision of one turn: who answered and what they said.
type Reply struct {
	Agent AgentType `json:"agent"`
	Text  string    `json:"text"`
}

func (r Reply) RoutedTo() string {
	return r.Agent.Label()
}

type ToolRequest struct {
	ID   string         `json:"id,omitempty"`
	Tool string         `json:"tool"`
	Args map[string]any `json:"args,omitempty"`
}

type ToolResult struct {
	Tool   string `json:"tool"`
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Content is what gets fed back to the model as the tool message.
func (r ToolResult) Content() string {
	if strings.TrimSpace(r.Error) != "" {
		return r.Error
	}
	return r.Result
}

type sessionIDKey struct{}

// WithSessionID scopes ctx to a session so session-keyed caches below the
// router can find it without threading the id through model tool arguments.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey{}, sessionID)
}

func SessionIDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDKey{}).(string)
	if !ok || strings.TrimSpace(id) == "" {
		return "", false
	}
	return id, true
}
