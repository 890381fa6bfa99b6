package contract

import "context"

// Specialist answers a single query within its domain. Implementations contain
// their own tool and model failures and report them as apology text; a non-nil
// error means the specialist could not produce a reply at all.
type Specialist interface {
	Handle(ctx context.Context, query string) (Reply, error)
}

type Registry interface {
	Billing() Specialist
	Technical() Specialist
	Policy() Specialist
}

// Router picks exactly one specialist for a query and returns its answer.
type Router interface {
	Route(ctx context.Context, query string) (Reply, error)
}

type ToolGateway interface {
	Execute(ctx context.Context, agentType AgentType, req ToolRequest) ToolResult
}
