package coordinator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	nodex "github.com/tanpawarit/Chative-Support-Router/agent/nodes/coordinator"
)

func (c *Coordinator) compileChatGraph(
	ctx context.Context,
) (compose.Runnable[nodex.GraphInput, nodex.GraphOutput], error) {
	graph := compose.NewGraph[nodex.GraphInput, nodex.GraphOutput]()

	if err := graph.AddLambdaNode("validate_request",
		compose.InvokableLambda(func(ctx context.Context, in nodex.GraphInput) (*nodex.GraphState, error) {
			return nodex.ValidateRequest(in, c.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_request: %w", err)
	}

	if err := graph.AddLambdaNode("resolve_session",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ResolveSession(in, c.sessions)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node resolve_session: %w", err)
	}

	if err := graph.AddLambdaNode("route_query",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.RouteQuery(ctx, in, c.router)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node route_query: %w", err)
	}

	if err := graph.AddLambdaNode("record_turn",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.RecordTurn(in, c.sessions)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node record_turn: %w", err)
	}

	if err := graph.AddLambdaNode("write_audit",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.WriteAudit(ctx, in, c.audit)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node write_audit: %w", err)
	}

	if err := graph.AddLambdaNode("finalize_reply",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.FinalizeReply(in, c.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize_reply: %w", err)
	}

	edges := [][2]string{
		{compose.START, "validate_request"},
		{"validate_request", "resolve_session"},
		{"resolve_session", "route_query"},
		{"route_query", "record_turn"},
		{"record_turn", "write_audit"},
		{"write_audit", "finalize_reply"},
		{"finalize_reply", compose.END},
	}

	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("coordinator.chat"))
	if err != nil {
		return nil, fmt.Errorf("compile coordinator graph: %w", err)
	}
	return runner, nil
}
