package specialist

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
)

const (
	nodePrepare   = "prepare_messages"
	nodeAgentLoop = "agent_loop"
)

// compileSpecialistGraph wires query -> [system, user] -> agent loop -> answer.
// The system prompt is attached as a message rather than rendered through a
// template, so policy text containing braces is passed through untouched.
func compileSpecialistGraph(
	ctx context.Context,
	agentType contractx.AgentType,
	systemPrompt string,
	loop func(context.Context, []*schema.Message) (string, error),
) (compose.Runnable[string, string], error) {
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("%w: system prompt for agent=%s", contractx.ErrPromptMissing, agentType)
	}

	graph := compose.NewGraph[string, string]()

	if err := graph.AddLambdaNode(nodePrepare,
		compose.InvokableLambda(func(ctx context.Context, query string) ([]*schema.Message, error) {
			query = strings.TrimSpace(query)
			if query == "" {
				return nil, fmt.Errorf("%w: query is required", contractx.ErrValidation)
			}
			return []*schema.Message{
				schema.SystemMessage(systemPrompt),
				schema.UserMessage(query),
			}, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add specialist prepare node: %w", err)
	}

	if err := graph.AddLambdaNode(nodeAgentLoop, compose.InvokableLambda(loop)); err != nil {
		return nil, fmt.Errorf("add specialist agent loop node: %w", err)
	}

	if err := graph.AddEdge(compose.START, nodePrepare); err != nil {
		return nil, fmt.Errorf("add specialist edge start->prepare: %w", err)
	}
	if err := graph.AddEdge(nodePrepare, nodeAgentLoop); err != nil {
		return nil, fmt.Errorf("add specialist edge prepare->loop: %w", err)
	}
	if err := graph.AddEdge(nodeAgentLoop, compose.END); err != nil {
		return nil, fmt.Errorf("add specialist edge loop->end: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("specialist."+string(agentType)))
	if err != nil {
		return nil, fmt.Errorf("compile specialist graph: %w", err)
	}
	return runner, nil
}
