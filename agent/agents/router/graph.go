package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"

	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
)

const (
	nodeValidate = "validate"
	nodeClassify = "classify"
	nodeDispatch = "dispatch"
	nodeExtract  = "extract"
)

type routeState struct {
	Query string

	// Target is empty when the supervisor answered on its own.
	Target contractx.AgentType
	Direct string
	Via    string

	Answer string
}

func (r *Router) compileRouteGraph(ctx context.Context) (compose.Runnable[string, contractx.Reply], error) {
	graph := compose.NewGraph[string, contractx.Reply]()

	if err := graph.AddLambdaNode(nodeValidate,
		compose.InvokableLambda(func(ctx context.Context, query string) (*routeState, error) {
			if strings.TrimSpace(query) == "" {
				return nil, contractx.ErrInvalidMessage
			}
			return &routeState{Query: query}, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeValidate, err)
	}

	if err := graph.AddLambdaNode(nodeClassify, compose.InvokableLambda(r.classify)); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeClassify, err)
	}
	if err := graph.AddLambdaNode(nodeDispatch, compose.InvokableLambda(r.dispatch)); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeDispatch, err)
	}

	if err := graph.AddLambdaNode(nodeExtract,
		compose.InvokableLambda(func(ctx context.Context, in *routeState) (contractx.Reply, error) {
			return extract(in), nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeExtract, err)
	}

	edges := [][2]string{
		{compose.START, nodeValidate},
		{nodeValidate, nodeClassify},
		{nodeClassify, nodeDispatch},
		{nodeDispatch, nodeExtract},
		{nodeExtract, compose.END},
	}
	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("router.route"))
	if err != nil {
		return nil, fmt.Errorf("compile router graph: %w", err)
	}
	return runner, nil
}

// extract always yields exactly one label and a non-empty answer.
func extract(in *routeState) contractx.Reply {
	if in == nil {
		return contractx.Reply{Agent: contractx.AgentTypeSupervisor, Text: FallbackAnswer}
	}
	if in.Target.IsSpecialist() {
		text := in.Answer
		if strings.TrimSpace(text) == "" {
			text = FallbackAnswer
		}
		return contractx.Reply{Agent: in.Target, Text: text}
	}
	text := in.Direct
	if strings.TrimSpace(text) == "" {
		text = FallbackAnswer
	}
	return contractx.Reply{Agent: contractx.AgentTypeSupervisor, Text: text}
}
