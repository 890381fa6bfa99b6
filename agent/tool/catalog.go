package tool

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
	"github.com/tanpawarit/Chative-Support-Router/agent/retrieval"
)

const (
	ToolSearchBillingInfo   = "search_billing_info"
	ToolCalculatePrice      = "calculate_price"
	ToolSearchKnowledgeBase = "search_knowledge_base"
	ToolSearchBugReports    = "search_bug_reports"
	ToolGetPolicyInfo       = "get_policy_info"
)

type Executor func(ctx context.Context, tool string, args map[string]any) (contractx.ToolResult, error)

// BillingResolver produces the combined billing context for a session.
type BillingResolver interface {
	Resolve(ctx context.Context, sessionID, query string) (string, error)
}

type Deps struct {
	Billing   BillingResolver
	Technical retrieval.Retriever
}

// Gateway executes the tool calls of every specialist. Each agent may only
// run the tools listed for it by InfosForAgent.
type Gateway struct {
	deps Deps
}

var _ contractx.ToolGateway = (*Gateway)(nil)

func NewGateway(deps Deps) *Gateway {
	return &Gateway{deps: deps}
}

func BuildForAgent(agentType contractx.AgentType, gw *Gateway) ([]*schema.ToolInfo, Executor) {
	return InfosForAgent(agentType), gw.ExecutorFor(agentType)
}

func (g *Gateway) ExecutorFor(agentType contractx.AgentType) Executor {
	return func(ctx context.Context, tool string, args map[string]any) (contractx.ToolResult, error) {
		return g.Execute(ctx, agentType, contractx.ToolRequest{Tool: tool, Args: args}), nil
	}
}

func (g *Gateway) Execute(ctx context.Context, agentType contractx.AgentType, req contractx.ToolRequest) contractx.ToolResult {
	if !allowed(agentType, req.Tool) {
		return DefaultExecutorResult(agentType, req.Tool)
	}
	if req.Args == nil {
		req.Args = map[string]any{}
	}

	var (
		result contractx.ToolResult
		err    error
	)
	switch req.Tool {
	case ToolSearchBillingInfo:
		result, err = g.searchBillingInfo(ctx, req.Args)
	case ToolCalculatePrice:
		result, err = calculatePrice(req.Args)
	case ToolSearchKnowledgeBase:
		result, err = g.searchKnowledgeBase(ctx, req.Args)
	case ToolSearchBugReports:
		result, err = g.searchBugReports(ctx, req.Args)
	case ToolGetPolicyInfo:
		result, err = getPolicyInfo(req.Args)
	default:
		return DefaultExecutorResult(agentType, req.Tool)
	}
	if err != nil {
		log.Warn().Err(err).Str("agent", string(agentType)).Str("tool", req.Tool).Msg("tool execution failed")
		return contractx.ToolResult{Tool: req.Tool, Error: err.Error()}
	}
	result.Tool = req.Tool
	return result
}

func DefaultExecutorResult(agentType contractx.AgentType, tool string) contractx.ToolResult {
	return contractx.ToolResult{
		Tool:  tool,
		Error: fmt.Sprintf("tool=%s is unavailable for agent=%s", tool, agentType),
	}
}

func allowed(agentType contractx.AgentType, tool string) bool {
	for _, info := range InfosForAgent(agentType) {
		if info.Name == tool {
			return true
		}
	}
	return false
}

func InfosForAgent(agentType contractx.AgentType) []*schema.ToolInfo {
	switch agentType {
	case contractx.AgentTypeBilling:
		return []*schema.ToolInfo{
			{
				Name: ToolSearchBillingInfo,
				Desc: "Search billing information including invoices, pricing, and policies. Combines cached billing policies with current billing data.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"query": {Type: schema.String, Desc: "The billing question or search query", Required: true},
				}),
			},
			{
				Name: ToolCalculatePrice,
				Desc: "Calculate pricing for products and services, e.g. basic_plan, pro_plan, enterprise_plan, addon_storage, addon_users.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"product":  {Type: schema.String, Desc: "Product name", Required: true},
					"quantity": {Type: schema.Integer, Desc: "Quantity to price, defaults to 1"},
				}),
			},
		}
	case contractx.AgentTypeTechnical:
		return []*schema.ToolInfo{
			{
				Name: ToolSearchKnowledgeBase,
				Desc: "Search technical documentation, bug reports, and forum discussions. Use for troubleshooting, how-to questions, and feature information.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"query": {Type: schema.String, Desc: "The technical question or search query", Required: true},
				}),
			},
			{
				Name: ToolSearchBugReports,
				Desc: "Search known bugs and their status. Use for error messages and bug-related questions.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"query": {Type: schema.String, Desc: "Error message or bug description", Required: true},
				}),
			},
		}
	case contractx.AgentTypePolicy:
		return []*schema.ToolInfo{
			{
				Name: ToolGetPolicyInfo,
				Desc: "Get information about company policies, terms, privacy, and compliance.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"question": {Type: schema.String, Desc: "The policy question", Required: true},
				}),
			},
		}
	default:
		return nil
	}
}
