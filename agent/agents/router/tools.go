package router

import (
	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
)

const (
	ToolBillingSupport   = "billing_support"
	ToolTechnicalSupport = "technical_support"
	ToolPolicySupport    = "policy_support"
)

var routingTools = map[string]contractx.AgentType{
	ToolBillingSupport:   contractx.AgentTypeBilling,
	ToolTechnicalSupport: contractx.AgentTypeTechnical,
	ToolPolicySupport:    contractx.AgentTypePolicy,
}

func routingToolInfos() []*schema.ToolInfo {
	request := map[string]*schema.ParameterInfo{
		"request": {
			Type:     schema.String,
			Desc:     "The customer's question, passed through unchanged.",
			Required: true,
		},
	}
	return []*schema.ToolInfo{
		{
			Name:        ToolBillingSupport,
			Desc:        "Handle billing questions: pricing, invoices, payments, refunds and billing cycles.",
			ParamsOneOf: schema.NewParamsOneOfByParams(request),
		},
		{
			Name:        ToolTechnicalSupport,
			Desc:        "Handle technical questions: features, bugs, error messages, troubleshooting and how-to guides.",
			ParamsOneOf: schema.NewParamsOneOfByParams(request),
		},
		{
			Name:        ToolPolicySupport,
			Desc:        "Handle policy questions: terms of service, privacy policy, data handling and compliance.",
			ParamsOneOf: schema.NewParamsOneOfByParams(request),
		},
	}
}

// targetFor returns the specialist of the first routing tool call.
func targetFor(calls []schema.ToolCall) (contractx.AgentType, bool) {
	if len(calls) == 0 {
		return "", false
	}
	agent, ok := routingTools[calls[0].Function.Name]
	return agent, ok
}
