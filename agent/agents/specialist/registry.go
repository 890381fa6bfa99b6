package specialist

import (
	"context"
	"fmt"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"

	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
	llmx "github.com/tanpawarit/Chative-Support-Router/agent/llm"
	promptx "github.com/tanpawarit/Chative-Support-Router/agent/prompt"
)

type Options struct {
	Tools         contractx.ToolGateway
	PolicyContext string
	MaxSteps      int
	TurnTimeout   time.Duration
}

// Models holds one tool-calling model per specialist.
type Models struct {
	Billing   einomodel.ToolCallingChatModel
	Technical einomodel.ToolCallingChatModel
	Policy    einomodel.ToolCallingChatModel
}

type registryImpl struct {
	billing   contractx.Specialist
	technical contractx.Specialist
	policy    contractx.Specialist
}

func (r *registryImpl) Billing() contractx.Specialist {
	return r.billing
}

func (r *registryImpl) Technical() contractx.Specialist {
	return r.technical
}

func (r *registryImpl) Policy() contractx.Specialist {
	return r.policy
}

// NewRegistry creates the per-specialist models from cfg and builds the
// registry around them.
func NewRegistry(ctx context.Context, cfg llmx.Config, opts Options) (contractx.Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var models Models
	for _, target := range []struct {
		agent contractx.AgentType
		dst   *einomodel.ToolCallingChatModel
	}{
		{contractx.AgentTypeBilling, &models.Billing},
		{contractx.AgentTypeTechnical, &models.Technical},
		{contractx.AgentTypePolicy, &models.Policy},
	} {
		modelCfg := cfg.OpenRouterFor(target.agent)
		m, err := modelCfg.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: create %s model: %v", contractx.ErrModelInvoke, target.agent, err)
		}
		*target.dst = m
	}

	if opts.MaxSteps <= 0 {
		opts.MaxSteps = cfg.Steps()
	}
	if opts.TurnTimeout <= 0 {
		opts.TurnTimeout = cfg.TurnTimeout
	}
	return Build(ctx, models, opts)
}

func Build(ctx context.Context, models Models, opts Options) (contractx.Registry, error) {
	prompts := promptx.LoadPromptSet()

	billing, err := newSpecialist(ctx, contractx.AgentTypeBilling, models.Billing, prompts.Billing, opts)
	if err != nil {
		return nil, err
	}
	technical, err := newSpecialist(ctx, contractx.AgentTypeTechnical, models.Technical, prompts.Technical, opts)
	if err != nil {
		return nil, err
	}
	policy, err := newSpecialist(ctx, contractx.AgentTypePolicy, models.Policy, prompts.PolicyWith(opts.PolicyContext), opts)
	if err != nil {
		return nil, err
	}

	return &registryImpl{
		billing:   billing,
		technical: technical,
		policy:    policy,
	}, nil
}
