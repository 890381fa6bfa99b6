package router

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
	llmx "github.com/tanpawarit/Chative-Support-Router/agent/llm"
	promptx "github.com/tanpawarit/Chative-Support-Router/agent/prompt"
)

// FallbackAnswer is returned when no agent produced a usable answer.
const FallbackAnswer = "I apologize, but I couldn't process your request."

const (
	tracerName = "github.com/tanpawarit/Chative-Support-Router/agent/agents/router"

	viaModel    = "model"
	viaKeywords = "keywords"
	viaNone     = "none"
)

type Router struct {
	model        einomodel.ToolCallingChatModel
	registry     contractx.Registry
	systemPrompt string

	runner compose.Runnable[string, contractx.Reply]
}

var _ contractx.Router = (*Router)(nil)

// New binds the routing tools to chatModel and compiles the route graph.
func New(ctx context.Context, chatModel einomodel.ToolCallingChatModel, registry contractx.Registry) (*Router, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("%w: supervisor model is required", contractx.ErrValidation)
	}
	if registry == nil {
		return nil, fmt.Errorf("%w: specialist registry is required", contractx.ErrValidation)
	}

	prompt := promptx.LoadPromptSet().Supervisor
	if prompt == "" {
		return nil, fmt.Errorf("%w: supervisor prompt", contractx.ErrPromptMissing)
	}

	toolModel, err := chatModel.WithTools(routingToolInfos())
	if err != nil {
		return nil, fmt.Errorf("%w: bind routing tools: %v", contractx.ErrModelInvoke, err)
	}

	r := &Router{
		model:        toolModel,
		registry:     registry,
		systemPrompt: prompt,
	}
	runner, err := r.compileRouteGraph(ctx)
	if err != nil {
		return nil, err
	}
	r.runner = runner
	return r, nil
}

// NewFromConfig creates the supervisor model from cfg.
func NewFromConfig(ctx context.Context, cfg llmx.Config, registry contractx.Registry) (*Router, error) {
	modelCfg := cfg.OpenRouterFor(contractx.AgentTypeSupervisor)
	chatModel, err := modelCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create supervisor model: %v", contractx.ErrModelInvoke, err)
	}
	return New(ctx, chatModel, registry)
}

// Route sends query to exactly one specialist, or lets the supervisor answer
// directly. Only an empty query is reported as an error.
func (r *Router) Route(ctx context.Context, query string) (contractx.Reply, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "router.route")
	defer span.End()

	reply, err := r.runner.Invoke(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return contractx.Reply{}, err
	}
	span.SetAttributes(attribute.String("router.routed_to", reply.RoutedTo()))
	return reply, nil
}

func (r *Router) classify(ctx context.Context, in *routeState) (*routeState, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "router.classify")
	defer span.End()

	msg, err := r.model.Generate(ctx, []*schema.Message{
		schema.SystemMessage(r.systemPrompt),
		schema.UserMessage(in.Query),
	})
	switch {
	case err != nil:
		span.RecordError(err)
		log.Warn().Err(err).Msg("supervisor model failed, classifying by keywords")
	case msg == nil:
		log.Warn().Msg("supervisor model returned nothing, classifying by keywords")
	default:
		if target, ok := targetFor(msg.ToolCalls); ok {
			in.Target, in.Via = target, viaModel
			span.SetAttributes(attribute.String("router.target", string(target)), attribute.String("router.via", in.Via))
			return in, nil
		}
		if len(msg.ToolCalls) > 0 {
			log.Warn().Str("tool", msg.ToolCalls[0].Function.Name).Msg("supervisor called unknown routing tool")
		} else if strings.TrimSpace(msg.Content) != "" {
			in.Direct, in.Via = msg.Content, viaModel
			span.SetAttributes(attribute.String("router.target", string(contractx.AgentTypeSupervisor)), attribute.String("router.via", in.Via))
			return in, nil
		}
	}

	if target, ok := ClassifyKeywords(in.Query); ok {
		in.Target, in.Via = target, viaKeywords
	} else {
		in.Via = viaNone
	}
	span.SetAttributes(attribute.String("router.target", string(in.Target)), attribute.String("router.via", in.Via))
	return in, nil
}

func (r *Router) dispatch(ctx context.Context, in *routeState) (*routeState, error) {
	if !in.Target.IsSpecialist() {
		return in, nil
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "router.dispatch")
	span.SetAttributes(attribute.String("router.target", string(in.Target)))
	defer span.End()

	specialist := r.specialistFor(in.Target)
	if specialist == nil {
		log.Error().Str("agent", string(in.Target)).Msg("no specialist registered")
		in.Answer = FallbackAnswer
		return in, nil
	}

	reply, err := specialist.Handle(ctx, in.Query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error().Err(err).Str("agent", string(in.Target)).Msg("specialist failed, using fallback answer")
		in.Answer = FallbackAnswer
		return in, nil
	}
	in.Answer = reply.Text
	return in, nil
}

func (r *Router) specialistFor(agent contractx.AgentType) contractx.Specialist {
	switch agent {
	case contractx.AgentTypeBilling:
		return r.registry.Billing()
	case contractx.AgentTypeTechnical:
		return r.registry.Technical()
	case contractx.AgentTypePolicy:
		return r.registry.Policy()
	default:
		return nil
	}
}
