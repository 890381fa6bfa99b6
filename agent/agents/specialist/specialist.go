package specialist

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
	toolx "github.com/tanpawarit/Chative-Support-Router/agent/tool"
)

const (
	defaultMaxSteps = 5
	tracerName      = "github.com/tanpawarit/Chative-Support-Router/agent/agents/specialist"
)

// Apology is what a specialist answers when its own tools or model fail.
func Apology(agentType contractx.AgentType) string {
	return fmt.Sprintf("I encountered an error processing your %s question. Please try rephrasing or contact support.", string(agentType))
}

type specialistImpl struct {
	agentType    contractx.AgentType
	model        einomodel.ToolCallingChatModel
	tools        contractx.ToolGateway
	runner       compose.Runnable[string, string]
	allowedTools map[string]struct{}
	maxSteps     int
	turnTimeout  time.Duration
}

var _ contractx.Specialist = (*specialistImpl)(nil)

func newSpecialist(
	ctx context.Context,
	agentType contractx.AgentType,
	chatModel einomodel.ToolCallingChatModel,
	systemPrompt string,
	opts Options,
) (*specialistImpl, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("%w: chat model for agent=%s is nil", contractx.ErrValidation, agentType)
	}
	if opts.Tools == nil {
		return nil, fmt.Errorf("%w: tool gateway is required", contractx.ErrValidation)
	}

	infos := toolx.InfosForAgent(agentType)
	toolModel, err := chatModel.WithTools(infos)
	if err != nil {
		return nil, fmt.Errorf("%w: bind tools for specialist=%s: %v", contractx.ErrModelInvoke, agentType, err)
	}

	allowedTools := make(map[string]struct{}, len(infos))
	for _, t := range infos {
		if t == nil || strings.TrimSpace(t.Name) == "" {
			continue
		}
		allowedTools[t.Name] = struct{}{}
	}

	maxSteps := opts.MaxSteps
	if maxSteps <= 0 {
		maxSteps = defaultMaxSteps
	}

	spec := &specialistImpl{
		agentType:    agentType,
		model:        toolModel,
		tools:        opts.Tools,
		allowedTools: allowedTools,
		maxSteps:     maxSteps,
		turnTimeout:  opts.TurnTimeout,
	}

	runner, err := compileSpecialistGraph(ctx, agentType, systemPrompt, spec.runAgentLoop)
	if err != nil {
		return nil, err
	}
	spec.runner = runner
	return spec, nil
}

// Handle never returns an error for tool, model, timeout or step-budget
// failures; those become the apology reply of this specialist.
func (s *specialistImpl) Handle(ctx context.Context, query string) (contractx.Reply, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "specialist.handle")
	span.SetAttributes(attribute.String("specialist.agent", string(s.agentType)))
	defer span.End()

	if s.turnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.turnTimeout)
		defer cancel()
	}

	answer, err := s.runner.Invoke(ctx, query)
	if err != nil {
		span.RecordError(err)
		log.Error().Err(err).Str("agent", string(s.agentType)).Msg("specialist failed, answering with apology")
		return contractx.Reply{Agent: s.agentType, Text: Apology(s.agentType)}, nil
	}
	return contractx.Reply{Agent: s.agentType, Text: answer}, nil
}

func (s *specialistImpl) runAgentLoop(ctx context.Context, messages []*schema.Message) (string, error) {
	for step := 0; step < s.maxSteps; step++ {
		msg, err := s.model.Generate(ctx, messages)
		if err != nil {
			return "", fmt.Errorf("%w: specialist=%s step=%d: %v", contractx.ErrModelInvoke, s.agentType, step, err)
		}
		if msg == nil {
			return "", fmt.Errorf("%w: empty model response", contractx.ErrSchemaViolation)
		}

		if len(msg.ToolCalls) == 0 {
			content := strings.TrimSpace(msg.Content)
			if content == "" {
				return "", fmt.Errorf("%w: final answer is empty", contractx.ErrSchemaViolation)
			}
			return content, nil
		}

		messages = append(messages, msg)
		for _, call := range msg.ToolCalls {
			result := s.executeToolCall(ctx, call)
			messages = append(messages, schema.ToolMessage(result.Content(), call.ID))
		}
	}
	return "", fmt.Errorf("%w: specialist=%s after %d steps", contractx.ErrStepLimit, s.agentType, s.maxSteps)
}

// executeToolCall reports malformed or disallowed calls back to the model as
// tool errors so it can correct itself within the step budget.
func (s *specialistImpl) executeToolCall(ctx context.Context, call schema.ToolCall) contractx.ToolResult {
	req, err := toToolRequest(call)
	if err != nil {
		return contractx.ToolResult{Tool: call.Function.Name, Error: err.Error()}
	}
	if _, ok := s.allowedTools[req.Tool]; !ok {
		return contractx.ToolResult{
			Tool:  req.Tool,
			Error: fmt.Sprintf("tool=%s is not allowed for agent=%s", req.Tool, s.agentType),
		}
	}

	log.Debug().Str("agent", string(s.agentType)).Str("tool", req.Tool).Msg("executing tool call")
	return s.tools.Execute(ctx, s.agentType, req)
}

func toToolRequest(call schema.ToolCall) (contractx.ToolRequest, error) {
	tool := strings.TrimSpace(call.Function.Name)
	if tool == "" {
		return contractx.ToolRequest{}, fmt.Errorf("%w: tool call name is empty", contractx.ErrSchemaViolation)
	}

	args := map[string]any{}
	rawArgs := strings.TrimSpace(call.Function.Arguments)
	if rawArgs != "" {
		if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
			return contractx.ToolRequest{}, fmt.Errorf("%w: invalid tool args for tool=%s: %v", contractx.ErrSchemaViolation, tool, err)
		}
	}

	return contractx.ToolRequest{
		ID:   call.ID,
		Tool: tool,
		Args: args,
	}, nil
}
