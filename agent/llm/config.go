package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
	openrouterx "github.com/tanpawarit/Chative-Support-Router/pkg/openrouter"
)

type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" default:"openai/gpt-4o-mini"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	// MaxSteps bounds model calls per specialist turn.
	MaxSteps    int           `envconfig:"MAX_STEPS" split_words:"true" default:"5"`
	TurnTimeout time.Duration `envconfig:"TURN_TIMEOUT" split_words:"true" default:"90s"`

	SupervisorModel string `envconfig:"SUPERVISOR_MODEL" split_words:"true"`
	BillingModel    string `envconfig:"BILLING_MODEL" split_words:"true" default:"openai/gpt-4o"`
	TechnicalModel  string `envconfig:"TECHNICAL_MODEL" split_words:"true" default:"openai/gpt-4o"`
	PolicyModel     string `envconfig:"POLICY_MODEL" split_words:"true"`

	SupervisorTemperature float32 `envconfig:"SUPERVISOR_TEMPERATURE" split_words:"true" default:"0"`
	BillingTemperature    float32 `envconfig:"BILLING_TEMPERATURE" split_words:"true" default:"0.1"`
	TechnicalTemperature  float32 `envconfig:"TECHNICAL_TEMPERATURE" split_words:"true" default:"0.1"`
	PolicyTemperature     float32 `envconfig:"POLICY_TEMPERATURE" split_words:"true" default:"0"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: llm api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	for name, temp := range map[string]float32{
		"supervisor": c.SupervisorTemperature,
		"billing":    c.BillingTemperature,
		"technical":  c.TechnicalTemperature,
		"policy":     c.PolicyTemperature,
	} {
		if temp < 0 || temp > 2 {
			return fmt.Errorf("%w: %s temperature %.2f out of range", contractx.ErrValidation, name, temp)
		}
	}
	return nil
}

func (c Config) Steps() int {
	if c.MaxSteps <= 0 {
		return 5
	}
	return c.MaxSteps
}

// OpenRouterFor resolves the model settings of one agent, falling back to
// the default model when no per-agent model is set.
func (c Config) OpenRouterFor(agentType contractx.AgentType) openrouterx.Config {
	modelName := strings.TrimSpace(c.Model)
	var override string
	var temp float32

	switch agentType {
	case contractx.AgentTypeBilling:
		override, temp = c.BillingModel, c.BillingTemperature
	case contractx.AgentTypeTechnical:
		override, temp = c.TechnicalModel, c.TechnicalTemperature
	case contractx.AgentTypePolicy:
		override, temp = c.PolicyModel, c.PolicyTemperature
	default:
		override, temp = c.SupervisorModel, c.SupervisorTemperature
	}
	if v := strings.TrimSpace(override); v != "" {
		modelName = v
	}

	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}
