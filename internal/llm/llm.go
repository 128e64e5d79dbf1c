package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"occasioncheck/internal/config"
	"occasioncheck/internal/errs"
	"occasioncheck/internal/metrics"
)

// Provider represents a logical LLM provider.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGoogle    Provider = "google"
)

// Role of a prior conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one earlier message replayed ahead of the instruction.
type Turn struct {
	Role Role
	Text string
}

// Request is a single invocation of the model.
type Request struct {
	// Instruction is sent as the final user message.
	Instruction string
	// History holds earlier turns, oldest first.
	History []Turn
	// EnableWebRetrieval lets the model fetch the page itself.
	EnableWebRetrieval bool
	// Schema, when set, asks for schema-constrained JSON output if the
	// provider can combine it with the requested tools.
	Schema     map[string]any
	SchemaName string
}

// Gateway is the abstraction the pipeline talks to. Invoke makes exactly one
// outbound call and returns the raw reply text.
type Gateway interface {
	Invoke(ctx context.Context, req Request) (string, error)
	Provider() Provider
	Model() string
}

// jsonOnlyInstruction is appended when the reply cannot be constrained by a
// schema.
const jsonOnlyInstruction = "\n\nAntwoord uitsluitend met één enkel JSON-object. Geen markdown, geen codeblokken, geen toelichting voor of na het object."

func withJSONInstruction(instruction string) string {
	return instruction + jsonOnlyInstruction
}

// NewGatewayFromConfig constructs a Gateway based on global config and
// optional provider/model overrides.
func NewGatewayFromConfig(ctx context.Context, cfg *config.Config, providerOverride, modelOverride string) (Gateway, error) {
	providerName := cfg.LLM.DefaultProvider
	if providerOverride != "" {
		providerName = providerOverride
	}
	prov := Provider(strings.ToLower(providerName))

	pick := func(configured string) string {
		if modelOverride != "" {
			return modelOverride
		}
		return configured
	}

	switch prov {
	case ProviderGoogle:
		g := cfg.LLM.Google
		model := pick(g.Model)
		if g.APIKey == "" || model == "" {
			return nil, notConfigured(prov, config.EnvGeminiAPIKey)
		}
		return newGoogleGateway(ctx, g.APIKey, g.BaseURL, model, cfg.LLM.Temperature)
	case ProviderOpenAI:
		o := cfg.LLM.OpenAI
		model := pick(o.Model)
		if o.APIKey == "" || model == "" {
			return nil, notConfigured(prov, config.EnvOpenAIAPIKey)
		}
		return newOpenAIGateway(o.APIKey, o.BaseURL, model, cfg.LLM.Temperature), nil
	case ProviderAnthropic:
		a := cfg.LLM.Anthropic
		model := pick(a.Model)
		if a.APIKey == "" || model == "" {
			return nil, notConfigured(prov, config.EnvAnthropicAPIKey)
		}
		return newAnthropicGateway(a.APIKey, a.BaseURL, model, a.MaxTokens, cfg.LLM.Temperature), nil
	default:
		return nil, errs.New(errs.CodeConfiguration, fmt.Sprintf("unsupported llm provider: %s", providerName))
	}
}

func notConfigured(prov Provider, envVar string) error {
	return errs.New(errs.CodeConfiguration,
		fmt.Sprintf("%s llm provider is not fully configured (set %s)", prov, envVar))
}

// unavailableGateway answers every call with GatewayUnavailable.
type unavailableGateway struct {
	provider Provider
	model    string
	cause    error
}

// Unavailable returns a Gateway that fails every call with
// GatewayUnavailable. It is installed when construction fails so the
// process keeps serving and reports the problem per request.
func Unavailable(provider Provider, model string, cause error) Gateway {
	if cause == nil {
		cause = errors.New("gateway not configured")
	}
	return &unavailableGateway{provider: provider, model: model, cause: cause}
}

func (u *unavailableGateway) Invoke(context.Context, Request) (string, error) {
	metrics.RecordGatewayCall(string(u.provider), u.model, false)
	return "", errs.Wrap(errs.CodeGatewayUnavailable, "the AI service is not configured", u.cause)
}

func (u *unavailableGateway) Provider() Provider { return u.provider }
func (u *unavailableGateway) Model() string      { return u.model }

// IsUnavailable reports whether gw is the placeholder installed by
// Unavailable.
func IsUnavailable(gw Gateway) bool {
	_, ok := gw.(*unavailableGateway)
	return ok
}

// callFailed classifies an SDK error. Deadline and cancellation keep their
// cause so callers can still match them with errors.Is.
func callFailed(prov Provider, model string, err error) error {
	metrics.RecordGatewayCall(string(prov), model, false)
	if errors.Is(err, context.DeadlineExceeded) {
		return errs.Wrap(errs.CodeGatewayUnavailable, "the AI service did not respond in time", err)
	}
	return errs.Wrap(errs.CodeGatewayUnavailable, "could not reach the AI service", fmt.Errorf("%s: %w", prov, err))
}

func callSucceeded(prov Provider, model string) {
	metrics.RecordGatewayCall(string(prov), model, true)
}
