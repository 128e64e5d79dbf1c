package llm

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// webSearchMaxUses bounds how many searches one analysis may run.
const webSearchMaxUses = 5

// anthropicGateway implements Gateway using Anthropic's Messages API. It has
// no constrained output mode, so replies are always steered by instruction.
type anthropicGateway struct {
	client      anthropic.Client
	model       string
	maxTokens   int
	temperature float64
}

func newAnthropicGateway(apiKey, baseURL, model string, maxTokens int, temperature float64) *anthropicGateway {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &anthropicGateway{
		client:      anthropic.NewClient(opts...),
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
	}
}

func (a *anthropicGateway) Provider() Provider { return ProviderAnthropic }
func (a *anthropicGateway) Model() string      { return a.model }

func (a *anthropicGateway) buildParams(req Request) anthropic.MessageNewParams {
	messages := make([]anthropic.MessageParam, 0, len(req.History)+1)
	for _, t := range req.History {
		if t.Role == RoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(t.Text)))
		} else {
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(t.Text)))
		}
	}
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(withJSONInstruction(req.Instruction))))

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		Messages:  messages,
		MaxTokens: int64(a.maxTokens),
	}
	if a.temperature > 0 {
		params.Temperature = anthropic.Float(a.temperature)
	}
	if req.EnableWebRetrieval {
		params.Tools = []anthropic.ToolUnionParam{{
			OfWebSearchTool20250305: &anthropic.WebSearchTool20250305Param{
				MaxUses: anthropic.Int(webSearchMaxUses),
			},
		}}
	}
	return params
}

func (a *anthropicGateway) Invoke(ctx context.Context, req Request) (string, error) {
	resp, err := a.client.Messages.New(ctx, a.buildParams(req))
	if err != nil {
		return "", callFailed(ProviderAnthropic, a.model, err)
	}
	callSucceeded(ProviderAnthropic, a.model)

	// With web search the reply interleaves text blocks with search results;
	// the JSON object sits in the text.
	var content strings.Builder
	for _, block := range resp.Content {
		if b, ok := block.AsAny().(anthropic.TextBlock); ok {
			content.WriteString(b.Text)
		}
	}
	return content.String(), nil
}
