package llm

import (
	"context"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
)

// openAIGateway implements Gateway using the OpenAI Responses API with the
// hosted web search tool.
type openAIGateway struct {
	client      openai.Client
	model       string
	temperature float64
}

func newOpenAIGateway(apiKey, baseURL, model string, temperature float64) *openAIGateway {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// one outbound call per Invoke
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &openAIGateway{
		client:      openai.NewClient(opts...),
		model:       model,
		temperature: temperature,
	}
}

func (o *openAIGateway) Provider() Provider { return ProviderOpenAI }
func (o *openAIGateway) Model() string      { return o.model }

func (o *openAIGateway) buildParams(req Request) responses.ResponseNewParams {
	instruction := req.Instruction
	params := responses.ResponseNewParams{Model: o.model}

	if req.Schema != nil {
		name := req.SchemaName
		if name == "" {
			name = "result"
		}
		params.Text = responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Name:   name,
					Schema: req.Schema,
					// specs is an open map, which strict mode rejects
					Strict: openai.Bool(false),
				},
			},
		}
	} else {
		instruction = withJSONInstruction(instruction)
	}

	if req.EnableWebRetrieval {
		params.Tools = append(params.Tools, responses.ToolUnionParam{
			OfWebSearch: &responses.WebSearchToolParam{},
		})
	}
	if o.temperature > 0 {
		params.Temperature = openai.Float(o.temperature)
	}

	input := make(responses.ResponseInputParam, 0, len(req.History)+1)
	for _, t := range req.History {
		role := responses.EasyInputMessageRoleUser
		if t.Role == RoleAssistant {
			role = responses.EasyInputMessageRoleAssistant
		}
		input = append(input, easyMessage(role, t.Text))
	}
	input = append(input, easyMessage(responses.EasyInputMessageRoleUser, instruction))
	params.Input = responses.ResponseNewParamsInputUnion{OfInputItemList: input}

	return params
}

func easyMessage(role responses.EasyInputMessageRole, text string) responses.ResponseInputItemUnionParam {
	return responses.ResponseInputItemUnionParam{
		OfMessage: &responses.EasyInputMessageParam{
			Role: role,
			Content: responses.EasyInputMessageContentUnionParam{
				OfString: openai.String(text),
			},
		},
	}
}

func (o *openAIGateway) Invoke(ctx context.Context, req Request) (string, error) {
	resp, err := o.client.Responses.New(ctx, o.buildParams(req))
	if err != nil {
		return "", callFailed(ProviderOpenAI, o.model, err)
	}
	callSucceeded(ProviderOpenAI, o.model)

	var content strings.Builder
	for _, item := range resp.Output {
		msg, ok := item.AsAny().(responses.ResponseOutputMessage)
		if !ok {
			continue
		}
		for _, part := range msg.Content {
			if text, ok := part.AsAny().(responses.ResponseOutputText); ok {
				content.WriteString(text.Text)
			}
		}
	}
	return content.String(), nil
}
