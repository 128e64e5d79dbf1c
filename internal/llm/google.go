package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"occasioncheck/internal/errs"
)

// googleGateway implements Gateway using Google Gemini with the Google
// Search grounding tool.
type googleGateway struct {
	client      *genai.Client
	model       string
	temperature float64
}

func newGoogleGateway(ctx context.Context, apiKey, baseURL, model string, temperature float64) (*googleGateway, error) {
	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, errs.Wrap(errs.CodeGatewayUnavailable, "could not create the AI client", fmt.Errorf("failed to create Gemini client: %w", err))
	}
	return &googleGateway{client: client, model: model, temperature: temperature}, nil
}

func (g *googleGateway) Provider() Provider { return ProviderGoogle }
func (g *googleGateway) Model() string      { return g.model }

// schemaWithTools reports whether the model accepts a response schema while
// the search tool is enabled. Gemini 2.x rejects the combination.
func (g *googleGateway) schemaWithTools() bool {
	return strings.HasPrefix(g.model, "gemini-3")
}

func (g *googleGateway) Invoke(ctx context.Context, req Request) (string, error) {
	contents, gc := g.buildRequest(req)

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, gc)
	if err != nil {
		return "", callFailed(ProviderGoogle, g.model, err)
	}
	callSucceeded(ProviderGoogle, g.model)

	return replyText(resp), nil
}

// buildRequest maps req onto Gemini contents and generation config. The JSON
// schema is passed through as is so open maps such as specs keep their
// additionalProperties.
func (g *googleGateway) buildRequest(req Request) ([]*genai.Content, *genai.GenerateContentConfig) {
	gc := &genai.GenerateContentConfig{}
	if g.temperature > 0 {
		temp := float32(g.temperature)
		gc.Temperature = &temp
	}
	if req.EnableWebRetrieval {
		gc.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}

	instruction := req.Instruction
	if req.Schema != nil && (!req.EnableWebRetrieval || g.schemaWithTools()) {
		gc.ResponseMIMEType = "application/json"
		gc.ResponseJsonSchema = req.Schema
	} else {
		instruction = withJSONInstruction(instruction)
	}

	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, t := range req.History {
		role := genai.Role(genai.RoleUser)
		if t.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(t.Text, role))
	}
	contents = append(contents, genai.NewContentFromText(instruction, genai.RoleUser))

	return contents, gc
}

// replyText joins the visible text parts of the first candidate. Thought
// parts are skipped.
func replyText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var out strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought || part.Text == "" {
			continue
		}
		out.WriteString(part.Text)
	}
	return out.String()
}
