package llm

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/FunkyDruid/contextrie/internal/resilience"
	"github.com/FunkyDruid/contextrie/pkg/ollama"
)

type openAIGenerator struct {
	client ollama.Client
	model  string
}

// NewOpenAI adapts an OpenAI-compatible chat client, such as a local Ollama.
func NewOpenAI(client ollama.Client, model string) Generator {
	return &openAIGenerator{client: client, model: model}
}

func (g *openAIGenerator) Generate(ctx context.Context, req Request) (*Response, error) {
	resp, err := g.client.Chat(ctx, ollama.ChatRequest{
		Model:       g.model,
		System:      req.System,
		Messages:    []ollama.Message{{Role: "user", Content: req.Prompt}},
		MaxTokens:   maxTokens(req.MaxTokens),
		Temperature: req.Temperature,
		JSON:        req.JSON,
	})
	if err != nil {
		return nil, resilience.ClassifyStatus(eris.Wrap(err, "llm: openai generate"), ollama.StatusCode(err))
	}

	model := resp.Model
	if model == "" {
		model = g.model
	}
	return &Response{
		Text:  resp.Text,
		Model: model,
		Usage: Usage{
			InputTokens:     resp.Usage.PromptTokens - resp.Usage.CachedPromptTokens,
			OutputTokens:    resp.Usage.CompletionTokens,
			CacheReadTokens: resp.Usage.CachedPromptTokens,
		},
	}, nil
}

var _ Generator = (*openAIGenerator)(nil)
