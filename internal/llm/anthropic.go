package llm

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/FunkyDruid/contextrie/internal/resilience"
	"github.com/FunkyDruid/contextrie/pkg/anthropic"
)

type anthropicGenerator struct {
	client anthropic.Client
	model  string
}

// NewAnthropic adapts an Anthropic client. System prompts are sent with a
// cache breakpoint so repeated calls in one run reuse them.
func NewAnthropic(client anthropic.Client, model string) Generator {
	return &anthropicGenerator{client: client, model: model}
}

func (g *anthropicGenerator) Generate(ctx context.Context, req Request) (*Response, error) {
	msgReq := anthropic.MessageRequest{
		Model:       g.model,
		MaxTokens:   int64(maxTokens(req.MaxTokens)),
		Messages:    []anthropic.Message{{Role: "user", Content: req.Prompt}},
		Temperature: req.Temperature,
	}
	if req.System != "" {
		msgReq.System = anthropic.BuildCachedSystemBlocks(req.System)
	}

	resp, err := g.client.CreateMessage(ctx, msgReq)
	if err != nil {
		return nil, resilience.ClassifyStatus(eris.Wrap(err, "llm: anthropic generate"), anthropic.StatusCode(err))
	}

	return &Response{
		Text:  resp.Text(),
		Model: resp.Model,
		Usage: Usage{
			InputTokens:      int(resp.Usage.InputTokens),
			OutputTokens:     int(resp.Usage.OutputTokens),
			CacheWriteTokens: int(resp.Usage.CacheCreationInputTokens),
			CacheReadTokens:  int(resp.Usage.CacheReadInputTokens),
		},
	}, nil
}

var _ Generator = (*anthropicGenerator)(nil)
