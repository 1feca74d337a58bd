// Package llm is the provider-neutral text generation layer shared by
// ingestion, assessment and composition.
package llm

import (
	"context"

	"github.com/FunkyDruid/contextrie/internal/cost"
)

// DefaultMaxTokens is used when a request does not set MaxTokens.
const DefaultMaxTokens = 2048

// Generator produces one completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}

// Request is a single-turn generation request.
type Request struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature *float64
	// JSON hints that the reply must be a JSON object. Providers that cannot
	// enforce it rely on the prompt.
	JSON bool
}

// Response is the generated text and what it cost to produce.
type Response struct {
	Text  string
	Model string
	Usage Usage
}

// Usage is token consumption as reported by the provider.
type Usage struct {
	InputTokens      int
	OutputTokens     int
	CacheWriteTokens int
	CacheReadTokens  int
}

// Tokens converts usage for pricing.
func (u Usage) Tokens() cost.Tokens {
	return cost.Tokens{
		Input:      u.InputTokens,
		Output:     u.OutputTokens,
		CacheWrite: u.CacheWriteTokens,
		CacheRead:  u.CacheReadTokens,
	}
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req Request) (*Response, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}

// Float returns a pointer to v, for Request.Temperature.
func Float(v float64) *float64 { return &v }

func maxTokens(n int) int {
	if n <= 0 {
		return DefaultMaxTokens
	}
	return n
}
