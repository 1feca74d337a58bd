package llm

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/FunkyDruid/contextrie/internal/config"
	"github.com/FunkyDruid/contextrie/internal/cost"
	"github.com/FunkyDruid/contextrie/internal/resilience"
	"github.com/FunkyDruid/contextrie/pkg/anthropic"
	"github.com/FunkyDruid/contextrie/pkg/ollama"
)

// FromConfig builds the Generator for one stage: the provider adapter named
// by m, wrapped for resilience, with the stage's token and temperature
// defaults applied to requests that leave them unset.
func FromConfig(cfg *config.Config, m config.ModelConfig) (Generator, error) {
	var base Generator
	switch m.Provider {
	case config.ProviderAnthropic:
		if cfg.Anthropic.Key == "" {
			return nil, eris.New("llm: anthropic.key is required")
		}
		var opts []anthropic.Option
		if cfg.Anthropic.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(cfg.Anthropic.BaseURL))
		}
		base = NewAnthropic(anthropic.NewClient(cfg.Anthropic.Key, opts...), m.Model)
	case config.ProviderOllama:
		base = NewOpenAI(ollama.NewClient(cfg.Ollama.Key, ollama.WithBaseURL(cfg.Ollama.BaseURL)), m.Model)
	case config.ProviderOpenAI:
		if cfg.OpenAI.Key == "" {
			return nil, eris.New("llm: openai.key is required")
		}
		base = NewOpenAI(ollama.NewClient(cfg.OpenAI.Key, ollama.WithBaseURL(cfg.OpenAI.BaseURL)), m.Model)
	default:
		return nil, eris.Errorf("llm: unknown provider %q", m.Provider)
	}

	r := cfg.LLM.Retry
	resilient := NewResilient(base, ResilientConfig{
		Name:              m.Provider,
		Backoff:           resilience.NewBackoff(r.MaxAttempts, r.InitialBackoffMs, r.MaxBackoffMs, r.Multiplier, r.JitterFraction),
		Breaker:           resilience.NewBreakerConfig(m.Provider, cfg.LLM.Breaker.FailureThreshold, cfg.LLM.Breaker.ResetTimeoutSecs),
		RequestsPerSecond: cfg.LLM.RequestsPerSecond,
		Burst:             cfg.LLM.Burst,
		Timeout:           time.Duration(cfg.LLM.TimeoutSecs) * time.Second,
	})

	return WithDefaults(resilient, m.MaxTokens, m.Temperature), nil
}

// WithDefaults fills MaxTokens and Temperature on requests that leave them
// unset.
func WithDefaults(gen Generator, maxTokens int, temperature float64) Generator {
	return GeneratorFunc(func(ctx context.Context, req Request) (*Response, error) {
		if req.MaxTokens <= 0 {
			req.MaxTokens = maxTokens
		}
		if req.Temperature == nil {
			req.Temperature = Float(temperature)
		}
		return gen.Generate(ctx, req)
	})
}

// Rates merges configured prices over the built-in ones.
func Rates(p config.PricingConfig) cost.Rates {
	rates := cost.DefaultRates()
	for name, mp := range p.Models {
		rates.Models[name] = cost.ModelRate{
			Input:         mp.Input,
			Output:        mp.Output,
			CacheWriteMul: mp.CacheWriteMul,
			CacheReadMul:  mp.CacheReadMul,
		}
	}
	return rates
}
