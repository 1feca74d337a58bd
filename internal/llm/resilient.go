package llm

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/FunkyDruid/contextrie/internal/resilience"
)

// ResilientConfig configures NewResilient.
type ResilientConfig struct {
	// Name identifies the provider in logs.
	Name    string
	Backoff resilience.Backoff
	Breaker resilience.BreakerConfig
	// RequestsPerSecond caps the call rate. 0 means unlimited.
	RequestsPerSecond float64
	Burst             int
	// Timeout bounds each attempt. 0 means no per-attempt deadline.
	Timeout time.Duration
}

// Resilient wraps a Generator with a rate limiter, a circuit breaker and
// retries of transient failures. It is safe for concurrent use.
type Resilient struct {
	next    Generator
	backoff resilience.Backoff
	breaker *resilience.Breaker
	limiter *rate.Limiter
	timeout time.Duration
}

// NewResilient wraps next.
func NewResilient(next Generator, cfg ResilientConfig) *Resilient {
	r := &Resilient{
		next:    next,
		backoff: cfg.Backoff,
		breaker: resilience.NewBreaker(cfg.Breaker),
		timeout: cfg.Timeout,
	}
	if r.backoff.OnRetry == nil {
		r.backoff.OnRetry = resilience.LogRetries(cfg.Name, "generate")
	}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		r.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return r
}

// Generate runs one generation through the limiter, breaker and retry loop.
func (r *Resilient) Generate(ctx context.Context, req Request) (*Response, error) {
	return resilience.Retry(ctx, r.backoff, func(ctx context.Context) (*Response, error) {
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return nil, eris.Wrap(err, "llm: rate limit wait")
			}
		}
		if r.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, r.timeout)
			defer cancel()
		}
		return resilience.Call(ctx, r.breaker, func(ctx context.Context) (*Response, error) {
			return r.next.Generate(ctx, req)
		})
	})
}

// Breaker exposes the circuit state for status reporting.
func (r *Resilient) Breaker() *resilience.Breaker { return r.breaker }

var _ Generator = (*Resilient)(nil)
