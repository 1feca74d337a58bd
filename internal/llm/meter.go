package llm

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/FunkyDruid/contextrie/internal/cost"
)

// Stages metered by the CLI.
const (
	StageIngest  = "ingest"
	StageAssess  = "assess"
	StageCompose = "compose"
)

// StageUsage is the accumulated usage of one pipeline stage.
type StageUsage struct {
	Stage    string      `json:"stage"`
	Calls    int         `json:"calls"`
	Failures int         `json:"failures"`
	Tokens   cost.Tokens `json:"tokens"`
	// Estimated counts calls whose usage the provider did not report and
	// was counted locally instead.
	Estimated int     `json:"estimated"`
	CostUSD   float64 `json:"cost_usd"`
}

// Meter accumulates usage and cost per stage across any number of wrapped
// generators. It is safe for concurrent use.
type Meter struct {
	calc *cost.Calculator

	mu     sync.Mutex
	stages map[string]*StageUsage
	order  []string
}

// NewMeter creates a Meter pricing calls with calc.
func NewMeter(calc *cost.Calculator) *Meter {
	return &Meter{calc: calc, stages: make(map[string]*StageUsage)}
}

// Wrap returns a Generator that records every call of gen under stage.
func (m *Meter) Wrap(stage string, gen Generator) Generator {
	return &meteredGenerator{meter: m, stage: stage, next: gen}
}

// Snapshot returns per-stage usage in the order stages were first used.
func (m *Meter) Snapshot() []StageUsage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]StageUsage, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, *m.stages[name])
	}
	return out
}

// Total sums every stage.
func (m *Meter) Total() StageUsage {
	total := StageUsage{Stage: "total"}
	for _, s := range m.Snapshot() {
		total.Calls += s.Calls
		total.Failures += s.Failures
		total.Estimated += s.Estimated
		total.Tokens = total.Tokens.Add(s.Tokens)
		total.CostUSD += s.CostUSD
	}
	return total
}

// Log writes one line per stage and a total.
func (m *Meter) Log() {
	for _, s := range append(m.Snapshot(), m.Total()) {
		zap.L().Info("llm: usage",
			zap.String("stage", s.Stage),
			zap.Int("calls", s.Calls),
			zap.Int("failures", s.Failures),
			zap.Int("input_tokens", s.Tokens.Input),
			zap.Int("output_tokens", s.Tokens.Output),
			zap.Int("cache_read_tokens", s.Tokens.CacheRead),
			zap.Int("estimated_calls", s.Estimated),
			zap.Float64("cost_usd", s.CostUSD),
		)
	}
}

func (m *Meter) stage(name string) *StageUsage {
	s, ok := m.stages[name]
	if !ok {
		s = &StageUsage{Stage: name}
		m.stages[name] = s
		m.order = append(m.order, name)
	}
	return s
}

func (m *Meter) recordFailure(stage string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.stage(stage)
	s.Calls++
	s.Failures++
}

func (m *Meter) record(stage, model string, tokens cost.Tokens, estimated bool) float64 {
	price := 0.0
	if m.calc != nil {
		price = m.calc.Cost(model, tokens)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.stage(stage)
	s.Calls++
	s.Tokens = s.Tokens.Add(tokens)
	s.CostUSD += price
	if estimated {
		s.Estimated++
	}
	return price
}

type meteredGenerator struct {
	meter *Meter
	stage string
	next  Generator
}

func (g *meteredGenerator) Generate(ctx context.Context, req Request) (*Response, error) {
	resp, err := g.next.Generate(ctx, req)
	if err != nil {
		g.meter.recordFailure(g.stage)
		return nil, err
	}

	tokens := resp.Usage.Tokens()
	estimated := tokens.Total() == 0
	if estimated {
		tokens = cost.Tokens{
			Input:  CountTokens(req.System) + CountTokens(req.Prompt),
			Output: CountTokens(resp.Text),
		}
	}
	price := g.meter.record(g.stage, resp.Model, tokens, estimated)

	zap.L().Debug("llm: generate",
		zap.String("stage", g.stage),
		zap.String("model", resp.Model),
		zap.Int("input_tokens", tokens.Input),
		zap.Int("output_tokens", tokens.Output),
		zap.Bool("estimated", estimated),
		zap.Float64("cost_usd", price),
	)
	return resp, nil
}

var _ Generator = (*meteredGenerator)(nil)
