// Package cost prices model calls from their token usage.
package cost

// ModelRate is per-model token pricing in USD per million tokens.
type ModelRate struct {
	Input         float64 `yaml:"input" mapstructure:"input"`
	Output        float64 `yaml:"output" mapstructure:"output"`
	CacheWriteMul float64 `yaml:"cache_write_mul" mapstructure:"cache_write_mul"`
	CacheReadMul  float64 `yaml:"cache_read_mul" mapstructure:"cache_read_mul"`
}

// Rates maps model names to their pricing. Models without an entry, such as
// locally served ones, cost nothing.
type Rates struct {
	Models map[string]ModelRate `yaml:"models" mapstructure:"models"`
}

// Calculator computes costs for model usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Tokens is the token usage of one or more calls.
type Tokens struct {
	Input      int `json:"input"`
	Output     int `json:"output"`
	CacheWrite int `json:"cache_write"`
	CacheRead  int `json:"cache_read"`
}

// Add returns the sum of two usages.
func (t Tokens) Add(o Tokens) Tokens {
	return Tokens{
		Input:      t.Input + o.Input,
		Output:     t.Output + o.Output,
		CacheWrite: t.CacheWrite + o.CacheWrite,
		CacheRead:  t.CacheRead + o.CacheRead,
	}
}

// Total is every token billed, cached ones included.
func (t Tokens) Total() int {
	return t.Input + t.Output + t.CacheWrite + t.CacheRead
}

// Known reports whether model has a configured rate.
func (c *Calculator) Known(model string) bool {
	_, ok := c.rates.Models[model]
	return ok
}

// Cost prices usage for model. Cache writes and reads are billed as a
// multiple of the input rate.
func (c *Calculator) Cost(model string, usage Tokens) float64 {
	rate, ok := c.rates.Models[model]
	if !ok {
		return 0
	}

	in := float64(usage.Input) / 1e6 * rate.Input
	out := float64(usage.Output) / 1e6 * rate.Output
	cw := float64(usage.CacheWrite) / 1e6 * rate.Input * rate.CacheWriteMul
	cr := float64(usage.CacheRead) / 1e6 * rate.Input * rate.CacheReadMul

	return in + out + cw + cr
}

// DefaultRates returns the built-in pricing for hosted models.
func DefaultRates() Rates {
	return Rates{
		Models: map[string]ModelRate{
			"claude-haiku-4-5-20251001": {
				Input: 1.00, Output: 5.00, CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
			"claude-sonnet-4-5-20250929": {
				Input: 3.00, Output: 15.00, CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
			"claude-opus-4-6": {
				Input: 15.00, Output: 75.00, CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
			"gpt-4o-mini": {
				Input: 0.15, Output: 0.60, CacheReadMul: 0.5,
			},
			"gpt-4o": {
				Input: 2.50, Output: 10.00, CacheReadMul: 0.5,
			},
		},
	}
}
