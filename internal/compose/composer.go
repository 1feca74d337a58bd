package compose

import (
	"context"
	"math"
	"slices"

	"github.com/FunkyDruid/contextrie/internal/assess"
)

// DefaultThreshold is the relevance cutoff used when none is configured.
const DefaultThreshold = 0.65

// Composer accumulates a task, rated sources, a threshold and a density for
// Compose. Sources added with From are kept across runs. A Composer is not
// safe for concurrent use.
type Composer struct {
	compressor  Compressor
	task        string
	sources     []assess.Rated
	threshold   float64
	density     float64
	concurrency int

	thresholdErr error
	densityErr   error
}

// Option configures a Composer.
type Option func(*Composer)

// WithDefaultThreshold sets the starting threshold, clamped into [0, 1].
func WithDefaultThreshold(t float64) Option {
	return func(c *Composer) { c.Threshold(t) }
}

// WithDefaultDensity sets the starting density.
func WithDefaultDensity(v DensityValue) Option {
	return func(c *Composer) { c.Density(v) }
}

// WithConcurrency caps parallel compressions. 0 means no limit.
func WithConcurrency(n int) Option {
	return func(c *Composer) { c.concurrency = max(0, n) }
}

// New returns a Composer with threshold 0.65 and thorough density unless
// overridden by opts.
func New(compressor Compressor, opts ...Option) *Composer {
	c := &Composer{
		compressor: compressor,
		threshold:  DefaultThreshold,
		density:    presetLevels[Thorough],
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Task sets the task the context is composed for.
func (c *Composer) Task(prompt string) *Composer {
	c.task = prompt
	return c
}

// From adds rated sources, typically an assessment's.
func (c *Composer) From(sources ...assess.Rated) *Composer {
	c.sources = append(c.sources, sources...)
	return c
}

// Threshold sets the relevance cutoff, clamped into [0, 1]. NaN is reported
// by Run.
func (c *Composer) Threshold(t float64) *Composer {
	if math.IsNaN(t) {
		c.thresholdErr = ErrNaNThreshold
		return c
	}
	c.threshold = clamp01(t)
	c.thresholdErr = nil
	return c
}

// Density sets the density. An unknown preset is reported by Run.
func (c *Composer) Density(v DensityValue) *Composer {
	d, err := ResolveDensity(v)
	if err != nil {
		c.densityErr = err
		return c
	}
	c.density = d
	c.densityErr = nil
	return c
}

// Request snapshots the accumulated state.
func (c *Composer) Request() Request {
	return Request{
		Task:        c.task,
		Sources:     slices.Clone(c.sources),
		Threshold:   c.threshold,
		Density:     c.density,
		Concurrency: c.concurrency,
	}
}

// RunDocument composes the accumulated sources.
func (c *Composer) RunDocument(ctx context.Context) (*Document, error) {
	if c.thresholdErr != nil {
		return nil, c.thresholdErr
	}
	if c.densityErr != nil {
		return nil, c.densityErr
	}
	return Compose(ctx, c.compressor, c.Request())
}

// Run composes the accumulated sources and renders them as markdown.
func (c *Composer) Run(ctx context.Context) (string, error) {
	doc, err := c.RunDocument(ctx)
	if err != nil {
		return "", err
	}
	return doc.Markdown(), nil
}
