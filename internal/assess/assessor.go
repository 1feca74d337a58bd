package assess

import (
	"context"
	"slices"

	"github.com/FunkyDruid/contextrie/internal/source"
)

// Assessor accumulates a task and sources for Assess. Sources added with
// Source and From are kept across runs; call Reset or build a new Assessor
// for an independent assessment. An Assessor is not safe for concurrent use.
type Assessor struct {
	scorer  Scorer
	task    string
	sources []source.Source
	deep    bool
}

// New returns an empty Assessor backed by scorer.
func New(scorer Scorer) *Assessor {
	return &Assessor{scorer: scorer}
}

// Task sets the task sources are scored against.
func (a *Assessor) Task(prompt string) *Assessor {
	a.task = prompt
	return a
}

// Source adds one source.
func (a *Assessor) Source(s source.Source) *Assessor {
	a.sources = append(a.sources, s)
	return a
}

// From adds sources.
func (a *Assessor) From(sources ...source.Source) *Assessor {
	a.sources = append(a.sources, sources...)
	return a
}

// Deep includes each source's content, not just its metadata, when scoring.
func (a *Assessor) Deep() *Assessor {
	a.deep = true
	return a
}

// Reset clears the task, the sources and the deep flag.
func (a *Assessor) Reset() *Assessor {
	a.task = ""
	a.sources = nil
	a.deep = false
	return a
}

// Request snapshots the accumulated state.
func (a *Assessor) Request() Request {
	return Request{Task: a.task, Sources: slices.Clone(a.sources), Deep: a.deep}
}

// Run assesses the accumulated sources.
func (a *Assessor) Run(ctx context.Context) (*Result, error) {
	return Assess(ctx, a.scorer, a.Request())
}
