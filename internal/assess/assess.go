// Package assess scores sources for relevance to a task and orders them
// most relevant first.
package assess

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/FunkyDruid/contextrie/internal/source"
)

// ErrMissingTask is returned when Run is called without a task.
var ErrMissingTask = eris.New("assess: missing task, set one with Task before Run")

// Scorer rates formatted source blocks against a task in one batched call.
// The returned scores are aligned to req.Items; a short slice or a nil
// Relevance marks the corresponding items as unscored.
type Scorer interface {
	Score(ctx context.Context, req ScoreRequest) ([]Score, error)
}

// ScoreRequest is the batch handed to a Scorer.
type ScoreRequest struct {
	Task  string
	Items []ScoreItem
}

// ScoreItem is one formatted source.
type ScoreItem struct {
	ID    string
	Block string
}

// Score is a scorer's verdict for one item.
type Score struct {
	Relevance *float64
	Reasoning string
}

// Rated pairs a source with its relevance to the task.
type Rated struct {
	Source    source.Source `json:"source"`
	Relevance float64       `json:"relevance"`
	Reasoning string        `json:"reasoning,omitempty"`
}

// Result is an assessment, rated sources ordered by descending relevance.
type Result struct {
	Prompt string  `json:"prompt"`
	Rated  []Rated `json:"rated"`
}

// Sources returns the rated sources in relevance order.
func (r *Result) Sources() []Rated {
	return r.Rated
}

// Get returns the rated source with the given id.
func (r *Result) Get(id string) (Rated, bool) {
	for _, rs := range r.Rated {
		if rs.Source.ID == id {
			return rs, true
		}
	}
	return Rated{}, false
}

// Request is everything one assessment depends on.
type Request struct {
	Task    string
	Sources []source.Source
	Deep    bool
}

// Assess scores req.Sources against req.Task with one scorer call. Missing
// scores count as 0 and out-of-range ones are clamped into [0, 1]; neither
// fails the run. Equal relevance keeps input order.
func Assess(ctx context.Context, scorer Scorer, req Request) (*Result, error) {
	if strings.TrimSpace(req.Task) == "" {
		return nil, ErrMissingTask
	}
	if err := source.CheckUnique(req.Sources); err != nil {
		return nil, eris.Wrap(err, "assess: sources")
	}

	result := &Result{Prompt: req.Task, Rated: make([]Rated, 0, len(req.Sources))}
	if len(req.Sources) == 0 {
		return result, nil
	}

	items := make([]ScoreItem, len(req.Sources))
	for i, s := range req.Sources {
		items[i] = ScoreItem{ID: s.ID, Block: source.Format(s, req.Deep)}
	}

	scores, err := scorer.Score(ctx, ScoreRequest{Task: req.Task, Items: items})
	if err != nil {
		return nil, eris.Wrap(err, "assess: score sources")
	}
	if len(scores) > len(items) {
		zap.L().Warn("assess: scorer returned extra scores, ignoring them",
			zap.Int("sources", len(items)),
			zap.Int("scores", len(scores)),
		)
	}

	for i, s := range req.Sources {
		var sc Score
		if i < len(scores) {
			sc = scores[i]
		}
		result.Rated = append(result.Rated, Rated{
			Source:    s,
			Relevance: relevance(s.ID, sc.Relevance),
			Reasoning: sc.Reasoning,
		})
	}

	sort.SliceStable(result.Rated, func(i, j int) bool {
		return result.Rated[i].Relevance > result.Rated[j].Relevance
	})

	zap.L().Debug("assess: scored sources",
		zap.Int("sources", len(result.Rated)),
		zap.Bool("deep", req.Deep),
	)
	return result, nil
}

func relevance(id string, v *float64) float64 {
	if v == nil || math.IsNaN(*v) {
		zap.L().Warn("assess: missing score, using 0", zap.String("source_id", id))
		return 0
	}
	r := *v
	if r < 0 || r > 1 {
		zap.L().Warn("assess: score out of range, clamping",
			zap.String("source_id", id),
			zap.Float64("relevance", r),
		)
		r = math.Max(0, math.Min(1, r))
	}
	return r
}
