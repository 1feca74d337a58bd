// Package compose turns assessed sources into one context document: it drops
// sources under the effective threshold, compresses the rest concurrently
// according to their relevance and the chosen density, and renders markdown.
package compose

import (
	"context"
	"math"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/FunkyDruid/contextrie/internal/assess"
	"github.com/FunkyDruid/contextrie/internal/source"
)

// ErrMissingTask is returned when Run is called without a task.
var ErrMissingTask = eris.New("compose: missing task, set one with Task before Run")

// ErrNaNThreshold is returned for a threshold that is not a number.
var ErrNaNThreshold = eris.New("compose: threshold is NaN")

// DegenerateContent stands in for a compression that returned nothing.
const DegenerateContent = "*(no content survived compression)*"

// Compressor rewrites a source for a task. Forgetfulness in [0, 1] is how
// much detail may be discarded: 0 keeps everything.
type Compressor interface {
	Compress(ctx context.Context, req CompressRequest) (string, error)
}

// CompressRequest is one compression call.
type CompressRequest struct {
	Task          string
	Source        source.Source
	Forgetfulness float64
}

// Block is one admitted source after compression.
type Block struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Content       string  `json:"content"`
	Relevance     float64 `json:"relevance"`
	Forgetfulness float64 `json:"forgetfulness"`
	// Degenerate is set when the compressor returned no content.
	Degenerate bool `json:"degenerate,omitempty"`
}

// Document is a composed context, blocks in admitted-source order.
type Document struct {
	Task               string  `json:"task"`
	EffectiveThreshold float64 `json:"effective_threshold"`
	Blocks             []Block `json:"blocks"`
}

// Request is everything one composition depends on.
type Request struct {
	Task    string
	Sources []assess.Rated
	// Threshold is clamped into [0, 1].
	Threshold float64
	// Density is a resolved density in [0, 1].
	Density float64
	// Concurrency caps parallel compressions. 0 means no limit.
	Concurrency int
}

// Compose admits sources with relevance at or above the effective threshold
// and compresses each of them concurrently. Blocks keep the input order of
// the admitted sources regardless of completion order. The first compressor
// error cancels the remaining calls and is returned.
func Compose(ctx context.Context, c Compressor, req Request) (*Document, error) {
	if strings.TrimSpace(req.Task) == "" {
		return nil, ErrMissingTask
	}
	if math.IsNaN(req.Threshold) {
		return nil, ErrNaNThreshold
	}
	if math.IsNaN(req.Density) {
		return nil, eris.New("compose: density is NaN")
	}

	adj := Adjustments(req.Density)
	doc := &Document{
		Task:               req.Task,
		EffectiveThreshold: EffectiveThreshold(clamp01(req.Threshold), req.Density),
		Blocks:             []Block{},
	}

	admitted := make([]assess.Rated, 0, len(req.Sources))
	for _, rs := range req.Sources {
		if rs.Relevance >= doc.EffectiveThreshold {
			admitted = append(admitted, rs)
		}
	}

	log := zap.L().With(zap.String("task", req.Task))
	if len(admitted) == 0 {
		log.Info("compose: no sources met threshold",
			zap.Float64("effective_threshold", doc.EffectiveThreshold),
			zap.Int("candidates", len(req.Sources)),
		)
		return doc, nil
	}

	blocks := make([]Block, len(admitted))
	g, gCtx := errgroup.WithContext(ctx)
	if req.Concurrency > 0 {
		g.SetLimit(req.Concurrency)
	}

	for i, rs := range admitted {
		g.Go(func() error {
			f := Forgetfulness(rs.Relevance, adj.ForgetfulnessBoost)
			content, err := c.Compress(gCtx, CompressRequest{Task: req.Task, Source: rs.Source, Forgetfulness: f})
			if err != nil {
				return eris.Wrapf(err, "compose: compress source %s", rs.Source.ID)
			}

			title := rs.Source.Title
			if title == "" {
				title = rs.Source.ID
			}
			b := Block{
				ID:            rs.Source.ID,
				Title:         title,
				Content:       strings.TrimSpace(content),
				Relevance:     rs.Relevance,
				Forgetfulness: f,
			}
			if b.Content == "" {
				log.Warn("compose: compression returned no content",
					zap.String("source_id", b.ID),
					zap.Float64("forgetfulness", f),
				)
				b.Content = DegenerateContent
				b.Degenerate = true
			}
			blocks[i] = b
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	doc.Blocks = blocks
	log.Info("compose: composed context",
		zap.Int("candidates", len(req.Sources)),
		zap.Int("admitted", len(blocks)),
		zap.Float64("effective_threshold", doc.EffectiveThreshold),
		zap.Float64("density", req.Density),
	)
	return doc, nil
}
