package compose

import (
	"context"
	"fmt"
	"math"

	"github.com/rotisserie/eris"

	"github.com/FunkyDruid/contextrie/internal/llm"
	"github.com/FunkyDruid/contextrie/internal/source"
)

const compressSystemPrompt = `You prepare source material as context for an AI agent working on a task.
Rewrite the source as plain markdown without a top-level heading. Keep facts,
names, numbers and code exact. Drop what does not help the task first.`

const compressPromptTmpl = `Task: %s

%s

Source:
%s`

// LLMCompressor compresses sources with a model call each.
type LLMCompressor struct {
	gen llm.Generator
}

// NewLLMCompressor creates a Compressor backed by gen.
func NewLLMCompressor(gen llm.Generator) *LLMCompressor {
	return &LLMCompressor{gen: gen}
}

// Compress asks the model to keep roughly (1 - forgetfulness) of the
// source's detail.
func (c *LLMCompressor) Compress(ctx context.Context, req CompressRequest) (string, error) {
	resp, err := c.gen.Generate(ctx, llm.Request{
		System: compressSystemPrompt,
		Prompt: fmt.Sprintf(compressPromptTmpl, req.Task, instruction(req.Forgetfulness), source.Format(req.Source, true)),
	})
	if err != nil {
		return "", eris.Wrapf(err, "compose: llm compress %s", req.Source.ID)
	}
	return resp.Text, nil
}

func instruction(forgetfulness float64) string {
	switch {
	case forgetfulness < 0.05:
		return "Reproduce the source faithfully. Only remove formatting noise."
	case forgetfulness > 0.95:
		return "Reduce the source to the one or two sentences that matter most for the task."
	}
	keep := int(math.Round((1 - forgetfulness) * 100))
	return fmt.Sprintf("Compress the source, keeping roughly %d%% of its detail.", keep)
}

// PassthroughCompressor returns each source's raw content unchanged,
// without the metadata header. It makes no model calls.
type PassthroughCompressor struct{}

// Compress returns the source text.
func (PassthroughCompressor) Compress(_ context.Context, req CompressRequest) (string, error) {
	return source.Text(req.Source), nil
}

var (
	_ Compressor = (*LLMCompressor)(nil)
	_ Compressor = PassthroughCompressor{}
)
