package assess

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/FunkyDruid/contextrie/internal/llm"
)

const scoringSystemPrompt = `You rate how useful each source is for completing a task.
Score every source from 0.0 (irrelevant) to 1.0 (essential). Judge only from what
is shown. Reply with a single JSON object and nothing else.`

const scoringPromptTmpl = `Task: %s

Sources:

%s

Return a JSON object of this exact shape, with one entry per source, using the
source IDs shown above:
{"scores": [{"id": "<source id>", "relevance": <number 0-1>, "reasoning": "<one sentence>"}]}`

// LLMScorer scores sources with a single model call per batch.
type LLMScorer struct {
	gen llm.Generator
}

// NewLLMScorer creates a Scorer backed by gen.
func NewLLMScorer(gen llm.Generator) *LLMScorer {
	return &LLMScorer{gen: gen}
}

type scoreReply struct {
	Scores []json.RawMessage `json:"scores"`
}

type scoreEntry struct {
	ID        json.RawMessage `json:"id"`
	Relevance json.RawMessage `json:"relevance"`
	Reasoning json.RawMessage `json:"reasoning"`
}

// parseEntry decodes one reply entry field by field. A field of the wrong
// shape is dropped, so a bad entry leaves only its own source unscored.
func parseEntry(raw json.RawMessage) (id string, rel *float64, reasoning string) {
	var e scoreEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return "", nil, ""
	}
	id = rawString(e.ID)
	reasoning = rawString(e.Reasoning)

	if len(e.Relevance) == 0 || string(e.Relevance) == "null" {
		return id, nil, reasoning
	}
	var f float64
	if err := json.Unmarshal(e.Relevance, &f); err == nil {
		return id, &f, reasoning
	}
	if s := rawString(e.Relevance); s != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return id, &f, reasoning
		}
	}
	zap.L().Warn("assess: unusable relevance in scoring reply",
		zap.String("id", id), zap.ByteString("relevance", e.Relevance))
	return id, nil, reasoning
}

func rawString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// Score asks the model to rate every item and re-aligns its reply to item
// order by id. Items the reply does not mention come back unscored.
func (s *LLMScorer) Score(ctx context.Context, req ScoreRequest) ([]Score, error) {
	blocks := make([]string, len(req.Items))
	for i, it := range req.Items {
		blocks[i] = "<source>\n" + it.Block + "\n</source>"
	}

	resp, err := s.gen.Generate(ctx, llm.Request{
		System: scoringSystemPrompt,
		Prompt: fmt.Sprintf(scoringPromptTmpl, req.Task, strings.Join(blocks, "\n\n")),
		JSON:   true,
	})
	if err != nil {
		return nil, eris.Wrap(err, "assess: llm scoring")
	}

	var reply scoreReply
	if err := json.Unmarshal([]byte(llm.ExtractJSON(resp.Text)), &reply); err != nil {
		zap.L().Warn("assess: failed to parse scoring json", zap.Error(err))
		return nil, eris.Wrap(err, "assess: parse scoring json")
	}

	byID := make(map[string]int, len(req.Items))
	for i, it := range req.Items {
		byID[it.ID] = i
	}

	out := make([]Score, len(req.Items))
	seen := make([]bool, len(req.Items))
	for pos, raw := range reply.Scores {
		id, rel, reasoning := parseEntry(raw)
		idx, ok := byID[id]
		if !ok {
			// Entries without an id are matched by position.
			if id != "" || pos >= len(out) {
				zap.L().Debug("assess: score for unknown source", zap.String("id", id))
				continue
			}
			idx = pos
		}
		if seen[idx] {
			continue
		}
		seen[idx] = true
		out[idx] = Score{Relevance: rel, Reasoning: reasoning}
	}
	return out, nil
}

var _ Scorer = (*LLMScorer)(nil)
