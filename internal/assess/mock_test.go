package assess

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/FunkyDruid/contextrie/internal/llm"
)

// MockScorer is a mock for Scorer.
type MockScorer struct {
	mock.Mock
}

func (m *MockScorer) Score(ctx context.Context, req ScoreRequest) ([]Score, error) {
	args := m.Called(ctx, req)
	if v := args.Get(0); v != nil {
		return v.([]Score), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockGenerator is a mock for llm.Generator.
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	args := m.Called(ctx, req)
	if v := args.Get(0); v != nil {
		return v.(*llm.Response), args.Error(1)
	}
	return nil, args.Error(1)
}

func rel(v float64) *float64 { return &v }

func scores(vals ...float64) []Score {
	out := make([]Score, len(vals))
	for i, v := range vals {
		out[i] = Score{Relevance: rel(v)}
	}
	return out
}
