package compose

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/FunkyDruid/contextrie/internal/assess"
	"github.com/FunkyDruid/contextrie/internal/llm"
	"github.com/FunkyDruid/contextrie/internal/source"
)

// MockCompressor is a mock for Compressor.
type MockCompressor struct {
	mock.Mock
}

func (m *MockCompressor) Compress(ctx context.Context, req CompressRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
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

// compressorFunc adapts a function to Compressor.
type compressorFunc func(ctx context.Context, req CompressRequest) (string, error)

func (f compressorFunc) Compress(ctx context.Context, req CompressRequest) (string, error) {
	return f(ctx, req)
}

// echoCompressor returns a deterministic summary naming the source.
var echoCompressor = compressorFunc(func(_ context.Context, req CompressRequest) (string, error) {
	return "summary of " + req.Source.ID, nil
})

func rated(id string, relevance float64) assess.Rated {
	return assess.Rated{
		Source:    source.NewDocument(id, "Title "+id, "About "+id, nil, "content of "+id),
		Relevance: relevance,
	}
}
