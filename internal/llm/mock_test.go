package llm

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/FunkyDruid/contextrie/pkg/anthropic"
	"github.com/FunkyDruid/contextrie/pkg/ollama"
)

// MockAnthropicClient is a mock for anthropic.Client.
type MockAnthropicClient struct {
	mock.Mock
}

func (m *MockAnthropicClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if v := args.Get(0); v != nil {
		return v.(*anthropic.MessageResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockChatClient is a mock for ollama.Client.
type MockChatClient struct {
	mock.Mock
}

func (m *MockChatClient) Chat(ctx context.Context, req ollama.ChatRequest) (*ollama.ChatResponse, error) {
	args := m.Called(ctx, req)
	if v := args.Get(0); v != nil {
		return v.(*ollama.ChatResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockGenerator is a mock for Generator.
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, req Request) (*Response, error) {
	args := m.Called(ctx, req)
	if v := args.Get(0); v != nil {
		return v.(*Response), args.Error(1)
	}
	return nil, args.Error(1)
}
