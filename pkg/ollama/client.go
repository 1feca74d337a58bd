// Package ollama is a chat client for OpenAI-compatible endpoints. The
// default base URL points at a local Ollama server; any OpenAI-compatible
// deployment works by overriding it.
package ollama

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	openai "github.com/sashabaranov/go-openai"
)

// DefaultBaseURL is Ollama's OpenAI-compatible endpoint.
const DefaultBaseURL = "http://localhost:11434/v1"

// Client defines the chat operations used by contextrie.
type Client interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// ChatRequest is our own request type for Chat.
type ChatRequest struct {
	Model       string
	System      string
	Messages    []Message
	MaxTokens   int
	Temperature *float64
	// JSON asks the server to constrain output to a JSON object.
	JSON bool
}

// Message is a single chat message.
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

// ChatResponse is our own response type from Chat.
type ChatResponse struct {
	ID           string
	Model        string
	Text         string
	FinishReason string
	Usage        Usage
}

// Usage tracks token consumption as reported by the server.
type Usage struct {
	PromptTokens       int
	CompletionTokens   int
	CachedPromptTokens int
}

// Option configures the client.
type Option func(*openai.ClientConfig)

// WithBaseURL overrides the endpoint.
func WithBaseURL(url string) Option {
	return func(c *openai.ClientConfig) {
		if url != "" {
			c.BaseURL = url
		}
	}
}

type chatClient struct {
	client *openai.Client
}

// NewClient creates a Client. Ollama ignores the API key; hosted
// OpenAI-compatible services require one.
func NewClient(apiKey string, opts ...Option) Client {
	if apiKey == "" {
		apiKey = "ollama"
	}
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = DefaultBaseURL
	for _, opt := range opts {
		opt(&config)
	}
	return &chatClient{client: openai.NewClientWithConfig(config)}
}

func (c *chatClient) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	resp, err := c.client.CreateChatCompletion(ctx, toChatCompletionRequest(req))
	if err != nil {
		return nil, eris.Wrap(err, "ollama: chat")
	}
	return fromChatCompletion(resp), nil
}

func toChatCompletionRequest(req ChatRequest) openai.ChatCompletionRequest {
	msgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, m := range req.Messages {
		role := m.Role
		if role == "" {
			role = openai.ChatMessageRoleUser
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	out := openai.ChatCompletionRequest{
		Model:     req.Model,
		Messages:  msgs,
		MaxTokens: req.MaxTokens,
	}
	if req.Temperature != nil {
		out.Temperature = float32(*req.Temperature)
	}
	if req.JSON {
		out.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	return out
}

func fromChatCompletion(resp openai.ChatCompletionResponse) *ChatResponse {
	out := &ChatResponse{
		ID:    resp.ID,
		Model: resp.Model,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
		},
	}
	if resp.Usage.PromptTokensDetails != nil {
		out.Usage.CachedPromptTokens = resp.Usage.PromptTokensDetails.CachedTokens
	}
	if len(resp.Choices) > 0 {
		out.Text = resp.Choices[0].Message.Content
		out.FinishReason = string(resp.Choices[0].FinishReason)
	}
	return out
}

// StatusCode returns the HTTP status of an API error anywhere in err's chain,
// or 0 when err did not come from an HTTP response.
func StatusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
