package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatServer(t *testing.T, status int, body any, seen *map[string]any) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		if seen != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body) //nolint:errcheck
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestChat(t *testing.T) {
	var req map[string]any
	ts := chatServer(t, http.StatusOK, map[string]any{
		"id":     "chatcmpl-1",
		"object": "chat.completion",
		"model":  "llama3.2",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": "{\"ok\":true}"},
			"finish_reason": "stop",
		}},
		"usage": map[string]any{"prompt_tokens": 12, "completion_tokens": 4, "total_tokens": 16},
	}, &req)

	temp := 0.0
	client := NewClient("", WithBaseURL(ts.URL+"/v1"))
	resp, err := client.Chat(context.Background(), ChatRequest{
		Model:       "llama3.2",
		System:      "be terse",
		Messages:    []Message{{Content: "hi"}},
		MaxTokens:   64,
		Temperature: &temp,
		JSON:        true,
	})
	require.NoError(t, err)
	assert.Equal(t, "chatcmpl-1", resp.ID)
	assert.Equal(t, "llama3.2", resp.Model)
	assert.Equal(t, `{"ok":true}`, resp.Text)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, 12, resp.Usage.PromptTokens)
	assert.Equal(t, 4, resp.Usage.CompletionTokens)

	msgs := req["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "be terse", msgs[0].(map[string]any)["content"])
	assert.Equal(t, "user", msgs[1].(map[string]any)["role"])
	assert.Equal(t, "json_object", req["response_format"].(map[string]any)["type"])
	assert.EqualValues(t, 64, req["max_tokens"])
}

func TestChat_NoChoices(t *testing.T) {
	ts := chatServer(t, http.StatusOK, map[string]any{
		"id": "chatcmpl-2", "object": "chat.completion", "model": "llama3.2", "choices": []any{},
	}, nil)

	resp, err := NewClient("", WithBaseURL(ts.URL+"/v1")).Chat(context.Background(), ChatRequest{Model: "llama3.2"})
	require.NoError(t, err)
	assert.Empty(t, resp.Text)
}

func TestChat_ErrorStatus(t *testing.T) {
	ts := chatServer(t, http.StatusServiceUnavailable, map[string]any{
		"error": map[string]any{"message": "model is loading", "type": "server_error"},
	}, nil)

	_, err := NewClient("", WithBaseURL(ts.URL+"/v1")).Chat(context.Background(), ChatRequest{Model: "llama3.2"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ollama: chat")
	assert.Equal(t, http.StatusServiceUnavailable, StatusCode(err))
}

func TestStatusCode_NonAPIError(t *testing.T) {
	assert.Equal(t, 0, StatusCode(assert.AnError))
	assert.Equal(t, 0, StatusCode(nil))
}

func TestWithBaseURL_EmptyKeepsDefault(t *testing.T) {
	c := NewClient("k", WithBaseURL("")).(*chatClient)
	assert.NotNil(t, c.client)
}
