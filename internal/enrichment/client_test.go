package enrichment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dropimator/internal/config"
)

const completionBody = `{
  "id": "chatcmpl-123",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4o-mini",
  "choices": [
    {"index": 0, "message": {"role": "assistant", "content": "{\"category\": \"Proteine\"}"}, "finish_reason": "stop"}
  ],
  "usage": {"prompt_tokens": 20, "completion_tokens": 7, "total_tokens": 27}
}`

type chatRequest struct {
	Model            string  `json:"model"`
	Temperature      float64 `json:"temperature"`
	FrequencyPenalty float64 `json:"frequency_penalty"`
	MaxTokens        int     `json:"max_tokens"`
	Messages         []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", handler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return NewOpenAIClient(config.OpenAIConfig{
		APIKey:  "test-key",
		Model:   "gpt-4o-mini",
		BaseURL: srv.URL + "/v1",
	})
}

func TestOpenAIClientComplete(t *testing.T) {
	var got chatRequest
	var auth string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody))
	})

	env := client.Complete(context.Background(), "classify this", ClassificationParams)
	require.NotNil(t, env)

	assert.Equal(t, "Bearer test-key", auth)
	assert.Equal(t, "gpt-4o-mini", got.Model)
	assert.InDelta(t, 0.2, got.Temperature, 1e-6)
	assert.InDelta(t, 0.5, got.FrequencyPenalty, 1e-6)
	assert.Equal(t, 200, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, SystemPrompt(), got.Messages[0].Content)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Equal(t, "classify this", got.Messages[1].Content)

	text, ok := ExtractText(env)
	require.True(t, ok)
	assert.Equal(t, `{"category": "Proteine"}`, text)
	tokens := TotalTokens(env)
	require.NotNil(t, tokens)
	assert.Equal(t, 27, *tokens)
	assert.Contains(t, string(env.Raw()), "chatcmpl-123")
}

func TestOpenAIClientAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "invalid api key", "type": "invalid_request_error"}}`))
	})

	assert.Nil(t, client.Complete(context.Background(), "prompt", MarketingParams))
}

func TestOpenAIClientTimeout(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	params := ClassificationParams
	params.Timeout = 50 * time.Millisecond

	start := time.Now()
	assert.Nil(t, client.Complete(context.Background(), "prompt", params))
	assert.Less(t, time.Since(start), time.Second)
}

func TestNewOpenAIClientDefaultsModel(t *testing.T) {
	c := NewOpenAIClient(config.OpenAIConfig{APIKey: "k"})
	assert.Equal(t, "gpt-4o-mini", c.model)
}
