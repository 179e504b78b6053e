package provider

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"deepfund/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatServer(t *testing.T, reply string, seen *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		if seen != nil {
			_ = json.Unmarshal(body, seen)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "cmpl-1",
			"object":  "chat.completion",
			"created": 1700000000,
			"model":   "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": reply},
			}},
		})
	}))
}

func TestOpenAIProviderCall(t *testing.T) {
	var seen map[string]any
	srv := chatServer(t, "  {\"signal\":\"Bullish\"}  ", &seen)
	defer srv.Close()

	p := NewOpenAIProvider(OpenAIOptions{
		ID:          "openai:test-model",
		BaseURL:     srv.URL + "/chat/completions",
		APIKey:      "test-key",
		Model:       "test-model",
		Temperature: 0.2,
		Timeout:     5 * time.Second,
	})
	out, err := p.Call(context.Background(), ChatPayload{System: "sys", User: "hello", MaxTokens: 64})
	require.NoError(t, err)
	assert.Equal(t, `{"signal":"Bullish"}`, out)

	assert.Equal(t, "test-model", seen["model"])
	msgs, ok := seen["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, msgs, 2)
	assert.EqualValues(t, 64, seen["max_tokens"])
	_, hasFormat := seen["response_format"]
	assert.False(t, hasFormat)
}

func TestOpenAIProviderJSONMode(t *testing.T) {
	var seen map[string]any
	srv := chatServer(t, `{"action":"Hold","shares":0}`, &seen)
	defer srv.Close()

	p := NewOpenAIProvider(OpenAIOptions{BaseURL: srv.URL, APIKey: "test-key", Model: "test-model", Timeout: 5 * time.Second})
	_, err := p.Call(context.Background(), ChatPayload{User: "reply in json", ExpectJSON: true})
	require.NoError(t, err)

	format, ok := seen["response_format"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "json_object", format["type"])
}

func TestOpenAIProviderServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewOpenAIProvider(OpenAIOptions{BaseURL: srv.URL, APIKey: "k", Model: "m", Timeout: time.Second})
	_, err := p.Call(context.Background(), ChatPayload{User: "x"})
	assert.Error(t, err)
}

func TestBuildFromConfig(t *testing.T) {
	_, err := BuildFromConfig(config.LLMConfig{Provider: "anthropic-direct", Model: "m"})
	assert.True(t, config.IsConfigurationError(err))

	t.Setenv("DEEPFUND_TEST_LLM_KEY", "")
	_, err = BuildFromConfig(config.LLMConfig{Provider: "openai", Model: "m", APIKeyEnv: "DEEPFUND_TEST_LLM_KEY"})
	assert.True(t, config.IsConfigurationError(err))

	p, err := BuildFromConfig(config.LLMConfig{Provider: "deepseek", Model: "deepseek-chat", APIKey: "k", APIURL: "https://api.deepseek.com", TimeoutSeconds: 10})
	require.NoError(t, err)
	assert.Equal(t, "deepseek:deepseek-chat", p.ID())
	assert.Equal(t, "deepseek-chat", p.Model())
}

func TestNormalizeBaseURL(t *testing.T) {
	assert.Equal(t, "https://api.openai.com/v1/", normalizeBaseURL("https://api.openai.com/v1/chat/completions"))
	assert.Equal(t, "https://api.openai.com/v1/", normalizeBaseURL("https://api.openai.com/v1/"))
	assert.Equal(t, "", normalizeBaseURL("  "))
}
