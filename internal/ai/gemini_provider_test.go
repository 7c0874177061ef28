package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"atsmatch/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGeminiTestServer(t *testing.T, status int, body string, captured *map[string]any, path *string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if path != nil {
			*path = r.URL.Path
		}
		if !strings.HasSuffix(r.URL.Path, ":generateContent") {
			http.NotFound(w, r)
			return
		}
		if captured != nil {
			_ = json.NewDecoder(r.Body).Decode(captured)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func geminiTestConfig(baseURL string) config.ResolvedAIConfig {
	cfg := testResolvedConfig()
	cfg.Provider = config.ProviderGemini
	cfg.Model = "gemini-2.0-flash"
	cfg.APIKey = "gemini-test"
	cfg.BaseURL = baseURL
	cfg.Timeout = 5 * time.Second
	return cfg
}

func TestGeminiProviderComplete(t *testing.T) {
	var captured map[string]any
	var path string
	srv := newGeminiTestServer(t, http.StatusOK, `{
		"candidates": [{"content": {"role": "model", "parts": [{"text": "{\"ats_score\": 64}"}]}, "finishReason": "STOP"}],
		"usageMetadata": {"promptTokenCount": 21, "candidatesTokenCount": 9, "totalTokenCount": 30}
	}`, &captured, &path)

	provider, err := NewGeminiProvider(context.Background(), geminiTestConfig(srv.URL), testLogger)
	require.NoError(t, err)
	defer provider.Close()

	completion, err := provider.Complete(context.Background(), CompletionRequest{
		SystemPrompt: "system",
		UserInput:    "user",
		Temperature:  0,
		MaxTokens:    1200,
	})
	require.NoError(t, err)

	assert.Equal(t, `{"ats_score": 64}`, completion.Text)
	assert.Equal(t, "gemini-2.0-flash", completion.Model)
	require.NotNil(t, completion.Usage)
	assert.Equal(t, int64(21), completion.Usage.InputTokens)
	assert.Equal(t, int64(9), completion.Usage.OutputTokens)
	assert.Equal(t, int64(30), completion.Usage.TotalTokens)

	assert.Contains(t, path, "models/gemini-2.0-flash:generateContent")
	genCfg, ok := captured["generationConfig"].(map[string]any)
	require.True(t, ok, "generationConfig missing from request")
	assert.Equal(t, "application/json", genCfg["responseMimeType"])
	assert.EqualValues(t, 1200, genCfg["maxOutputTokens"])
	assert.Contains(t, captured, "systemInstruction")
}

func TestGeminiProviderCompleteErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"error": {"code": 500, "message": "boom", "status": "INTERNAL"}}`},
		{"unauthorized", http.StatusUnauthorized, `{"error": {"code": 401, "message": "bad key", "status": "UNAUTHENTICATED"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newGeminiTestServer(t, tt.status, tt.body, nil, nil)
			provider, err := NewGeminiProvider(context.Background(), geminiTestConfig(srv.URL), testLogger)
			require.NoError(t, err)

			completion, err := provider.Complete(context.Background(), CompletionRequest{UserInput: "user", MaxTokens: 10})
			require.Error(t, err)
			assert.Nil(t, completion)
		})
	}
}

func TestGeminiProviderName(t *testing.T) {
	provider, err := NewGeminiProvider(context.Background(), geminiTestConfig("http://127.0.0.1:0"), nil)
	require.NoError(t, err)
	assert.Equal(t, config.ProviderGemini, provider.Name())
	assert.NoError(t, provider.Close())
}
