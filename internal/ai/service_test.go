package ai

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"atsmatch/internal/config"
	"atsmatch/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = errors.NewLoggerWithWriter(io.Discard, slog.LevelDebug)

// fakeProvider records requests and replays canned completions
type fakeProvider struct {
	mu       sync.Mutex
	requests []CompletionRequest
	replies  []string
	errs     []error
	usage    *TokenUsage
	delay    time.Duration
}

func (f *fakeProvider) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	f.mu.Lock()
	call := len(f.requests)
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if call < len(f.errs) && f.errs[call] != nil {
		return nil, f.errs[call]
	}
	reply := ""
	if len(f.replies) > 0 {
		reply = f.replies[min(call, len(f.replies)-1)]
	}
	return &Completion{Text: reply, Usage: f.usage}, nil
}

func (f *fakeProvider) Name() string { return "fake" }
func (f *fakeProvider) Close() error { return nil }

func testResolvedConfig() config.ResolvedAIConfig {
	return config.ResolvedAIConfig{
		Provider:    config.ProviderGroq,
		DisplayName: "Groq",
		Model:       "mixtral-8x7b-32768",
		Timeout:     5 * time.Second,
		Temperature: 0,
		MaxTokens:   1200,
	}
}

func TestAssessSendsPromptAndParsesReply(t *testing.T) {
	provider := &fakeProvider{
		replies: []string{`Here you go: {"ats_score": "91", "matched_keywords": ["go"]}`},
		usage:   &TokenUsage{InputTokens: 100, OutputTokens: 20, TotalTokens: 120},
	}
	svc := NewServiceWithProvider(testResolvedConfig(), provider, testLogger)

	assessment, usage, err := svc.Assess(context.Background(), "Go developer", "Needs Go")
	require.NoError(t, err)

	require.NotNil(t, assessment.ATSScore)
	assert.Equal(t, 91, *assessment.ATSScore)
	assert.Equal(t, []string{"go"}, assessment.MatchedKeywords)
	assert.Equal(t, int64(120), usage.TotalTokens)

	require.Len(t, provider.requests, 1)
	req := provider.requests[0]
	assert.Equal(t, DefaultSystemPrompt, req.SystemPrompt)
	assert.Equal(t, "<RESUME>\nGo developer\n</RESUME>\n<JOB>\nNeeds Go\n</JOB>", req.UserInput)
	assert.Equal(t, float32(0), req.Temperature)
	assert.Equal(t, 1200, req.MaxTokens)
}

func TestAssessEmptyJobStillCallsModel(t *testing.T) {
	provider := &fakeProvider{replies: []string{`{"ats_score": 30}`}}
	svc := NewServiceWithProvider(testResolvedConfig(), provider, testLogger)

	assessment, _, err := svc.Assess(context.Background(), "resume", "")
	require.NoError(t, err)
	assert.Equal(t, 30, *assessment.ATSScore)
	assert.True(t, strings.HasSuffix(provider.requests[0].UserInput, "<JOB>\n\n</JOB>"))
}

func TestAssessUsesConfiguredSystemPrompt(t *testing.T) {
	cfg := testResolvedConfig()
	cfg.SystemPrompt = "Return JSON only."
	provider := &fakeProvider{replies: []string{`{}`}}
	svc := NewServiceWithProvider(cfg, provider, testLogger)

	_, _, err := svc.Assess(context.Background(), "r", "j")
	require.NoError(t, err)
	assert.Equal(t, "Return JSON only.", provider.requests[0].SystemPrompt)
}

func TestAssessErrors(t *testing.T) {
	tests := []struct {
		name         string
		provider     *fakeProvider
		timeout      time.Duration
		expectedCode string
	}{
		{
			name:         "provider failure",
			provider:     &fakeProvider{errs: []error{stderrors.New("401 unauthorized")}},
			expectedCode: errors.ErrCodeAIServiceFailed,
		},
		{
			name:         "empty reply",
			provider:     &fakeProvider{replies: []string{"   "}},
			expectedCode: errors.ErrCodeEmptyReply,
		},
		{
			name:         "unparseable reply",
			provider:     &fakeProvider{replies: []string{"no json here"}},
			expectedCode: errors.ErrCodeInvalidReply,
		},
		{
			name:         "timeout",
			provider:     &fakeProvider{replies: []string{`{}`}, delay: time.Second},
			timeout:      20 * time.Millisecond,
			expectedCode: errors.ErrCodeAITimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testResolvedConfig()
			if tt.timeout > 0 {
				cfg.Timeout = tt.timeout
			}
			svc := NewServiceWithProvider(cfg, tt.provider, testLogger)

			assessment, _, err := svc.Assess(context.Background(), "resume", "job")
			require.Error(t, err)
			assert.Nil(t, assessment)

			appErr, ok := errors.As(err)
			require.True(t, ok)
			assert.Equal(t, errors.ErrorTypeAI, appErr.Type)
			assert.Equal(t, tt.expectedCode, appErr.Code)
		})
	}
}

func TestAssessCircuitOpens(t *testing.T) {
	cfg := testResolvedConfig()
	cfg.CircuitBreaker = testBreakerConfig()
	failure := stderrors.New("upstream down")
	provider := &fakeProvider{errs: []error{failure, failure, failure}}
	svc := NewServiceWithProvider(cfg, provider, testLogger)

	for i := 0; i < 2; i++ {
		_, _, err := svc.Assess(context.Background(), "r", "j")
		require.Error(t, err)
	}

	_, _, err := svc.Assess(context.Background(), "r", "j")
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeCircuitOpen, appErr.Code)
	assert.Len(t, provider.requests, 2, "open circuit must not reach the provider")
	assert.Equal(t, "open", svc.CircuitBreakerStats()["state"])
}

func TestProviderInfo(t *testing.T) {
	svc := NewServiceWithProvider(testResolvedConfig(), &fakeProvider{}, testLogger)
	info := svc.ProviderInfo()
	assert.Equal(t, "groq", info.Provider)
	assert.Equal(t, "Groq", info.DisplayName)
	assert.Equal(t, "mixtral-8x7b-32768", info.Model)
}

func TestNewServiceRejectsUnknownProvider(t *testing.T) {
	cfg := testResolvedConfig()
	cfg.Provider = "llama"
	_, err := NewService(context.Background(), cfg, testLogger)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}
