package store

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"atsmatch/internal/config"
	"atsmatch/internal/errors"
	"atsmatch/internal/types"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = errors.NewLoggerWithWriter(io.Discard, slog.LevelDebug)

type capturedRequest struct {
	path    string
	headers http.Header
	body    map[string]any
}

func newStoreServer(t *testing.T, status int, response string) (*httptest.Server, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.path = r.URL.Path
		captured.headers = r.Header.Clone()
		_ = json.NewDecoder(r.Body).Decode(&captured.body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv, captured
}

func score(v int) *int { return &v }

func testRecord() types.EvaluationRecord {
	return types.EvaluationRecord{
		ResumeText:      "resume",
		JobText:         "job",
		ATSScore:        score(82),
		MissingKeywords: []string{"terraform"},
	}
}

func TestRESTSave(t *testing.T) {
	srv, captured := newStoreServer(t, http.StatusCreated, `{"objectId": "abc123", "createdAt": "2024-01-01T00:00:00Z"}`)

	saver := New(config.StoreConfig{
		Enabled:   true,
		BaseURL:   srv.URL + "/",
		ClassName: "Evaluation",
		AppID:     "app-id",
		RESTKey:   "rest-key",
		Timeout:   5 * time.Second,
	}, testLogger)
	assert.Equal(t, ModeREST, saver.Mode())

	result, err := saver.Save(context.Background(), testRecord())
	require.NoError(t, err)
	assert.True(t, result.Saved)
	assert.Equal(t, "abc123", result.ObjectID)

	assert.Equal(t, "/classes/Evaluation", captured.path)
	assert.Equal(t, "app-id", captured.headers.Get("X-Parse-Application-Id"))
	assert.Equal(t, "rest-key", captured.headers.Get("X-Parse-REST-API-Key"))
	_, err = uuid.Parse(captured.headers.Get("X-Request-ID"))
	assert.NoError(t, err, "request id must be a uuid")

	assert.Equal(t, "resume", captured.body["resume_text"])
	assert.Equal(t, "job", captured.body["job_text"])
	assert.EqualValues(t, 82, captured.body["ats_score"])
	assert.Equal(t, []any{"terraform"}, captured.body["missing_keywords"])
}

func TestMCPSaveTrimsTrailingSlash(t *testing.T) {
	srv, captured := newStoreServer(t, http.StatusOK, `{"objectId": "mcp-1"}`)

	saver := New(config.StoreConfig{
		Enabled: true,
		MCPURL:  srv.URL + "/proxy/",
		BaseURL: "https://unused.example.com",
		Timeout: 5 * time.Second,
	}, testLogger)
	assert.Equal(t, ModeMCP, saver.Mode())

	result, err := saver.Save(context.Background(), testRecord())
	require.NoError(t, err)
	assert.True(t, result.Saved)
	assert.Equal(t, "/proxy/evaluation", captured.path)
	assert.Empty(t, captured.headers.Get("X-Parse-Application-Id"), "MCP mode needs no Back4App credentials")
}

func TestSaveWithoutObjectID(t *testing.T) {
	srv, _ := newStoreServer(t, http.StatusOK, `{"status": "queued"}`)

	saver := New(config.StoreConfig{Enabled: true, MCPURL: srv.URL, Timeout: time.Second}, testLogger)
	result, err := saver.Save(context.Background(), testRecord())
	require.NoError(t, err)
	assert.False(t, result.Saved)
	assert.Empty(t, result.ObjectID)
}

func TestSaveErrors(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		response     string
		config       func(url string) config.StoreConfig
		expectedCode string
	}{
		{
			name:     "server error",
			status:   http.StatusInternalServerError,
			response: `{"error": "boom"}`,
			config: func(url string) config.StoreConfig {
				return config.StoreConfig{Enabled: true, MCPURL: url, Timeout: time.Second}
			},
			expectedCode: errors.ErrCodeStoreRejected,
		},
		{
			name:     "non json body",
			status:   http.StatusOK,
			response: `<html>ok</html>`,
			config: func(url string) config.StoreConfig {
				return config.StoreConfig{Enabled: true, MCPURL: url, Timeout: time.Second}
			},
			expectedCode: errors.ErrCodeStoreRejected,
		},
		{
			name:     "missing credentials",
			status:   http.StatusOK,
			response: `{"objectId": "never"}`,
			config: func(url string) config.StoreConfig {
				return config.StoreConfig{Enabled: true, BaseURL: url, ClassName: "Evaluation", Timeout: time.Second}
			},
			expectedCode: errors.ErrCodeMissingStoreCreds,
		},
		{
			name:   "unreachable",
			status: http.StatusOK,
			config: func(string) config.StoreConfig {
				return config.StoreConfig{Enabled: true, MCPURL: "http://127.0.0.1:1", Timeout: time.Second}
			},
			expectedCode: errors.ErrCodeStoreUnreachable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newStoreServer(t, tt.status, tt.response)
			saver := New(tt.config(srv.URL), testLogger)

			result, err := saver.Save(context.Background(), testRecord())
			require.Error(t, err)
			assert.False(t, result.Saved)

			appErr, ok := errors.As(err)
			require.True(t, ok)
			assert.Equal(t, errors.ErrorTypePersistence, appErr.Type)
			assert.Equal(t, tt.expectedCode, appErr.Code)
		})
	}
}

func TestDisabledStore(t *testing.T) {
	saver := New(config.StoreConfig{Enabled: false}, testLogger)
	assert.Equal(t, ModeDisabled, saver.Mode())

	result, err := saver.Save(context.Background(), testRecord())
	require.NoError(t, err)
	assert.False(t, result.Saved)
}

func TestNewRecord(t *testing.T) {
	long := strings.Repeat("é", 40)

	record := NewRecord(long, "job", &types.Assessment{
		ATSScore:        score(64),
		MissingKeywords: []string{"sql"},
	}, 30)

	assert.Equal(t, strings.Repeat("é", 30), record.ResumeText, "truncation counts characters, not bytes")
	assert.Equal(t, "job", record.JobText)
	assert.Equal(t, 64, *record.ATSScore)
	assert.Equal(t, []string{"sql"}, record.MissingKeywords)

	empty := NewRecord("r", "", &types.Assessment{}, 30)
	assert.Nil(t, empty.ATSScore)
	assert.NotNil(t, empty.MissingKeywords)

	encoded, err := json.Marshal(empty)
	require.NoError(t, err)
	assert.JSONEq(t, `{"resume_text": "r", "job_text": "", "ats_score": null, "missing_keywords": []}`, string(encoded))
}
