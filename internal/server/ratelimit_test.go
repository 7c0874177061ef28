package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetRateLimitKey(t *testing.T) {
	withKey := httptest.NewRequest(http.MethodGet, "/api/v1/provider", nil)
	withKey.Header.Set("X-API-Key", "secret-key-123")
	withKey.RemoteAddr = "198.51.100.4:5555"

	keyType, key := getRateLimitKey(withKey, true, true)
	assert.Equal(t, "api_key", keyType)
	assert.True(t, strings.HasPrefix(key, "api:"))
	assert.NotContains(t, key, "secret-key-123")

	keyType, key = getRateLimitKey(withKey, false, true)
	assert.Equal(t, "ip", keyType)
	assert.Equal(t, "ip:198.51.100.4", key)

	keyType, key = getRateLimitKey(withKey, false, false)
	assert.Empty(t, keyType)
	assert.Empty(t, key)
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded list", map[string]string{"X-Forwarded-For": "bogus, 203.0.113.9, 10.0.0.1"}, "10.0.0.2:1", "203.0.113.9"},
		{"real ip", map[string]string{"X-Real-IP": "203.0.113.10"}, "10.0.0.2:1", "203.0.113.10"},
		{"invalid real ip", map[string]string{"X-Real-IP": "nope"}, "10.0.0.2:1", "10.0.0.2"},
		{"socket without port", nil, "10.0.0.3", "10.0.0.3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(req))
		})
	}
}

func TestRateLimiterEvictsIdleBuckets(t *testing.T) {
	rl := NewRateLimiter(60, 1, testLogger())
	t.Cleanup(rl.Close)

	allowed, _ := rl.Allow("ip:a")
	assert.True(t, allowed)
	allowed, wait := rl.Allow("ip:a")
	assert.False(t, allowed)
	assert.Equal(t, time.Second, wait)

	rl.evictIdle(-time.Second)
	assert.Equal(t, 0, rl.GetStats()["active_limiters"])

	rl.Close()
}
