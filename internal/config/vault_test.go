package config

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"atsmatch/internal/errors"

	"github.com/hashicorp/vault/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *errors.Logger {
	logger, _ := errors.New("debug")
	return logger
}

// newFakeVault serves KVv2 read responses for the given paths
func newFakeVault(t *testing.T, secrets map[string]map[string]any) *VaultClient {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, ok := secrets[r.URL.Path[len("/v1/"):]]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"errors":[]}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"data":     data,
				"metadata": map[string]any{"version": 3},
			},
		})
	}))
	t.Cleanup(srv.Close)

	cfg := api.DefaultConfig()
	cfg.Address = srv.URL
	client, err := api.NewClient(cfg)
	require.NoError(t, err)
	client.SetToken("test-token")

	return &VaultClient{client: client, logger: newTestLogger()}
}

func TestParseVersionValue(t *testing.T) {
	tests := []struct {
		name        string
		input       any
		expected    int64
		expectError bool
	}{
		{"int64", int64(42), 42, false},
		{"float64", float64(7), 7, false},
		{"json number", json.Number("12"), 12, false},
		{"string", "5", 5, false},
		{"bad string", "five", 0, true},
		{"missing", nil, 0, true},
		{"wrong type", true, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseVersionValue(tt.input, "secret/data/test")
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestResolveVaultToken(t *testing.T) {
	t.Run("token from config", func(t *testing.T) {
		token, err := resolveVaultToken(VaultConfig{Token: "direct-token"})
		require.NoError(t, err)
		assert.Equal(t, "direct-token", token)
	})

	t.Run("token from file is trimmed", func(t *testing.T) {
		tokenFile := filepath.Join(t.TempDir(), "vault-token")
		require.NoError(t, os.WriteFile(tokenFile, []byte("  file-token  \n"), 0600))

		token, err := resolveVaultToken(VaultConfig{TokenFile: tokenFile})
		require.NoError(t, err)
		assert.Equal(t, "file-token", token)
	})

	t.Run("missing token file", func(t *testing.T) {
		_, err := resolveVaultToken(VaultConfig{TokenFile: "/nonexistent/token/file"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read vault token file")
	})

	t.Run("no token", func(t *testing.T) {
		_, err := resolveVaultToken(VaultConfig{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "vault token is required")
	})
}

func TestApplySecretsFromVault(t *testing.T) {
	client := newFakeVault(t, map[string]map[string]any{
		"secret/data/atsmatch/api":       {"keys": "k1, k2 ,k3"},
		"secret/data/atsmatch/providers": {"groq": "gsk-vault", "openai": ""},
		"secret/data/atsmatch/store":     {"app_id": "app-vault", "rest_key": "rest-vault"},
		"secret/data/atsmatch/tls":       {"cert": "CERT", "key": "KEY"},
	})

	cfg := &Config{
		AI: AIConfig{OpenAI: ProviderConfig{APIKey: "sk-env"}},
		Server: ServerConfig{TLS: TLSConfig{
			CertFile: "/etc/cert.pem",
			KeyFile:  "/etc/key.pem",
		}},
		Store: StoreConfig{MCPURL: "https://mcp.example.com"},
		Vault: VaultConfig{Secrets: VaultSecrets{
			APIKeys:      "secret/data/atsmatch/api",
			ProviderKeys: "secret/data/atsmatch/providers",
			Store:        "secret/data/atsmatch/store",
			TLSCerts:     "secret/data/atsmatch/tls",
		}},
	}

	require.NoError(t, applySecrets(client, cfg, newTestLogger()))

	assert.Equal(t, []string{"k1", "k2", "k3"}, cfg.Server.APIKeys)
	assert.Equal(t, "gsk-vault", cfg.AI.Groq.APIKey)
	assert.Equal(t, "sk-env", cfg.AI.OpenAI.APIKey, "empty vault field must not clear an existing key")
	assert.Equal(t, "app-vault", cfg.Store.AppID)
	assert.Equal(t, "rest-vault", cfg.Store.RESTKey)
	assert.Equal(t, "https://mcp.example.com", cfg.Store.MCPURL)
	assert.Equal(t, "CERT", cfg.Server.TLS.CertContent)
	assert.Empty(t, cfg.Server.TLS.CertFile)
	assert.Empty(t, cfg.Server.TLS.KeyFile)
}

func TestApplySecretsMissingPath(t *testing.T) {
	client := newFakeVault(t, map[string]map[string]any{})
	cfg := &Config{Vault: VaultConfig{Secrets: VaultSecrets{Store: "secret/data/missing"}}}

	err := applySecrets(client, cfg, newTestLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store credentials")
}

func TestApplyVaultSecretsDisabled(t *testing.T) {
	cfg := &Config{Vault: VaultConfig{Enabled: false}}
	assert.NoError(t, ApplyVaultSecrets(cfg, newTestLogger()))
}
