package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearProviderEnv blanks every variable that could leak a key into a test
func clearProviderEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"OPENAI_API_KEY", "GROQ_API_KEY", "GROK_API_KEY", "GEMINI_API_KEY",
		"OPENAI_MODEL", "GROQ_MODEL", "GROK_MODEL", "GEMINI_MODEL",
		"USE_GROQ", "USE_GROK", "ATSMATCH_AI_PROVIDER",
		"BACK4APP_APP_ID", "BACK4APP_REST_KEY", "BACK4APP_MCP_URL",
	} {
		t.Setenv(name, "")
	}
	t.Setenv("ATSMATCH_APP_ENVFILES", filepath.Join(t.TempDir(), "none.env"))
}

func TestActiveProviderPriority(t *testing.T) {
	tests := []struct {
		name     string
		ai       AIConfig
		expected string
	}{
		{"default is openai", AIConfig{}, ProviderOpenAI},
		{"groq flag", AIConfig{UseGroq: "true"}, ProviderGroq},
		{"grok flag", AIConfig{UseGrok: "true"}, ProviderGrok},
		{"groq wins over grok", AIConfig{UseGroq: "true", UseGrok: "true"}, ProviderGroq},
		{"explicit provider wins", AIConfig{Provider: ProviderGemini, UseGroq: "true"}, ProviderGemini},
		{"groq flag mixed case", AIConfig{UseGroq: " tRUe "}, ProviderGroq},
		{"groq flag from yaml boolean", AIConfig{UseGroq: "1"}, ProviderGroq},
		{"unrecognised groq value means off", AIConfig{UseGroq: "yes"}, ProviderOpenAI},
		{"false groq falls through to grok", AIConfig{UseGroq: "false", UseGrok: "TRUE"}, ProviderGrok},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.ai.ActiveProvider())
		})
	}
}

func TestResolveAI(t *testing.T) {
	base := AIConfig{
		Timeout:     30 * time.Second,
		MaxTokens:   1200,
		Temperature: 0,
		OpenAI:      ProviderConfig{APIKey: "sk-1", Model: "gpt-4"},
		Groq:        ProviderConfig{APIKey: "gsk-1", Model: "mixtral-8x7b-32768", BaseURL: "https://api.groq.com/openai/v1"},
		Grok:        ProviderConfig{Model: "grok-2-1212", BaseURL: "https://api.x.ai/v1"},
	}

	t.Run("groq selected", func(t *testing.T) {
		ai := base
		ai.UseGroq = "true"
		cfg := &Config{AI: ai}

		resolved, err := cfg.ResolveAI()
		require.NoError(t, err)
		assert.Equal(t, ProviderGroq, resolved.Provider)
		assert.Equal(t, "Groq", resolved.DisplayName)
		assert.Equal(t, "mixtral-8x7b-32768", resolved.Model)
		assert.Equal(t, "gsk-1", resolved.APIKey)
		assert.Equal(t, "https://api.groq.com/openai/v1", resolved.BaseURL)
		assert.Equal(t, 1200, resolved.MaxTokens)
	})

	t.Run("grok selected without key", func(t *testing.T) {
		ai := base
		ai.UseGrok = "true"
		cfg := &Config{AI: ai}

		_, err := cfg.ResolveAI()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "USE_GROK=true but GROK_API_KEY not set")
	})

	t.Run("openai without key", func(t *testing.T) {
		ai := base
		ai.OpenAI.APIKey = ""
		cfg := &Config{AI: ai}

		_, err := cfg.ResolveAI()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "OPENAI_API_KEY")
	})

	t.Run("unknown provider", func(t *testing.T) {
		ai := base
		ai.Provider = "llama"
		cfg := &Config{AI: ai}

		_, err := cfg.ResolveAI()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported AI provider: llama")
	})
}

func TestLoadConfigDefaults(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	resolved, err := cfg.ResolveAI()
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, resolved.Provider)
	assert.Equal(t, "gpt-4", resolved.Model)
	assert.Equal(t, float32(0), resolved.Temperature)
	assert.Equal(t, 1200, resolved.MaxTokens)
	assert.Equal(t, 0, resolved.MaxRetries)

	assert.True(t, cfg.Store.Enabled)
	assert.Equal(t, "https://parseapi.back4app.com", cfg.Store.BaseURL)
	assert.Equal(t, "Evaluation", cfg.Store.ClassName)
	assert.Equal(t, 15*time.Second, cfg.Store.Timeout)
	assert.Equal(t, 30000, cfg.Store.MaxTextChars)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "disabled", cfg.Server.TLS.Mode)
}

func TestLoadConfigLegacyEnvironment(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("USE_GROQ", "true")
	t.Setenv("GROQ_API_KEY", "gsk-legacy")
	t.Setenv("GROQ_MODEL", "llama-3.1-70b-versatile")
	t.Setenv("BACK4APP_MCP_URL", "https://mcp.example.com/")
	t.Setenv("BACK4APP_APP_ID", "app")
	t.Setenv("BACK4APP_REST_KEY", "rest")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	resolved, err := cfg.ResolveAI()
	require.NoError(t, err)
	assert.Equal(t, ProviderGroq, resolved.Provider)
	assert.Equal(t, "gsk-legacy", resolved.APIKey)
	assert.Equal(t, "llama-3.1-70b-versatile", resolved.Model)
	assert.Equal(t, "https://mcp.example.com/", cfg.Store.MCPURL)
	assert.Equal(t, "app", cfg.Store.AppID)
	assert.Equal(t, "rest", cfg.Store.RESTKey)
}

func TestLoadConfigLegacyProviderFlags(t *testing.T) {
	tests := []struct {
		name     string
		useGroq  string
		expected string
	}{
		{"lower case true", "true", ProviderGroq},
		{"mixed case true", "tRUe", ProviderGroq},
		{"yes is not true", "yes", ProviderOpenAI},
		{"garbage is not true", "enabled", ProviderOpenAI},
		{"explicit false", "false", ProviderOpenAI},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearProviderEnv(t)
			t.Setenv("USE_GROQ", tt.useGroq)
			t.Setenv("GROQ_API_KEY", "gsk-legacy")
			t.Setenv("OPENAI_API_KEY", "sk-legacy")

			cfg, err := LoadConfig()
			require.NoError(t, err, "a non-boolean USE_GROQ must not stop startup")
			assert.Equal(t, tt.expected, cfg.AI.ActiveProvider())
		})
	}
}

func TestLoadConfigPrefixedEnvironmentWins(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-plain")
	t.Setenv("ATSMATCH_AI_OPENAI_APIKEY", "sk-prefixed")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "sk-prefixed", cfg.AI.OpenAI.APIKey)
}

func TestLoadConfigMissingKeyFails(t *testing.T) {
	clearProviderEnv(t)

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestLoadConfigFromFileAndDotEnv(t *testing.T) {
	clearProviderEnv(t)

	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("GROK_API_KEY=xai-from-dotenv\n"), 0600))
	t.Setenv("ATSMATCH_APP_ENVFILES", envFile)
	// dotenv never overrides a variable that exists, even an empty one
	require.NoError(t, os.Unsetenv("GROK_API_KEY"))

	configFile := filepath.Join(dir, "config.yaml")
	yaml := `
ai:
  provider: grok
  maxTokens: 800
store:
  enabled: false
app:
  defaultFormat: markdown
`
	require.NoError(t, os.WriteFile(configFile, []byte(yaml), 0600))

	cfg, err := LoadConfigFrom(configFile)
	require.NoError(t, err)

	resolved, err := cfg.ResolveAI()
	require.NoError(t, err)
	assert.Equal(t, ProviderGrok, resolved.Provider)
	assert.Equal(t, "Grok (xAI)", resolved.DisplayName)
	assert.Equal(t, "xai-from-dotenv", resolved.APIKey)
	assert.Equal(t, "https://api.x.ai/v1", resolved.BaseURL)
	assert.Equal(t, 800, resolved.MaxTokens)
	assert.False(t, cfg.Store.Enabled)
	assert.Equal(t, "markdown", cfg.App.DefaultFormat)
}

func TestValidateRejectsBadValues(t *testing.T) {
	valid := func() *Config {
		return &Config{
			AI: AIConfig{
				Timeout:   time.Second,
				MaxTokens: 1200,
				OpenAI:    ProviderConfig{APIKey: "sk", Model: "gpt-4"},
			},
			Store:  StoreConfig{Enabled: true, Timeout: time.Second, MaxTextChars: 10},
			Server: ServerConfig{Port: "8080", TLS: TLSConfig{Mode: "disabled"}},
			App: AppConfig{
				DefaultFormat:    "json",
				SupportedFormats: []string{"json", "text"},
				MaxFileSize:      1024,
			},
		}
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name     string
		mutate   func(*Config)
		errorMsg string
	}{
		{"zero ai timeout", func(c *Config) { c.AI.Timeout = 0 }, "AI timeout must be positive"},
		{"negative retries", func(c *Config) { c.AI.MaxRetries = -1 }, "maxRetries"},
		{"zero max tokens", func(c *Config) { c.AI.MaxTokens = 0 }, "maxTokens"},
		{"zero store timeout", func(c *Config) { c.Store.Timeout = 0 }, "store timeout"},
		{"missing port", func(c *Config) { c.Server.Port = "" }, "server port is required"},
		{"unknown format", func(c *Config) { c.App.DefaultFormat = "xml" }, "invalid default format: xml"},
		{"bad tls", func(c *Config) { c.Server.TLS.Mode = "on" }, "TLS configuration error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}
