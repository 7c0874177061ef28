package config

import (
	"fmt"
	"strings"
	"time"
)

// Provider names accepted by ai.provider
const (
	ProviderOpenAI = "openai"
	ProviderGroq   = "groq"
	ProviderGrok   = "grok"
	ProviderGemini = "gemini"
)

var providerDisplayNames = map[string]string{
	ProviderOpenAI: "OpenAI",
	ProviderGroq:   "Groq",
	ProviderGrok:   "Grok (xAI)",
	ProviderGemini: "Gemini",
}

var providerKeyEnv = map[string]string{
	ProviderOpenAI: "OPENAI_API_KEY",
	ProviderGroq:   "GROQ_API_KEY",
	ProviderGrok:   "GROK_API_KEY",
	ProviderGemini: "GEMINI_API_KEY",
}

// ResolvedAIConfig is the effective configuration of the single active backend
type ResolvedAIConfig struct {
	Provider       string
	DisplayName    string
	Model          string
	APIKey         string
	BaseURL        string
	Timeout        time.Duration
	MaxRetries     int
	Temperature    float32
	MaxTokens      int
	SystemPrompt   string
	CircuitBreaker CircuitBreakerConfig
}

// ActiveProvider returns the selected backend name.
// Priority: explicit ai.provider, then useGroq, then useGrok, then OpenAI.
func (a AIConfig) ActiveProvider() string {
	switch {
	case a.Provider != "":
		return a.Provider
	case flagEnabled(a.UseGroq):
		return ProviderGroq
	case flagEnabled(a.UseGrok):
		return ProviderGrok
	default:
		return ProviderOpenAI
	}
}

// flagEnabled treats "true" in any case as set and everything else as unset.
// "1" is accepted too, since a yaml boolean reaches the string field as "1".
func flagEnabled(value string) bool {
	value = strings.TrimSpace(value)
	return strings.EqualFold(value, "true") || value == "1"
}

func (a AIConfig) providerConfig(name string) (ProviderConfig, bool) {
	switch name {
	case ProviderOpenAI:
		return a.OpenAI, true
	case ProviderGroq:
		return a.Groq, true
	case ProviderGrok:
		return a.Grok, true
	case ProviderGemini:
		return a.Gemini, true
	default:
		return ProviderConfig{}, false
	}
}

// ResolveAI selects the active backend and merges its settings with the shared AI settings
func (c *Config) ResolveAI() (ResolvedAIConfig, error) {
	name := c.AI.ActiveProvider()

	pc, ok := c.AI.providerConfig(name)
	if !ok {
		return ResolvedAIConfig{}, fmt.Errorf("unsupported AI provider: %s (must be 'openai', 'groq', 'grok', or 'gemini')", name)
	}

	if pc.APIKey == "" {
		return ResolvedAIConfig{}, missingKeyError(name, c.AI)
	}

	if pc.Model == "" {
		return ResolvedAIConfig{}, fmt.Errorf("no model configured for AI provider %s", name)
	}

	return ResolvedAIConfig{
		Provider:       name,
		DisplayName:    providerDisplayNames[name],
		Model:          pc.Model,
		APIKey:         pc.APIKey,
		BaseURL:        pc.BaseURL,
		Timeout:        c.AI.Timeout,
		MaxRetries:     c.AI.MaxRetries,
		Temperature:    c.AI.Temperature,
		MaxTokens:      c.AI.MaxTokens,
		SystemPrompt:   c.AI.SystemPrompt,
		CircuitBreaker: c.AI.CircuitBreaker,
	}, nil
}

func missingKeyError(name string, a AIConfig) error {
	switch {
	case name == ProviderGroq && flagEnabled(a.UseGroq) && a.Provider == "":
		return fmt.Errorf("USE_GROQ=true but GROQ_API_KEY not set")
	case name == ProviderGrok && flagEnabled(a.UseGrok) && a.Provider == "":
		return fmt.Errorf("USE_GROK=true but GROK_API_KEY not set")
	case name == ProviderOpenAI && a.Provider == "":
		return fmt.Errorf("please set OPENAI_API_KEY (or USE_GROQ=true + GROQ_API_KEY, or USE_GROK=true + GROK_API_KEY)")
	default:
		return fmt.Errorf("AI provider %s selected but %s not set", name, providerKeyEnv[name])
	}
}
