package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// legacyEnv maps config keys onto the plain variable names deployments already use.
// The ATSMATCH_ prefixed name always wins over the plain one.
var legacyEnv = map[string]string{
	"ai.openai.apiKey": "OPENAI_API_KEY",
	"ai.openai.model":  "OPENAI_MODEL",
	"ai.groq.apiKey":   "GROQ_API_KEY",
	"ai.groq.model":    "GROQ_MODEL",
	"ai.grok.apiKey":   "GROK_API_KEY",
	"ai.grok.model":    "GROK_MODEL",
	"ai.gemini.apiKey": "GEMINI_API_KEY",
	"ai.gemini.model":  "GEMINI_MODEL",
	"ai.useGroq":       "USE_GROQ",
	"ai.useGrok":       "USE_GROK",
	"store.appID":      "BACK4APP_APP_ID",
	"store.restKey":    "BACK4APP_REST_KEY",
	"store.mcpURL":     "BACK4APP_MCP_URL",
}

// bindLegacyEnv binds each key to its prefixed and plain environment variable names
func bindLegacyEnv(v *viper.Viper) error {
	for key, plain := range legacyEnv {
		if err := v.BindEnv(key, envKey(key), plain); err != nil {
			return err
		}
	}
	return nil
}

// envKey returns the ATSMATCH_ prefixed variable name for a config key
func envKey(key string) string {
	return "ATSMATCH_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// loggedEnvVars lists the variables reported in the startup summary
func loggedEnvVars() []string {
	return []string{
		"ATSMATCH_AI_PROVIDER",
		"ATSMATCH_SERVER_PORT",
		"ATSMATCH_SERVER_HOST",
		"ATSMATCH_APP_LOGLEVEL",
		"ATSMATCH_VAULT_ENABLED",
		"ATSMATCH_STORE_ENABLED",
		"USE_GROQ",
		"USE_GROK",
		"OPENAI_API_KEY",
		"OPENAI_MODEL",
		"GROQ_API_KEY",
		"GROQ_MODEL",
		"GROK_API_KEY",
		"GROK_MODEL",
		"GEMINI_API_KEY",
		"BACK4APP_APP_ID",
		"BACK4APP_REST_KEY",
		"BACK4APP_MCP_URL",
	}
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// AI Configuration
	v.SetDefault("ai.provider", "")
	v.SetDefault("ai.useGroq", "false")
	v.SetDefault("ai.useGrok", "false")
	v.SetDefault("ai.timeout", 60*time.Second)
	v.SetDefault("ai.maxRetries", 0) // single attempt unless an operator opts in
	v.SetDefault("ai.temperature", 0.0)
	v.SetDefault("ai.maxTokens", 1200)
	v.SetDefault("ai.systemPrompt", "")
	v.SetDefault("ai.systemPromptFile", "")

	v.SetDefault("ai.openai.apiKey", "")
	v.SetDefault("ai.openai.model", "gpt-4")
	v.SetDefault("ai.openai.baseURL", "")
	v.SetDefault("ai.groq.apiKey", "")
	v.SetDefault("ai.groq.model", "mixtral-8x7b-32768")
	v.SetDefault("ai.groq.baseURL", "https://api.groq.com/openai/v1")
	v.SetDefault("ai.grok.apiKey", "")
	v.SetDefault("ai.grok.model", "grok-2-1212")
	v.SetDefault("ai.grok.baseURL", "https://api.x.ai/v1")
	v.SetDefault("ai.gemini.apiKey", "")
	v.SetDefault("ai.gemini.model", "gemini-2.0-flash")
	v.SetDefault("ai.gemini.baseURL", "")

	v.SetDefault("ai.circuitBreaker.enabled", true)
	v.SetDefault("ai.circuitBreaker.maxRequests", 3)
	v.SetDefault("ai.circuitBreaker.interval", 60*time.Second)
	v.SetDefault("ai.circuitBreaker.timeout", 60*time.Second)
	v.SetDefault("ai.circuitBreaker.minRequests", 3)
	v.SetDefault("ai.circuitBreaker.failureThreshold", 0.6)

	// Store Configuration
	v.SetDefault("store.enabled", true)
	v.SetDefault("store.mcpURL", "")
	v.SetDefault("store.baseURL", "https://parseapi.back4app.com")
	v.SetDefault("store.className", "Evaluation")
	v.SetDefault("store.appID", "")
	v.SetDefault("store.restKey", "")
	v.SetDefault("store.timeout", 15*time.Second)
	v.SetDefault("store.maxTextChars", 30000)

	// Server Configuration
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.readTimeout", 30*time.Second)
	v.SetDefault("server.writeTimeout", 120*time.Second) // covers a slow model reply
	v.SetDefault("server.idleTimeout", 120*time.Second)
	v.SetDefault("server.apiKeys", []string{})

	v.SetDefault("server.tls.mode", "disabled")
	v.SetDefault("server.tls.certFile", "")
	v.SetDefault("server.tls.keyFile", "")
	v.SetDefault("server.tls.caFile", "")
	v.SetDefault("server.tls.minVersion", "1.2")
	v.SetDefault("server.tls.clientAuthPolicy", "require")
	v.SetDefault("server.tls.autoReload", true)
	v.SetDefault("server.tls.debounceDelay", time.Second)

	v.SetDefault("server.rateLimit.enabled", false)
	v.SetDefault("server.rateLimit.requestsPerMin", 30)
	v.SetDefault("server.rateLimit.burstCapacity", 5)
	v.SetDefault("server.rateLimit.byIP", true)
	v.SetDefault("server.rateLimit.byAPIKey", false)

	// App Configuration
	v.SetDefault("app.logLevel", "info")
	v.SetDefault("app.defaultFormat", "text")
	v.SetDefault("app.supportedFormats", []string{"json", "text", "markdown"})
	v.SetDefault("app.maxFileSize", 10*1024*1024) // 10MB

	// Vault Configuration
	v.SetDefault("vault.enabled", false)
	v.SetDefault("vault.address", "")
	v.SetDefault("vault.token", "")
	v.SetDefault("vault.tokenFile", "")
	v.SetDefault("vault.namespace", "")
	v.SetDefault("vault.secrets.apiKeys", "")
	v.SetDefault("vault.secrets.providerKeys", "")
	v.SetDefault("vault.secrets.store", "")
	v.SetDefault("vault.secrets.tlsCerts", "")

	// Observability Configuration
	v.SetDefault("observability.enabled", true)
	v.SetDefault("observability.serviceName", "atsmatch")
	v.SetDefault("observability.serviceVersion", "")
	v.SetDefault("observability.serviceInstance", "")
	v.SetDefault("observability.consoleOutput", false)
	v.SetDefault("observability.prettyPrint", true)
	v.SetDefault("observability.sampleRate", 1.0)

	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.collectionInterval", 15*time.Second)
	v.SetDefault("observability.metrics.trackTokenUsage", true)
	v.SetDefault("observability.metrics.trackRateLimits", true)

	v.SetDefault("observability.prometheus.enabled", false)
	v.SetDefault("observability.prometheus.endpoint", "/metrics")
	v.SetDefault("observability.prometheus.port", "9090")

	v.SetDefault("observability.otlp.enabled", false)
	v.SetDefault("observability.otlp.endpoint", "http://localhost:4318")
	v.SetDefault("observability.otlp.insecure", true)
	v.SetDefault("observability.otlp.headers", map[string]string{})
}
