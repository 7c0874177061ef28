package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"atsmatch/internal/errors"

	"github.com/hashicorp/vault/api"
)

// VaultConfig holds Vault connection configuration
type VaultConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Address   string `mapstructure:"address"`
	Token     string `mapstructure:"token"`
	TokenFile string `mapstructure:"tokenFile"`
	Namespace string `mapstructure:"namespace"`

	Secrets VaultSecrets `mapstructure:"secrets"`
}

// VaultSecrets defines where to find secrets in Vault (KVv2 read paths)
type VaultSecrets struct {
	// APIKeys holds a "keys" field with comma-separated server API keys
	APIKeys string `mapstructure:"apiKeys"`
	// ProviderKeys holds one field per backend: openai, groq, grok, gemini
	ProviderKeys string `mapstructure:"providerKeys"`
	// Store holds app_id, rest_key and optionally mcp_url
	Store string `mapstructure:"store"`
	// TLSCerts holds cert, key and optionally ca PEM content
	TLSCerts string `mapstructure:"tlsCerts"`
}

// VaultClient wraps the Vault API client
type VaultClient struct {
	client *api.Client
	logger *errors.Logger
}

// VaultSecret represents a secret read from Vault's KVv2 engine.
type VaultSecret struct {
	Data    map[string]any
	Version int64
}

// NewVaultClient creates a new Vault client from configuration
func NewVaultClient(config VaultConfig, logger *errors.Logger) (*VaultClient, error) {
	if !config.Enabled {
		return nil, nil
	}

	vaultConfig := api.DefaultConfig()
	if config.Address != "" {
		vaultConfig.Address = config.Address
	}

	client, err := api.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	if config.Namespace != "" {
		client.SetNamespace(config.Namespace)
	}

	token, err := resolveVaultToken(config)
	if err != nil {
		return nil, err
	}
	client.SetToken(token)

	health, err := client.Sys().Health()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to vault: %w", err)
	}
	if logger != nil {
		logger.Info("Connected to Vault",
			"address", vaultConfig.Address,
			"version", health.Version,
			"sealed", health.Sealed)
	}

	return &VaultClient{client: client, logger: logger}, nil
}

// resolveVaultToken resolves the Vault token from config or file
func resolveVaultToken(config VaultConfig) (string, error) {
	token := config.Token

	if token == "" && config.TokenFile != "" {
		tokenBytes, err := os.ReadFile(config.TokenFile)
		if err != nil {
			return "", fmt.Errorf("failed to read vault token file: %w", err)
		}
		token = strings.TrimSpace(string(tokenBytes))
	}

	if token == "" {
		return "", fmt.Errorf("vault token is required when vault is enabled")
	}

	return token, nil
}

// GetSecretV2 retrieves a secret from a Vault KVv2 store.
func (vc *VaultClient) GetSecretV2(path string) (*VaultSecret, error) {
	if vc == nil {
		return nil, fmt.Errorf("vault client not initialized")
	}

	secret, err := vc.client.Logical().Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret from %s: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("secret not found at path: %s", path)
	}

	data, ok := secret.Data["data"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'data' field)", path)
	}

	metadata, ok := secret.Data["metadata"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'metadata' field)", path)
	}

	version, err := parseVersionValue(metadata["version"], path)
	if err != nil {
		return nil, err
	}

	return &VaultSecret{Data: data, Version: version}, nil
}

// parseVersionValue parses version value from the JSON-decoded metadata
func parseVersionValue(versionRaw any, path string) (int64, error) {
	switch v := versionRaw.(type) {
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	case json.Number:
		version, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("could not parse secret version at %s: %w", path, err)
		}
		return version, nil
	case string:
		version, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("could not parse secret version at %s: %w", path, err)
		}
		return version, nil
	case nil:
		return 0, fmt.Errorf("secret metadata at %s is missing 'version' field", path)
	default:
		return 0, fmt.Errorf("unexpected type for version at %s: %T", path, versionRaw)
	}
}

// stringField returns a non-empty string field of a secret
func (s *VaultSecret) stringField(key string) (string, bool) {
	value, ok := s.Data[key].(string)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

// ApplyVaultSecrets loads secrets from Vault and applies them to the config
func ApplyVaultSecrets(config *Config, logger *errors.Logger) error {
	if !config.Vault.Enabled {
		return nil
	}

	client, err := NewVaultClient(config.Vault, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize vault client: %w", err)
	}

	return applySecrets(client, config, logger)
}

// applySecrets reads every configured secret path and overrides the matching settings
func applySecrets(client *VaultClient, config *Config, logger *errors.Logger) error {
	paths := config.Vault.Secrets

	loaders := []struct {
		path  string
		name  string
		apply func(*VaultSecret) int
	}{
		{paths.APIKeys, "server API keys", func(s *VaultSecret) int { return applyServerAPIKeys(config, s) }},
		{paths.ProviderKeys, "provider API keys", func(s *VaultSecret) int { return applyProviderKeys(config, s) }},
		{paths.Store, "store credentials", func(s *VaultSecret) int { return applyStoreSecrets(config, s) }},
		{paths.TLSCerts, "TLS certificates", func(s *VaultSecret) int { return applyTLSSecrets(config, s) }},
	}

	for _, l := range loaders {
		if l.path == "" {
			continue
		}
		secret, err := client.GetSecretV2(l.path)
		if err != nil {
			return fmt.Errorf("failed to load %s from vault: %w", l.name, err)
		}
		applied := l.apply(secret)
		if logger != nil {
			logger.Info("Secrets loaded from Vault", "kind", l.name, "path", l.path, "fields_applied", applied, "version", secret.Version)
		} else {
			log.Printf("[CONFIG] Loaded %s from Vault path %s (%d fields, version %d)", l.name, l.path, applied, secret.Version)
		}
	}

	return nil
}

func applyServerAPIKeys(config *Config, secret *VaultSecret) int {
	raw, ok := secret.stringField("keys")
	if !ok {
		return 0
	}
	keys := splitAndTrim(raw)
	if len(keys) == 0 {
		return 0
	}
	config.Server.APIKeys = keys
	return len(keys)
}

func applyProviderKeys(config *Config, secret *VaultSecret) int {
	targets := map[string]*string{
		ProviderOpenAI: &config.AI.OpenAI.APIKey,
		ProviderGroq:   &config.AI.Groq.APIKey,
		ProviderGrok:   &config.AI.Grok.APIKey,
		ProviderGemini: &config.AI.Gemini.APIKey,
	}
	return applyStringFields(secret, targets)
}

func applyStoreSecrets(config *Config, secret *VaultSecret) int {
	return applyStringFields(secret, map[string]*string{
		"app_id":   &config.Store.AppID,
		"rest_key": &config.Store.RESTKey,
		"mcp_url":  &config.Store.MCPURL,
	})
}

func applyTLSSecrets(config *Config, secret *VaultSecret) int {
	applied := applyStringFields(secret, map[string]*string{
		"cert": &config.Server.TLS.CertContent,
		"key":  &config.Server.TLS.KeyContent,
		"ca":   &config.Server.TLS.CAContent,
	})
	// Vault content replaces file based material.
	if config.Server.TLS.CertContent != "" {
		config.Server.TLS.CertFile = ""
	}
	if config.Server.TLS.KeyContent != "" {
		config.Server.TLS.KeyFile = ""
	}
	if config.Server.TLS.CAContent != "" {
		config.Server.TLS.CAFile = ""
	}
	return applied
}

func applyStringFields(secret *VaultSecret, targets map[string]*string) int {
	applied := 0
	for key, target := range targets {
		if value, ok := secret.stringField(key); ok {
			*target = value
			applied++
		}
	}
	return applied
}
