package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateTLSConfig(t *testing.T) {
	tests := []struct {
		name        string
		tls         TLSConfig
		expectError bool
		errorMsg    string
	}{
		{
			name: "disabled mode",
			tls:  TLSConfig{Mode: "disabled"},
		},
		{
			name: "server mode with files",
			tls:  TLSConfig{Mode: "server", CertFile: "/path/cert.pem", KeyFile: "/path/key.pem"},
		},
		{
			name: "server mode with content",
			tls:  TLSConfig{Mode: "server", CertContent: "cert", KeyContent: "key", MinVersion: "1.3"},
		},
		{
			name: "mutual mode valid",
			tls: TLSConfig{
				Mode: "mutual", CertFile: "/c.pem", KeyFile: "/k.pem", CAFile: "/ca.pem",
				ClientAuthPolicy: "verify",
			},
		},
		{
			name:        "invalid mode",
			tls:         TLSConfig{Mode: "invalid"},
			expectError: true,
			errorMsg:    "invalid TLS mode: invalid",
		},
		{
			name:        "server mode missing key",
			tls:         TLSConfig{Mode: "server", CertFile: "/c.pem"},
			expectError: true,
			errorMsg:    "TLS key is required for server mode",
		},
		{
			name:        "duplicate cert sources",
			tls:         TLSConfig{Mode: "server", CertFile: "/c.pem", CertContent: "cert", KeyFile: "/k.pem"},
			expectError: true,
			errorMsg:    "cannot specify both certFile and certContent",
		},
		{
			name:        "mutual mode missing ca",
			tls:         TLSConfig{Mode: "mutual", CertFile: "/c.pem", KeyFile: "/k.pem"},
			expectError: true,
			errorMsg:    "TLS ca is required for mutual mode",
		},
		{
			name: "mutual mode bad policy",
			tls: TLSConfig{
				Mode: "mutual", CertFile: "/c.pem", KeyFile: "/k.pem", CAContent: "ca",
				ClientAuthPolicy: "maybe",
			},
			expectError: true,
			errorMsg:    "invalid clientAuthPolicy: maybe",
		},
		{
			name:        "bad min version",
			tls:         TLSConfig{Mode: "server", CertFile: "/c.pem", KeyFile: "/k.pem", MinVersion: "1.0"},
			expectError: true,
			errorMsg:    "invalid TLS minVersion: 1.0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Server: ServerConfig{TLS: tt.tls}}
			err := cfg.ValidateTLSConfig()

			if tt.expectError {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
