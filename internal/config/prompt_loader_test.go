package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSystemPromptFile(t *testing.T) {
	tempDir := t.TempDir()
	promptFile := filepath.Join(tempDir, "system.md")
	require.NoError(t, os.WriteFile(promptFile, []byte("\n  Score resumes strictly.  \n"), 0600))

	cfg := &Config{AI: AIConfig{SystemPromptFile: promptFile}}
	require.NoError(t, cfg.loadSystemPromptFile())
	assert.Equal(t, "Score resumes strictly.", cfg.AI.SystemPrompt)
}

func TestLoadSystemPromptFileErrors(t *testing.T) {
	tempDir := t.TempDir()

	emptyFile := filepath.Join(tempDir, "empty.md")
	require.NoError(t, os.WriteFile(emptyFile, []byte("   \n"), 0600))

	bigFile := filepath.Join(tempDir, "big.md")
	require.NoError(t, os.WriteFile(bigFile, []byte(strings.Repeat("x", maxPromptFileSize+1)), 0600))

	okFile := filepath.Join(tempDir, "ok.md")
	require.NoError(t, os.WriteFile(okFile, []byte("prompt"), 0600))

	tests := []struct {
		name     string
		ai       AIConfig
		errorMsg string
	}{
		{"missing file", AIConfig{SystemPromptFile: filepath.Join(tempDir, "nope.md")}, "prompt file not found"},
		{"empty file", AIConfig{SystemPromptFile: emptyFile}, "prompt file is empty"},
		{"oversized file", AIConfig{SystemPromptFile: bigFile}, "exceeds"},
		{"directory", AIConfig{SystemPromptFile: tempDir}, "is a directory"},
		{"both inline and file", AIConfig{SystemPromptFile: okFile, SystemPrompt: "inline"}, "cannot specify both"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{AI: tt.ai}
			err := cfg.loadSystemPromptFile()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}

func TestLoadSystemPromptFileKeepsInlinePrompt(t *testing.T) {
	cfg := &Config{AI: AIConfig{SystemPrompt: "inline prompt"}}
	require.NoError(t, cfg.loadSystemPromptFile())
	assert.Equal(t, "inline prompt", cfg.AI.SystemPrompt)
}
