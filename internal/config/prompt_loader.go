package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// maxPromptFileSize bounds custom prompt files
const maxPromptFileSize = 64 * 1024

// loadSystemPromptFile replaces ai.systemPrompt with the content of ai.systemPromptFile when set.
// An inline systemPrompt and a file cannot both be configured.
func (c *Config) loadSystemPromptFile() error {
	path := c.AI.SystemPromptFile
	if path == "" {
		if c.AI.SystemPrompt != "" {
			log.Println("[CONFIG] Using inline custom system prompt")
		}
		return nil
	}

	if c.AI.SystemPrompt != "" {
		return fmt.Errorf("cannot specify both ai.systemPrompt and ai.systemPromptFile - choose one")
	}

	content, err := readPromptFile(path)
	if err != nil {
		return err
	}

	c.AI.SystemPrompt = content
	log.Printf("[CONFIG] Loaded custom system prompt from %s (%d bytes)", path, len(content))
	return nil
}

// readPromptFile reads and trims a prompt file, rejecting missing, oversized or empty files
func readPromptFile(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("invalid prompt file path %s: %w", path, err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("prompt file not found: %s", absPath)
		}
		return "", fmt.Errorf("cannot access prompt file %s: %w", absPath, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("prompt file is a directory: %s", absPath)
	}
	if info.Size() > maxPromptFileSize {
		return "", fmt.Errorf("prompt file %s exceeds %d bytes", absPath, maxPromptFileSize)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt file %s: %w", absPath, err)
	}

	content := strings.TrimSpace(string(data))
	if content == "" {
		return "", fmt.Errorf("prompt file is empty: %s", absPath)
	}
	return content, nil
}
