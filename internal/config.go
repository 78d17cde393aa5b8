package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// OpenAIParams configures the chat completion endpoint
type OpenAIParams struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
}

// ServerConfig describes how to launch one tool server process
type ServerConfig struct {
	Command string   `json:"command"`
	Args    []string `json:"args"`
}

// AppConfig is the content of the settings file
type AppConfig struct {
	OpenAI     OpenAIParams            `json:"openai"`
	MCPServers map[string]ServerConfig `json:"mcpServers"`
}

// DefaultConfig returns the configuration written on first run
func DefaultConfig() AppConfig {
	return AppConfig{
		OpenAI: OpenAIParams{
			BaseURL: "https://api.openai.com/v1",
			Model:   "gpt-4-turbo",
		},
		MCPServers: map[string]ServerConfig{},
	}
}

// LoadOrInitConfig reads the settings file at path, creating it with
// defaults when it does not exist. An unparseable file is replaced with
// defaults rather than failing, so a hand-edited file never bricks the
// application.
func LoadOrInitConfig(path string) (AppConfig, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg := DefaultConfig()
		if err := WriteConfig(path, cfg); err != nil {
			return AppConfig{}, err
		}
		return cfg, nil
	}
	if err != nil {
		return AppConfig{}, &ConfigError{Path: path, Op: "read", Err: err}
	}

	var cfg AppConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		LogWarn("settings file %s is not valid JSON, rewriting defaults: %v", path, err)
		cfg = DefaultConfig()
		if err := WriteConfig(path, cfg); err != nil {
			return AppConfig{}, err
		}
		return cfg, nil
	}

	if cfg.MCPServers == nil {
		cfg.MCPServers = map[string]ServerConfig{}
	}
	return cfg, nil
}

// WriteConfig writes the configuration as indented JSON
func WriteConfig(path string, cfg AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return &ConfigError{Path: path, Op: "write", Err: err}
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return &ConfigError{Path: path, Op: "write", Err: err}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return &ConfigError{Path: path, Op: "write", Err: err}
	}
	return nil
}

// OpenInEditor opens the given file with the platform default handler
func OpenInEditor(path string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "linux":
		cmd = exec.Command("xdg-open", path)
	default:
		return fmt.Errorf("unsupported OS: %s", runtime.GOOS)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	return nil
}
