package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// AppPaths holds the resolved locations for configuration and data
type AppPaths struct {
	ConfigDir string // directory containing settings.json
	DataDir   string // directory containing the session database and search index
}

// DetectAppPaths resolves the configuration and data directories based on
// the operating system, honoring XDG-style overrides where they apply.
func DetectAppPaths() (AppPaths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return AppPaths{}, fmt.Errorf("failed to get home directory: %w", err)
	}

	var configDir, dataDir string
	switch runtime.GOOS {
	case "darwin":
		configDir = filepath.Join(home, "Library/Application Support/TrustAgent/configuration")
		dataDir = filepath.Join(home, "Library/Application Support/TrustAgent/data")
	case "linux":
		configBase := os.Getenv("XDG_CONFIG_HOME")
		if configBase == "" {
			configBase = filepath.Join(home, ".config")
		}
		dataBase := os.Getenv("XDG_DATA_HOME")
		if dataBase == "" {
			dataBase = filepath.Join(home, ".local", "share")
		}
		configDir = filepath.Join(configBase, "trustagent")
		dataDir = filepath.Join(dataBase, "trustagent")
	default:
		return AppPaths{}, fmt.Errorf("unsupported OS: %s (only macOS and Linux are supported)", runtime.GOOS)
	}

	return AppPaths{ConfigDir: configDir, DataDir: dataDir}, nil
}

// SettingsPath returns the path to the settings.json file
func (p AppPaths) SettingsPath() string {
	return filepath.Join(p.ConfigDir, "settings.json")
}

// DatabasePath returns the path to the session database
func (p AppPaths) DatabasePath() string {
	return filepath.Join(p.DataDir, "sessions.db")
}

// IndexPath returns the path to the full-text search index
func (p AppPaths) IndexPath() string {
	return filepath.Join(p.DataDir, "search.bleve")
}

// EnsureDirs creates the configuration and data directories if missing
func (p AppPaths) EnsureDirs() error {
	if err := os.MkdirAll(p.ConfigDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.MkdirAll(p.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return nil
}
