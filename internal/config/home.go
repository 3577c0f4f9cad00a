package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// HomeEnv names the environment variable that overrides the home directory.
const HomeEnv = "DEVSCAN_HOME"

// LoadEnv loads dir/.env when present. Variables already set in the
// environment keep their values.
func LoadEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// GetHome returns the devscan home directory
// Priority order:
//  1. DEVSCAN_HOME environment variable (if set)
//  2. ~/.devscan
//
// The directory is created if it doesn't exist
func GetHome() (string, error) {
	home := os.Getenv(HomeEnv)
	if home == "" {
		userHome, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("get user home directory: %w", err)
		}
		home = filepath.Join(userHome, ".devscan")
	}

	if err := os.MkdirAll(home, 0755); err != nil {
		return "", fmt.Errorf("create devscan home directory: %w", err)
	}
	return home, nil
}

// ConfigPath returns the config file location under home.
func ConfigPath(home string) string {
	return filepath.Join(home, "config.yaml")
}

// Load resolves the home directory, reads its config file and makes the
// storage paths absolute.
func Load() (*Config, string, error) {
	home, err := GetHome()
	if err != nil {
		return nil, "", err
	}
	cfg, err := LoadConfig(ConfigPath(home))
	if err != nil {
		return nil, "", err
	}
	cfg.ResolvePaths(home)
	return cfg, home, nil
}
