package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/giantswarm/meta-ads-mcp/pkg/logging"
)

const (
	userConfigDir  = ".config/meta-ads-mcp"
	configFileName = "config.yaml"
	tokenFileName  = "token.enc"
)

// DefaultConfigDir returns the per-user configuration directory.
func DefaultConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine user config directory: %w", err)
	}
	return filepath.Join(homeDir, userConfigDir), nil
}

// Load builds the configuration from defaults, the optional config.yaml in
// configDir and finally environment variables. An empty configDir selects
// DefaultConfigDir.
func Load(configDir string) (Config, error) {
	return load(configDir, env.Options{})
}

// LoadWithEnvironment is Load with an explicit environment map instead of
// the process environment.
func LoadWithEnvironment(configDir string, environ map[string]string) (Config, error) {
	return load(configDir, env.Options{Environment: environ})
}

func load(configDir string, opts env.Options) (Config, error) {
	cfg := GetDefaultConfig()

	if configDir == "" {
		dir, err := DefaultConfigDir()
		if err != nil {
			return Config{}, err
		}
		configDir = dir
	}

	configFilePath := filepath.Join(configDir, configFileName)
	data, err := os.ReadFile(configFilePath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logging.Debug("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
	case err != nil:
		return Config{}, fmt.Errorf("error reading config from %s: %w", configFilePath, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("error loading config from %s: %w", configFilePath, err)
		}
		logging.Debug("ConfigLoader", "Loaded configuration from %s", configFilePath)
	}

	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if cfg.TokenStore.Path == "" && cfg.TokenStore.Kind != StoreKindMemory {
		cfg.TokenStore.Path = filepath.Join(configDir, tokenFileName)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
