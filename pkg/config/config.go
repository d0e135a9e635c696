package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Defaults match the SEA-LION hosted model the assistant was built against.
const (
	DefaultModel            = "aisingapore/Qwen-SEA-LION-v4-32B-IT"
	DefaultBaseURL          = "https://api.sea-lion.ai/v1"
	DefaultTimezone         = "Asia/Singapore"
	DefaultTokenFile        = "token.json"
	DefaultClientSecretFile = "credentials.json"
)

// Config holds all runtime configuration for the assistant.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string

	MaxTurns int
	Verbose  bool

	// Default timezone applied to events when the model omits one.
	Timezone string

	// OAuth token cache and the client secret downloaded from the
	// Google Cloud Console.
	TokenFile        string
	ClientSecretFile string
}

// fileConfig mirrors the optional YAML config file.
type fileConfig struct {
	Model            string `yaml:"model"`
	BaseURL          string `yaml:"base_url"`
	MaxTurns         int    `yaml:"max_turns"`
	Timezone         string `yaml:"timezone"`
	TokenFile        string `yaml:"token_file"`
	ClientSecretFile string `yaml:"client_secret_file"`
}

// DefaultConfig returns a baseline configuration without side effects.
func DefaultConfig() Config {
	return Config{
		Model:            DefaultModel,
		BaseURL:          DefaultBaseURL,
		MaxTurns:         10,
		Timezone:         DefaultTimezone,
		TokenFile:        DefaultTokenFile,
		ClientSecretFile: DefaultClientSecretFile,
	}
}

// LoadFile overlays values from a YAML config file onto cfg. A missing file
// is only an error when the caller explicitly asked for that path.
func LoadFile(cfg Config, path string, required bool) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}

	if fc.Model != "" {
		cfg.Model = fc.Model
	}
	if fc.BaseURL != "" {
		cfg.BaseURL = fc.BaseURL
	}
	if fc.MaxTurns > 0 {
		cfg.MaxTurns = fc.MaxTurns
	}
	if fc.Timezone != "" {
		cfg.Timezone = fc.Timezone
	}
	if fc.TokenFile != "" {
		cfg.TokenFile = fc.TokenFile
	}
	if fc.ClientSecretFile != "" {
		cfg.ClientSecretFile = fc.ClientSecretFile
	}
	return cfg, nil
}

// Normalize sanitizes configuration values and applies defaults.
func Normalize(cfg Config) Config {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	cfg.Model = strings.TrimSpace(cfg.Model)
	cfg.Timezone = strings.TrimSpace(cfg.Timezone)
	cfg.TokenFile = strings.TrimSpace(cfg.TokenFile)
	cfg.ClientSecretFile = strings.TrimSpace(cfg.ClientSecretFile)

	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = 1
	}
	if cfg.Timezone == "" {
		cfg.Timezone = DefaultTimezone
	}
	if cfg.TokenFile == "" {
		cfg.TokenFile = DefaultTokenFile
	}
	if cfg.ClientSecretFile == "" {
		cfg.ClientSecretFile = DefaultClientSecretFile
	}
	return cfg
}
