// Package config loads the application configuration.
//
// Configuration comes from three layers, later layers overriding earlier
// ones: built-in defaults, a YAML file, and HOORII_* environment
// variables for secrets and deploy-time switches.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LLMConfig selects and configures the language model backend.
type LLMConfig struct {
	// Backend is "openai" (any OpenAI-compatible endpoint) or "gemini".
	Backend   string `yaml:"backend"`
	APIURL    string `yaml:"api_url"`
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
}

// TimeoutConfig bounds the slow collaborators of a turn.
type TimeoutConfig struct {
	IntentSeconds  int `yaml:"intent_seconds"`
	ReplySeconds   int `yaml:"reply_seconds"`
	ExecuteSeconds int `yaml:"execute_seconds"`
}

// Intent returns the intent-analysis timeout as a duration.
func (tc TimeoutConfig) Intent() time.Duration {
	return time.Duration(tc.IntentSeconds) * time.Second
}

// Reply returns the reply-generation timeout as a duration.
func (tc TimeoutConfig) Reply() time.Duration {
	return time.Duration(tc.ReplySeconds) * time.Second
}

// Execute returns the device-execution timeout as a duration.
func (tc TimeoutConfig) Execute() time.Duration {
	return time.Duration(tc.ExecuteSeconds) * time.Second
}

// Config holds all configurable application parameters.
type Config struct {
	LLM      LLMConfig     `yaml:"llm"`
	Timeouts TimeoutConfig `yaml:"timeouts"`

	// DBPath is the sqlite database file. Empty means ~/.hoorii/hoorii.db.
	DBPath string `yaml:"db_path"`
	// CatalogPath is the device catalog YAML. Empty means the embedded default.
	CatalogPath string `yaml:"catalog_path"`
	// AuditLogPath is the hash-chained command log. Empty disables auditing.
	AuditLogPath string `yaml:"audit_log_path"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Backend:   "openai",
			APIURL:    "https://api.openai.com/v1/chat/completions",
			Model:     "gpt-4o-mini",
			MaxTokens: 600,
		},
		Timeouts: TimeoutConfig{
			IntentSeconds:  30,
			ReplySeconds:   15,
			ExecuteSeconds: 10,
		},
	}
}

// Dir returns the application home directory (~/.hoorii).
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".hoorii"), nil
}

// ResolveDBPath returns the configured database path, defaulting to
// ~/.hoorii/hoorii.db and creating the directory when needed.
func (c *Config) ResolveDBPath() (string, error) {
	if c.DBPath != "" {
		return c.DBPath, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return filepath.Join(dir, "hoorii.db"), nil
}

// Load loads configuration from a YAML file.
// Empty path falls back to ~/.hoorii/config.yaml.
// Missing file returns defaults. Invalid YAML returns an error.
// Environment overrides apply last.
func Load(path string) (*Config, error) {
	cfg, _, err := LoadWithHash(path)
	return cfg, err
}

// LoadWithHash loads configuration and returns its SHA-256 hash.
// The hash is computed over the raw YAML bytes on disk, before env
// overrides, so secrets passed via environment never enter the hash.
// When no file exists the hash is the SHA-256 of empty input.
func LoadWithHash(path string) (*Config, string, error) {
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return applyEnv(DefaultConfig()), emptyHash(), nil
		}
		path = filepath.Join(dir, "config.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return applyEnv(DefaultConfig()), emptyHash(), nil
		}
		return nil, "", fmt.Errorf("failed to read config: %w", err)
	}

	h := sha256.Sum256(data)
	hash := "sha256:" + hex.EncodeToString(h[:])

	// Start with defaults, YAML overwrites only specified fields
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	return applyEnv(cfg), hash, nil
}

func emptyHash() string {
	h := sha256.Sum256(nil)
	return "sha256:" + hex.EncodeToString(h[:])
}

// applyEnv overlays HOORII_* environment variables onto cfg.
func applyEnv(cfg *Config) *Config {
	if v := os.Getenv("HOORII_BACKEND"); v != "" {
		cfg.LLM.Backend = v
	}
	if v := os.Getenv("HOORII_API_URL"); v != "" {
		cfg.LLM.APIURL = v
	}
	if v := os.Getenv("HOORII_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("HOORII_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("HOORII_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.LLM.MaxTokens = n
		}
	}
	if v := os.Getenv("HOORII_DB"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("HOORII_CATALOG"); v != "" {
		cfg.CatalogPath = v
	}
	if v := os.Getenv("HOORII_AUDIT_LOG"); v != "" {
		cfg.AuditLogPath = v
	}
	return cfg
}
