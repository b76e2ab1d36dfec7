package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigValues(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.LLM.Backend != "openai" {
		t.Errorf("expected backend=openai, got %s", cfg.LLM.Backend)
	}
	if cfg.LLM.MaxTokens != 600 {
		t.Errorf("expected MaxTokens=600, got %d", cfg.LLM.MaxTokens)
	}
	if cfg.Timeouts.Intent() != 30*time.Second {
		t.Errorf("expected 30s intent timeout, got %v", cfg.Timeouts.Intent())
	}
	if cfg.Timeouts.Reply() != 15*time.Second {
		t.Errorf("expected 15s reply timeout, got %v", cfg.Timeouts.Reply())
	}
	if cfg.Timeouts.Execute() != 10*time.Second {
		t.Errorf("expected 10s execute timeout, got %v", cfg.Timeouts.Execute())
	}
	if cfg.AuditLogPath != "" {
		t.Errorf("expected auditing off by default, got %q", cfg.AuditLogPath)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("expected no error for missing file, got %v", err)
	}
	if cfg.LLM.Backend != "openai" {
		t.Errorf("expected default backend, got %s", cfg.LLM.Backend)
	}
}

func TestLoadFromYAMLOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
llm:
  backend: gemini
  model: gemini-2.0-flash
timeouts:
  intent_seconds: 5
audit_log_path: /var/log/hoorii/audit.jsonl
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.LLM.Backend != "gemini" || cfg.LLM.Model != "gemini-2.0-flash" {
		t.Errorf("llm overlay wrong: %+v", cfg.LLM)
	}
	if cfg.Timeouts.Intent() != 5*time.Second {
		t.Errorf("expected 5s intent timeout, got %v", cfg.Timeouts.Intent())
	}
	// Unspecified fields keep their defaults.
	if cfg.Timeouts.Execute() != 10*time.Second {
		t.Errorf("expected default execute timeout, got %v", cfg.Timeouts.Execute())
	}
	if cfg.LLM.MaxTokens != 600 {
		t.Errorf("expected default MaxTokens, got %d", cfg.LLM.MaxTokens)
	}
	if cfg.AuditLogPath != "/var/log/hoorii/audit.jsonl" {
		t.Errorf("audit path = %q", cfg.AuditLogPath)
	}
}

func TestLoadInvalidYAMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("llm: [broken"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("llm:\n  model: from-file\n"), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("HOORII_MODEL", "from-env")
	t.Setenv("HOORII_API_KEY", "sk-test")
	t.Setenv("HOORII_MAX_TOKENS", "900")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.Model != "from-env" {
		t.Errorf("expected env model to win, got %s", cfg.LLM.Model)
	}
	if cfg.LLM.APIKey != "sk-test" {
		t.Errorf("expected env api key, got %q", cfg.LLM.APIKey)
	}
	if cfg.LLM.MaxTokens != 900 {
		t.Errorf("expected MaxTokens=900, got %d", cfg.LLM.MaxTokens)
	}
}

func TestEnvBadIntIgnored(t *testing.T) {
	t.Setenv("HOORII_MAX_TOKENS", "not-a-number")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.MaxTokens != 600 {
		t.Errorf("expected default MaxTokens on bad env, got %d", cfg.LLM.MaxTokens)
	}
}

func TestHashStableAndEnvIndependent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("db_path: /tmp/a.db\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, h1, err := LoadWithHash(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Setenv("HOORII_API_KEY", "sk-secret")
	_, h2, err := LoadWithHash(path)
	if err != nil {
		t.Fatal(err)
	}

	if h1 != h2 {
		t.Errorf("hash must not depend on environment: %s vs %s", h1, h2)
	}
	if !strings.HasPrefix(h1, "sha256:") || len(h1) != 7+64 {
		t.Errorf("malformed hash %q", h1)
	}
}

func TestHashMissingFileIsEmptyInput(t *testing.T) {
	_, h, err := LoadWithHash(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	// SHA-256 of empty input.
	if h != "sha256:e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855" {
		t.Errorf("hash = %s", h)
	}
}
