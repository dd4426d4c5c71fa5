package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/viper"

	"github.com/ppiankov/ng12agent/internal/model"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	v := viper.New()
	if err := setupViper(v, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg, err := loadConfig(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(model.DefaultConfig(), cfg); diff != "" {
		t.Errorf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
llm:
  provider: openai
  model: gpt-4o-mini
retrieval:
  default_top_k: 8
memory:
  backend: sqlite
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("NG12_RETRIEVAL_MIN_TOP_SCORE", "0.4")
	t.Setenv("NG12_LLM_API_KEY", "sk-test")
	t.Setenv("NG12_VERIFICATION_MODE", "warn")

	v := viper.New()
	if err := setupViper(v, path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg, err := loadConfig(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.LLM.Provider != "openai" || cfg.LLM.Model != "gpt-4o-mini" {
		t.Errorf("expected file values for llm, got %+v", cfg.LLM)
	}
	if cfg.LLM.APIKey != "sk-test" {
		t.Errorf("expected api key from env, got %q", cfg.LLM.APIKey)
	}
	if cfg.Retrieval.DefaultTopK != 8 {
		t.Errorf("expected default_top_k 8, got %d", cfg.Retrieval.DefaultTopK)
	}
	if cfg.Retrieval.MinTopScore != 0.4 {
		t.Errorf("expected min_top_score 0.4 from env, got %v", cfg.Retrieval.MinTopScore)
	}
	if cfg.Verification.Mode != "warn" {
		t.Errorf("expected verification mode warn, got %q", cfg.Verification.Mode)
	}
	if cfg.Memory.Backend != "sqlite" || cfg.Memory.Path != "data/sessions.db" {
		t.Errorf("expected file backend with default path, got %+v", cfg.Memory)
	}
	if cfg.Retrieval.MaxTopK != 20 {
		t.Errorf("expected untouched default max_top_k 20, got %d", cfg.Retrieval.MaxTopK)
	}
}

func TestSetupViper_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("llm: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := setupViper(viper.New(), path); err == nil {
		t.Error("expected error for malformed config")
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".ng12agent", "config.yaml")
	if err := writeDefaultConfig(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "default_top_k: 5") {
		t.Errorf("expected defaults in file, got:\n%s", data)
	}

	if err := writeDefaultConfig(path); err == nil {
		t.Error("expected error when config already exists")
	}

	// The written file must load back to the defaults
	v := viper.New()
	if err := setupViper(v, path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg, err := loadConfig(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(model.DefaultConfig(), cfg); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestRedact(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.LLM.APIKey = "sk-secret"
	redact(cfg)
	if cfg.LLM.APIKey != "********" {
		t.Errorf("expected redacted key, got %q", cfg.LLM.APIKey)
	}
	if cfg.Server.APIKey != "" {
		t.Errorf("expected empty key to stay empty, got %q", cfg.Server.APIKey)
	}
}
