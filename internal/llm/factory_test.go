package llm

import (
	"testing"

	"github.com/ppiankov/ng12agent/internal/model"
)

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		wantName string
		wantNil  bool
		wantErr  bool
	}{
		{name: "disabled", config: Config{}, wantNil: true},
		{name: "openai", config: Config{Provider: "openai", APIKey: "k"}, wantName: "openai"},
		{name: "claude alias", config: Config{Provider: "Claude", APIKey: "k"}, wantName: "anthropic"},
		{name: "ollama", config: Config{Provider: "ollama", Model: "llama3.1:8b"}, wantName: "ollama"},
		{name: "gemini", config: Config{Provider: "gemini", APIKey: "k"}, wantName: "gemini"},
		{name: "openai without key", config: Config{Provider: "openai"}, wantErr: true},
		{name: "unknown", config: Config{Provider: "bard"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(tt.config)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantNil {
				if p != nil {
					t.Errorf("expected nil provider, got %s", p.Name())
				}
				return
			}
			if p.Name() != tt.wantName {
				t.Errorf("expected %s, got %s", tt.wantName, p.Name())
			}
		})
	}
}

func TestConfigFromModel_EnvFallback(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-key")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "google-key")

	cfg := ConfigFromModel(model.LLMConfig{Provider: "openai", Model: "gpt-4o-mini", MaxTokens: 512})
	if cfg.APIKey != "env-key" {
		t.Errorf("expected env-key, got %q", cfg.APIKey)
	}
	if cfg.MaxTokens != 512 {
		t.Errorf("expected 512 max tokens, got %d", cfg.MaxTokens)
	}

	cfg = ConfigFromModel(model.LLMConfig{Provider: "gemini"})
	if cfg.APIKey != "google-key" {
		t.Errorf("expected google-key, got %q", cfg.APIKey)
	}

	cfg = ConfigFromModel(model.LLMConfig{Provider: "openai", APIKey: "explicit"})
	if cfg.APIKey != "explicit" {
		t.Errorf("expected explicit key to win, got %q", cfg.APIKey)
	}
}
