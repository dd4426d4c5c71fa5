package llm

import (
	"fmt"
	"strings"

	"github.com/ppiankov/ng12agent/internal/model"
	"github.com/ppiankov/ng12agent/internal/util"
)

// NewProvider creates a new LLM provider based on configuration
func NewProvider(config Config) (Provider, error) {
	provider := strings.ToLower(config.Provider)

	switch provider {
	case "gemini", "google":
		return NewGeminiProvider(config)

	case "vertex", "vertexai":
		return NewVertexProvider(config)

	case "openai":
		return NewOpenAIProvider(config)

	case "anthropic", "claude":
		return NewAnthropicProvider(config)

	case "ollama":
		return NewOllamaProvider(config)

	case "":
		// No provider configured - return nil (LLM disabled)
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: gemini, vertex, openai, anthropic, ollama)", config.Provider)
	}
}

// ConfigFromModel converts model.LLMConfig to llm.Config, filling
// credentials from the provider's usual environment variables
func ConfigFromModel(modelConfig model.LLMConfig) Config {
	cfg := Config{
		Provider:    modelConfig.Provider,
		Model:       modelConfig.Model,
		APIKey:      modelConfig.APIKey,
		BaseURL:     modelConfig.BaseURL,
		Project:     modelConfig.Project,
		Location:    modelConfig.Location,
		Timeout:     modelConfig.Timeout,
		MaxTokens:   modelConfig.MaxTokens,
		Temperature: modelConfig.Temperature,
		HTTPProxy:   modelConfig.HTTPProxy,
		HTTPSProxy:  modelConfig.HTTPSProxy,
		NoProxy:     modelConfig.NoProxy,
	}
	return withEnv(cfg)
}

func withEnv(cfg Config) Config {
	switch strings.ToLower(cfg.Provider) {
	case "gemini", "google":
		if cfg.APIKey == "" {
			cfg.APIKey = util.Getenv("GEMINI_API_KEY", "GOOGLE_API_KEY")
		}
	case "vertex", "vertexai":
		if cfg.Project == "" {
			cfg.Project = util.Getenv("GOOGLE_CLOUD_PROJECT")
		}
		if cfg.Location == "" {
			cfg.Location = util.Getenv("GOOGLE_CLOUD_LOCATION", "GOOGLE_CLOUD_REGION")
		}
	case "openai":
		if cfg.APIKey == "" {
			cfg.APIKey = util.Getenv("OPENAI_API_KEY")
		}
		if cfg.BaseURL == "" {
			cfg.BaseURL = util.Getenv("OPENAI_BASE_URL")
		}
	case "anthropic", "claude":
		if cfg.APIKey == "" {
			cfg.APIKey = util.Getenv("ANTHROPIC_API_KEY")
		}
	case "ollama":
		if cfg.BaseURL == "" {
			cfg.BaseURL = util.Getenv("OLLAMA_BASE_URL")
		}
	}
	return cfg
}
