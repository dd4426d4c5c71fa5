package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/ppiankov/ng12agent/internal/util"
)

// DefaultGeminiModel is used when no model is configured
const DefaultGeminiModel = "gemini-2.5-flash"

// GenAIOptions selects a Gemini API or Vertex AI backend
type GenAIOptions struct {
	Vertex     bool
	APIKey     string
	Project    string
	Location   string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// NewGenAIClient builds a google.golang.org/genai client. Vertex AI uses
// application default credentials; the Gemini API needs a key.
func NewGenAIClient(ctx context.Context, opts GenAIOptions) (*genai.Client, error) {
	cc := &genai.ClientConfig{HTTPClient: opts.HTTPClient}
	if opts.Vertex {
		if opts.Project == "" {
			return nil, fmt.Errorf("vertex AI project is required")
		}
		cc.Backend = genai.BackendVertexAI
		cc.Project = opts.Project
		cc.Location = opts.Location
	} else {
		if opts.APIKey == "" {
			return nil, fmt.Errorf("Gemini API key is required")
		}
		cc.Backend = genai.BackendGeminiAPI
		cc.APIKey = opts.APIKey
	}
	if opts.BaseURL != "" {
		cc.HTTPOptions.BaseURL = opts.BaseURL
	}
	if opts.Timeout > 0 {
		cc.HTTPOptions.Timeout = genai.Ptr(opts.Timeout)
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return client, nil
}

// GeminiProvider implements the Provider interface for Gemini models,
// served either by the Gemini API or by Vertex AI
type GeminiProvider struct {
	client *genai.Client
	config Config
	name   string
}

// NewGeminiProvider creates a provider on the Gemini API backend
func NewGeminiProvider(config Config) (*GeminiProvider, error) {
	return newGeminiProvider(config, false)
}

// NewVertexProvider creates a provider on the Vertex AI backend
func NewVertexProvider(config Config) (*GeminiProvider, error) {
	return newGeminiProvider(config, true)
}

func newGeminiProvider(config Config, vertex bool) (*GeminiProvider, error) {
	timeout := time.Duration(config.Timeout) * time.Second
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	client, err := NewGenAIClient(context.Background(), GenAIOptions{
		Vertex:   vertex,
		APIKey:   config.APIKey,
		Project:  config.Project,
		Location: config.Location,
		BaseURL:  config.BaseURL,
		Timeout:  timeout,
		HTTPClient: util.NewHTTPClient(0, util.ProxyConfig{
			HTTPProxy: config.HTTPProxy, HTTPSProxy: config.HTTPSProxy, NoProxy: config.NoProxy,
		}),
	})
	if err != nil {
		return nil, err
	}

	name := "gemini"
	if vertex {
		name = "vertex"
	}
	return &GeminiProvider{client: client, config: config, name: name}, nil
}

// Name returns the provider name
func (p *GeminiProvider) Name() string {
	return p.name
}

// IsAvailable checks the configured model can be described
func (p *GeminiProvider) IsAvailable(ctx context.Context) bool {
	_, err := p.client.Models.Get(ctx, p.config.model(Request{}, DefaultGeminiModel), nil)
	return err == nil
}

// Complete runs GenerateContent; JSON requests set the response MIME type
func (p *GeminiProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	model := p.config.model(req, DefaultGeminiModel)

	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(req.Temperature)),
		MaxOutputTokens: int32(p.config.maxTokens(req)),
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.JSON {
		cfg.ResponseMIMEType = "application/json"
	}

	resp, err := p.client.Models.GenerateContent(ctx, model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return nil, fmt.Errorf("%s API error: %w", p.name, err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, fmt.Errorf("no content in %s response", p.name)
	}

	out := &Response{Text: text, Model: resp.ModelVersion}
	if out.Model == "" {
		out.Model = model
	}
	if resp.UsageMetadata != nil {
		out.TokensUsed = int(resp.UsageMetadata.TotalTokenCount)
	}
	return out, nil
}
