// Package embed turns guideline passages and queries into vectors.
// Backends: Gemini API / Vertex AI (genai), OpenAI and Ollama.
package embed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/ng12agent/internal/llm"
	"github.com/ppiankov/ng12agent/internal/model"
	"github.com/ppiankov/ng12agent/internal/util"
)

// Task tells a backend how the vectors will be used
type Task string

const (
	TaskQuery    Task = "RETRIEVAL_QUERY"
	TaskDocument Task = "RETRIEVAL_DOCUMENT"
)

// Engine generates embeddings for a batch of texts, one vector per text in order
type Engine interface {
	Name() string
	EmbedBatch(ctx context.Context, texts []string, task Task) ([][]float32, error)
}

// Limiter throttles calls per key
type Limiter interface {
	Wait(ctx context.Context, key string) error
}

// Options configures an Embedder
type Options struct {
	Dimensions int     // Expected vector size; 0 skips the check
	Limiter    Limiter // Optional, keyed by engine name
	Logger     *zap.Logger
}

// Embedder validates engine output and exposes query and document helpers
type Embedder struct {
	engine Engine
	opts   Options
	logger *zap.Logger
}

// NewEmbedder wraps an engine
func NewEmbedder(engine Engine, opts Options) *Embedder {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Embedder{engine: engine, opts: opts, logger: logger}
}

// Name returns the engine name
func (e *Embedder) Name() string {
	return e.engine.Name()
}

// Dimensions returns the configured vector size
func (e *Embedder) Dimensions() int {
	return e.opts.Dimensions
}

// Embed embeds a single retrieval query
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.embed(ctx, []string{text}, TaskQuery)
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedDocuments embeds passages for indexing
func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return e.embed(ctx, texts, TaskDocument)
}

func (e *Embedder) embed(ctx context.Context, texts []string, task Task) ([][]float32, error) {
	if e.opts.Limiter != nil {
		if err := e.opts.Limiter.Wait(ctx, e.engine.Name()); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	start := time.Now()
	vecs, err := e.engine.EmbedBatch(ctx, texts, task)
	if err != nil {
		return nil, fmt.Errorf("%s embed: %w", e.engine.Name(), err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("%s embed: expected %d vectors, got %d", e.engine.Name(), len(texts), len(vecs))
	}
	for i, v := range vecs {
		if len(v) == 0 {
			return nil, fmt.Errorf("%s embed: empty vector at %d", e.engine.Name(), i)
		}
		if e.opts.Dimensions > 0 && len(v) != e.opts.Dimensions {
			return nil, fmt.Errorf("%s embed: vector %d has %d dimensions, expected %d",
				e.engine.Name(), i, len(v), e.opts.Dimensions)
		}
	}

	e.logger.Debug("embedded",
		zap.String("engine", e.engine.Name()),
		zap.String("task", string(task)),
		zap.Int("count", len(texts)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return vecs, nil
}

// NewEngine creates an embedding engine based on configuration
func NewEngine(cfg model.EmbeddingConfig) (Engine, error) {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	switch strings.ToLower(cfg.Provider) {
	case "gemini", "google", "":
		return NewGenAIEngine(llm.GenAIOptions{
			APIKey:     firstNonEmpty(cfg.APIKey, util.Getenv("GEMINI_API_KEY", "GOOGLE_API_KEY")),
			BaseURL:    cfg.BaseURL,
			Timeout:    timeout,
			HTTPClient: util.NewHTTPClient(0, util.ProxyConfig{}),
		}, cfg.Model, cfg.Dimensions)

	case "vertex", "vertexai":
		return NewGenAIEngine(llm.GenAIOptions{
			Vertex:     true,
			Project:    firstNonEmpty(cfg.Project, util.Getenv("GOOGLE_CLOUD_PROJECT")),
			Location:   firstNonEmpty(cfg.Location, util.Getenv("GOOGLE_CLOUD_LOCATION", "GOOGLE_CLOUD_REGION")),
			BaseURL:    cfg.BaseURL,
			Timeout:    timeout,
			HTTPClient: util.NewHTTPClient(0, util.ProxyConfig{}),
		}, cfg.Model, cfg.Dimensions)

	case "openai":
		return NewOpenAIEngine(firstNonEmpty(cfg.APIKey, util.Getenv("OPENAI_API_KEY")),
			firstNonEmpty(cfg.BaseURL, util.Getenv("OPENAI_BASE_URL")), cfg.Model, cfg.Dimensions, timeout)

	case "ollama":
		return NewOllamaEngine(firstNonEmpty(cfg.BaseURL, util.Getenv("OLLAMA_BASE_URL")), cfg.Model, timeout)

	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: gemini, vertex, openai, ollama)", cfg.Provider)
	}
}

// New builds an Embedder from configuration
func New(cfg model.EmbeddingConfig, limiter Limiter, logger *zap.Logger) (*Embedder, error) {
	engine, err := NewEngine(cfg)
	if err != nil {
		return nil, err
	}
	return NewEmbedder(engine, Options{Dimensions: cfg.Dimensions, Limiter: limiter, Logger: logger}), nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
