package llm

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/ng12agent/internal/cache"
)

// Limiter throttles calls per key
type Limiter interface {
	Wait(ctx context.Context, key string) error
}

// ClientOptions configures a Client
type ClientOptions struct {
	Temperature float64
	MaxTokens   int
	Limiter     Limiter     // Optional, keyed by provider name
	Cache       cache.Cache // Optional response cache
	CacheTTL    time.Duration
	Logger      *zap.Logger
}

// Client wraps a Provider with rate limiting, response caching and
// failure-tolerant text and JSON helpers. A nil Client, or one without
// a provider, answers every call with an empty result.
type Client struct {
	provider Provider
	opts     ClientOptions
	logger   *zap.Logger
}

// NewClient creates a client around provider, which may be nil
func NewClient(provider Provider, opts ClientOptions) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{provider: provider, opts: opts, logger: logger}
}

// Enabled reports whether a provider is configured
func (c *Client) Enabled() bool {
	return c != nil && c.provider != nil
}

// ProviderName returns the provider name or "none"
func (c *Client) ProviderName() string {
	if !c.Enabled() {
		return "none"
	}
	return c.provider.Name()
}

// GenerateText returns the model's text for a prompt, or "" on any failure
func (c *Client) GenerateText(ctx context.Context, system, user string) string {
	return c.complete(ctx, Request{System: system, Prompt: user}, "text")
}

// GenerateJSON asks for a JSON object and decodes it. Code fences and
// surrounding prose are tolerated. Any failure yields an empty map.
func (c *Client) GenerateJSON(ctx context.Context, system, user, schema string) map[string]any {
	raw := c.complete(ctx, Request{System: system, Prompt: user, JSON: true}, schema)
	if raw == "" {
		return map[string]any{}
	}
	out, err := DecodeObject(raw)
	if err != nil {
		c.logger.Warn("model returned invalid JSON",
			zap.String("schema", schema),
			zap.Int("length", len(raw)),
			zap.Error(err),
		)
		return map[string]any{}
	}
	return out
}

func (c *Client) complete(ctx context.Context, req Request, kind string) string {
	if !c.Enabled() {
		return ""
	}
	req.Temperature = c.opts.Temperature
	req.MaxTokens = c.opts.MaxTokens

	name := c.provider.Name()
	key := cache.Key("llm", name, kind, req.System, req.Prompt)
	var cached string
	if cache.GetJSON(c.opts.Cache, key, &cached) {
		c.logger.Debug("llm cache hit", zap.String("provider", name), zap.String("kind", kind))
		return cached
	}

	if c.opts.Limiter != nil {
		if err := c.opts.Limiter.Wait(ctx, name); err != nil {
			c.logger.Warn("llm rate limit wait aborted", zap.String("provider", name), zap.Error(err))
			return ""
		}
	}

	start := time.Now()
	resp, err := c.provider.Complete(ctx, req)
	if err != nil {
		c.logger.Warn("llm call failed",
			zap.String("provider", name),
			zap.String("kind", kind),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return ""
	}
	c.logger.Debug("llm call",
		zap.String("provider", name),
		zap.String("model", resp.Model),
		zap.String("kind", kind),
		zap.Int("tokens", resp.TokensUsed),
		zap.Duration("elapsed", time.Since(start)),
	)

	text := strings.TrimSpace(resp.Text)
	if text != "" && c.opts.CacheTTL > 0 {
		if err := cache.SetJSON(c.opts.Cache, key, text, c.opts.CacheTTL); err != nil {
			c.logger.Debug("llm cache write failed", zap.Error(err))
		}
	}
	return text
}

// DecodeObject extracts and decodes the first JSON object in s
func DecodeObject(s string) (map[string]any, error) {
	s = StripFences(s)
	if start, end := strings.Index(s, "{"), strings.LastIndex(s, "}"); start >= 0 && end > start {
		s = s[start : end+1]
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

// StripFences removes a surrounding markdown code fence
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// Drop the language tag line
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
