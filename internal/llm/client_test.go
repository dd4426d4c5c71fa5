package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ppiankov/ng12agent/internal/cache"
)

type stubProvider struct {
	mu    sync.Mutex
	text  string
	err   error
	calls []Request
}

func (p *stubProvider) Name() string                         { return "stub" }
func (p *stubProvider) IsAvailable(ctx context.Context) bool { return true }

func (p *stubProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, req)
	if p.err != nil {
		return nil, p.err
	}
	return &Response{Text: p.text, Model: "stub-1"}, nil
}

type countingLimiter struct {
	keys []string
	err  error
}

func (l *countingLimiter) Wait(ctx context.Context, key string) error {
	l.keys = append(l.keys, key)
	return l.err
}

func TestClient_NilIsDisabled(t *testing.T) {
	var c *Client
	if c.Enabled() {
		t.Error("expected nil client to be disabled")
	}
	if got := c.GenerateText(context.Background(), "s", "u"); got != "" {
		t.Errorf("expected empty text, got %q", got)
	}
	if got := c.GenerateJSON(context.Background(), "s", "u", "x"); got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil map, got %v", got)
	}

	c = NewClient(nil, ClientOptions{})
	if c.ProviderName() != "none" {
		t.Errorf("expected none, got %s", c.ProviderName())
	}
}

func TestClient_GenerateText(t *testing.T) {
	p := &stubProvider{text: "  lung \n"}
	lim := &countingLimiter{}
	c := NewClient(p, ClientOptions{Temperature: 0.2, MaxTokens: 300, Limiter: lim})

	if got := c.GenerateText(context.Background(), "sys", "user"); got != "lung" {
		t.Errorf("expected lung, got %q", got)
	}
	if len(p.calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(p.calls))
	}
	want := Request{System: "sys", Prompt: "user", Temperature: 0.2, MaxTokens: 300}
	if diff := cmp.Diff(want, p.calls[0]); diff != "" {
		t.Errorf("request mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"stub"}, lim.keys); diff != "" {
		t.Errorf("limiter keys mismatch (-want +got):\n%s", diff)
	}
}

func TestClient_ProviderErrorYieldsEmpty(t *testing.T) {
	c := NewClient(&stubProvider{err: errors.New("boom")}, ClientOptions{})
	if got := c.GenerateText(context.Background(), "s", "u"); got != "" {
		t.Errorf("expected empty text, got %q", got)
	}
	if got := c.GenerateJSON(context.Background(), "s", "u", "x"); len(got) != 0 {
		t.Errorf("expected empty map, got %v", got)
	}
}

func TestClient_LimiterAbort(t *testing.T) {
	p := &stubProvider{text: "x"}
	c := NewClient(p, ClientOptions{Limiter: &countingLimiter{err: context.Canceled}})
	if got := c.GenerateText(context.Background(), "s", "u"); got != "" {
		t.Errorf("expected empty text, got %q", got)
	}
	if len(p.calls) != 0 {
		t.Errorf("expected no provider call, got %d", len(p.calls))
	}
}

func TestClient_GenerateJSON(t *testing.T) {
	tests := []struct {
		name string
		text string
		want map[string]any
	}{
		{name: "plain", text: `{"a":1}`, want: map[string]any{"a": float64(1)}},
		{name: "fenced", text: "```json\n{\"a\":\"b\"}\n```", want: map[string]any{"a": "b"}},
		{name: "prose", text: "Here you go: {\"ok\":true} thanks", want: map[string]any{"ok": true}},
		{name: "invalid", text: "not json", want: map[string]any{}},
		{name: "array", text: `[1,2]`, want: map[string]any{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &stubProvider{text: tt.text}
			got := NewClient(p, ClientOptions{}).GenerateJSON(context.Background(), "s", "u", "schema")
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
			if len(p.calls) != 1 || !p.calls[0].JSON {
				t.Errorf("expected one JSON request, got %+v", p.calls)
			}
		})
	}
}

func TestClient_Cache(t *testing.T) {
	p := &stubProvider{text: "cached answer"}
	c := NewClient(p, ClientOptions{
		Cache:    cache.NewMemoryCache(time.Minute, 0),
		CacheTTL: time.Minute,
	})

	for i := 0; i < 3; i++ {
		if got := c.GenerateText(context.Background(), "s", "u"); got != "cached answer" {
			t.Errorf("expected cached answer, got %q", got)
		}
	}
	if len(p.calls) != 1 {
		t.Errorf("expected 1 provider call, got %d", len(p.calls))
	}

	c.GenerateText(context.Background(), "s", "different")
	if len(p.calls) != 2 {
		t.Errorf("expected a miss for a different prompt, got %d calls", len(p.calls))
	}
}

func TestStripFences(t *testing.T) {
	tests := map[string]string{
		"```json\n{}\n```": "{}",
		"```\nabc\n```":    "abc",
		"  {}  ":           "{}",
	}
	for in, want := range tests {
		if got := StripFences(in); got != want {
			t.Errorf("StripFences(%q): expected %q, got %q", in, want, got)
		}
	}
}
