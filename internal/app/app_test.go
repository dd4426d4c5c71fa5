package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/ng12agent/internal/cache"
	"github.com/ppiankov/ng12agent/internal/model"
)

const guidelineHTML = `<html><body>
<h1>Suspected cancer: recognition and referral</h1>
<p>1.6.1 Refer people using a suspected cancer pathway referral for bladder cancer if they are aged 45 and over and have unexplained visible haematuria without urinary tract infection.</p>
<p>1.1.1 Refer people using a suspected cancer pathway referral for lung cancer if they have chest X-ray findings that suggest lung cancer.</p>
</body></html>`

// newOllamaStub answers /api/embed with the same unit vector for every input
func newOllamaStub(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		vecs := make([][]float32, len(req.Input))
		for i := range vecs {
			vecs[i] = []float32{1, 0, 0, 0}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"model": req.Model, "embeddings": vecs})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, embedURL string) *model.Config {
	t.Helper()
	dir := t.TempDir()

	patients := `[{"patient_id":"PT-101","age":67,"gender":"Male","symptoms":["visible haematuria"],"symptom_duration_days":14}]`
	if err := os.WriteFile(filepath.Join(dir, "patients.json"), []byte(patients), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "ng12.html"), []byte(guidelineHTML), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := model.DefaultConfig()
	cfg.LLM.Provider = "bogus"
	cfg.Embedding = model.EmbeddingConfig{Provider: "ollama", BaseURL: embedURL, Model: "stub", Dimensions: 4, Timeout: 5}
	cfg.VectorStore.Path = filepath.Join(dir, "ng12.db")
	cfg.Patients.Path = filepath.Join(dir, "patients.json")
	cfg.Ingest.Source = filepath.Join(dir, "ng12.html")
	cfg.RateLimiting.RequestsPerSecond = 0
	return cfg
}

func TestApp_IngestThenAssess(t *testing.T) {
	cfg := testConfig(t, newOllamaStub(t).URL)
	a, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer func() { _ = a.Close() }()

	if a.LLM.Enabled() {
		t.Error("expected unknown provider to disable the language model")
	}

	stats, err := a.Ingester(true).Run(context.Background(), cfg.Ingest.Source)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if stats.Chunks == 0 {
		t.Fatal("expected chunks to be indexed")
	}

	res, err := a.Assess(context.Background(), "PT-101")
	if err != nil {
		t.Fatalf("assess: %v", err)
	}
	if res.Assessment != model.AssessmentUrgentReferral {
		t.Errorf("expected %q, got %q (%s)", model.AssessmentUrgentReferral, res.Assessment, res.Reasoning)
	}
	if len(res.Citations) == 0 || !strings.HasPrefix(res.Citations[0].ChunkID, "ng12_") {
		t.Errorf("expected an ng12 citation, got %+v", res.Citations)
	}
}

func TestApp_ServerRoutes(t *testing.T) {
	cfg := testConfig(t, newOllamaStub(t).URL)
	a, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer func() { _ = a.Close() }()

	if _, err := a.Ingester(true).Run(context.Background(), cfg.Ingest.Source); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	h := a.Server().Handler()

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"session_id":"s1","message":"visible haematuria referral?"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/chat/s1/history", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var hist model.HistoryResult
	if err := json.Unmarshal(rec.Body.Bytes(), &hist); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(hist.History) != 2 {
		t.Errorf("expected 2 turns, got %d", len(hist.History))
	}

	req = httptest.NewRequest(http.MethodPost, "/assess", strings.NewReader(`{"patient_id":"PT-404"}`))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown patient, got %d", rec.Code)
	}
}

func TestNew_RejectsBadIndexConfig(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.Embedding.Dimensions = 0
	if _, err := New(cfg, nil); err == nil {
		t.Error("expected error for zero embedding dimension")
	}
}

func TestNew_AppliesRateOverrides(t *testing.T) {
	cfg := testConfig(t, newOllamaStub(t).URL)
	cfg.RateLimiting.Overrides = []model.RateOverride{
		{Key: "ollama:stub", RequestsPerSecond: 0.1, BurstSize: 1},
		{Key: "", RequestsPerSecond: 0.1},
	}
	a, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer a.Close()

	wait := func(key string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		return a.Limiter.Wait(ctx, key)
	}
	if err := wait("ollama:stub"); err != nil {
		t.Fatalf("first call should pass: %v", err)
	}
	if err := wait("ollama:stub"); err == nil {
		t.Error("expected overridden key to be limited")
	}
	for i := 0; i < 5; i++ {
		if err := wait("www.nice.org.uk"); err != nil {
			t.Fatalf("expected default unlimited rate for other keys, call %d: %v", i, err)
		}
	}
}

func TestNewResponseCache(t *testing.T) {
	if _, ok := NewResponseCache(model.CacheConfig{LLMTTL: 60}).(*cache.MemoryCache); !ok {
		t.Error("expected memory cache without a directory")
	}
	if _, ok := NewResponseCache(model.CacheConfig{LLMTTL: 60, Dir: t.TempDir()}).(*cache.LayeredCache); !ok {
		t.Error("expected layered cache with a directory")
	}
}
