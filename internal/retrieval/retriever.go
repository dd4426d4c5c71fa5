package retrieval

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/ng12agent/internal/cache"
	"github.com/ppiankov/ng12agent/internal/model"
)

// Embedder turns text into a vector
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorStore returns the k passages nearest to a vector, closest first
type VectorStore interface {
	Query(ctx context.Context, vector []float32, k int) ([]model.EvidenceChunk, error)
}

// unknownDistance is used when a store reports a distance that is not a number
const unknownDistance = 999999.0

// Options configures a Retriever
type Options struct {
	DefaultTopK int
	MaxTopK     int
	Cache       cache.Cache // Optional result cache
	CacheTTL    time.Duration
	Logger      *zap.Logger
}

// Retriever embeds queries and fetches ranked guideline passages
type Retriever struct {
	embedder Embedder
	store    VectorStore
	opts     Options
	logger   *zap.Logger
}

// NewRetriever creates a new retriever
func NewRetriever(embedder Embedder, store VectorStore, opts Options) *Retriever {
	if opts.DefaultTopK <= 0 {
		opts.DefaultTopK = 5
	}
	if opts.MaxTopK <= 0 {
		opts.MaxTopK = 20
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{
		embedder: embedder,
		store:    store,
		opts:     opts,
		logger:   logger,
	}
}

type cachedResult struct {
	Hits        []model.EvidenceChunk      `json:"hits"`
	Diagnostics model.RetrievalDiagnostics `json:"diagnostics"`
}

// Retrieve returns up to topK passages for the query together with retrieval diagnostics.
// Upstream failures are logged and reported as zero hits.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]model.EvidenceChunk, model.RetrievalDiagnostics) {
	k := r.ClampTopK(topK)
	q := NormalizeQuery(query)
	diag := model.RetrievalDiagnostics{Query: q}

	if q == "" {
		return []model.EvidenceChunk{}, diag
	}

	key := cache.Key("retrieval", q, strconv.Itoa(k))
	var cached cachedResult
	if cache.GetJSON(r.opts.Cache, key, &cached) {
		r.logger.Debug("retrieval cache hit", zap.String("query", q), zap.Int("k", k))
		return cached.Hits, cached.Diagnostics
	}

	vec, err := r.embedder.Embed(ctx, q)
	if err != nil {
		r.logger.Warn("query embedding failed", zap.String("query", q), zap.Error(err))
		return []model.EvidenceChunk{}, diag
	}
	if len(vec) == 0 {
		r.logger.Warn("query embedding is empty", zap.String("query", q))
		return []model.EvidenceChunk{}, diag
	}

	hits, err := r.store.Query(ctx, vec, k)
	if err != nil {
		r.logger.Warn("vector store query failed", zap.String("query", q), zap.Error(err))
		return []model.EvidenceChunk{}, diag
	}

	out := make([]model.EvidenceChunk, len(hits))
	for i, h := range hits {
		h.Score = DistanceToScore(h.Distance)
		out[i] = h
	}

	diag.Count = len(out)
	if len(out) > 0 {
		diag.TopScore = out[0].Score
		diag.KScore = out[len(out)-1].Score
	}

	if r.opts.Cache != nil {
		if err := cache.SetJSON(r.opts.Cache, key, cachedResult{Hits: out, Diagnostics: diag}, r.opts.CacheTTL); err != nil {
			r.logger.Debug("retrieval cache write failed", zap.Error(err))
		}
	}

	r.logger.Debug("retrieved passages",
		zap.String("query", q),
		zap.Int("count", diag.Count),
		zap.Float64("top_score", diag.TopScore),
		zap.Float64("k_score", diag.KScore),
	)

	return out, diag
}

// ClampTopK bounds a requested top-k to [1, MaxTopK]; non-positive values use the default
func (r *Retriever) ClampTopK(topK int) int {
	if topK <= 0 {
		topK = r.opts.DefaultTopK
	}
	return max(1, min(topK, r.opts.MaxTopK))
}

// DistanceToScore maps a distance onto (0,1]; it is non-increasing in distance
func DistanceToScore(distance float64) float64 {
	if math.IsNaN(distance) || math.IsInf(distance, 0) {
		distance = unknownDistance
	}
	return 1.0 / (1.0 + math.Max(0, distance))
}

var spellings = strings.NewReplacer(
	"hemoptysis", "haemoptysis",
	"anemia", "anaemia",
)

// NormalizeQuery lowercases a query, maps spellings onto the UK forms used in
// the guideline and anchors dysphagia with its plain-English meaning.
func NormalizeQuery(q string) string {
	q = strings.Join(strings.Fields(strings.ToLower(q)), " ")
	q = spellings.Replace(q)
	if strings.Contains(q, "dysphagia") && !strings.Contains(q, "difficulty swallowing") {
		q = strings.Replace(q, "dysphagia", "dysphagia difficulty swallowing", 1)
	}
	return q
}
