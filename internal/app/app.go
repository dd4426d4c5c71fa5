// Package app wires configured collaborators into the pipelines.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/ng12agent/internal/cache"
	"github.com/ppiankov/ng12agent/internal/compose"
	"github.com/ppiankov/ng12agent/internal/embed"
	"github.com/ppiankov/ng12agent/internal/extract"
	"github.com/ppiankov/ng12agent/internal/ingest"
	"github.com/ppiankov/ng12agent/internal/llm"
	"github.com/ppiankov/ng12agent/internal/memory"
	"github.com/ppiankov/ng12agent/internal/model"
	"github.com/ppiankov/ng12agent/internal/patient"
	"github.com/ppiankov/ng12agent/internal/pipeline"
	"github.com/ppiankov/ng12agent/internal/query"
	"github.com/ppiankov/ng12agent/internal/retrieval"
	"github.com/ppiankov/ng12agent/internal/score"
	"github.com/ppiankov/ng12agent/internal/server"
	"github.com/ppiankov/ng12agent/internal/util"
	"github.com/ppiankov/ng12agent/internal/validate"
	"github.com/ppiankov/ng12agent/internal/vectorstore"
	"github.com/ppiankov/ng12agent/internal/worker"
)

// App holds every long-lived collaborator built from one Config
type App struct {
	Config    *model.Config
	Logger    *zap.Logger
	Limiter   *worker.Limiter
	LLM       *llm.Client
	Embedder  *embed.Embedder
	Index     *vectorstore.Store
	Retriever *retrieval.Retriever
	Patients  *patient.FileStore
	Memory    memory.Store
	Verifier  *validate.Verifier
	Assessor  *pipeline.Assessor
	Chat      *pipeline.Chat
}

// New builds the application. A language model that cannot be initialized
// is logged and disabled; every model-backed step then uses its
// deterministic path. The embedder and index are required.
func New(cfg *model.Config, logger *zap.Logger) (*App, error) {
	if cfg == nil {
		cfg = model.DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &App{
		Config:  cfg,
		Logger:  logger,
		Limiter: worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize),
	}

	for _, o := range cfg.RateLimiting.Overrides {
		if o.Key == "" {
			continue
		}
		a.Limiter.SetRate(o.Key, o.RequestsPerSecond, o.BurstSize)
		logger.Debug("rate limit override", zap.String("key", o.Key), zap.Float64("rps", o.RequestsPerSecond))
	}

	a.LLM = newLLMClient(cfg, a.Limiter, logger)

	embedder, err := embed.New(cfg.Embedding, a.Limiter, logger.Named("embed"))
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}
	a.Embedder = embedder

	index, err := vectorstore.New(cfg.VectorStore.Path, cfg.Embedding.Dimensions, cfg.VectorStore.DistanceMetric)
	if err != nil {
		return nil, fmt.Errorf("vector store: %w", err)
	}
	a.Index = index

	mem, err := memory.New(cfg.Memory)
	if err != nil {
		_ = index.Close()
		return nil, fmt.Errorf("session memory: %w", err)
	}
	a.Memory = mem

	var retrievalCache cache.Cache
	if cfg.Cache.Enabled && cfg.Cache.RetrievalTTL > 0 {
		retrievalCache = cache.NewMemoryCache(seconds(cfg.Cache.RetrievalTTL), 10*time.Minute)
	}
	a.Retriever = retrieval.NewRetriever(embedder, index, retrieval.Options{
		DefaultTopK: cfg.Retrieval.DefaultTopK,
		MaxTopK:     cfg.Retrieval.MaxTopK,
		Cache:       retrievalCache,
		CacheTTL:    seconds(cfg.Cache.RetrievalTTL),
		Logger:      logger.Named("retrieval"),
	})

	patientTTL := time.Duration(0)
	if cfg.Cache.Enabled {
		patientTTL = seconds(cfg.Cache.PatientTTL)
	}
	a.Patients = patient.NewFileStore(cfg.Patients.Path, patientTTL)
	a.Verifier = validate.NewVerifier(validate.ParseMode(cfg.Verification.Mode), logger.Named("verify"))

	scorer := score.NewScorer(cfg.Scoring)
	queries := query.NewBuilder(a.LLM)

	var primary extract.Strategy
	if a.LLM.Enabled() {
		primary = extract.NewLLMExtractor(a.LLM)
	}

	a.Assessor = pipeline.NewAssessor(pipeline.AssessorDeps{
		Patients:  a.Patients,
		Sites:     query.NewSiteInferrer(a.LLM),
		Queries:   queries,
		Retriever: a.Retriever,
		Scorer:    scorer,
		Extractor: extract.NewCriteriaExtractor(primary, extract.NewRuleTable(nil), cfg.Retrieval.MinTopScore, logger.Named("extract")),
		Verifier:  a.Verifier,
		Logger:    logger.Named("assess"),
	})

	var composer *compose.Composer
	if a.LLM.Enabled() {
		composer = compose.NewComposer(a.LLM)
	}
	a.Chat = pipeline.NewChat(pipeline.ChatDeps{
		Memory:    mem,
		Queries:   queries,
		Retriever: a.Retriever,
		Scorer:    scorer,
		Composer:  composer,
		Verifier:  a.Verifier,
		Logger:    logger.Named("chat"),
	})

	logger.Debug("application ready",
		zap.String("llm", a.LLM.ProviderName()),
		zap.String("embedder", embedder.Name()),
		zap.String("index", cfg.VectorStore.Path),
		zap.String("memory", cfg.Memory.Backend),
		zap.String("verification", string(a.Verifier.Mode())),
	)
	return a, nil
}

func newLLMClient(cfg *model.Config, limiter *worker.Limiter, logger *zap.Logger) *llm.Client {
	opts := llm.ClientOptions{
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Limiter:     limiter,
		Logger:      logger.Named("llm"),
	}
	if cfg.Cache.Enabled && cfg.Cache.LLMTTL > 0 {
		opts.Cache = NewResponseCache(cfg.Cache)
		opts.CacheTTL = seconds(cfg.Cache.LLMTTL)
	}

	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM))
	if err != nil {
		logger.Warn("language model disabled, using deterministic fallbacks",
			zap.String("provider", cfg.LLM.Provider),
			zap.Error(err),
		)
		provider = nil
	}
	return llm.NewClient(provider, opts)
}

// NewResponseCache returns the model response cache: memory only, or
// memory in front of disk when a cache directory is configured
func NewResponseCache(cfg model.CacheConfig) cache.Cache {
	ttl := seconds(cfg.LLMTTL)
	if cfg.Dir != "" {
		return cache.NewLayeredCache(ttl, cfg.Dir, ttl)
	}
	return cache.NewMemoryCache(ttl, 10*time.Minute)
}

// Assess runs one assessment with the default top-k
func (a *App) Assess(ctx context.Context, patientID string) (model.AssessResult, error) {
	return a.Assessor.Assess(ctx, patientID, 0)
}

// Ingester builds an ingester over the configured index
func (a *App) Ingester(reset bool) *ingest.Ingester {
	cfg := a.Config.Ingest
	fetcher := ingest.NewFetcher(ingest.FetcherOptions{
		Timeout:       seconds(cfg.Timeout),
		UserAgent:     cfg.UserAgent,
		MaxBytes:      cfg.MaxBytes,
		RespectRobots: cfg.RespectRobots,
		Proxy:         util.ProxyConfig{HTTPProxy: cfg.HTTPProxy, HTTPSProxy: cfg.HTTPSProxy, NoProxy: cfg.NoProxy},
		Limiter:       a.Limiter,
	})
	return ingest.NewIngester(fetcher, a.Embedder, a.Index, ingest.Options{
		ChunkChars:   cfg.ChunkChars,
		OverlapChars: cfg.OverlapChars,
		BatchSize:    cfg.BatchSize,
		Workers:      a.Config.Concurrency.Workers,
		SourceLabel:  model.DefaultSourceLabel,
		Reset:        reset,
		Logger:       a.Logger.Named("ingest"),
	})
}

// Server builds the HTTP API
func (a *App) Server() *server.Server {
	cfg := a.Config.Server
	return server.New(a.Assessor, a.Chat, a.Retriever, server.Options{
		Addr:         cfg.Addr,
		APIKey:       firstNonEmpty(cfg.APIKey, util.Getenv("NG12_API_KEY")),
		CORSOrigins:  cfg.CORSOrigins,
		ReadTimeout:  seconds(cfg.ReadTimeout),
		WriteTimeout: seconds(cfg.WriteTimeout),
		Info: map[string]string{
			"llm":      a.LLM.ProviderName(),
			"embedder": a.Embedder.Name(),
		},
		Logger: a.Logger.Named("http"),
	})
}

// Close releases the index and the session store
func (a *App) Close() error {
	var errs []error
	if a.Memory != nil {
		errs = append(errs, a.Memory.Close())
	}
	if a.Index != nil {
		errs = append(errs, a.Index.Close())
	}
	return errors.Join(errs...)
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
