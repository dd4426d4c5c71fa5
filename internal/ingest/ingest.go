// Package ingest downloads the NG12 guideline, splits it into passages and
// indexes their embeddings.
package ingest

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/ng12agent/internal/model"
)

// DocumentEmbedder embeds passages for indexing
type DocumentEmbedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// Index stores embedded passages
type Index interface {
	Upsert(ctx context.Context, passages []model.Passage) error
	Reset(ctx context.Context) error
}

// Replacer is an Index that can swap its contents in one transaction
type Replacer interface {
	Replace(ctx context.Context, passages []model.Passage) error
}

// Options configures an Ingester
type Options struct {
	ChunkChars   int
	OverlapChars int
	BatchSize    int
	Workers      int    // Concurrent embedding batches
	SourceLabel  string // Stored as chunk metadata source
	Reset        bool   // Clear the index before writing
	Logger       *zap.Logger
}

// Stats summarizes one ingestion run
type Stats struct {
	Source       string        `json:"source"`
	Pages        int           `json:"pages"`
	Chunks       int           `json:"chunks"`
	WithCriteria int           `json:"with_criteria"`
	Batches      int           `json:"batches"`
	Elapsed      time.Duration `json:"elapsed"`
}

// Ingester runs load, parse, chunk, embed and upsert
type Ingester struct {
	fetcher  *Fetcher
	embedder DocumentEmbedder
	index    Index
	opts     Options
	logger   *zap.Logger
}

// NewIngester creates a new ingester. fetcher may be nil when only local files are read.
func NewIngester(fetcher *Fetcher, embedder DocumentEmbedder, index Index, opts Options) *Ingester {
	if opts.ChunkChars <= 0 {
		opts.ChunkChars = DefaultChunkChars
	}
	if opts.OverlapChars < 0 {
		opts.OverlapChars = 0
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 32
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.SourceLabel == "" {
		opts.SourceLabel = model.DefaultSourceLabel
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingester{fetcher: fetcher, embedder: embedder, index: index, opts: opts, logger: logger}
}

// IsURL reports whether source is an http(s) URL
func IsURL(source string) bool {
	u, err := url.Parse(source)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Load reads a document from a local path or downloads it
func (in *Ingester) Load(ctx context.Context, source string) ([]byte, string, error) {
	if !IsURL(source) {
		data, err := os.ReadFile(source)
		if err != nil {
			return nil, "", fmt.Errorf("read %s: %w", source, err)
		}
		ct := ""
		if strings.HasSuffix(strings.ToLower(source), ".pdf") {
			ct = "application/pdf"
		}
		return data, ct, nil
	}
	if in.fetcher == nil {
		return nil, "", fmt.Errorf("download %s: no fetcher configured", source)
	}
	res, err := in.fetcher.FetchWithRetry(ctx, source)
	if err != nil {
		return nil, "", fmt.Errorf("download %s: %w", source, err)
	}
	in.logger.Info("downloaded guideline",
		zap.String("url", res.FinalURL),
		zap.Int("bytes", len(res.Body)),
		zap.String("content_type", res.ContentType),
		zap.String("last_modified", res.LastModified),
	)
	return res.Body, res.ContentType, nil
}

// Run ingests one source end to end
func (in *Ingester) Run(ctx context.Context, source string) (Stats, error) {
	start := time.Now()
	stats := Stats{Source: source}

	data, contentType, err := in.Load(ctx, source)
	if err != nil {
		return stats, err
	}
	format, err := DetectFormat(data, contentType)
	if err != nil {
		return stats, err
	}
	pages, err := ParseDocument(data, format)
	if err != nil {
		return stats, err
	}
	stats.Pages = len(pages)

	chunks := ChunkPages(pages, in.opts.ChunkChars, in.opts.OverlapChars, in.opts.SourceLabel)
	if len(chunks) == 0 {
		return stats, fmt.Errorf("no passages extracted from %s", source)
	}
	stats.Chunks = len(chunks)
	for _, c := range chunks {
		if c.Metadata.HasCriteria {
			stats.WithCriteria++
		}
	}

	if in.opts.Reset {
		stats.Batches, err = in.ReplaceChunks(ctx, chunks)
	} else {
		stats.Batches, err = in.IndexChunks(ctx, chunks)
	}
	stats.Elapsed = time.Since(start)
	if err != nil {
		return stats, err
	}

	in.logger.Info("ingestion complete",
		zap.String("source", source),
		zap.String("format", string(format)),
		zap.Int("pages", stats.Pages),
		zap.Int("chunks", stats.Chunks),
		zap.Int("with_criteria", stats.WithCriteria),
		zap.Duration("elapsed", stats.Elapsed),
	)
	return stats, nil
}

// IndexChunks embeds chunks in concurrent batches, then upserts the
// batches in document order. Nothing is written unless every batch embeds.
// Returns the number of batches written.
func (in *Ingester) IndexChunks(ctx context.Context, chunks []model.EvidenceChunk) (int, error) {
	batches, err := in.embed(ctx, chunks)
	if err != nil {
		return 0, err
	}
	return in.write(ctx, batches)
}

func (in *Ingester) embed(ctx context.Context, chunks []model.EvidenceChunk) ([][]model.Passage, error) {
	var batches [][]model.EvidenceChunk
	for start := 0; start < len(chunks); start += in.opts.BatchSize {
		end := min(start+in.opts.BatchSize, len(chunks))
		batches = append(batches, chunks[start:end])
	}

	out := make([][]model.Passage, len(batches))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(in.opts.Workers)
	for i, batch := range batches {
		g.Go(func() error {
			texts := make([]string, len(batch))
			for j, c := range batch {
				texts[j] = c.Text
			}
			vecs, err := in.embedder.EmbedDocuments(gctx, texts)
			if err != nil {
				return fmt.Errorf("embed batch %d: %w", i, err)
			}
			if len(vecs) != len(batch) {
				return fmt.Errorf("embed batch %d: expected %d vectors, got %d", i, len(batch), len(vecs))
			}
			passages := make([]model.Passage, len(batch))
			for j, c := range batch {
				passages[j] = model.Passage{Chunk: c, Embedding: vecs[j]}
			}
			out[i] = passages
			in.logger.Debug("embedded batch", zap.Int("batch", i), zap.Int("size", len(batch)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (in *Ingester) write(ctx context.Context, batches [][]model.Passage) (int, error) {
	for i, passages := range batches {
		if err := in.index.Upsert(ctx, passages); err != nil {
			return i, fmt.Errorf("upsert batch %d: %w", i, err)
		}
	}
	return len(batches), nil
}

// ReplaceChunks embeds chunks like IndexChunks and then swaps them in for
// the current index contents, in one transaction when the index is a
// Replacer. A failed embed leaves the index untouched.
func (in *Ingester) ReplaceChunks(ctx context.Context, chunks []model.EvidenceChunk) (int, error) {
	batches, err := in.embed(ctx, chunks)
	if err != nil {
		return 0, err
	}
	if r, ok := in.index.(Replacer); ok {
		var all []model.Passage
		for _, b := range batches {
			all = append(all, b...)
		}
		if err := r.Replace(ctx, all); err != nil {
			return 0, fmt.Errorf("replace index: %w", err)
		}
		return len(batches), nil
	}
	if err := in.index.Reset(ctx); err != nil {
		return 0, fmt.Errorf("reset index: %w", err)
	}
	return in.write(ctx, batches)
}
