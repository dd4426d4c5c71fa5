package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/ng12agent/internal/model"
)

const snippetChars = 250

// DebugHit is a trimmed retrieval hit
type DebugHit struct {
	ID       string  `json:"id"`
	Page     int     `json:"page"`
	Score    float64 `json:"score"`
	Distance float64 `json:"distance"`
	Snippet  string  `json:"snippet"`
}

// DebugResult is raw retrieval output with diagnostics
type DebugResult struct {
	Debug model.RetrievalDiagnostics `json:"debug"`
	Hits  []DebugHit                 `json:"hits"`
}

// DebugRetrieve runs retrieval alone, without reranking
func DebugRetrieve(ctx context.Context, r Retriever, q string, topK int) (DebugResult, error) {
	if strings.TrimSpace(q) == "" {
		return DebugResult{}, fmt.Errorf("%w: query is required", model.ErrInvalidRequest)
	}
	hits, diag := r.Retrieve(ctx, q, topK)

	out := DebugResult{Debug: diag, Hits: make([]DebugHit, 0, len(hits))}
	for _, h := range hits {
		out.Hits = append(out.Hits, DebugHit{
			ID:       h.ID,
			Page:     h.Page,
			Score:    h.Score,
			Distance: h.Distance,
			Snippet:  snippet(h.Text),
		})
	}
	return out, nil
}

func snippet(text string) string {
	r := []rune(text)
	if len(r) <= snippetChars {
		return text
	}
	return string(r[:snippetChars])
}
