package embed

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/ppiankov/ng12agent/internal/llm"
)

// DefaultGenAIModel is used when no model is configured
const DefaultGenAIModel = "gemini-embedding-001"

// GenAIEngine generates embeddings with Gemini embedding models on the
// Gemini API or Vertex AI
type GenAIEngine struct {
	client     *genai.Client
	model      string
	dimensions int
	name       string
}

// NewGenAIEngine creates a new GenAI embedding engine. A positive
// dimensions value requests truncated output vectors.
func NewGenAIEngine(opts llm.GenAIOptions, model string, dimensions int) (*GenAIEngine, error) {
	if model == "" {
		model = DefaultGenAIModel
	}
	client, err := llm.NewGenAIClient(context.Background(), opts)
	if err != nil {
		return nil, err
	}

	name := "gemini"
	if opts.Vertex {
		name = "vertex"
	}
	return &GenAIEngine{client: client, model: model, dimensions: dimensions, name: name}, nil
}

// Name returns the engine name
func (e *GenAIEngine) Name() string {
	return fmt.Sprintf("%s:%s", e.name, e.model)
}

// EmbedBatch embeds all texts in one EmbedContent call
func (e *GenAIEngine) EmbedBatch(ctx context.Context, texts []string, task Task) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	cfg := &genai.EmbedContentConfig{TaskType: string(task)}
	if e.dimensions > 0 {
		cfg.OutputDimensionality = genai.Ptr(int32(e.dimensions))
	}

	result, err := e.client.Models.EmbedContent(ctx, e.model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("GenAI embed failed: %w", err)
	}

	embeddings := make([][]float32, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		if emb != nil {
			embeddings[i] = emb.Values
		}
	}
	return embeddings, nil
}
