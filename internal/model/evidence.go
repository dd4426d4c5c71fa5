package model

// ChunkMetadata is attached to every guideline passage at ingestion time
type ChunkMetadata struct {
	Source      string `json:"source,omitempty"`  // Source collection label (e.g. "NG12 PDF")
	HasCriteria bool   `json:"has_criteria"`      // Passage contains explicit referral criteria wording
	Section     string `json:"section,omitempty"` // Nearest heading, when the parser found one
}

// EvidenceChunk is one retrieved guideline passage
type EvidenceChunk struct {
	ID       string        `json:"chunk_id"`
	Text     string        `json:"text"`
	Page     int           `json:"page"`
	Metadata ChunkMetadata `json:"metadata"`
	Distance float64       `json:"distance"` // Raw vector distance from the store
	Score    float64       `json:"score"`    // Relevance in [0,1], non-increasing in Distance
}

// RetrievalDiagnostics describes the quality of a single retrieval call
type RetrievalDiagnostics struct {
	Count    int     `json:"count"`
	TopScore float64 `json:"top_score"`
	KScore   float64 `json:"k_score"` // Score of the last (k-th) hit
	Query    string  `json:"query"`
}

// DefaultSourceLabel is the citation source for guideline passages
const DefaultSourceLabel = "NG12 PDF"

// Citation ties a statement in an answer to a retrieved passage
type Citation struct {
	Source  string `json:"source"`
	Page    int    `json:"page"`
	ChunkID string `json:"chunk_id"`
	Excerpt string `json:"excerpt"`
}

// IndexByID maps chunk identifiers to their chunks. Chunks with an empty ID are skipped.
func IndexByID(hits []EvidenceChunk) map[string]EvidenceChunk {
	byID := make(map[string]EvidenceChunk, len(hits))
	for _, h := range hits {
		if h.ID == "" {
			continue
		}
		if _, exists := byID[h.ID]; !exists {
			byID[h.ID] = h
		}
	}
	return byID
}

// Passage is a chunk with its embedding, ready to index
type Passage struct {
	Chunk     EvidenceChunk
	Embedding []float32
}
