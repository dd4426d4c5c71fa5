package compose

import (
	"strings"

	"github.com/ppiankov/ng12agent/internal/model"
	"github.com/ppiankov/ng12agent/internal/score"
)

const assessExcerptChars = 240

// Reasoning texts for assessments without matched criteria
const (
	InsufficientReasoning = "Insufficient NG12 evidence retrieved to make a confident pathway decision."
	NoMatchReasoning      = "No matching NG12 criteria found in retrieved passages."
)

// Assessment builds the response for one patient.
// Rule citations that do not resolve against hits are dropped; excerpts are
// centered on the first patient symptom the passage mentions.
func Assessment(p model.PatientRecord, res model.ExtractionResult, d model.Decision, hits []model.EvidenceChunk, diag model.RetrievalDiagnostics) model.AssessResult {
	byID := model.IndexByID(hits)
	terms := score.NormalizeTerms(p.Symptoms)

	citations := make([]model.Citation, 0)
	seen := make(map[string]bool)
	reasons := make([]string, 0, len(res.MatchedRules))
	for _, rule := range res.MatchedRules {
		if r := strings.TrimSpace(rule.Reason); r != "" {
			reasons = append(reasons, r)
		}
		for _, rc := range rule.Citations {
			hit, ok := byID[rc.ChunkID]
			if !ok || seen[rc.ChunkID] {
				continue
			}
			seen[rc.ChunkID] = true
			page := rc.Page
			if page <= 0 {
				page = hit.Page
			}
			citations = append(citations, model.Citation{
				Source:  sourceLabel(hit),
				Page:    page,
				ChunkID: hit.ID,
				Excerpt: score.BestExcerpt(hit.Text, terms, assessExcerptChars),
			})
		}
	}

	var reasoning string
	switch {
	case res.InsufficientEvidence:
		reasoning = InsufficientReasoning
	case len(reasons) == 0:
		reasoning = NoMatchReasoning
	default:
		reasoning = strings.Join(reasons, "; ")
	}

	return model.AssessResult{
		PatientID:            p.ID,
		Assessment:           d.Assessment,
		Reasoning:            reasoning,
		Confidence:           d.Confidence,
		Citations:            citations,
		RetrievalDiagnostics: diag,
	}
}
