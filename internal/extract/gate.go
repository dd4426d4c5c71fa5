package extract

import "github.com/ppiankov/ng12agent/internal/model"

// EvidenceSufficient reports whether retrieval found enough to attempt extraction:
// at least one hit and a top score at or above the threshold.
func EvidenceSufficient(diag model.RetrievalDiagnostics, threshold float64) bool {
	return diag.Count > 0 && diag.TopScore >= threshold
}
