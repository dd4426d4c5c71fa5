// Package policy maps extraction results to a pathway decision.
package policy

import "github.com/ppiankov/ng12agent/internal/model"

// Confidence values attached to each decision
const (
	ConfidenceUnclear = 0.20
	ConfidenceUrgent  = 0.75
)

// Decide returns Unclear when evidence is insufficient or no rule matched,
// otherwise Urgent Referral.
func Decide(res model.ExtractionResult) model.Decision {
	if res.InsufficientEvidence || len(res.MatchedRules) == 0 {
		return model.Decision{Assessment: model.AssessmentUnclear, Confidence: ConfidenceUnclear}
	}
	return model.Decision{Assessment: model.AssessmentUrgentReferral, Confidence: ConfidenceUrgent}
}
