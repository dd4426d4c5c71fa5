package policy

import (
	"testing"

	"github.com/ppiankov/ng12agent/internal/model"
)

func TestDecide(t *testing.T) {
	rule := model.MatchedRule{RuleID: "r1", Reason: "x", Citations: []model.RuleCitation{{ChunkID: "c1", Page: 3}}}

	tests := []struct {
		name string
		in   model.ExtractionResult
		want model.Decision
	}{
		{"gate", model.Insufficient(model.ExtractionGate), model.Decision{Assessment: model.AssessmentUnclear, Confidence: 0.20}},
		{"no rules", model.ExtractionResult{MatchedRules: []model.MatchedRule{}}, model.Decision{Assessment: model.AssessmentUnclear, Confidence: 0.20}},
		{"insufficient with rules", model.ExtractionResult{InsufficientEvidence: true, MatchedRules: []model.MatchedRule{rule}}, model.Decision{Assessment: model.AssessmentUnclear, Confidence: 0.20}},
		{"matched", model.ExtractionResult{MatchedRules: []model.MatchedRule{rule}}, model.Decision{Assessment: model.AssessmentUrgentReferral, Confidence: 0.75}},
		{"matched twice", model.ExtractionResult{MatchedRules: []model.MatchedRule{rule, rule}}, model.Decision{Assessment: model.AssessmentUrgentReferral, Confidence: 0.75}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(tt.in)
			if got != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}
