package extract

import (
	"context"
	"strings"

	"github.com/ppiankov/ng12agent/internal/model"
	"github.com/ppiankov/ng12agent/internal/score"
)

// Rule is one deterministic referral criterion
type Rule struct {
	ID            string
	Reason        string
	Applies       func(symptoms []string, age int) bool
	EvidenceTerms []string // Phrases that identify a passage supporting the rule
}

// DefaultRules is the fallback rule table in priority order
var DefaultRules = []Rule{
	{
		ID:     "ng12_visible_haematuria_45_plus",
		Reason: "Aged 45 and over with visible haematuria meets suspected cancer pathway referral criteria.",
		Applies: func(symptoms []string, age int) bool {
			return age >= 45 && anySymptom(symptoms, "haematuria", "hematuria")
		},
		EvidenceTerms: []string{"visible haematuria", "haematuria", "hematuria", "urology", "bladder"},
	},
	{
		ID:     "ng12_dysphagia_refer",
		Reason: "Dysphagia meets suspected cancer pathway referral criteria.",
		Applies: func(symptoms []string, age int) bool {
			return anySymptom(symptoms, "dysphagia")
		},
		EvidenceTerms: []string{"dysphagia", "oesophageal", "stomach", "upper gastrointestinal", "upper gi"},
	},
	{
		ID:     "ng12_haemoptysis_40_plus",
		Reason: "Aged 40 and over with unexplained haemoptysis meets criteria for urgent investigation/referral.",
		Applies: func(symptoms []string, age int) bool {
			return age >= 40 && anySymptom(symptoms, "haemoptysis", "hemoptysis")
		},
		EvidenceTerms: []string{"haemoptysis", "hemoptysis", "lung", "chest x-ray", "suspected cancer pathway"},
	},
}

// RuleTable is the deterministic extractor. It makes no external calls.
type RuleTable struct {
	rules []Rule
}

// NewRuleTable creates a rule table; nil rules means DefaultRules
func NewRuleTable(rules []Rule) *RuleTable {
	if rules == nil {
		rules = DefaultRules
	}
	return &RuleTable{rules: rules}
}

// Extract fires the first applicable rule that can be tied to a passage.
// With no rule fired the result is marked insufficient.
func (t *RuleTable) Extract(_ context.Context, p model.PatientRecord, hits []model.EvidenceChunk) model.ExtractionResult {
	symptoms := score.NormalizeTerms(p.Symptoms)

	for _, rule := range t.rules {
		if !rule.Applies(symptoms, p.Age) {
			continue
		}
		hit, ok := BestHitForTerms(hits, rule.EvidenceTerms)
		if !ok || strings.TrimSpace(hit.ID) == "" {
			continue
		}
		return model.ExtractionResult{
			InsufficientEvidence: false,
			MatchedRules: []model.MatchedRule{{
				RuleID:    rule.ID,
				Reason:    rule.Reason,
				Citations: []model.RuleCitation{{ChunkID: hit.ID, Page: hit.Page}},
			}},
			Source: model.ExtractionFallback,
		}
	}

	return model.Insufficient(model.ExtractionFallback)
}

// BestHitForTerms returns the first hit mentioning any term, else the top hit
func BestHitForTerms(hits []model.EvidenceChunk, terms []string) (model.EvidenceChunk, bool) {
	if len(hits) == 0 {
		return model.EvidenceChunk{}, false
	}
	for _, h := range hits {
		if score.ContainsAny(h.Text, terms...) {
			return h, true
		}
	}
	return hits[0], true
}

func anySymptom(symptoms []string, needles ...string) bool {
	for _, s := range symptoms {
		for _, n := range needles {
			if strings.Contains(s, n) {
				return true
			}
		}
	}
	return false
}
