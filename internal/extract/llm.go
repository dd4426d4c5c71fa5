package extract

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ppiankov/ng12agent/internal/model"
	"github.com/ppiankov/ng12agent/internal/score"
)

// JSONGenerator produces a JSON object from a prompt pair; it returns an empty map on failure
type JSONGenerator interface {
	GenerateJSON(ctx context.Context, system, user, schema string) map[string]any
}

const (
	promptHits     = 3
	promptHitChars = 900
	schemaName     = "assessor_extract"
)

const assessorSystem = `You are a clinical decision support assistant.
You MUST follow NICE NG12 cancer referral guidelines strictly.

CRITICAL RULES (DO NOT BREAK):
1. Use ONLY the patient information provided.
2. DO NOT invent symptoms, history, or findings.
3. Use ONLY the supplied evidence text.
4. Every citation MUST refer to a provided chunk_id and page.
5. If evidence is insufficient, say so explicitly.
6. Output MUST match the required JSON schema exactly.

Return JSON in this exact shape:
{
  "insufficient_evidence": boolean,
  "matched_rules": [
    {"rule_id": string, "reason": string, "citations": [{"chunk_id": string, "page": int}]}
  ]
}`

// LLMExtractor asks the language model which criteria the patient meets
type LLMExtractor struct {
	llm JSONGenerator
}

// NewLLMExtractor creates a new model-backed extractor
func NewLLMExtractor(llm JSONGenerator) *LLMExtractor {
	return &LLMExtractor{llm: llm}
}

// Extract prompts the model with the top passages and parses its matched rules.
// Malformed rules and citations are dropped individually.
func (e *LLMExtractor) Extract(ctx context.Context, p model.PatientRecord, hits []model.EvidenceChunk) model.ExtractionResult {
	out := e.llm.GenerateJSON(ctx, assessorSystem, AssessorPrompt(p, hits), schemaName)
	return ParseExtraction(out)
}

// AssessorPrompt formats the patient and the top ranked passages
func AssessorPrompt(p model.PatientRecord, hits []model.EvidenceChunk) string {
	top := hits
	if len(top) > promptHits {
		top = top[:promptHits]
	}
	evidence := make([]string, 0, len(top))
	for _, h := range top {
		id := h.ID
		if id == "" {
			id = "unknown"
		}
		evidence = append(evidence, fmt.Sprintf("- chunk_id=%s page=%d text=%s", id, h.Page, score.Clip(h.Text, promptHitChars)))
	}

	var b strings.Builder
	b.WriteString("Patient details:\n")
	fmt.Fprintf(&b, "- Age: %d\n", p.Age)
	fmt.Fprintf(&b, "- Smoking history: %s\n", p.SmokingHistory)
	fmt.Fprintf(&b, "- Symptoms: %s\n", strings.Join(p.Symptoms, ", "))
	fmt.Fprintf(&b, "- Symptom duration (days): %d\n\n", p.SymptomDurationDays)
	b.WriteString("Retrieved NG12 guideline evidence:\n")
	b.WriteString(strings.Join(evidence, "\n\n"))
	b.WriteString("\n\nTask:\n")
	b.WriteString("- Identify whether NG12 criteria are met.\n")
	b.WriteString("- Decide if referral or investigation is required.\n")
	b.WriteString("- Cite only from the evidence above.\n")
	b.WriteString("- Return JSON only.\n")
	return b.String()
}

// ParseExtraction converts model JSON into an extraction result
func ParseExtraction(out map[string]any) model.ExtractionResult {
	res := model.ExtractionResult{MatchedRules: []model.MatchedRule{}, Source: model.ExtractionLLM}
	if out == nil {
		return res
	}
	if v, ok := out["insufficient_evidence"].(bool); ok {
		res.InsufficientEvidence = v
	}

	rules, ok := out["matched_rules"].([]any)
	if !ok {
		return res
	}
	for i, raw := range rules {
		obj, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		rule := model.MatchedRule{
			RuleID:    strings.TrimSpace(stringField(obj, "rule_id", "rule", "id")),
			Reason:    strings.TrimSpace(stringField(obj, "reason", "justification")),
			Citations: parseRuleCitations(obj["citations"]),
		}
		if rule.RuleID == "" && rule.Reason == "" {
			continue
		}
		if rule.RuleID == "" {
			rule.RuleID = "llm_rule_" + strconv.Itoa(i+1)
		}
		res.MatchedRules = append(res.MatchedRules, rule)
	}
	return res
}

// Valid is the predicate that accepts a primary extraction: it must carry at least one rule
func Valid(r model.ExtractionResult) bool {
	return len(r.MatchedRules) > 0
}

func parseRuleCitations(raw any) []model.RuleCitation {
	list, ok := raw.([]any)
	if !ok {
		return []model.RuleCitation{}
	}
	out := make([]model.RuleCitation, 0, len(list))
	for _, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		id := strings.TrimSpace(stringField(obj, "chunk_id"))
		if id == "" {
			continue
		}
		out = append(out, model.RuleCitation{ChunkID: id, Page: intField(obj, "page")})
	}
	return out
}

func stringField(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := obj[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func intField(obj map[string]any, key string) int {
	switch v := obj[key].(type) {
	case float64:
		return int(v)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err == nil {
			return n
		}
	}
	return 0
}
