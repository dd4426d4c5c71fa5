package model

// Assessment is the referral label returned for a patient
type Assessment string

const (
	AssessmentUrgentReferral Assessment = "Urgent Referral"
	AssessmentUnclear        Assessment = "Unclear"
)

// Decision is the output of the referral policy
type Decision struct {
	Assessment Assessment `json:"assessment"`
	Confidence float64    `json:"confidence"`
}

// ExtractionSource records which extractor produced a result
type ExtractionSource string

const (
	ExtractionGate     ExtractionSource = "gate"     // Sufficiency gate failed, nothing extracted
	ExtractionLLM      ExtractionSource = "llm"      // Language model output accepted
	ExtractionFallback ExtractionSource = "fallback" // Deterministic rule table
)

// RuleCitation points a matched rule at a passage
type RuleCitation struct {
	ChunkID string `json:"chunk_id"`
	Page    int    `json:"page"`
}

// MatchedRule is one guideline criterion the patient meets
type MatchedRule struct {
	RuleID    string         `json:"rule_id"`
	Reason    string         `json:"reason"`
	Citations []RuleCitation `json:"citations"`
}

// ExtractionResult is the structured criteria output for one assessment
type ExtractionResult struct {
	InsufficientEvidence bool             `json:"insufficient_evidence"`
	MatchedRules         []MatchedRule    `json:"matched_rules"`
	Source               ExtractionSource `json:"source,omitempty"`
}

// Insufficient returns the conservative extraction result
func Insufficient(source ExtractionSource) ExtractionResult {
	return ExtractionResult{
		InsufficientEvidence: true,
		MatchedRules:         []MatchedRule{},
		Source:               source,
	}
}

// AssessResult is returned by the assessment pipeline
type AssessResult struct {
	PatientID            string               `json:"patient_id"`
	Assessment           Assessment           `json:"assessment"`
	Reasoning            string               `json:"reasoning"`
	Confidence           float64              `json:"confidence"`
	Citations            []Citation           `json:"citations"`
	RetrievalDiagnostics RetrievalDiagnostics `json:"retrieval_diagnostics"`
}
