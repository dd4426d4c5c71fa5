package score

import (
	"sort"
	"strings"

	"github.com/ppiankov/ng12agent/internal/model"
)

// Context is what a passage is scored against
type Context struct {
	Terms []string   // Normalized symptom phrases, most important first
	Site  model.Site // Inferred site bucket
}

// PatientContext builds a scoring context from a patient record and site
func PatientContext(p model.PatientRecord, site model.Site) Context {
	return Context{Terms: NormalizeTerms(p.Symptoms), Site: site}
}

// GeneralContext is used when there is no patient, e.g. for chat questions
func GeneralContext() Context {
	return Context{Site: model.SiteGeneral}
}

// Term names for score breakdowns
const (
	TermBase        = "base"
	TermHasCriteria = "has_criteria"
	TermFeatures    = "features_recommendation"
	TermPathway     = "pathway_phrase"
	TermReferral    = "referral_verb"
	TermSymptoms    = "symptom_overlap"
	TermHaemoptysis = "haemoptysis"
	TermUnexplained = "unexplained_haemoptysis"
	TermSite        = "site"
	TermBoilerplate = "boilerplate"
)

// Contribution is one term of a relevance score
type Contribution struct {
	Term  string  `json:"term"`
	Value float64 `json:"value"`
}

// Breakdown explains how a passage's relevance score was built
type Breakdown struct {
	ChunkID       string         `json:"chunk_id"`
	Contributions []Contribution `json:"contributions"`
	Total         float64        `json:"total"`
}

// Scorer computes heuristic passage relevance
type Scorer struct {
	weights model.ScoringWeights
}

// NewScorer creates a new scorer with the given weights
func NewScorer(weights model.ScoringWeights) *Scorer {
	return &Scorer{weights: weights}
}

// Score returns the relevance of a passage for the context
func (s *Scorer) Score(chunk model.EvidenceChunk, ctx Context) float64 {
	return s.Explain(chunk, ctx).Total
}

// Explain scores a passage and records every term that contributed
func (s *Scorer) Explain(chunk model.EvidenceChunk, ctx Context) Breakdown {
	w := s.weights
	txt := Normalize(chunk.Text)

	b := Breakdown{ChunkID: chunk.ID}
	add := func(term string, v float64) {
		b.Contributions = append(b.Contributions, Contribution{Term: term, Value: v})
		b.Total += v
	}

	add(TermBase, chunk.Score)

	if chunk.Metadata.HasCriteria {
		add(TermHasCriteria, w.HasCriteria)
	}
	if strings.Contains(txt, "symptom and specific features") && strings.Contains(txt, "recommendation") {
		add(TermFeatures, w.FeaturesRecommend)
	}
	if strings.Contains(txt, "suspected cancer pathway") {
		add(TermPathway, w.PathwayPhrase)
	}
	if strings.Contains(txt, "refer") || strings.Contains(txt, "consider") || strings.Contains(txt, "offer") {
		add(TermReferral, w.ReferralVerb)
	}

	terms := ctx.Terms
	if w.SymptomTermLimit > 0 && len(terms) > w.SymptomTermLimit {
		terms = terms[:w.SymptomTermLimit]
	}
	matches := 0
	for _, t := range terms {
		if t != "" && strings.Contains(txt, t) {
			matches++
		}
	}
	if matches > 0 {
		add(TermSymptoms, min(w.SymptomMatchCap, float64(matches)*w.SymptomMatch))
	}

	if strings.Contains(txt, "haemoptysis") || strings.Contains(txt, "hemoptysis") {
		add(TermHaemoptysis, w.Haemoptysis)
	}
	if strings.Contains(txt, "unexplained haemoptysis") || strings.Contains(txt, "unexplained hemoptysis") {
		add(TermUnexplained, w.UnexplainedQualifier)
	}

	for _, syn := range ctx.Site.Synonyms() {
		if strings.Contains(txt, syn) {
			add(TermSite, w.Site)
			break
		}
	}

	if IsBoilerplate(txt) {
		add(TermBoilerplate, -w.BoilerplatePenalty)
	}

	return b
}

// Rerank drops boilerplate passages and orders the rest by descending relevance.
// If every passage is boilerplate the unfiltered set is ranked instead.
// Ties keep retrieval order.
func (s *Scorer) Rerank(hits []model.EvidenceChunk, ctx Context) []model.EvidenceChunk {
	pool := make([]model.EvidenceChunk, 0, len(hits))
	for _, h := range hits {
		if !IsBoilerplate(h.Text) {
			pool = append(pool, h)
		}
	}
	if len(pool) == 0 {
		pool = append(pool, hits...)
	}

	scores := make([]float64, len(pool))
	for i, h := range pool {
		scores[i] = s.Score(h, ctx)
	}

	idx := make([]int, len(pool))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return scores[idx[a]] > scores[idx[b]]
	})

	ranked := make([]model.EvidenceChunk, len(pool))
	for i, j := range idx {
		ranked[i] = pool[j]
	}
	return ranked
}
