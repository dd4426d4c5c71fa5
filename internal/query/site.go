package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/ng12agent/internal/model"
)

// TextGenerator produces free text from a prompt pair; it returns "" on failure
type TextGenerator interface {
	GenerateText(ctx context.Context, system, user string) string
}

const siteSystemPrompt = "Return only the site token."

// SiteInferrer picks the anatomical site bucket for a patient
type SiteInferrer struct {
	llm TextGenerator
}

// NewSiteInferrer creates a new site inferrer. A nil generator always yields general.
func NewSiteInferrer(llm TextGenerator) *SiteInferrer {
	return &SiteInferrer{llm: llm}
}

// Infer asks the model for a site token and coerces anything outside the vocabulary to general
func (s *SiteInferrer) Infer(ctx context.Context, p model.PatientRecord) model.Site {
	if s.llm == nil {
		return model.SiteGeneral
	}
	out := s.llm.GenerateText(ctx, siteSystemPrompt, SitePrompt(p))
	return model.ParseSite(out)
}

// SitePrompt builds the site classification prompt
func SitePrompt(p model.PatientRecord) string {
	tokens := make([]string, len(model.Sites))
	for i, s := range model.Sites {
		tokens[i] = string(s)
	}

	var b strings.Builder
	b.WriteString("Given the patient symptoms, choose the NICE NG12 site bucket.\n")
	b.WriteString("Return ONLY one token from:\n")
	b.WriteString(strings.Join(tokens, ", "))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Symptoms: %s\n", strings.Join(p.Symptoms, ", "))
	fmt.Fprintf(&b, "Age: %d\n", p.Age)
	fmt.Fprintf(&b, "Smoking: %s\n", p.SmokingHistory)
	return b.String()
}
