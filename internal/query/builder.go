package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/ng12agent/internal/model"
)

const (
	queryHistoryTurns = 4
	queryAnchorLimit  = 6
	querySystemPrompt = "Return only the query string."
)

// Builder turns patients and chat messages into retrieval queries
type Builder struct {
	llm TextGenerator
}

// NewBuilder creates a new query builder. A nil generator uses the template for every assessment.
func NewBuilder(llm TextGenerator) *Builder {
	return &Builder{llm: llm}
}

// Assessment builds the retrieval query for a patient. The model writes the
// query; when it returns nothing usable the deterministic template is used.
func (b *Builder) Assessment(ctx context.Context, p model.PatientRecord, site model.Site) string {
	if b.llm != nil {
		if q := Sanitize(b.llm.GenerateText(ctx, querySystemPrompt, AssessmentPrompt(p, site))); q != "" {
			return q
		}
	}
	return Sanitize(AssessmentTemplate(p, site))
}

// AssessmentPrompt asks the model for a single boolean-free search query
func AssessmentPrompt(p model.PatientRecord, site model.Site) string {
	var b strings.Builder
	b.WriteString("Write ONE natural-language vector search query to retrieve NICE NG12 recommendation criteria.\n")
	b.WriteString("Rules:\n")
	b.WriteString("- NO quotes, NO AND/OR, NO parentheses, NO boolean operators\n")
	b.WriteString("- Include symptom phrases exactly as written\n")
	b.WriteString("- Include: suspected cancer pathway referral, refer, consider, aged\n")
	b.WriteString("- If site bucket is not general, include that site word\n")
	b.WriteString("Return ONLY the query string.\n\n")
	fmt.Fprintf(&b, "Site bucket: %s\n", site)
	fmt.Fprintf(&b, "Age: %d\n", p.Age)
	fmt.Fprintf(&b, "Symptoms: %s\n", strings.Join(p.Symptoms, ", "))
	fmt.Fprintf(&b, "Duration days: %d\n", p.SymptomDurationDays)
	fmt.Fprintf(&b, "Smoking: %s\n", p.SmokingHistory)
	return b.String()
}

// AssessmentTemplate is the model-free assessment query
func AssessmentTemplate(p model.PatientRecord, site model.Site) string {
	return fmt.Sprintf(
		"NICE NG12 suspected cancer pathway referral criteria. Symptoms %s. Age %d. Site %s. "+
			"Refer consider offer aged and over recommendation.",
		strings.Join(p.Symptoms, ", "), p.Age, site,
	)
}

// Chat builds the retrieval query for a chat message from the message itself,
// the tail of the conversation and the chunks cited in the previous answer.
func (b *Builder) Chat(message string, history []model.ConversationTurn, lastCitations []model.Citation) string {
	tail := history
	if len(tail) > queryHistoryTurns {
		tail = tail[len(tail)-queryHistoryTurns:]
	}
	var lines []string
	for _, turn := range tail {
		content := strings.TrimSpace(turn.Content)
		if content == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", strings.ToUpper(string(turn.Role)), content))
	}

	var anchors []string
	for _, c := range lastCitations {
		if id := strings.TrimSpace(c.ChunkID); id != "" {
			anchors = append(anchors, id)
		}
		if len(anchors) == queryAnchorLimit {
			break
		}
	}

	q := fmt.Sprintf("ng12 guidance. user_question: %s.", strings.TrimSpace(message))
	if len(lines) > 0 {
		q += fmt.Sprintf(" context: %s.", strings.Join(lines, "\n"))
	}
	if len(anchors) > 0 {
		q += fmt.Sprintf(" prior_citation_chunks: %s.", strings.Join(anchors, ", "))
	}
	return Sanitize(q)
}
