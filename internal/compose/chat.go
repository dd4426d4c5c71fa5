// Package compose turns extraction results and model answers into cited responses.
package compose

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/ng12agent/internal/model"
	"github.com/ppiankov/ng12agent/internal/score"
)

// JSONGenerator produces a JSON object from a prompt pair; it returns an empty map on failure
type JSONGenerator interface {
	GenerateJSON(ctx context.Context, system, user, schema string) map[string]any
}

// FallbackAnswer replaces an empty model answer
const FallbackAnswer = "I couldn't find support in retrieved NG12 text."

const (
	historyTurns     = 6
	evidenceHits     = 5
	evidenceChars    = 800
	chatExcerptChars = 220
	carryOverLimit   = 2
	chatSchemaName   = "chat_answer"
)

const chatSystem = `You are a clinical guideline assistant for NICE NG12.

Rules:
1. Answer ONLY from the evidence passages provided.
2. Every factual statement must be supported by a cited chunk_id from the evidence.
3. If the evidence does not answer the question, set "supported" to false and say so briefly.
4. Do not give personal medical advice beyond what NG12 states.

Return JSON in this exact shape:
{
  "answer": string,
  "supported": boolean,
  "citations": [{"chunk_id": string, "page": int, "reason": string}]
}`

// ModelCitation is a citation as returned by the model, before grounding
type ModelCitation struct {
	ChunkID string
	Page    int
	Reason  string
}

// Reply is the parsed model answer for one chat turn
type Reply struct {
	Answer    string
	Supported bool
	Citations []ModelCitation
}

// Composer asks the model to answer a chat question from retrieved passages
type Composer struct {
	llm JSONGenerator
}

// NewComposer creates a new composer; llm may be nil, in which case every reply is empty
func NewComposer(llm JSONGenerator) *Composer {
	return &Composer{llm: llm}
}

// Ask prompts the model with the conversation tail and the top passages
func (c *Composer) Ask(ctx context.Context, message string, history []model.ConversationTurn, hits []model.EvidenceChunk) Reply {
	if c.llm == nil {
		return Reply{}
	}
	out := c.llm.GenerateJSON(ctx, chatSystem, ChatPrompt(message, history, hits), chatSchemaName)
	return ParseReply(out)
}

// ChatPrompt formats the user prompt for a chat turn
func ChatPrompt(message string, history []model.ConversationTurn, hits []model.EvidenceChunk) string {
	return fmt.Sprintf("Conversation so far:\n%s\n\nUser question:\n%s\n\nEvidence passages:\n%s\n\nReturn JSON only.",
		historyTail(history), strings.TrimSpace(message), evidenceBlock(hits))
}

func historyTail(history []model.ConversationTurn) string {
	if len(history) == 0 {
		return "(no prior turns)"
	}
	tail := history
	if len(tail) > historyTurns {
		tail = tail[len(tail)-historyTurns:]
	}
	lines := make([]string, 0, len(tail))
	for _, t := range tail {
		lines = append(lines, fmt.Sprintf("%s: %s", t.Role, strings.TrimSpace(t.Content)))
	}
	return strings.Join(lines, "\n")
}

func evidenceBlock(hits []model.EvidenceChunk) string {
	if len(hits) == 0 {
		return "(no evidence retrieved)"
	}
	top := hits
	if len(top) > evidenceHits {
		top = top[:evidenceHits]
	}
	blocks := make([]string, 0, len(top))
	for _, h := range top {
		blocks = append(blocks, fmt.Sprintf("- chunk_id=%s page=%d\n  text=%s", h.ID, h.Page, score.Clip(h.Text, evidenceChars)))
	}
	return strings.Join(blocks, "\n\n")
}

// ParseReply reads the model JSON. Citations without a chunk id are skipped.
func ParseReply(out map[string]any) Reply {
	var r Reply
	if out == nil {
		return r
	}
	if s, ok := out["answer"].(string); ok {
		r.Answer = strings.TrimSpace(s)
	}
	if b, ok := out["supported"].(bool); ok {
		r.Supported = b
	}
	list, _ := out["citations"].([]any)
	for _, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		id, _ := obj["chunk_id"].(string)
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		mc := ModelCitation{ChunkID: id}
		if p, ok := obj["page"].(float64); ok {
			mc.Page = int(p)
		}
		if s, ok := obj["reason"].(string); ok {
			mc.Reason = s
		}
		r.Citations = append(r.Citations, mc)
	}
	return r
}

// Answer grounds a model reply against the current hits.
// prior is the previous assistant turn, or nil when there is none.
func Answer(reply Reply, hits []model.EvidenceChunk, prior *model.ConversationTurn) (string, []model.Citation) {
	byID := model.IndexByID(hits)

	citations := make([]model.Citation, 0, len(reply.Citations))
	seen := make(map[string]bool)
	for _, mc := range reply.Citations {
		hit, ok := byID[mc.ChunkID]
		if !ok || seen[mc.ChunkID] {
			continue
		}
		seen[mc.ChunkID] = true
		page := mc.Page
		if page <= 0 {
			page = hit.Page
		}
		c := chatCitation(hit)
		c.Page = page
		citations = append(citations, c)
	}

	if !reply.Supported && len(citations) == 0 && prior != nil {
		citations = carryOver(prior.Citations, byID)
	}

	answer := reply.Answer
	if answer == "" {
		answer = FallbackAnswer
	}
	return answer, citations
}

// carryOver reuses up to two prior citations, refreshed from the current hits where possible
func carryOver(prior []model.Citation, byID map[string]model.EvidenceChunk) []model.Citation {
	out := make([]model.Citation, 0, carryOverLimit)
	seen := make(map[string]bool)
	for _, pc := range prior {
		if len(out) == carryOverLimit {
			break
		}
		if pc.ChunkID == "" || seen[pc.ChunkID] {
			continue
		}
		seen[pc.ChunkID] = true
		if hit, ok := byID[pc.ChunkID]; ok {
			out = append(out, chatCitation(hit))
			continue
		}
		out = append(out, pc)
	}
	return out
}

func chatCitation(hit model.EvidenceChunk) model.Citation {
	return model.Citation{
		Source:  sourceLabel(hit),
		Page:    hit.Page,
		ChunkID: hit.ID,
		Excerpt: score.Clip(hit.Text, chatExcerptChars),
	}
}

func sourceLabel(hit model.EvidenceChunk) string {
	if hit.Metadata.Source != "" {
		return hit.Metadata.Source
	}
	return model.DefaultSourceLabel
}
