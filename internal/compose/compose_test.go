package compose

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ppiankov/ng12agent/internal/model"
)

type fakeJSON struct {
	out    map[string]any
	system string
	user   string
}

func (f *fakeJSON) GenerateJSON(ctx context.Context, system, user, schema string) map[string]any {
	f.system = system
	f.user = user
	return f.out
}

func TestAnswer_CarryOverReplaysStaleCitation(t *testing.T) {
	prior := &model.ConversationTurn{
		Role:    model.RoleAssistant,
		Content: "Refer adults with haemoptysis.",
		Citations: []model.Citation{
			{Source: "NG12 PDF", Page: 5, ChunkID: "c9", Excerpt: "aged 40 and over with unexplained haemoptysis"},
		},
	}
	hits := []model.EvidenceChunk{{ID: "c1", Text: "unrelated passage", Page: 2}}

	answer, citations := Answer(Reply{Supported: false}, hits, prior)

	if answer != FallbackAnswer {
		t.Errorf("expected fallback answer, got %q", answer)
	}
	want := []model.Citation{prior.Citations[0]}
	if diff := cmp.Diff(want, citations); diff != "" {
		t.Errorf("citations mismatch (-want +got):\n%s", diff)
	}
}

func TestAnswer_CarryOverRefreshesFromHits(t *testing.T) {
	prior := &model.ConversationTurn{
		Role: model.RoleAssistant,
		Citations: []model.Citation{
			{Page: 5, ChunkID: "c9", Excerpt: "old excerpt"},
			{Page: 6, ChunkID: "c10", Excerpt: "kept"},
			{Page: 7, ChunkID: "c11", Excerpt: "dropped by limit"},
		},
	}
	hits := []model.EvidenceChunk{{ID: "c9", Text: "fresh passage text", Page: 5, Metadata: model.ChunkMetadata{Source: "NG12 PDF"}}}

	_, citations := Answer(Reply{Answer: "Not covered."}, hits, prior)

	want := []model.Citation{
		{Source: "NG12 PDF", Page: 5, ChunkID: "c9", Excerpt: "fresh passage text"},
		{Page: 6, ChunkID: "c10", Excerpt: "kept"},
	}
	if diff := cmp.Diff(want, citations); diff != "" {
		t.Errorf("citations mismatch (-want +got):\n%s", diff)
	}
}

func TestAnswer_NoCarryOverWhenSupported(t *testing.T) {
	prior := &model.ConversationTurn{Citations: []model.Citation{{ChunkID: "c9", Page: 5}}}
	_, citations := Answer(Reply{Answer: "Yes.", Supported: true}, nil, prior)
	if len(citations) != 0 {
		t.Errorf("expected no citations, got %+v", citations)
	}
}

func TestAnswer_ResolvesModelCitations(t *testing.T) {
	long := strings.Repeat("a", 300)
	hits := []model.EvidenceChunk{
		{ID: "c1", Text: long, Page: 4},
		{ID: "c2", Text: "second", Page: 9},
	}
	reply := Reply{
		Answer:    "Refer.",
		Supported: true,
		Citations: []ModelCitation{
			{ChunkID: "c1", Page: 0},
			{ChunkID: "ghost", Page: 1},
			{ChunkID: "c2", Page: 10},
			{ChunkID: "c1", Page: 4},
		},
	}
	prior := &model.ConversationTurn{Citations: []model.Citation{{ChunkID: "old"}}}

	answer, citations := Answer(reply, hits, prior)

	if answer != "Refer." {
		t.Errorf("expected model answer, got %q", answer)
	}
	want := []model.Citation{
		{Source: model.DefaultSourceLabel, Page: 4, ChunkID: "c1", Excerpt: strings.Repeat("a", 220) + "..."},
		{Source: model.DefaultSourceLabel, Page: 10, ChunkID: "c2", Excerpt: "second"},
	}
	if diff := cmp.Diff(want, citations); diff != "" {
		t.Errorf("citations mismatch (-want +got):\n%s", diff)
	}
}

// Every chat citation must come from the current hits or the previous assistant turn.
func TestAnswer_GroundingFuzz(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 1000; i++ {
		hits := make([]model.EvidenceChunk, rng.Intn(6))
		for j := range hits {
			hits[j] = model.EvidenceChunk{ID: fmt.Sprintf("c%d", rng.Intn(10)), Text: "passage", Page: j}
		}
		var prior *model.ConversationTurn
		if rng.Intn(2) == 0 {
			prior = &model.ConversationTurn{Role: model.RoleAssistant}
			for j := rng.Intn(4); j > 0; j-- {
				prior.Citations = append(prior.Citations, model.Citation{ChunkID: fmt.Sprintf("c%d", rng.Intn(12))})
			}
		}
		reply := Reply{Supported: rng.Intn(2) == 0}
		for j := rng.Intn(5); j > 0; j-- {
			reply.Citations = append(reply.Citations, ModelCitation{ChunkID: fmt.Sprintf("c%d", rng.Intn(15))})
		}

		_, citations := Answer(reply, hits, prior)

		allowed := map[string]bool{}
		for _, h := range hits {
			allowed[h.ID] = true
		}
		if prior != nil {
			for _, c := range prior.Citations {
				allowed[c.ChunkID] = true
			}
		}
		seen := map[string]bool{}
		for _, c := range citations {
			if !allowed[c.ChunkID] {
				t.Fatalf("ungrounded citation %q (hits %v, prior %+v)", c.ChunkID, hits, prior)
			}
			if seen[c.ChunkID] {
				t.Fatalf("duplicate citation %q", c.ChunkID)
			}
			seen[c.ChunkID] = true
		}
	}
}

func TestParseReply(t *testing.T) {
	out := map[string]any{
		"answer":    "  Refer urgently.  ",
		"supported": true,
		"citations": []any{
			map[string]any{"chunk_id": "c1", "page": float64(3), "reason": "criteria"},
			map[string]any{"chunk_id": " "},
			"junk",
			map[string]any{"page": float64(2)},
		},
	}
	want := Reply{
		Answer:    "Refer urgently.",
		Supported: true,
		Citations: []ModelCitation{{ChunkID: "c1", Page: 3, Reason: "criteria"}},
	}
	if diff := cmp.Diff(want, ParseReply(out)); diff != "" {
		t.Errorf("reply mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(Reply{}, ParseReply(map[string]any{})); diff != "" {
		t.Errorf("expected empty reply, got diff:\n%s", diff)
	}
}

func TestChatPrompt(t *testing.T) {
	empty := ChatPrompt("what about dysphagia?", nil, nil)
	if !strings.Contains(empty, "(no prior turns)") || !strings.Contains(empty, "(no evidence retrieved)") {
		t.Errorf("expected placeholders, got %q", empty)
	}

	var history []model.ConversationTurn
	for i := 0; i < 8; i++ {
		history = append(history, model.ConversationTurn{Role: model.RoleUser, Content: fmt.Sprintf("turn-%d", i)})
	}
	var hits []model.EvidenceChunk
	for i := 0; i < 7; i++ {
		hits = append(hits, model.EvidenceChunk{ID: fmt.Sprintf("h%d", i), Page: i, Text: "text"})
	}
	prompt := ChatPrompt("q", history, hits)

	if strings.Contains(prompt, "turn-1\n") || !strings.Contains(prompt, "user: turn-2") {
		t.Error("expected only the last 6 turns")
	}
	if strings.Contains(prompt, "chunk_id=h5") || !strings.Contains(prompt, "- chunk_id=h4 page=4\n  text=text") {
		t.Error("expected only the top 5 hits")
	}
	if !strings.HasSuffix(prompt, "Return JSON only.") {
		t.Error("expected prompt to end with JSON instruction")
	}
}

func TestComposer_Ask(t *testing.T) {
	llm := &fakeJSON{out: map[string]any{"answer": "ok", "supported": true}}
	reply := NewComposer(llm).Ask(context.Background(), "question", nil, nil)
	if reply.Answer != "ok" || !reply.Supported {
		t.Errorf("unexpected reply %+v", reply)
	}
	if !strings.Contains(llm.user, "User question:\nquestion") {
		t.Errorf("expected question in prompt, got %q", llm.user)
	}

	if r := NewComposer(nil).Ask(context.Background(), "q", nil, nil); r.Answer != "" || r.Supported {
		t.Errorf("expected empty reply without model, got %+v", r)
	}
}

func TestAssessment(t *testing.T) {
	p := model.PatientRecord{ID: "PT-110", Age: 55, Symptoms: []string{"visible haematuria"}}
	hits := []model.EvidenceChunk{
		{ID: "c1", Page: 3, Text: "Refer people aged 45 and over with visible haematuria using a suspected cancer pathway referral"},
	}
	res := model.ExtractionResult{MatchedRules: []model.MatchedRule{
		{RuleID: "r1", Reason: "Reason one.", Citations: []model.RuleCitation{{ChunkID: "c1", Page: 3}, {ChunkID: "missing", Page: 1}}},
		{RuleID: "r2", Reason: "Reason two.", Citations: []model.RuleCitation{{ChunkID: "c1"}}},
	}}
	diag := model.RetrievalDiagnostics{Count: 1, TopScore: 0.8, KScore: 0.8, Query: "q"}
	d := model.Decision{Assessment: model.AssessmentUrgentReferral, Confidence: 0.75}

	got := Assessment(p, res, d, hits, diag)

	want := model.AssessResult{
		PatientID:  "PT-110",
		Assessment: model.AssessmentUrgentReferral,
		Reasoning:  "Reason one.; Reason two.",
		Confidence: 0.75,
		Citations: []model.Citation{{
			Source:  model.DefaultSourceLabel,
			Page:    3,
			ChunkID: "c1",
			Excerpt: hits[0].Text,
		}},
		RetrievalDiagnostics: diag,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("assessment mismatch (-want +got):\n%s", diff)
	}
}

func TestAssessment_Reasoning(t *testing.T) {
	unclear := model.Decision{Assessment: model.AssessmentUnclear, Confidence: 0.20}

	got := Assessment(model.PatientRecord{ID: "p"}, model.Insufficient(model.ExtractionGate), unclear, nil, model.RetrievalDiagnostics{})
	if got.Reasoning != InsufficientReasoning {
		t.Errorf("expected insufficient reasoning, got %q", got.Reasoning)
	}
	if got.Citations == nil || len(got.Citations) != 0 {
		t.Errorf("expected empty non-nil citations, got %#v", got.Citations)
	}

	got = Assessment(model.PatientRecord{ID: "p"}, model.ExtractionResult{MatchedRules: []model.MatchedRule{}}, unclear, nil, model.RetrievalDiagnostics{})
	if got.Reasoning != NoMatchReasoning {
		t.Errorf("expected no-match reasoning, got %q", got.Reasoning)
	}
}
