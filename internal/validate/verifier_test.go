package validate

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ppiankov/ng12agent/internal/model"
	"github.com/ppiankov/ng12agent/internal/score"
)

func testHits() []model.EvidenceChunk {
	return []model.EvidenceChunk{
		{ID: "c1", Page: 3, Text: "Refer people aged 45 and over with   Visible Haematuria\nusing a suspected cancer pathway referral."},
		{ID: "c2", Page: 8, Text: "Offer urgent direct access upper gastrointestinal endoscopy."},
	}
}

func TestVerify_UnknownChunkIsViolation(t *testing.T) {
	v := NewVerifier(ModeEnforce, nil)
	citations := []model.Citation{{ChunkID: "c1", Page: 3}, {ChunkID: "ghost", Page: 1}}

	report, err := v.Verify(citations, testHits())

	if !errors.Is(err, model.ErrGroundingViolation) {
		t.Fatalf("expected grounding violation, got %v", err)
	}
	if diff := cmp.Diff([]string{"ghost"}, report.Unknown); diff != "" {
		t.Errorf("unknown mismatch (-want +got):\n%s", diff)
	}
	if report.Grounded() {
		t.Error("expected report to be ungrounded")
	}
}

func TestVerify_WarnMode(t *testing.T) {
	v := NewVerifier(ModeWarn, nil)
	report, err := v.Verify([]model.Citation{{ChunkID: "ghost"}}, testHits())
	if err != nil {
		t.Fatalf("expected no error in warn mode, got %v", err)
	}
	if report.Grounded() {
		t.Error("warn mode must still report the violation")
	}
}

func TestVerify_ExcerptMismatchIsSoft(t *testing.T) {
	v := NewVerifier(ModeEnforce, nil)
	citations := []model.Citation{{ChunkID: "c2", Page: 8, Excerpt: "paraphrased endoscopy advice"}}

	report, err := v.Verify(citations, testHits())

	if err != nil {
		t.Fatalf("expected excerpt mismatch not to raise, got %v", err)
	}
	want := Report{Checked: 1, Mismatches: []Mismatch{{ChunkID: "c2", Excerpt: "paraphrased endoscopy advice"}}}
	if diff := cmp.Diff(want, report); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
}

func TestVerify_GroundedCitations(t *testing.T) {
	hits := testHits()
	terms := score.NormalizeTerms([]string{"visible haematuria"})
	citations := []model.Citation{
		{ChunkID: "c1", Excerpt: score.BestExcerpt(hits[0].Text, terms, 40)},
		{ChunkID: "c2", Excerpt: score.Clip(hits[1].Text, 20)},
		{ChunkID: "c1"},
	}

	report, err := NewVerifier(ModeEnforce, nil).Verify(citations, hits)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Mismatches) != 0 {
		t.Errorf("expected no mismatches, got %+v", report.Mismatches)
	}
	if report.Checked != 3 {
		t.Errorf("expected 3 checked, got %d", report.Checked)
	}
}

func TestVerify_Empty(t *testing.T) {
	report, err := NewVerifier(ModeEnforce, nil).Verify(nil, nil)
	if err != nil || !report.Grounded() || report.Checked != 0 {
		t.Errorf("expected empty grounded report, got %+v %v", report, err)
	}
}

func TestExcerptMatches(t *testing.T) {
	passage := "Refer people aged 45 and over with visible haematuria"
	tests := []struct {
		excerpt string
		want    bool
	}{
		{"", true},
		{"AGED 45   and over", true},
		{"...aged 45 and over...", true},
		{"aged 50", false},
		{strings.Repeat("x", 10), false},
	}
	for _, tt := range tests {
		if got := ExcerptMatches(tt.excerpt, passage); got != tt.want {
			t.Errorf("ExcerptMatches(%q): expected %v, got %v", tt.excerpt, tt.want, got)
		}
	}
	if !ExcerptMatches("anything", "") {
		t.Error("expected empty passage to match")
	}
}

func TestParseMode(t *testing.T) {
	if ParseMode("WARN") != ModeWarn {
		t.Error("expected warn")
	}
	for _, s := range []string{"", "enforce", "strict"} {
		if ParseMode(s) != ModeEnforce {
			t.Errorf("expected enforce for %q", s)
		}
	}
}
