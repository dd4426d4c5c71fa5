package ingest

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"

	"github.com/ppiankov/ng12agent/internal/model"
)

func TestLooksLikeFooter(t *testing.T) {
	tests := map[string]bool{
		"":                                  true,
		"Page 12 of 98":                     true,
		"© NICE 2025. All rights reserved.": true,
		"www.nice.org.uk/guidance/ng12":     true,
		"Subject to Notice of rights":       true,
		"terms-and-conditions#notice":       true,
		"Refer people using a suspected cancer pathway referral": false,
		"1.1 Lung and pleural cancers":                           false,
	}
	for line, want := range tests {
		if got := LooksLikeFooter(line); got != want {
			t.Errorf("LooksLikeFooter(%q): expected %v, got %v", line, want, got)
		}
	}
}

func TestCleanText(t *testing.T) {
	in := "Suspected cancer: recognition and referral\n\n  Refer   people aged 40 and over  \nPage 3 of 98\n© NICE 2025\n"
	want := "Suspected cancer: recognition and referral\nRefer people aged 40 and over"
	if got := CleanText(in); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestSplitParagraphs_PacksLines(t *testing.T) {
	text := "aaaa\nbbbb\ncccc"
	got := SplitParagraphs(text, 9, 0)
	want := []string{"aaaa\nbbbb", "cccc"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestSplitParagraphs_Overlap(t *testing.T) {
	text := "first paragraph\nsecond paragraph"
	got := SplitParagraphs(text, 20, 5)
	if len(got) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %q", len(got), got)
	}
	if !strings.HasPrefix(got[1], "graph\n") {
		t.Errorf("expected overlap tail of previous chunk, got %q", got[1])
	}
}

func TestSplitParagraphs_Bounds(t *testing.T) {
	var lines []string
	for i := 0; i < 200; i++ {
		lines = append(lines, strings.Repeat("é", 30+i%40))
	}
	const maxChars, overlap = 1400, 160
	for _, ch := range SplitParagraphs(strings.Join(lines, "\n"), maxChars, overlap) {
		if n := utf8.RuneCountInString(ch); n > maxChars+overlap+1 {
			t.Errorf("chunk of %d characters exceeds bound", n)
		}
		if !utf8.ValidString(ch) {
			t.Error("chunk split a multi-byte character")
		}
	}
}

func TestHasCriteriaSignals(t *testing.T) {
	if !HasCriteriaSignals("Consider an urgent chest X-ray") {
		t.Error("expected criteria signal")
	}
	if HasCriteriaSignals("Contents of this guideline") {
		t.Error("expected no criteria signal")
	}
	// Signals are substrings: "and overview" carries "and over"
	if !HasCriteriaSignals("Contents and overview of this guideline") {
		t.Error("expected substring match on \"and over\"")
	}
}

func TestChunkPages(t *testing.T) {
	pages := []Page{
		{Number: 1, Text: "Overview\nPage 1 of 2"},
		{Number: 2, Text: ""},
		{Number: 7, Text: "1.1 Lung and pleural cancers\nRefer people using a suspected cancer pathway referral for lung cancer if they are aged 40 and over."},
		{Number: 8, Text: "Offer an urgent chest X-ray."},
	}
	got := ChunkPages(pages, 1400, 160, "")

	want := []model.EvidenceChunk{
		{ID: "ng12_0001_00", Text: "Overview", Page: 1, Metadata: model.ChunkMetadata{Source: model.DefaultSourceLabel}},
		{
			ID:   "ng12_0007_00",
			Text: "1.1 Lung and pleural cancers\nRefer people using a suspected cancer pathway referral for lung cancer if they are aged 40 and over.",
			Page: 7,
			Metadata: model.ChunkMetadata{
				Source: model.DefaultSourceLabel, HasCriteria: true, Section: "1.1 Lung and pleural cancers",
			},
		},
		{
			ID: "ng12_0008_00", Text: "Offer an urgent chest X-ray.", Page: 8,
			Metadata: model.ChunkMetadata{Source: model.DefaultSourceLabel, HasCriteria: true, Section: "1.1 Lung and pleural cancers"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestChunkID(t *testing.T) {
	if got := ChunkID(12, 3); got != "ng12_0012_03" {
		t.Errorf("expected ng12_0012_03, got %s", got)
	}
}
