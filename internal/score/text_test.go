package score

import (
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	if got := Normalize("  Visible\tHAEMATURIA \n now "); got != "visible haematuria now" {
		t.Errorf("unexpected normalization: %q", got)
	}
}

func TestClip(t *testing.T) {
	if got := Clip("  short  ", 10); got != "short" {
		t.Errorf("expected trimmed text, got %q", got)
	}
	if got := Clip("abcdefghij", 4); got != "abcd..." {
		t.Errorf("expected clipped text, got %q", got)
	}
	if got := Clip("oesophagéal", 10); got != "oesophagéa..." {
		t.Errorf("expected rune-safe clip, got %q", got)
	}
}

func TestBestExcerpt_WindowAroundSymptom(t *testing.T) {
	prefix := strings.Repeat("a", 200)
	suffix := strings.Repeat("b", 300)
	text := prefix + "visible haematuria" + suffix

	got := BestExcerpt(text, []string{"visible haematuria"}, 240)

	if !strings.HasPrefix(got, Ellipsis) || !strings.HasSuffix(got, Ellipsis) {
		t.Fatalf("expected ellipsis on both edges, got %q", got)
	}
	body := strings.TrimSuffix(strings.TrimPrefix(got, Ellipsis), Ellipsis)
	if len(body) != 240 {
		t.Errorf("expected 240-char window, got %d", len(body))
	}
	// 80 chars before the match start, 160 from it
	if !strings.HasPrefix(body, strings.Repeat("a", 80)+"visible") {
		t.Errorf("expected match a third into the window, got %q", body[:100])
	}
}

func TestBestExcerpt_MatchNearStart(t *testing.T) {
	text := "Dysphagia: offer urgent direct access upper gastrointestinal endoscopy."
	got := BestExcerpt(text, []string{"dysphagia"}, 240)
	if got != text {
		t.Errorf("expected full text without ellipsis, got %q", got)
	}
}

func TestBestExcerpt_FallbackAndShortTerms(t *testing.T) {
	text := strings.Repeat("x", 300)
	got := BestExcerpt(text, []string{"xxx"}, 240)
	if got != strings.Repeat("x", 240)+Ellipsis {
		t.Errorf("expected leading clip when only short terms given, got %q", got)
	}
	if BestExcerpt("   ", []string{"cough"}, 240) != "" {
		t.Error("expected empty excerpt for empty text")
	}
}

func TestBestExcerpt_CaseInsensitive(t *testing.T) {
	text := strings.Repeat("z", 100) + " Unexplained Haemoptysis in people aged 40 and over"
	got := BestExcerpt(text, []string{"unexplained haemoptysis"}, 60)
	if !strings.Contains(got, "Unexplained Haemoptysis") {
		t.Errorf("expected original casing preserved around match, got %q", got)
	}
}

func TestContainsAny(t *testing.T) {
	if !ContainsAny("Refer for  Chest X-ray", "chest x-ray") {
		t.Error("expected match after normalization")
	}
	if ContainsAny("nothing relevant", "bladder", "") {
		t.Error("expected no match")
	}
}
