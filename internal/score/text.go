package score

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Ellipsis marks a truncated excerpt edge
const Ellipsis = "..."

// Normalize lowercases text and collapses all whitespace runs to single spaces
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// ContainsAny reports whether the normalized text contains any of the needles.
// Needles are expected to be lowercase already.
func ContainsAny(text string, needles ...string) bool {
	t := Normalize(text)
	for _, n := range needles {
		if n != "" && strings.Contains(t, n) {
			return true
		}
	}
	return false
}

// NormalizeTerms normalizes symptom phrases and drops empty ones, preserving order
func NormalizeTerms(symptoms []string) []string {
	out := make([]string, 0, len(symptoms))
	for _, s := range symptoms {
		if n := Normalize(s); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// Clip trims text and cuts it to at most n runes, appending an ellipsis when cut
func Clip(text string, n int) string {
	s := strings.TrimSpace(text)
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + Ellipsis
}

// BestExcerpt returns a window of the passage around the first symptom term it mentions.
// Roughly a third of the window precedes the match and two thirds follow it.
// Without a match the passage is clipped from the start.
func BestExcerpt(text string, terms []string, window int) string {
	s := strings.TrimSpace(text)
	if s == "" {
		return ""
	}

	// Lowercasing rune by rune keeps rune offsets aligned with the original
	lower := strings.Map(unicode.ToLower, s)
	runes := []rune(s)

	idx := -1
	for _, term := range terms {
		if utf8.RuneCountInString(term) < 4 {
			continue
		}
		if b := strings.Index(lower, term); b != -1 {
			idx = utf8.RuneCountInString(lower[:b])
			break
		}
	}

	if idx == -1 {
		return Clip(s, window)
	}

	start := max(0, idx-window/3)
	end := min(len(runes), idx+(2*window)/3)
	out := strings.TrimSpace(string(runes[start:end]))
	if start > 0 {
		out = Ellipsis + out
	}
	if end < len(runes) {
		out += Ellipsis
	}
	return out
}
