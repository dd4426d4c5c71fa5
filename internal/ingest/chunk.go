package ingest

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/ng12agent/internal/model"
)

// Chunking defaults
const (
	DefaultChunkChars   = 1400
	DefaultOverlapChars = 160
)

var footerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^page\s+\d+\s+of\s+\d+`),
	regexp.MustCompile(`^©\s*nice`),
	regexp.MustCompile(`^www\.nice\.org\.uk`),
	regexp.MustCompile(`^subject to notice of rights`),
	regexp.MustCompile(`^terms-and-conditions`),
}

var (
	spaceRun = regexp.MustCompile(`\s+`)
	// "1.3 Upper gastrointestinal tract cancers"; recommendations carry three levels
	sectionHeading = regexp.MustCompile(`^\d{1,2}\.\d{1,2}\s+[A-Z][^.]{2,90}$`)
)

var criteriaSignals = []string{
	"refer", "consider", "offer", "suspected cancer pathway",
	"symptom and specific features", "possible cancer", "recommendation",
	"aged", "and over", "within", "weeks",
}

// LooksLikeFooter reports page furniture: blank lines, page counters, copyright and rights notices
func LooksLikeFooter(line string) bool {
	low := strings.ToLower(strings.TrimSpace(line))
	if low == "" {
		return true
	}
	for _, re := range footerPatterns {
		if re.MatchString(low) {
			return true
		}
	}
	return strings.Contains(low, "all rights reserved") || strings.Contains(low, "notice of rights")
}

// CleanText drops footer lines and collapses whitespace, keeping one line per input line
func CleanText(text string) string {
	text = strings.ReplaceAll(text, "\u00a0", " ")
	var lines []string
	for _, ln := range strings.Split(text, "\n") {
		if LooksLikeFooter(ln) {
			continue
		}
		if s := strings.TrimSpace(spaceRun.ReplaceAllString(ln, " ")); s != "" {
			lines = append(lines, s)
		}
	}
	return strings.Join(lines, "\n")
}

// SplitParagraphs packs lines into chunks of at most maxChars characters.
// Each new chunk starts with the last overlapChars characters of the previous one.
// A single line longer than maxChars becomes its own chunk.
func SplitParagraphs(text string, maxChars, overlapChars int) []string {
	if maxChars <= 0 {
		maxChars = DefaultChunkChars
	}
	var chunks []string
	cur := ""
	for _, p := range strings.Split(text, "\n") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if cur == "" {
			cur = p
			continue
		}
		if utf8.RuneCountInString(cur)+1+utf8.RuneCountInString(p) <= maxChars {
			cur += "\n" + p
			continue
		}
		chunks = append(chunks, strings.TrimSpace(cur))
		cur = strings.TrimSpace(tail(cur, overlapChars) + "\n" + p)
	}
	if s := strings.TrimSpace(cur); s != "" {
		chunks = append(chunks, s)
	}
	return chunks
}

func tail(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}

// HasCriteriaSignals reports wording typical of referral recommendations
func HasCriteriaSignals(text string) bool {
	low := strings.ToLower(text)
	for _, s := range criteriaSignals {
		if strings.Contains(low, s) {
			return true
		}
	}
	return false
}

// ChunkID formats the stable id of the n-th chunk on a page
func ChunkID(page, n int) string {
	return fmt.Sprintf("ng12_%04d_%02d", page, n)
}

// ChunkPages cleans and splits every page into evidence chunks. The section
// heading in force at a chunk's first line carries across pages.
func ChunkPages(pages []Page, maxChars, overlapChars int, source string) []model.EvidenceChunk {
	if source == "" {
		source = model.DefaultSourceLabel
	}
	var out []model.EvidenceChunk
	section := ""
	for _, pg := range pages {
		text := CleanText(pg.Text)
		if text == "" {
			continue
		}
		for ci, ch := range SplitParagraphs(text, maxChars, overlapChars) {
			if first, _, _ := strings.Cut(ch, "\n"); sectionHeading.MatchString(first) {
				section = first
			}
			out = append(out, model.EvidenceChunk{
				ID:   ChunkID(pg.Number, ci),
				Text: ch,
				Page: pg.Number,
				Metadata: model.ChunkMetadata{
					Source:      source,
					HasCriteria: HasCriteriaSignals(ch),
					Section:     section,
				},
			})
			// Headings inside the chunk apply to the chunks that follow
			for _, ln := range strings.Split(ch, "\n") {
				if sectionHeading.MatchString(ln) {
					section = ln
				}
			}
		}
	}
	return out
}
