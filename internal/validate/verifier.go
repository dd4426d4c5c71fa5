// Package validate checks that answer citations trace to retrieved passages.
package validate

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/ng12agent/internal/model"
	"github.com/ppiankov/ng12agent/internal/score"
)

// Mode controls what happens when a citation is ungrounded
type Mode string

const (
	ModeEnforce Mode = "enforce" // Return ErrGroundingViolation
	ModeWarn    Mode = "warn"    // Log and let the answer through
)

// ParseMode maps a config value to a Mode; anything unknown enforces
func ParseMode(s string) Mode {
	if Mode(strings.ToLower(strings.TrimSpace(s))) == ModeWarn {
		return ModeWarn
	}
	return ModeEnforce
}

// Mismatch is a citation whose excerpt does not appear in its passage
type Mismatch struct {
	ChunkID string `json:"chunk_id"`
	Excerpt string `json:"excerpt"`
}

// Report is the outcome of one verification
type Report struct {
	Checked    int        `json:"checked"`
	Unknown    []string   `json:"unknown,omitempty"`    // Chunk ids absent from the hits
	Mismatches []Mismatch `json:"mismatches,omitempty"` // Soft excerpt mismatches
}

// Grounded reports whether every citation resolved to a hit
func (r Report) Grounded() bool {
	return len(r.Unknown) == 0
}

// Verifier is the final grounding gate of both pipelines
type Verifier struct {
	mode   Mode
	logger *zap.Logger
}

// NewVerifier creates a new verifier
func NewVerifier(mode Mode, logger *zap.Logger) *Verifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if mode != ModeWarn {
		mode = ModeEnforce
	}
	return &Verifier{mode: mode, logger: logger}
}

// Mode returns the active verification mode
func (v *Verifier) Mode() Mode {
	return v.mode
}

// Verify checks citations against hits. Unknown chunk ids are a grounding
// violation; in warn mode they are logged and no error is returned.
// Excerpt mismatches are only recorded.
func (v *Verifier) Verify(citations []model.Citation, hits []model.EvidenceChunk) (Report, error) {
	report := Check(citations, hits)

	for _, m := range report.Mismatches {
		v.logger.Debug("citation excerpt not found in passage", zap.String("chunk_id", m.ChunkID))
	}
	if report.Grounded() {
		return report, nil
	}

	if v.mode == ModeWarn {
		v.logger.Warn("ungrounded citations", zap.Strings("chunk_ids", report.Unknown))
		return report, nil
	}
	return report, fmt.Errorf("%w: unknown chunk ids %s", model.ErrGroundingViolation, strings.Join(report.Unknown, ", "))
}

// Check runs the grounding checks without applying a mode
func Check(citations []model.Citation, hits []model.EvidenceChunk) Report {
	byID := model.IndexByID(hits)
	report := Report{Checked: len(citations)}

	for _, c := range citations {
		hit, ok := byID[c.ChunkID]
		if !ok {
			report.Unknown = append(report.Unknown, c.ChunkID)
			continue
		}
		if !ExcerptMatches(c.Excerpt, hit.Text) {
			report.Mismatches = append(report.Mismatches, Mismatch{ChunkID: c.ChunkID, Excerpt: c.Excerpt})
		}
	}
	return report
}

// ExcerptMatches reports whether an excerpt appears in a passage after
// normalizing case and whitespace. Truncation ellipses are ignored.
// An empty excerpt or passage always matches.
func ExcerptMatches(excerpt, passage string) bool {
	e := strings.TrimSpace(excerpt)
	e = strings.TrimPrefix(e, score.Ellipsis)
	e = strings.TrimSuffix(e, score.Ellipsis)
	e = score.Normalize(e)
	p := score.Normalize(passage)
	if e == "" || p == "" {
		return true
	}
	return strings.Contains(p, e)
}
