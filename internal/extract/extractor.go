package extract

import (
	"context"

	"go.uber.org/zap"

	"github.com/ppiankov/ng12agent/internal/model"
)

// Strategy turns a patient and ranked passages into matched criteria
type Strategy interface {
	Extract(ctx context.Context, p model.PatientRecord, hits []model.EvidenceChunk) model.ExtractionResult
}

// CriteriaExtractor gates on evidence quality, then tries the primary strategy
// and falls back to the deterministic one when the primary output is not Valid.
type CriteriaExtractor struct {
	primary   Strategy
	fallback  Strategy
	threshold float64
	logger    *zap.Logger
}

// NewCriteriaExtractor creates a new extractor. primary may be nil when no model is configured.
func NewCriteriaExtractor(primary, fallback Strategy, threshold float64, logger *zap.Logger) *CriteriaExtractor {
	if fallback == nil {
		fallback = NewRuleTable(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CriteriaExtractor{
		primary:   primary,
		fallback:  fallback,
		threshold: threshold,
		logger:    logger,
	}
}

// Extract returns the criteria result for one assessment
func (e *CriteriaExtractor) Extract(ctx context.Context, p model.PatientRecord, hits []model.EvidenceChunk, diag model.RetrievalDiagnostics) model.ExtractionResult {
	if !EvidenceSufficient(diag, e.threshold) || len(hits) == 0 {
		e.logger.Debug("evidence gate not met",
			zap.Int("count", diag.Count),
			zap.Float64("top_score", diag.TopScore),
			zap.Float64("threshold", e.threshold),
		)
		return model.Insufficient(model.ExtractionGate)
	}

	if e.primary != nil {
		res := e.primary.Extract(ctx, p, hits)
		if Valid(res) {
			return res
		}
		e.logger.Info("primary extraction unusable, using rule table", zap.String("patient_id", p.ID))
	}

	return e.fallback.Extract(ctx, p, hits)
}
