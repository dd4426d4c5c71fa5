// Package pipeline runs the assessment and chat stage lists.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/ng12agent/internal/model"
	"github.com/ppiankov/ng12agent/internal/validate"
)

// PatientStore looks up patient records
type PatientStore interface {
	Get(ctx context.Context, id string) (model.PatientRecord, error)
}

// Retriever fetches guideline passages for a query
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]model.EvidenceChunk, model.RetrievalDiagnostics)
}

// Verifier checks citations against the passages that ground them
type Verifier interface {
	Verify(citations []model.Citation, hits []model.EvidenceChunk) (validate.Report, error)
}

// stage is one named step over a request-scoped state
type stage[S any] struct {
	name string
	run  func(ctx context.Context, s *S) error
}

// runStages executes stages in order and stops at the first error
func runStages[S any](ctx context.Context, logger *zap.Logger, pipeline string, stages []stage[S], s *S) error {
	start := time.Now()
	for _, st := range stages {
		if err := ctx.Err(); err != nil {
			return err
		}
		t := time.Now()
		if err := st.run(ctx, s); err != nil {
			logger.Debug("stage failed",
				zap.String("pipeline", pipeline),
				zap.String("stage", st.name),
				zap.Error(err),
			)
			return fmt.Errorf("%s: %w", st.name, err)
		}
		logger.Debug("stage",
			zap.String("pipeline", pipeline),
			zap.String("stage", st.name),
			zap.Duration("elapsed", time.Since(t)),
		)
	}
	logger.Debug("pipeline complete", zap.String("pipeline", pipeline), zap.Duration("elapsed", time.Since(start)))
	return nil
}
