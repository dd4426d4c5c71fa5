package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/ng12agent/internal/compose"
	"github.com/ppiankov/ng12agent/internal/model"
	"github.com/ppiankov/ng12agent/internal/policy"
	"github.com/ppiankov/ng12agent/internal/query"
	"github.com/ppiankov/ng12agent/internal/score"
)

// Extractor produces structured referral criteria for a patient
type Extractor interface {
	Extract(ctx context.Context, p model.PatientRecord, hits []model.EvidenceChunk, diag model.RetrievalDiagnostics) model.ExtractionResult
}

// AssessorDeps are the collaborators of the assessment pipeline
type AssessorDeps struct {
	Patients  PatientStore
	Sites     *query.SiteInferrer
	Queries   *query.Builder
	Retriever Retriever
	Scorer    *score.Scorer
	Extractor Extractor
	Verifier  Verifier
	Logger    *zap.Logger
}

// Assessor decides whether a patient meets NG12 urgent referral criteria
type Assessor struct {
	deps   AssessorDeps
	logger *zap.Logger
}

// NewAssessor creates a new assessment pipeline
func NewAssessor(deps AssessorDeps) *Assessor {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Sites == nil {
		deps.Sites = query.NewSiteInferrer(nil)
	}
	if deps.Queries == nil {
		deps.Queries = query.NewBuilder(nil)
	}
	if deps.Scorer == nil {
		deps.Scorer = score.NewScorer(model.DefaultScoringWeights())
	}
	return &Assessor{deps: deps, logger: logger}
}

type assessState struct {
	patientID  string
	topK       int
	patient    model.PatientRecord
	site       model.Site
	query      string
	hits       []model.EvidenceChunk
	diag       model.RetrievalDiagnostics
	extraction model.ExtractionResult
	decision   model.Decision
	result     model.AssessResult
}

// Assess runs fetch_patient, infer_site, build_query, retrieve, rerank,
// extract, decide, format and verify for one patient
func (a *Assessor) Assess(ctx context.Context, patientID string, topK int) (model.AssessResult, error) {
	id := strings.TrimSpace(patientID)
	if id == "" {
		return model.AssessResult{}, fmt.Errorf("%w: patient_id is required", model.ErrInvalidRequest)
	}

	s := &assessState{patientID: id, topK: topK}
	if err := runStages(ctx, a.logger, "assess", a.stages(), s); err != nil {
		return model.AssessResult{}, err
	}

	a.logger.Info("assessment",
		zap.String("patient_id", id),
		zap.String("site", string(s.site)),
		zap.String("assessment", string(s.decision.Assessment)),
		zap.String("extraction", string(s.extraction.Source)),
		zap.Int("hits", s.diag.Count),
		zap.Float64("top_score", s.diag.TopScore),
		zap.Int("citations", len(s.result.Citations)),
	)
	return s.result, nil
}

func (a *Assessor) stages() []stage[assessState] {
	return []stage[assessState]{
		{"fetch_patient", a.fetchPatient},
		{"infer_site", a.inferSite},
		{"build_query", a.buildQuery},
		{"retrieve", a.retrieve},
		{"rerank", a.rerank},
		{"extract", a.extract},
		{"decide", a.decide},
		{"format", a.format},
		{"verify", a.verify},
	}
}

func (a *Assessor) fetchPatient(ctx context.Context, s *assessState) error {
	p, err := a.deps.Patients.Get(ctx, s.patientID)
	if err != nil {
		return err
	}
	s.patient = p
	return nil
}

func (a *Assessor) inferSite(ctx context.Context, s *assessState) error {
	s.site = a.deps.Sites.Infer(ctx, s.patient)
	return nil
}

func (a *Assessor) buildQuery(ctx context.Context, s *assessState) error {
	s.query = a.deps.Queries.Assessment(ctx, s.patient, s.site)
	return nil
}

func (a *Assessor) retrieve(ctx context.Context, s *assessState) error {
	s.hits, s.diag = a.deps.Retriever.Retrieve(ctx, s.query, s.topK)
	return nil
}

func (a *Assessor) rerank(_ context.Context, s *assessState) error {
	s.hits = a.deps.Scorer.Rerank(s.hits, score.PatientContext(s.patient, s.site))
	return nil
}

func (a *Assessor) extract(ctx context.Context, s *assessState) error {
	s.extraction = a.deps.Extractor.Extract(ctx, s.patient, s.hits, s.diag)
	return nil
}

func (a *Assessor) decide(_ context.Context, s *assessState) error {
	s.decision = policy.Decide(s.extraction)
	return nil
}

func (a *Assessor) format(_ context.Context, s *assessState) error {
	s.result = compose.Assessment(s.patient, s.extraction, s.decision, s.hits, s.diag)
	return nil
}

func (a *Assessor) verify(_ context.Context, s *assessState) error {
	if a.deps.Verifier == nil {
		return nil
	}
	_, err := a.deps.Verifier.Verify(s.result.Citations, s.hits)
	return err
}
