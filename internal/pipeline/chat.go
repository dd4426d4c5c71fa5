package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/ng12agent/internal/compose"
	"github.com/ppiankov/ng12agent/internal/memory"
	"github.com/ppiankov/ng12agent/internal/model"
	"github.com/ppiankov/ng12agent/internal/query"
	"github.com/ppiankov/ng12agent/internal/score"
)

// ChatDeps are the collaborators of the chat pipeline
type ChatDeps struct {
	Memory    memory.Store
	Queries   *query.Builder
	Retriever Retriever
	Scorer    *score.Scorer
	Composer  *compose.Composer
	Verifier  Verifier
	Logger    *zap.Logger
}

// Chat answers guideline questions within a session
type Chat struct {
	deps   ChatDeps
	logger *zap.Logger
}

// NewChat creates a new chat pipeline
func NewChat(deps ChatDeps) *Chat {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Queries == nil {
		deps.Queries = query.NewBuilder(nil)
	}
	if deps.Scorer == nil {
		deps.Scorer = score.NewScorer(model.DefaultScoringWeights())
	}
	if deps.Composer == nil {
		deps.Composer = compose.NewComposer(nil)
	}
	return &Chat{deps: deps, logger: logger}
}

type chatState struct {
	sessionID string
	message   string
	topK      int
	history   []model.ConversationTurn
	prior     *model.ConversationTurn
	query     string
	hits      []model.EvidenceChunk
	diag      model.RetrievalDiagnostics
	reply     compose.Reply
	answer    string
	citations []model.Citation
}

// Chat runs load_history, build_query, retrieve, rerank, ask, compose,
// verify and save. Nothing is saved when verification fails.
func (c *Chat) Chat(ctx context.Context, sessionID, message string, topK int) (model.ChatResult, error) {
	sid := strings.TrimSpace(sessionID)
	msg := strings.TrimSpace(message)
	if sid == "" {
		return model.ChatResult{}, fmt.Errorf("%w: session_id is required", model.ErrInvalidRequest)
	}
	if msg == "" {
		return model.ChatResult{}, fmt.Errorf("%w: message is required", model.ErrInvalidRequest)
	}

	s := &chatState{sessionID: sid, message: msg, topK: topK}
	if err := runStages(ctx, c.logger, "chat", c.stages(), s); err != nil {
		return model.ChatResult{}, err
	}

	c.logger.Info("chat",
		zap.String("session_id", sid),
		zap.Int("history", len(s.history)),
		zap.Int("hits", s.diag.Count),
		zap.Bool("supported", s.reply.Supported),
		zap.Int("citations", len(s.citations)),
	)
	return model.ChatResult{SessionID: sid, Answer: s.answer, Citations: s.citations}, nil
}

func (c *Chat) stages() []stage[chatState] {
	return []stage[chatState]{
		{"load_history", c.loadHistory},
		{"build_query", c.buildQuery},
		{"retrieve", c.retrieve},
		{"rerank", c.rerank},
		{"ask", c.ask},
		{"compose", c.compose},
		{"verify", c.verify},
		{"save", c.save},
	}
}

func (c *Chat) loadHistory(ctx context.Context, s *chatState) error {
	history, err := c.deps.Memory.Get(ctx, s.sessionID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	s.history = history

	last, ok, err := c.deps.Memory.LastAssistant(ctx, s.sessionID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if ok {
		s.prior = &last
	}
	return nil
}

func (c *Chat) buildQuery(_ context.Context, s *chatState) error {
	var last []model.Citation
	if s.prior != nil {
		last = s.prior.Citations
	}
	s.query = c.deps.Queries.Chat(s.message, s.history, last)
	return nil
}

func (c *Chat) retrieve(ctx context.Context, s *chatState) error {
	s.hits, s.diag = c.deps.Retriever.Retrieve(ctx, s.query, s.topK)
	return nil
}

func (c *Chat) rerank(_ context.Context, s *chatState) error {
	s.hits = c.deps.Scorer.Rerank(s.hits, score.GeneralContext())
	return nil
}

func (c *Chat) ask(ctx context.Context, s *chatState) error {
	s.reply = c.deps.Composer.Ask(ctx, s.message, s.history, s.hits)
	return nil
}

func (c *Chat) compose(_ context.Context, s *chatState) error {
	s.answer, s.citations = compose.Answer(s.reply, s.hits, s.prior)
	return nil
}

func (c *Chat) verify(_ context.Context, s *chatState) error {
	if c.deps.Verifier == nil {
		return nil
	}
	_, err := c.deps.Verifier.Verify(s.citations, GroundingSet(s.hits, s.prior))
	return err
}

func (c *Chat) save(ctx context.Context, s *chatState) error {
	user := model.ConversationTurn{Role: model.RoleUser, Content: s.message, Citations: []model.Citation{}}
	assistant := model.ConversationTurn{Role: model.RoleAssistant, Content: s.answer, Citations: s.citations}
	if err := c.deps.Memory.Append(ctx, s.sessionID, user, assistant); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// GroundingSet is the current hits plus the passages behind the prior
// assistant turn's citations, as far as the stored excerpts reproduce them
func GroundingSet(hits []model.EvidenceChunk, prior *model.ConversationTurn) []model.EvidenceChunk {
	if prior == nil || len(prior.Citations) == 0 {
		return hits
	}
	out := make([]model.EvidenceChunk, len(hits), len(hits)+len(prior.Citations))
	copy(out, hits)
	seen := make(map[string]bool, len(hits))
	for _, h := range hits {
		seen[h.ID] = true
	}
	for _, pc := range prior.Citations {
		if pc.ChunkID == "" || seen[pc.ChunkID] {
			continue
		}
		seen[pc.ChunkID] = true
		out = append(out, model.EvidenceChunk{
			ID:       pc.ChunkID,
			Text:     pc.Excerpt,
			Page:     pc.Page,
			Metadata: model.ChunkMetadata{Source: pc.Source},
		})
	}
	return out
}

// History returns the turns of a session in order
func (c *Chat) History(ctx context.Context, sessionID string) (model.HistoryResult, error) {
	sid := strings.TrimSpace(sessionID)
	if sid == "" {
		return model.HistoryResult{}, fmt.Errorf("%w: session_id is required", model.ErrInvalidRequest)
	}
	turns, err := c.deps.Memory.Get(ctx, sid)
	if err != nil {
		return model.HistoryResult{}, fmt.Errorf("load session: %w", err)
	}
	if turns == nil {
		turns = []model.ConversationTurn{}
	}
	return model.HistoryResult{SessionID: sid, History: turns}, nil
}

// Clear drops every turn of a session. Clearing an unknown session succeeds.
func (c *Chat) Clear(ctx context.Context, sessionID string) (model.ClearResult, error) {
	sid := strings.TrimSpace(sessionID)
	if sid == "" {
		return model.ClearResult{}, fmt.Errorf("%w: session_id is required", model.ErrInvalidRequest)
	}
	if err := c.deps.Memory.Clear(ctx, sid); err != nil {
		return model.ClearResult{}, fmt.Errorf("clear session: %w", err)
	}
	return model.ClearResult{SessionID: sid, Cleared: true}, nil
}
