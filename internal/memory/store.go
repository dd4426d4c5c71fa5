// Package memory keeps chat session logs.
package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/ng12agent/internal/model"
)

// Store is an append-only conversation log keyed by session id.
// Append writes all given turns atomically; readers receive copies.
type Store interface {
	Get(ctx context.Context, sessionID string) ([]model.ConversationTurn, error)
	Append(ctx context.Context, sessionID string, turns ...model.ConversationTurn) error
	LastAssistant(ctx context.Context, sessionID string) (model.ConversationTurn, bool, error)
	Clear(ctx context.Context, sessionID string) error
	Close() error
}

// Backend names
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// New opens the store selected by the config
func New(cfg model.MemoryConfig) (Store, error) {
	ttl := time.Duration(cfg.SessionTTL) * time.Second
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendMemory:
		return NewMemoryStore(ttl), nil
	case BackendSQLite:
		return NewSQLiteStore(cfg.Path, ttl)
	default:
		return nil, fmt.Errorf("unsupported memory backend: %s", cfg.Backend)
	}
}

func copyTurn(t model.ConversationTurn) model.ConversationTurn {
	out := t
	if t.Citations != nil {
		out.Citations = append([]model.Citation(nil), t.Citations...)
	}
	return out
}

func copyTurns(turns []model.ConversationTurn) []model.ConversationTurn {
	out := make([]model.ConversationTurn, len(turns))
	for i, t := range turns {
		out[i] = copyTurn(t)
	}
	return out
}
