package memory

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/ppiankov/ng12agent/internal/model"
)

type session struct {
	mu            sync.Mutex
	turns         []model.ConversationTurn
	lastAssistant int // Index into turns, -1 when there is no assistant turn
}

// MemoryStore keeps sessions in process memory. Sessions expire after ttl of inactivity.
type MemoryStore struct {
	mu       sync.Mutex // Serializes Append and Clear
	sessions *gocache.Cache
	ttl      time.Duration
}

// NewMemoryStore creates an in-memory store; ttl 0 keeps sessions forever
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		return &MemoryStore{sessions: gocache.New(gocache.NoExpiration, 0), ttl: gocache.NoExpiration}
	}
	return &MemoryStore{sessions: gocache.New(ttl, 2*ttl), ttl: ttl}
}

func (s *MemoryStore) lookup(sessionID string) (*session, bool) {
	v, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, false
	}
	return v.(*session), true
}

// getOrCreate must be called with s.mu held
func (s *MemoryStore) getOrCreate(sessionID string) *session {
	if sess, ok := s.lookup(sessionID); ok {
		return sess
	}
	return &session{lastAssistant: -1}
}

// Get returns a copy of the session's turns in order
func (s *MemoryStore) Get(_ context.Context, sessionID string) ([]model.ConversationTurn, error) {
	sess, ok := s.lookup(sessionID)
	if !ok {
		return []model.ConversationTurn{}, nil
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return copyTurns(sess.turns), nil
}

// Append adds turns to the session. The store lock is held until the session
// is stored again so a concurrent Clear cannot be undone.
func (s *MemoryStore) Append(_ context.Context, sessionID string, turns ...model.ConversationTurn) error {
	if len(turns) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.getOrCreate(sessionID)

	sess.mu.Lock()
	for _, t := range turns {
		sess.turns = append(sess.turns, copyTurn(t))
		if t.Role == model.RoleAssistant {
			sess.lastAssistant = len(sess.turns) - 1
		}
	}
	sess.mu.Unlock()

	// Refresh expiry
	s.sessions.Set(sessionID, sess, s.ttl)
	return nil
}

// LastAssistant returns the most recent assistant turn
func (s *MemoryStore) LastAssistant(_ context.Context, sessionID string) (model.ConversationTurn, bool, error) {
	sess, ok := s.lookup(sessionID)
	if !ok {
		return model.ConversationTurn{}, false, nil
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.lastAssistant < 0 {
		return model.ConversationTurn{}, false, nil
	}
	return copyTurn(sess.turns[sess.lastAssistant]), true, nil
}

// Clear drops the session
func (s *MemoryStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions.Delete(sessionID)
	return nil
}

// Len returns the number of live sessions
func (s *MemoryStore) Len() int {
	return s.sessions.ItemCount()
}

// Close is a no-op for the in-memory store
func (s *MemoryStore) Close() error {
	return nil
}
