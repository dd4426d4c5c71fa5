package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ppiankov/ng12agent/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS chat_sessions (
	session_id        TEXT PRIMARY KEY,
	last_assistant_id INTEGER,
	updated_at        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS chat_turns (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id     TEXT NOT NULL,
	role           TEXT NOT NULL,
	content        TEXT NOT NULL,
	citations_json TEXT NOT NULL,
	created_at     TEXT NOT NULL,
	FOREIGN KEY (session_id) REFERENCES chat_sessions(session_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_chat_turns_session ON chat_turns(session_id, id);
`

// SQLiteStore persists sessions in a SQLite database
type SQLiteStore struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// NewSQLiteStore opens (or creates) the database at path and runs migrations.
// Sessions idle for longer than ttl are dropped on access; ttl 0 keeps them.
func NewSQLiteStore(path string, ttl time.Duration) (*SQLiteStore, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("create db dir: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One connection serializes writers and keeps :memory: databases shared
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLiteStore{db: db, ttl: ttl, now: time.Now}, nil
}

// Close closes the underlying database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// expired drops the session if it has been idle past the ttl
func (s *SQLiteStore) expired(ctx context.Context, sessionID string) (bool, error) {
	if s.ttl <= 0 {
		return false, nil
	}
	var updated string
	err := s.db.QueryRowContext(ctx, `SELECT updated_at FROM chat_sessions WHERE session_id = ?`, sessionID).Scan(&updated)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read session: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, updated)
	if err != nil || s.now().Sub(ts) <= s.ttl {
		return false, nil
	}
	return true, s.Clear(ctx, sessionID)
}

// Get returns the session's turns in insertion order
func (s *SQLiteStore) Get(ctx context.Context, sessionID string) ([]model.ConversationTurn, error) {
	if gone, err := s.expired(ctx, sessionID); err != nil || gone {
		return []model.ConversationTurn{}, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content, citations_json FROM chat_turns WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	turns := []model.ConversationTurn{}
	for rows.Next() {
		t, err := scanTurn(rows)
		if err != nil {
			return nil, err
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}
	return turns, nil
}

// Append inserts all turns and moves the last-assistant pointer in one transaction
func (s *SQLiteStore) Append(ctx context.Context, sessionID string, turns ...model.ConversationTurn) error {
	if len(turns) == 0 {
		return nil
	}
	if _, err := s.expired(ctx, sessionID); err != nil {
		return err
	}

	now := s.now().UTC().Format(time.RFC3339Nano)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO chat_sessions (session_id, updated_at) VALUES (?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET updated_at = excluded.updated_at`,
		sessionID, now); err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}

	for _, t := range turns {
		citations := t.Citations
		if citations == nil {
			citations = []model.Citation{}
		}
		citJSON, err := json.Marshal(citations)
		if err != nil {
			return fmt.Errorf("marshal citations: %w", err)
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO chat_turns (session_id, role, content, citations_json, created_at) VALUES (?, ?, ?, ?, ?)`,
			sessionID, string(t.Role), t.Content, string(citJSON), now)
		if err != nil {
			return fmt.Errorf("insert turn: %w", err)
		}
		if t.Role != model.RoleAssistant {
			continue
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("turn id: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE chat_sessions SET last_assistant_id = ? WHERE session_id = ?`, id, sessionID); err != nil {
			return fmt.Errorf("update last assistant: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// LastAssistant follows the session's last-assistant pointer
func (s *SQLiteStore) LastAssistant(ctx context.Context, sessionID string) (model.ConversationTurn, bool, error) {
	if gone, err := s.expired(ctx, sessionID); err != nil || gone {
		return model.ConversationTurn{}, false, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT t.role, t.content, t.citations_json
		 FROM chat_sessions s JOIN chat_turns t ON t.id = s.last_assistant_id
		 WHERE s.session_id = ?`, sessionID)
	t, err := scanTurn(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ConversationTurn{}, false, nil
	}
	if err != nil {
		return model.ConversationTurn{}, false, err
	}
	return t, true, nil
}

// Clear deletes the session and its turns
func (s *SQLiteStore) Clear(ctx context.Context, sessionID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chat_turns WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("delete turns: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM chat_sessions WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTurn(row scanner) (model.ConversationTurn, error) {
	var role, content, citJSON string
	if err := row.Scan(&role, &content, &citJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.ConversationTurn{}, err
		}
		return model.ConversationTurn{}, fmt.Errorf("scan turn: %w", err)
	}
	t := model.ConversationTurn{Role: model.Role(role), Content: content, Citations: []model.Citation{}}
	if err := json.Unmarshal([]byte(citJSON), &t.Citations); err != nil {
		return model.ConversationTurn{}, fmt.Errorf("unmarshal citations: %w", err)
	}
	return t, nil
}
