// Package vectorstore is the guideline passage index backed by sqlite-vec.
package vectorstore

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/ppiankov/ng12agent/internal/model"
)

func init() {
	sqlite_vec.Auto()
}

// Distance metrics supported by vec0
const (
	MetricL2     = "l2"
	MetricCosine = "cosine"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS store_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS passages (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	chunk_id     TEXT NOT NULL UNIQUE,
	text         TEXT NOT NULL,
	page         INTEGER NOT NULL,
	source       TEXT NOT NULL DEFAULT '',
	has_criteria INTEGER NOT NULL DEFAULT 0,
	section      TEXT NOT NULL DEFAULT ''
);

CREATE VIRTUAL TABLE IF NOT EXISTS vec_passages USING vec0(
	passage_id INTEGER PRIMARY KEY,
	embedding float[%d] distance_metric=%s
);
`

// Passage is a chunk with its embedding, ready to index
type Passage = model.Passage

// Store is a KNN passage index in a single SQLite file
type Store struct {
	db     *sql.DB
	dim    int
	metric string
}

// New opens (or creates) the index at dbPath. An existing index must have
// been built with the same dimension and metric.
func New(dbPath string, dim int, metric string) (*Store, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", dim)
	}
	metric = strings.ToLower(strings.TrimSpace(metric))
	if metric == "" {
		metric = MetricL2
	}
	if metric != MetricL2 && metric != MetricCosine {
		return nil, fmt.Errorf("unsupported distance metric: %s", metric)
	}

	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf(schemaSQL, dim, metric)); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db, dim: dim, metric: metric}
	if err := s.checkMeta(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// checkMeta records the index shape on first use and rejects a mismatch later
func (s *Store) checkMeta(ctx context.Context) error {
	want := map[string]string{"dimension": strconv.Itoa(s.dim), "metric": s.metric}
	for key, value := range want {
		var got string
		err := s.db.QueryRowContext(ctx, `SELECT value FROM store_meta WHERE key = ?`, key).Scan(&got)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			if _, err := s.db.ExecContext(ctx, `INSERT INTO store_meta (key, value) VALUES (?, ?)`, key, value); err != nil {
				return fmt.Errorf("writing %s: %w", key, err)
			}
		case err != nil:
			return fmt.Errorf("reading %s: %w", key, err)
		case got != value:
			return fmt.Errorf("index was built with %s %s, configured %s", key, got, value)
		}
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Dimension returns the embedding dimension of the index
func (s *Store) Dimension() int {
	return s.dim
}

// Upsert inserts or replaces passages by chunk id in one transaction
func (s *Store) Upsert(ctx context.Context, passages []Passage) error {
	if err := s.validate(passages); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return s.upsertTx(ctx, tx, passages)
	})
}

// Replace swaps the whole index for passages in one transaction. On error
// the previous contents are kept.
func (s *Store) Replace(ctx context.Context, passages []Passage) error {
	if err := s.validate(passages); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := resetTx(ctx, tx); err != nil {
			return err
		}
		return s.upsertTx(ctx, tx, passages)
	})
}

func (s *Store) validate(passages []Passage) error {
	for _, p := range passages {
		if p.Chunk.ID == "" {
			return fmt.Errorf("passage without chunk id")
		}
		if len(p.Embedding) != s.dim {
			return fmt.Errorf("chunk %s: embedding has %d dimensions, index has %d", p.Chunk.ID, len(p.Embedding), s.dim)
		}
	}
	return nil
}

func (s *Store) upsertTx(ctx context.Context, tx *sql.Tx, passages []Passage) error {
	for _, p := range passages {
		c := p.Chunk
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO passages (chunk_id, text, page, source, has_criteria, section)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(chunk_id) DO UPDATE SET
				text = excluded.text, page = excluded.page, source = excluded.source,
				has_criteria = excluded.has_criteria, section = excluded.section`,
			c.ID, c.Text, c.Page, c.Metadata.Source, boolToInt(c.Metadata.HasCriteria), c.Metadata.Section); err != nil {
			return fmt.Errorf("upsert passage %s: %w", c.ID, err)
		}
		var id int64
		if err := tx.QueryRowContext(ctx, `SELECT id FROM passages WHERE chunk_id = ?`, c.ID).Scan(&id); err != nil {
			return fmt.Errorf("lookup passage %s: %w", c.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM vec_passages WHERE passage_id = ?`, id); err != nil {
			return fmt.Errorf("clear embedding %s: %w", c.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO vec_passages (passage_id, embedding) VALUES (?, ?)`,
			id, serializeFloat32(p.Embedding)); err != nil {
			return fmt.Errorf("insert embedding %s: %w", c.ID, err)
		}
	}
	return nil
}

// Query returns the k passages nearest to vec, closest first
func (s *Store) Query(ctx context.Context, vec []float32, k int) ([]model.EvidenceChunk, error) {
	if k <= 0 {
		return []model.EvidenceChunk{}, nil
	}
	if len(vec) != s.dim {
		return nil, fmt.Errorf("query has %d dimensions, index has %d", len(vec), s.dim)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT p.chunk_id, p.text, p.page, p.source, p.has_criteria, p.section, v.distance
		FROM vec_passages v
		JOIN passages p ON p.id = v.passage_id
		WHERE v.embedding MATCH ? AND k = ?
		ORDER BY v.distance
	`, serializeFloat32(vec), k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	hits := []model.EvidenceChunk{}
	for rows.Next() {
		var c model.EvidenceChunk
		var hasCriteria int
		if err := rows.Scan(&c.ID, &c.Text, &c.Page, &c.Metadata.Source, &hasCriteria, &c.Metadata.Section, &c.Distance); err != nil {
			return nil, fmt.Errorf("scan hit: %w", err)
		}
		c.Metadata.HasCriteria = hasCriteria != 0
		hits = append(hits, c)
	}
	return hits, rows.Err()
}

// Count returns the number of indexed passages
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM passages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count passages: %w", err)
	}
	return n, nil
}

// Reset removes every passage and embedding
func (s *Store) Reset(ctx context.Context) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return resetTx(ctx, tx)
	})
}

func resetTx(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM vec_passages`); err != nil {
		return fmt.Errorf("clear embeddings: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM passages`); err != nil {
		return fmt.Errorf("clear passages: %w", err)
	}
	return nil
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// serializeFloat32 converts a float32 slice to little-endian bytes for sqlite-vec.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}
