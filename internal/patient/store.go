// Package patient loads patient records from a JSON file.
package patient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/ppiankov/ng12agent/internal/model"
)

const recordsKey = "records"

// FileStore serves patient records from a JSON file.
// The file is re-read once the loaded copy is older than ttl.
type FileStore struct {
	path  string
	ttl   time.Duration
	mu    sync.Mutex // Serializes reloads
	cache *gocache.Cache
}

// NewFileStore creates a store for the file at path; ttl 0 loads the file once
func NewFileStore(path string, ttl time.Duration) *FileStore {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	return &FileStore{path: path, ttl: ttl, cache: gocache.New(ttl, 0)}
}

// Get returns the record for id, or an error wrapping model.ErrPatientNotFound
func (s *FileStore) Get(ctx context.Context, id string) (model.PatientRecord, error) {
	if err := ctx.Err(); err != nil {
		return model.PatientRecord{}, err
	}
	records, err := s.records()
	if err != nil {
		return model.PatientRecord{}, err
	}
	p, ok := records[strings.TrimSpace(id)]
	if !ok {
		return model.PatientRecord{}, fmt.Errorf("%w: %s", model.ErrPatientNotFound, id)
	}
	return p, nil
}

// List returns every record in file order
func (s *FileStore) List(ctx context.Context) ([]model.PatientRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read patients: %w", err)
	}
	return Decode(data)
}

func (s *FileStore) records() (map[string]model.PatientRecord, error) {
	if v, ok := s.cache.Get(recordsKey); ok {
		return v.(map[string]model.PatientRecord), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.cache.Get(recordsKey); ok {
		return v.(map[string]model.PatientRecord), nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read patients: %w", err)
	}
	list, err := Decode(data)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]model.PatientRecord, len(list))
	for _, p := range list {
		if p.ID == "" {
			continue
		}
		byID[p.ID] = p
	}
	s.cache.Set(recordsKey, byID, s.ttl)
	return byID, nil
}

// Decode parses either a JSON array of records or an object with a "patients" array
func Decode(data []byte) ([]model.PatientRecord, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return []model.PatientRecord{}, nil
	}

	var list []model.PatientRecord
	if trimmed[0] == '{' {
		var wrapped struct {
			Patients []model.PatientRecord `json:"patients"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, fmt.Errorf("decode patients: %w", err)
		}
		list = wrapped.Patients
	} else if err := json.Unmarshal(trimmed, &list); err != nil {
		return nil, fmt.Errorf("decode patients: %w", err)
	}
	if list == nil {
		list = []model.PatientRecord{}
	}
	return list, nil
}
