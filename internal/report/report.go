// Package report writes batch assessment results to disk.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/ng12agent/internal/model"
	"github.com/ppiankov/ng12agent/internal/worker"
)

// Entry is one batch outcome as written to JSON
type Entry struct {
	PatientID string              `json:"patient_id"`
	Result    *model.AssessResult `json:"result,omitempty"`
	Error     string              `json:"error,omitempty"`
}

// Summary counts batch outcomes
type Summary struct {
	Total    int
	Failures int
	ByLabel  map[model.Assessment]int
}

// Entries converts worker results, preserving order
func Entries(results []*worker.AssessResult) []Entry {
	out := make([]Entry, 0, len(results))
	for _, r := range results {
		if r == nil {
			continue
		}
		e := Entry{PatientID: r.PatientID, Result: r.Result}
		if r.Error != nil {
			e.Error = r.Error.Error()
			e.Result = nil
		}
		out = append(out, e)
	}
	return out
}

// Summarize counts successes per assessment label and failures
func Summarize(entries []Entry) Summary {
	s := Summary{Total: len(entries), ByLabel: make(map[model.Assessment]int)}
	for _, e := range entries {
		if e.Result == nil {
			s.Failures++
			continue
		}
		s.ByLabel[e.Result.Assessment]++
	}
	return s
}

// Write picks the format from the file extension: .xlsx or JSON otherwise
func Write(path string, entries []Entry) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return WriteXLSX(path, entries)
	}
	return WriteJSON(path, entries)
}

// WriteJSON writes entries as an indented JSON array
func WriteJSON(path string, entries []Entry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
