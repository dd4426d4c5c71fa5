package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/ng12agent/internal/model"
)

// mockAssessor implements Assessor
type mockAssessor struct {
	fail  map[string]bool
	calls int32
}

func (m *mockAssessor) Assess(ctx context.Context, id string) (model.AssessResult, error) {
	atomic.AddInt32(&m.calls, 1)
	time.Sleep(5 * time.Millisecond)
	if m.fail[id] {
		return model.AssessResult{}, model.ErrPatientNotFound
	}
	return model.AssessResult{PatientID: id, Assessment: model.AssessmentUnclear, Confidence: 0.2}, nil
}

func writeIDs(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ids.txt")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBatchAssessor_AssessAll(t *testing.T) {
	assessor := &mockAssessor{fail: map[string]bool{"PT-404": true}}
	batch := NewBatchAssessor(assessor, 2)

	ids := []string{"PT-101", "PT-404", "PT-110", "PT-111", "PT-112"}
	results := batch.AssessAll(context.Background(), ids)

	if len(results) != len(ids) {
		t.Fatalf("expected %d results, got %d", len(ids), len(results))
	}
	for i, r := range results {
		if r.PatientID != ids[i] {
			t.Errorf("result %d: expected %s, got %s", i, ids[i], r.PatientID)
		}
	}
	if !errors.Is(results[1].GetError(), model.ErrPatientNotFound) {
		t.Errorf("expected not found for PT-404, got %v", results[1].Error)
	}
	if results[0].Result == nil || results[0].Result.PatientID != "PT-101" {
		t.Errorf("unexpected first result %+v", results[0])
	}
}

func TestBatchAssessor_Empty(t *testing.T) {
	results := NewBatchAssessor(&mockAssessor{}, 2).AssessAll(context.Background(), nil)
	if len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}

func TestBatchAssessor_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := NewBatchAssessor(&mockAssessor{}, 2).AssessAll(ctx, []string{"a", "b", "c"})
	if len(results) != 3 {
		t.Fatalf("expected a result per id, got %d", len(results))
	}
	for _, r := range results {
		if r.Error == nil {
			t.Errorf("expected error for %s after cancel", r.PatientID)
		}
	}
}

func TestBatchAssessor_AssessFile(t *testing.T) {
	path := writeIDs(t, "PT-101\n# comment\n\nPT-110\nPT-101\n")
	assessor := &mockAssessor{}

	results, err := NewBatchAssessor(assessor, 2).AssessFile(context.Background(), path)
	if err != nil {
		t.Fatalf("AssessFile failed: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 results, got %d", len(results))
	}
	if atomic.LoadInt32(&assessor.calls) != 2 {
		t.Errorf("expected 2 assessments, got %d", assessor.calls)
	}

	if _, err := NewBatchAssessor(assessor, 2).AssessFile(context.Background(), "no_such_file.txt"); err == nil {
		t.Error("expected error for non-existent file")
	}
}

func TestReadIDsFromFile(t *testing.T) {
	ids, err := ReadIDsFromFile(writeIDs(t, "  PT-1  \nPT-2\nPT-1\n#PT-3\n"))
	if err != nil {
		t.Fatalf("ReadIDsFromFile failed: %v", err)
	}
	if len(ids) != 2 || ids[0] != "PT-1" || ids[1] != "PT-2" {
		t.Errorf("unexpected ids %v", ids)
	}
}
