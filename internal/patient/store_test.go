package patient

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ppiankov/ng12agent/internal/model"
)

const patientsJSON = `[
  {"patient_id": "PT-101", "name": "John Doe", "age": 55, "gender": "Male",
   "smoking_history": "Current Smoker", "symptoms": ["unexplained hemoptysis", "fatigue"],
   "symptom_duration_days": 14},
  {"patient_id": "PT-110", "name": "Jane Roe", "age": "62", "gender": "Female",
   "smoking_history": "Never Smoked", "symptoms": "visible haematuria", "symptom_duration_days": 7}
]`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "patients.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestFileStore_Get(t *testing.T) {
	s := NewFileStore(writeFile(t, patientsJSON), 0)

	p, err := s.Get(context.Background(), "PT-110")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.Age != 62 || len(p.Symptoms) != 1 || p.Symptoms[0] != "visible haematuria" {
		t.Errorf("unexpected record %+v", p)
	}

	if _, err := s.Get(context.Background(), "PT-999"); !errors.Is(err, model.ErrPatientNotFound) {
		t.Errorf("expected ErrPatientNotFound, got %v", err)
	}
}

func TestFileStore_MissingFile(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "none.json"), 0)
	_, err := s.Get(context.Background(), "PT-101")
	if err == nil || errors.Is(err, model.ErrPatientNotFound) {
		t.Errorf("expected read error, got %v", err)
	}
}

func TestFileStore_ReloadAfterTTL(t *testing.T) {
	path := writeFile(t, `[{"patient_id":"A","age":50}]`)
	s := NewFileStore(path, 50*time.Millisecond)
	ctx := context.Background()

	if _, err := s.Get(ctx, "A"); err != nil {
		t.Fatalf("get: %v", err)
	}
	os.WriteFile(path, []byte(`[{"patient_id":"B","age":40}]`), 0644)

	if _, err := s.Get(ctx, "A"); err != nil {
		t.Errorf("expected cached record before ttl, got %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	if _, err := s.Get(ctx, "B"); err != nil {
		t.Errorf("expected reloaded record after ttl, got %v", err)
	}
}

func TestFileStore_List(t *testing.T) {
	s := NewFileStore(writeFile(t, patientsJSON), 0)
	list, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != "PT-101" || list[1].ID != "PT-110" {
		t.Errorf("unexpected list %+v", list)
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    int
		wantErr bool
	}{
		{"array", `[{"patient_id":"A"}]`, 1, false},
		{"wrapped", `{"patients":[{"patient_id":"A"},{"patient_id":"B"}]}`, 2, false},
		{"empty", ``, 0, false},
		{"wrapped empty", `{}`, 0, false},
		{"garbage", `not json`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.in))
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error=%v, got %v", tt.wantErr, err)
			}
			if !tt.wantErr && len(got) != tt.want {
				t.Errorf("expected %d records, got %d", tt.want, len(got))
			}
		})
	}
}
