package worker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/ng12agent/internal/model"
)

// Assessor assesses one patient
type Assessor interface {
	Assess(ctx context.Context, patientID string) (model.AssessResult, error)
}

// AssessJob represents one patient assessment
type AssessJob struct {
	PatientID string
	Assessor  Assessor
}

// Execute runs the assessment
func (j *AssessJob) Execute(ctx context.Context) Result {
	result, err := j.Assessor.Assess(ctx, j.PatientID)
	if err != nil {
		return &AssessResult{PatientID: j.PatientID, Error: err}
	}
	return &AssessResult{PatientID: j.PatientID, Result: &result}
}

// AssessResult is the outcome of one batch assessment
type AssessResult struct {
	PatientID string
	Result    *model.AssessResult
	Error     error
}

// GetError returns the error from the assessment
func (r *AssessResult) GetError() error {
	return r.Error
}

// BatchAssessor assesses many patients concurrently
type BatchAssessor struct {
	assessor    Assessor
	concurrency int
}

// NewBatchAssessor creates a new batch assessor
func NewBatchAssessor(assessor Assessor, concurrency int) *BatchAssessor {
	return &BatchAssessor{
		assessor:    assessor,
		concurrency: concurrency,
	}
}

// AssessAll assesses every patient id; results follow the order of ids
func (b *BatchAssessor) AssessAll(ctx context.Context, ids []string) []*AssessResult {
	if len(ids) == 0 {
		return []*AssessResult{}
	}

	pool := NewPoolWithContext(ctx, b.concurrency)
	pool.Start()
	for _, id := range ids {
		pool.Submit(&AssessJob{PatientID: id, Assessor: b.assessor})
	}
	results := pool.Wait()

	out := make([]*AssessResult, len(ids))
	for i := range ids {
		if i < len(results) && results[i] != nil {
			out[i] = results[i].(*AssessResult)
			continue
		}
		err := ctx.Err()
		if err == nil {
			err = errors.New("not run")
		}
		out[i] = &AssessResult{PatientID: ids[i], Error: err}
	}
	return out
}

// AssessFile reads patient ids from a file and assesses them concurrently
func (b *BatchAssessor) AssessFile(ctx context.Context, filePath string) ([]*AssessResult, error) {
	ids, err := ReadIDsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read patient ids: %w", err)
	}
	return b.AssessAll(ctx, ids), nil
}

// ReadIDsFromFile reads patient ids from a file (one per line)
func ReadIDsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var ids []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			ids = append(ids, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return ids, nil
}
