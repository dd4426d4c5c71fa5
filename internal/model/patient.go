package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// PatientRecord is a read-only patient snapshot used by the assessment pipeline
type PatientRecord struct {
	ID                  string   `json:"patient_id"`
	Name                string   `json:"name,omitempty"`
	Age                 int      `json:"age"`
	Gender              string   `json:"gender,omitempty"`
	SmokingHistory      string   `json:"smoking_history,omitempty"`
	Symptoms            []string `json:"symptoms"`
	SymptomDurationDays int      `json:"symptom_duration_days"`
}

// UnmarshalJSON accepts the loose shapes found in hand-maintained patient files:
// symptoms as a single string, numbers encoded as strings, and the
// duration_days alias.
func (p *PatientRecord) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID                  json.RawMessage `json:"patient_id"`
		Name                *string         `json:"name"`
		Age                 json.RawMessage `json:"age"`
		Gender              *string         `json:"gender"`
		SmokingHistory      *string         `json:"smoking_history"`
		Symptoms            json.RawMessage `json:"symptoms"`
		SymptomDurationDays json.RawMessage `json:"symptom_duration_days"`
		DurationDays        json.RawMessage `json:"duration_days"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	id, err := looseString(raw.ID)
	if err != nil {
		return fmt.Errorf("patient_id: %w", err)
	}
	age, err := looseInt(raw.Age)
	if err != nil {
		return fmt.Errorf("age: %w", err)
	}
	duration, err := looseInt(raw.SymptomDurationDays)
	if err != nil {
		return fmt.Errorf("symptom_duration_days: %w", err)
	}
	if len(raw.SymptomDurationDays) == 0 || string(raw.SymptomDurationDays) == "null" {
		if duration, err = looseInt(raw.DurationDays); err != nil {
			return fmt.Errorf("duration_days: %w", err)
		}
	}
	symptoms, err := looseStrings(raw.Symptoms)
	if err != nil {
		return fmt.Errorf("symptoms: %w", err)
	}

	*p = PatientRecord{
		ID:                  strings.TrimSpace(id),
		Name:                trimPtr(raw.Name),
		Age:                 age,
		Gender:              trimPtr(raw.Gender),
		SmokingHistory:      trimPtr(raw.SmokingHistory),
		Symptoms:            symptoms,
		SymptomDurationDays: duration,
	}
	return nil
}

func trimPtr(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

func looseString(raw json.RawMessage) (string, error) {
	if isNull(raw) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}

func looseInt(raw json.RawMessage) (int, error) {
	if isNull(raw) {
		return 0, nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return int(f), nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func looseStrings(raw json.RawMessage) ([]string, error) {
	if isNull(raw) {
		return []string{}, nil
	}
	var one string
	if err := json.Unmarshal(raw, &one); err == nil {
		if strings.TrimSpace(one) == "" {
			return []string{}, nil
		}
		return []string{one}, nil
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err != nil {
		return nil, err
	}
	if many == nil {
		many = []string{}
	}
	return many, nil
}
