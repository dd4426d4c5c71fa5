package model

import "errors"

var (
	// ErrPatientNotFound is returned when the patient store has no record for an id
	ErrPatientNotFound = errors.New("patient not found")

	// ErrInvalidRequest is returned for malformed caller input
	ErrInvalidRequest = errors.New("invalid request")

	// ErrGroundingViolation is returned when a citation does not resolve to a retrieved passage
	ErrGroundingViolation = errors.New("citation grounding violation")
)
