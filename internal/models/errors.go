// Package models defines the error taxonomy shared across modules.
package models

import "errors"

// Validation-class errors are returned to the caller with a specific code.
// External-service failures are retried locally and, on exhaustion, degraded
// to a best-effort fallback reply rather than surfaced.
var (
	// ErrUnknownAssessment indicates the assessment name is not in the catalog.
	ErrUnknownAssessment = errors.New("unknown assessment")
	// ErrNoActiveAssessment indicates an operation on a user with no matching in-flight assessment.
	ErrNoActiveAssessment = errors.New("no active assessment")
	// ErrInvalidStep indicates a step key not recognized by the assessment definition.
	ErrInvalidStep = errors.New("invalid step")
	// ErrExternalService indicates a transient embedding/completion/search/storage failure.
	ErrExternalService = errors.New("external service failure")
	// ErrServiceUnavailable indicates the persisted store is unreachable.
	ErrServiceUnavailable = errors.New("service unavailable")
)

// IsValidationError reports whether err belongs to the 400-class taxonomy.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrUnknownAssessment) ||
		errors.Is(err, ErrNoActiveAssessment) ||
		errors.Is(err, ErrInvalidStep)
}
