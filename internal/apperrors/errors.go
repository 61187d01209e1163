// Package apperrors holds the error kinds shared across the pipeline.
// Components wrap these with fmt.Errorf("...: %w", ...) and callers test
// them with errors.Is.
package apperrors

import "errors"

var (
	// ErrNotFound indicates an entity, app, site or plan file is missing.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates a malformed plan, config or unresolvable override.
	ErrValidation = errors.New("validation failed")

	// ErrStore indicates an underlying record-store call failed.
	ErrStore = errors.New("store error")

	// ErrPartialFailure indicates some plan steps failed.
	ErrPartialFailure = errors.New("partial failure")
)
