package engine

import "github.com/danieljhkim/appmigrate/internal/apperrors"

var (
	// ErrValidation indicates a malformed plan or request.
	ErrValidation = apperrors.ErrValidation

	// ErrNotFound indicates a site, app, DocType or plan is missing.
	ErrNotFound = apperrors.ErrNotFound

	// ErrStore indicates a record-store call failed.
	ErrStore = apperrors.ErrStore

	// ErrPartialFailure indicates an execution finished with failed steps.
	ErrPartialFailure = apperrors.ErrPartialFailure
)
