package store

import (
	"errors"

	"github.com/danieljhkim/appmigrate/internal/apperrors"
)

var (
	// ErrNotFound indicates a record or kind does not exist.
	ErrNotFound = apperrors.ErrNotFound

	// ErrStore indicates the underlying store call failed.
	ErrStore = apperrors.ErrStore

	// ErrUnsupportedBackend indicates an unknown database type.
	ErrUnsupportedBackend = errors.New("unsupported backend")
)
