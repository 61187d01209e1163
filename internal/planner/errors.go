package planner

import "github.com/danieljhkim/appmigrate/internal/apperrors"

// ErrValidation indicates an invalid plan request, override or plan document.
var ErrValidation = apperrors.ErrValidation
