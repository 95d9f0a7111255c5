package models

import (
	"fmt"

	"optimize/pkg/platform/sentinel"
)

// Domain errors. Each wraps a platform sentinel so callers outside the
// experiment module can match on the sentinel alone.
var (
	ErrValidation  = fmt.Errorf("experiment validation failed: %w", sentinel.ErrInvalidInput)
	ErrNotFound    = fmt.Errorf("experiment %w", sentinel.ErrNotFound)
	ErrNotAssigned = fmt.Errorf("experiment not assigned in this request: %w", sentinel.ErrInvalidState)
	ErrFlushed     = fmt.Errorf("assignments already flushed: %w", sentinel.ErrInvalidState)
)
