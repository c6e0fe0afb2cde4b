package editor

import (
	"errors"

	"github.com/dtnitsch/layout-editor/models"
)

var (
	// ErrInvalidInput marks a rejected operation. The session is unchanged.
	// Box lists that fail to decode carry the same error.
	ErrInvalidInput = models.ErrInvalidInput

	// ErrNotFound marks an unknown page or document.
	ErrNotFound = errors.New("not found")

	// ErrPersistence marks a gateway failure during Save or MarkValidated.
	// The session stays dirty and the call may be retried.
	ErrPersistence = errors.New("persistence error")
)
