package workflow

import (
	"errors"

	"github.com/flowmate/flowmate/pkg/persistence"
)

var (
	// ErrWorkflowNotFound is returned when a workflow is not found.
	ErrWorkflowNotFound = persistence.ErrWorkflowNotFound

	// ErrInvalidWorkflow indicates a workflow definition failed validation and
	// was rejected before persistence.
	ErrInvalidWorkflow = errors.New("invalid workflow definition")
)

// IsValidationError checks if an error indicates a rejected workflow definition.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidWorkflow)
}
