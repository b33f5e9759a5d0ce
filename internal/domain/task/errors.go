package task

import (
	"fmt"

	"viberate/internal/domain"
)

var (
	ErrTaskNotAvailable = fmt.Errorf("%w: task is not available", domain.ErrConflict)
	ErrInvalidResult    = fmt.Errorf("%w: annotation result must be a JSON object or array", domain.ErrValidation)
	ErrUnknownOperation = fmt.Errorf("%w: unknown assignment operation", domain.ErrValidation)
)

func invalidAssignmentState(id string, status AssignmentStatus, op Operation) error {
	return &domain.InvalidStateError{
		Entity:    "assignment",
		ID:        id,
		Status:    string(status),
		Operation: string(op),
	}
}
