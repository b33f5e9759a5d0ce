// Package domain holds the error kinds shared by every marketplace context.
package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrValidation      = errors.New("validation failed")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidState    = errors.New("invalid state")
	ErrImmutableRecord = errors.New("record is immutable")
	ErrIntegration     = errors.New("integration failure")
)

// NotFound reports a missing entity of the given kind.
func NotFound(entity string, id string) error {
	return fmt.Errorf("%s %q: %w", entity, id, ErrNotFound)
}

// Invalid reports a violated input constraint.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Forbidden reports an actor that may not perform an operation.
func Forbidden(actor string, operation string) error {
	return fmt.Errorf("%w: %s may not %s", ErrForbidden, actor, operation)
}

// InvalidStateError is returned when a transition is requested from a status
// that does not permit it. It matches both ErrInvalidState and ErrConflict.
type InvalidStateError struct {
	Entity    string
	ID        string
	Status    string
	Operation string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s %s: cannot %s from status %q", e.Entity, e.ID, e.Operation, e.Status)
}

func (e *InvalidStateError) Unwrap() []error {
	return []error{ErrInvalidState, ErrConflict}
}

// IntegrationError wraps a failure of an external collaborator.
type IntegrationError struct {
	Service string
	Op      string
	Err     error
}

func (e *IntegrationError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Service, e.Op, e.Err)
}

func (e *IntegrationError) Unwrap() []error {
	return []error{ErrIntegration, e.Err}
}

// NewIntegrationError returns nil when err is nil.
func NewIntegrationError(service string, op string, err error) error {
	if err == nil {
		return nil
	}
	var existing *IntegrationError
	if errors.As(err, &existing) {
		return err
	}
	return &IntegrationError{Service: service, Op: op, Err: err}
}
