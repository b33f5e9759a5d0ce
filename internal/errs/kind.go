package errs

import (
	"errors"

	"viberate/internal/domain"
)

// Kind is the caller-facing class of a failure.
type Kind string

const (
	KindValidation  Kind = "validation"
	KindNotFound    Kind = "not_found"
	KindConflict    Kind = "conflict"
	KindForbidden   Kind = "forbidden"
	KindImmutable   Kind = "immutable"
	KindIntegration Kind = "integration"
	KindInternal    Kind = "internal"
)

// KindOf classifies an error chain. Order matters: an invalid state error is
// also a conflict, an integration error may wrap anything.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrImmutableRecord):
		return KindImmutable
	case errors.Is(err, domain.ErrIntegration):
		return KindIntegration
	case errors.Is(err, domain.ErrForbidden):
		return KindForbidden
	case errors.Is(err, domain.ErrNotFound):
		return KindNotFound
	case errors.Is(err, domain.ErrValidation):
		return KindValidation
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrInvalidState):
		return KindConflict
	default:
		return KindInternal
	}
}
