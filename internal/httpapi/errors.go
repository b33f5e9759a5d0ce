package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"viberate/internal/bootstrap/logging"
	"viberate/internal/domain"
	"viberate/internal/errs"
)

type apiErrorBody struct {
	Code    string         `json:"code" example:"conflict"`
	Message string         `json:"message" example:"task is not available"`
	Details map[string]any `json:"details,omitempty"`
}

// apiError is the error envelope of every failed response.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

func newAPIError(status int, code string, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

// handleError maps an error kind onto its status.
func handleError(ctx context.Context, err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var statusErr huma.StatusError
	if errors.As(err, &statusErr) {
		return statusErr
	}

	kind := errs.KindOf(err)
	switch kind {
	case errs.KindValidation:
		return newAPIError(http.StatusUnprocessableEntity, string(kind), err.Error(), nil)
	case errs.KindForbidden:
		return newAPIError(http.StatusForbidden, string(kind), err.Error(), nil)
	case errs.KindNotFound:
		return newAPIError(http.StatusNotFound, string(kind), err.Error(), nil)
	case errs.KindConflict, errs.KindImmutable:
		var details map[string]any
		var stateErr *domain.InvalidStateError
		if errors.As(err, &stateErr) {
			details = map[string]any{"entity": stateErr.Entity, "status": stateErr.Status, "operation": stateErr.Operation}
		}
		return newAPIError(http.StatusConflict, string(kind), err.Error(), details)
	case errs.KindIntegration:
		return newAPIError(http.StatusBadGateway, string(kind), err.Error(), nil)
	default:
		logging.Error(ctx, "request failed", slog.Any("err", errs.Loggable(err)))
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", nil)
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}
