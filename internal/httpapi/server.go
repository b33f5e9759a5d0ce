// Package httpapi exposes the marketplace operations over HTTP with huma on a
// chi router.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"viberate/internal/usecase/account"
	"viberate/internal/usecase/assignment"
	"viberate/internal/usecase/budget"
	"viberate/internal/usecase/payment"
)

const DefaultBasePath = "/v1"

// Services are the usecases the API drives.
type Services struct {
	Accounts    *account.Service
	Budgets     *budget.Service
	Assignments *assignment.Service
	Payments    *payment.Service
}

type Config struct {
	Services Services
	BasePath string
	Auth     AuthConfig
	Version  string
}

// New returns the API handler.
func New(cfg Config) (http.Handler, error) {
	svc := cfg.Services
	if svc.Budgets == nil || svc.Assignments == nil || svc.Payments == nil || svc.Accounts == nil {
		return nil, errors.New("httpapi: all services are required")
	}
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = DefaultBasePath
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	version := cfg.Version
	if version == "" {
		version = "0.1.0"
	}

	humaDefaults.Do(configureHuma)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(newAuthMiddleware(basePath, cfg.Auth))
	router.Use(requestMetadata)

	hcfg := huma.DefaultConfig("Viberate API", version)
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerHealth(group)
	registerAssignments(group, svc)
	registerProjects(group, svc)
	registerPayments(group, svc)
	registerAccounts(group, svc)

	return router, nil
}

var humaDefaults sync.Once

// configureHuma installs the error envelope in huma's package-level hooks.
func configureHuma() {
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity {
			// Schema violations are bad requests; 422 is domain validation.
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

var commonErrors = []int{
	http.StatusBadRequest,
	http.StatusUnauthorized,
	http.StatusForbidden,
	http.StatusNotFound,
	http.StatusConflict,
	http.StatusUnprocessableEntity,
	http.StatusBadGateway,
}
