package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"gorm.io/gorm"

	"viberate/internal/bootstrap/config"
	"viberate/internal/bootstrap/logging"
	"viberate/internal/errs"
	"viberate/internal/infrastructure/persistence/schema"
	accountuc "viberate/internal/usecase/account"
	"viberate/internal/usecase/assignment"
	auditlog "viberate/internal/usecase/audit"
	"viberate/internal/usecase/budget"
	paymentuc "viberate/internal/usecase/payment"
	syncuc "viberate/internal/usecase/sync"
)

// App is the assembled application graph.
type App struct {
	Config      config.Config
	DB          *gorm.DB
	Audit       *auditlog.Service
	Accounts    *accountuc.Service
	Budgets     *budget.Service
	Assignments *assignment.Service
	Payments    *paymentuc.Service
	Sync        *syncuc.Service
	Handler     http.Handler
}

func (a *App) InitSchema(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.app"))
	logging.Info(logCtx, "start schema migration")

	if err := schema.Migrate(ctx, a.DB); err != nil {
		return errs.Wrap(err, "migrate schema")
	}

	logging.Info(logCtx, "schema migration completed")
	return nil
}

// RequireSchema fails when init-db has not brought the database to the
// current schema version.
func (a *App) RequireSchema(ctx context.Context) error {
	v := 0
	if a.DB.WithContext(ctx).Migrator().HasTable(&schema.SchemaMeta{}) {
		current, err := schema.CurrentVersion(ctx, a.DB)
		if err != nil {
			return err
		}
		v = current
	}
	if v < schema.Version {
		return fmt.Errorf("database schema version %d is behind %d; run init-db", v, schema.Version)
	}
	return nil
}
