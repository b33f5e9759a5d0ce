// Package besteffort runs side calls whose failure must not undo the
// operation that triggered them.
package besteffort

import (
	"context"
	"fmt"
	"log/slog"

	"viberate/internal/bootstrap/logging"
	"viberate/internal/domain/audit"
	"viberate/internal/errs"
	"viberate/internal/ports"
)

// Run calls fn, converts a panic into an error, logs any failure under op and
// returns it so callers may record the outcome. It never runs fn inside the
// caller's transaction.
func Run(ctx context.Context, op string, fn func(context.Context) error) (err error) {
	ctx = ports.WithoutTx(ctx)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", op, r)
		}
		if err != nil {
			logging.Warn(ctx, "best-effort call failed", slog.String("op", op), slog.Any("err", errs.Loggable(err)))
		}
	}()
	return fn(ctx)
}

// Record appends an audit entry, logging instead of failing.
func Record(ctx context.Context, recorder ports.AuditRecorder, rec audit.Record) {
	if recorder == nil {
		return
	}
	_ = Run(ctx, "audit "+string(rec.Action), func(ctx context.Context) error {
		_, err := recorder.Record(ctx, rec)
		return err
	})
}

// Publish sends a domain event, logging instead of failing.
func Publish(ctx context.Context, publisher ports.EventPublisher, event ports.DomainEvent) {
	if publisher == nil {
		return
	}
	_ = Run(ctx, "publish "+event.Name, func(ctx context.Context) error {
		return publisher.Publish(ctx, event)
	})
}
