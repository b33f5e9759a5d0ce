package logging

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
)

type ctxAttrsKey struct{}

var root atomic.Pointer[slog.Logger]

func init() {
	root.Store(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))
}

// SetDefault replaces the process logger built from the logging config.
func SetDefault(logger *slog.Logger) {
	if logger != nil {
		root.Store(logger)
	}
}

// WithAttrs returns ctx carrying attrs for every later log call. A key set
// again replaces the earlier value.
func WithAttrs(ctx context.Context, attrs ...slog.Attr) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(attrs) == 0 {
		return ctx
	}
	return context.WithValue(ctx, ctxAttrsKey{}, mergeAttrs(attrsFrom(ctx), attrs))
}

// WithRequest tags ctx with the HTTP request id and the authenticated actor.
func WithRequest(ctx context.Context, requestID string, actorID string) context.Context {
	attrs := make([]slog.Attr, 0, 2)
	if requestID != "" {
		attrs = append(attrs, slog.String("request_id", requestID))
	}
	if actorID != "" {
		attrs = append(attrs, slog.String("actor_id", actorID))
	}
	return WithAttrs(ctx, attrs...)
}

func Info(ctx context.Context, msg string, attrs ...slog.Attr) {
	log(ctx, slog.LevelInfo, msg, attrs)
}

func Warn(ctx context.Context, msg string, attrs ...slog.Attr) {
	log(ctx, slog.LevelWarn, msg, attrs)
}

func Error(ctx context.Context, msg string, attrs ...slog.Attr) {
	log(ctx, slog.LevelError, msg, attrs)
}

func log(ctx context.Context, level slog.Level, msg string, attrs []slog.Attr) {
	if ctx == nil {
		ctx = context.Background()
	}
	root.Load().LogAttrs(ctx, level, msg, mergeAttrs(attrsFrom(ctx), attrs)...)
}

func attrsFrom(ctx context.Context) []slog.Attr {
	attrs, _ := ctx.Value(ctxAttrsKey{}).([]slog.Attr)
	return attrs
}

// mergeAttrs never aliases base, which may be shared by sibling contexts.
func mergeAttrs(base []slog.Attr, extra []slog.Attr) []slog.Attr {
	merged := make([]slog.Attr, 0, len(base)+len(extra))
	index := make(map[string]int, len(base)+len(extra))
	for _, group := range [][]slog.Attr{base, extra} {
		for _, attr := range group {
			if i, ok := index[attr.Key]; ok {
				merged[i] = attr
				continue
			}
			merged = append(merged, attr)
			if attr.Key != "" {
				index[attr.Key] = len(merged) - 1
			}
		}
	}
	return merged
}
