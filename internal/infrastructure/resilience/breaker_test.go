package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errUnavailable = errors.New("service unavailable")

func fail(context.Context) error { return errUnavailable }
func ok(context.Context) error   { return nil }

func TestBreakerOpensAfterMaxFailures(t *testing.T) {
	b := NewBreaker(3, time.Second)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := b.Execute(ctx, fail); !errors.Is(err, errUnavailable) {
			t.Fatalf("Execute() error = %v", err)
		}
	}

	if err := b.Execute(ctx, ok); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("Execute() error = %v, want ErrCircuitOpen", err)
	}
	if got := b.State(); got != "open" {
		t.Fatalf("State() = %q, want open", got)
	}
}

func TestBreakerHalfOpenProbe(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b := NewBreaker(2, time.Second)
	b.now = func() time.Time { return now }
	ctx := context.Background()

	_ = b.Execute(ctx, fail)
	_ = b.Execute(ctx, fail)

	now = now.Add(2 * time.Second)
	if err := b.Execute(ctx, fail); !errors.Is(err, errUnavailable) {
		t.Fatalf("trial call error = %v", err)
	}
	if got := b.State(); got != "open" {
		t.Fatalf("State() after failed trial call = %q", got)
	}

	now = now.Add(2 * time.Second)
	if err := b.Execute(ctx, ok); err != nil {
		t.Fatalf("trial call error = %v", err)
	}
	if got := b.State(); got != "closed" {
		t.Fatalf("State() after successful trial call = %q", got)
	}
}

func TestBreakerIgnoresCancellationAndFilteredErrors(t *testing.T) {
	errBadRequest := errors.New("bad request")
	b := NewBreaker(1, time.Minute).TripOn(func(err error) bool {
		return !errors.Is(err, errBadRequest)
	})

	if err := b.Execute(context.Background(), func(context.Context) error { return errBadRequest }); !errors.Is(err, errBadRequest) {
		t.Fatalf("Execute() error = %v", err)
	}
	if got := b.State(); got != "closed" {
		t.Fatalf("State() = %q, want closed", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	err := b.Execute(ctx, func(ctx context.Context) error {
		cancel()
		return ctx.Err()
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Execute() error = %v", err)
	}
	if got := b.State(); got != "closed" {
		t.Fatalf("State() after cancel = %q, want closed", got)
	}

	if err := b.Execute(ctx, ok); !errors.Is(err, context.Canceled) {
		t.Fatalf("Execute(cancelled ctx) error = %v", err)
	}
}

func TestBreakerSuccessResetsFailures(t *testing.T) {
	b := NewBreaker(3, time.Second)
	ctx := context.Background()

	_ = b.Execute(ctx, fail)
	_ = b.Execute(ctx, fail)
	_ = b.Execute(ctx, ok)
	_ = b.Execute(ctx, fail)
	_ = b.Execute(ctx, fail)

	if err := b.Execute(ctx, ok); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
}
