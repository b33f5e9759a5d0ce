package besteffort

import (
	"context"
	"errors"
	"testing"
	"time"

	"viberate/internal/domain/audit"
	"viberate/internal/ports"
)

func TestRunReturnsErrorAndRecoversPanic(t *testing.T) {
	ctx := context.Background()
	wantErr := errors.New("labeling down")

	if err := Run(ctx, "push", func(context.Context) error { return wantErr }); !errors.Is(err, wantErr) {
		t.Fatalf("Run() error = %v, want %v", err, wantErr)
	}
	if err := Run(ctx, "push", func(context.Context) error { panic("boom") }); err == nil {
		t.Fatalf("Run() expected error after panic")
	}
	if err := Run(ctx, "push", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}

func TestRunDetachesTransaction(t *testing.T) {
	ctx := ports.WithTxContext(context.Background(), "tx")
	_ = Run(ctx, "check", func(ctx context.Context) error {
		if ports.TxFromContext(ctx) != nil {
			t.Fatalf("Run() leaked the caller transaction")
		}
		return nil
	})
}

type failingRecorder struct{ calls int }

func (r *failingRecorder) Record(context.Context, audit.Record) (audit.Entry, error) {
	r.calls++
	return audit.Entry{}, errors.New("disk full")
}

type failingPublisher struct{ calls int }

func (p *failingPublisher) Publish(context.Context, ports.DomainEvent) error {
	p.calls++
	return errors.New("nats down")
}

func TestRecordAndPublishSwallowFailures(t *testing.T) {
	ctx := context.Background()
	rec := &failingRecorder{}
	pub := &failingPublisher{}

	Record(ctx, rec, audit.Record{Action: audit.ActionTaskSync})
	Publish(ctx, pub, ports.DomainEvent{Name: "payment.failed", OccurredAt: time.Now()})
	Record(ctx, nil, audit.Record{Action: audit.ActionTaskSync})
	Publish(ctx, nil, ports.DomainEvent{Name: "payment.failed"})

	if rec.calls != 1 || pub.calls != 1 {
		t.Fatalf("calls = %d/%d, want 1/1", rec.calls, pub.calls)
	}
}
