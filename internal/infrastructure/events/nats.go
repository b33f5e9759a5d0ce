// Package events publishes committed domain events.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"viberate/internal/bootstrap/logging"
	"viberate/internal/ports"
)

const (
	DefaultStream        = "VIBERATE"
	DefaultSubjectPrefix = "viberate"
)

type NATSOptions struct {
	URL           string
	Stream        string
	SubjectPrefix string
}

// NATSPublisher writes each event as JSON to a JetStream subject
// "<prefix>.<event name>".
type NATSPublisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	prefix string
}

var _ ports.EventPublisher = (*NATSPublisher)(nil)

// ConnectNATS connects and ensures the stream captures "<prefix>.>".
func ConnectNATS(ctx context.Context, opts NATSOptions) (*NATSPublisher, error) {
	stream := strings.TrimSpace(opts.Stream)
	if stream == "" {
		stream = DefaultStream
	}
	prefix := strings.Trim(strings.TrimSpace(opts.SubjectPrefix), ".")
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}

	nc, err := nats.Connect(opts.URL, nats.Name("viberate"), nats.Timeout(5*time.Second))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	if _, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     stream,
		Subjects: []string{prefix + ".>"},
	}); err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream stream create: %w", err)
	}

	logging.Info(ctx, "nats connected",
		slog.String("url", opts.URL),
		slog.String("stream", stream),
	)
	return &NATSPublisher{nc: nc, js: js, prefix: prefix}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, event ports.DomainEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.Name, err)
	}
	subject := Subject(p.prefix, event.Name)
	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("nats publish %s: %w", subject, err)
	}
	return nil
}

func (p *NATSPublisher) Close() error {
	p.nc.Close()
	return nil
}

// Subject joins the prefix and event name into a NATS subject.
func Subject(prefix string, name string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return prefix + "." + strings.Trim(strings.TrimSpace(name), ".")
}

// Discard drops every event. It is used when no NATS URL is configured.
type Discard struct{}

var _ ports.EventPublisher = Discard{}

func (Discard) Publish(context.Context, ports.DomainEvent) error { return nil }
