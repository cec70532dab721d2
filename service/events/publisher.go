// Package events publishes construction events to NATS JetStream for
// downstream consumers (notifications, analytics). Publishing is optional and
// best-effort; the pipeline never blocks a response on it.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/solwire/solwire/service/pipeline"
)

const (
	// StreamName is the JetStream stream for construction events.
	StreamName = "TX_BUILDS"

	// StreamSubjects is the subject pattern for the stream.
	StreamSubjects = "tx.built.*"

	// StreamRetention is how long events are retained.
	StreamRetention = 7 * 24 * time.Hour
)

// Publisher publishes construction events. It implements
// pipeline.EventPublisher.
type Publisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	logger *slog.Logger
}

// NewPublisher connects to NATS and ensures the stream exists.
func NewPublisher(natsURL string, logger *slog.Logger) (*Publisher, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name("solwire-publisher"),
		nats.Timeout(10*time.Second),
		nats.ReconnectWait(1*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	p := &Publisher{nc: nc, js: js, logger: logger}
	if err := p.ensureStream(context.Background()); err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to ensure stream exists: %w", err)
	}

	logger.Info("NATS publisher initialized", "url", natsURL, "stream", StreamName)
	return p, nil
}

// PublishBuilt implements pipeline.EventPublisher. Events go to
// "tx.built.{operation}".
func (p *Publisher) PublishBuilt(ctx context.Context, rec *pipeline.ConstructionRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal construction record: %w", err)
	}

	subject := "tx.built." + rec.Operation
	if _, err := p.js.Publish(ctx, subject, payload); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}

	p.logger.Debug("construction event published",
		"subject", subject,
		"operation", rec.Operation,
		"caller", rec.Caller,
	)
	return nil
}

// Close closes the NATS connection.
func (p *Publisher) Close() error {
	p.nc.Close()
	return nil
}

func (p *Publisher) ensureStream(ctx context.Context) error {
	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := p.js.CreateOrUpdateStream(cctx, jetstream.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{StreamSubjects},
		Retention: jetstream.LimitsPolicy,
		MaxAge:    StreamRetention,
		Storage:   jetstream.FileStorage,
	})
	if err != nil {
		return fmt.Errorf("failed to create or update stream: %w", err)
	}
	return nil
}
