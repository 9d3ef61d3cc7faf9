// Package kafka ingests hazard feature collections from the catalog topic
// and routes them to the overlay dispatcher.
package kafka

import (
	"context"
	"errors"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/hazard-overlay/internal/config"
	"github.com/couchcryptid/hazard-overlay/internal/hazard"
)

// Renderer is the dispatcher surface the ingest loop drives.
type Renderer interface {
	Render(t hazard.Type, features []hazard.Feature) bool
}

// Reader consumes feature-collection messages and renders them. Each
// message carries one complete collection for one hazard type; the
// dispatcher treats it as a full replacement for that type.
type Reader struct {
	reader *kafkago.Reader
	engine Renderer
	logger *slog.Logger
}

// NewReader creates a Kafka consumer for the configured features topic.
func NewReader(cfg *config.Config, engine Renderer, logger *slog.Logger) *Reader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		Topic:    cfg.KafkaFeaturesTopic,
		GroupID:  cfg.KafkaGroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Reader{reader: r, engine: engine, logger: logger}
}

// Run consumes until the context is cancelled. Malformed messages are
// logged and skipped; one bad collection must not stall ingest. Message
// order is preserved per partition, which keeps data-binding updates for a
// hazard type applied in the order issued.
func (r *Reader) Run(ctx context.Context) error {
	r.logger.Info("kafka ingest started", "topic", r.reader.Config().Topic)
	for {
		msg, err := r.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				r.logger.Info("kafka ingest stopping", "reason", ctx.Err())
				return nil
			}
			return err
		}

		collection, err := hazard.ParseCollection(msg.Value)
		if err != nil {
			r.logger.Warn("skipping malformed feature collection",
				"error", err,
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
			)
			continue
		}

		drew := r.engine.Render(collection.Type, collection.Features)
		r.logger.Debug("collection ingested",
			"hazard_type", collection.Type,
			"features", len(collection.Features),
			"drew", drew,
		)
	}
}

// Close releases the underlying consumer.
func (r *Reader) Close() error {
	return r.reader.Close()
}
