// Package kafka implements the reference-listing import worker.  Verified
// listings published by upstream catalog systems are consumed from a topic
// and fed into the engine's reference store.
package kafka

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/trustside/listing-sentinel/internal/config"
	"github.com/trustside/listing-sentinel/internal/domain/listing"
	"github.com/trustside/listing-sentinel/internal/infrastructure/monitoring/logging"
	"github.com/trustside/listing-sentinel/pkg/errors"
)

// ReferenceImporter is the engine surface the consumer needs.
type ReferenceImporter interface {
	ImportReference(ctx context.Context, l *listing.Listing) (*listing.Listing, error)
}

// Reader abstracts kafka.Reader for testing.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// referenceMessage is the wire format published by catalog systems.
type referenceMessage struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Brand       string   `json:"brand"`
	Price       *float64 `json:"price"`
	SourceURL   string   `json:"source_url"`
}

// outageBackoff is the wait between import retries while the embedding
// provider is down.
const outageBackoff = 5 * time.Second

// ConsumerStats counts message outcomes.
type ConsumerStats struct {
	Consumed atomic.Int64
	Imported atomic.Int64
	Skipped  atomic.Int64
}

// Consumer pulls reference listings from Kafka and imports them.
type Consumer struct {
	reader   Reader
	importer ReferenceImporter
	log      logging.Logger
	stats    ConsumerStats
	backoff  time.Duration
}

// NewConsumer builds a consumer over a real kafka.Reader.
func NewConsumer(cfg config.KafkaConfig, importer ReferenceImporter, log logging.Logger) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.InvalidParam("kafka brokers are required")
	}
	if cfg.Topic == "" {
		return nil, errors.InvalidParam("kafka topic is required")
	}

	startOffset := kafka.FirstOffset
	if cfg.AutoOffsetReset == "latest" {
		startOffset = kafka.LastOffset
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       cfg.Topic,
		MinBytes:    cfg.MinBytes,
		MaxBytes:    cfg.MaxBytes,
		StartOffset: startOffset,
	})
	return NewConsumerWithReader(reader, importer, log)
}

// NewConsumerWithReader builds a consumer over an existing reader.
func NewConsumerWithReader(reader Reader, importer ReferenceImporter, log logging.Logger) (*Consumer, error) {
	if importer == nil {
		return nil, errors.InvalidParam("reference importer is required")
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Consumer{
		reader:   reader,
		importer: importer,
		log:      log.Named("kafka-consumer"),
		backoff:  outageBackoff,
	}, nil
}

// Stats exposes the message counters.
func (c *Consumer) Stats() *ConsumerStats { return &c.stats }

// Run consumes until the context is cancelled.  Malformed or unimportable
// messages are logged, counted, and committed so they are never redelivered.
// Embedding-provider outages block on the failed message instead: it is
// retried in place until the provider recovers, so the offset commit can
// never advance past an unimported listing.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.log.Info("consumer stopped",
					logging.Int64("consumed", c.stats.Consumed.Load()),
					logging.Int64("imported", c.stats.Imported.Load()))
				return nil
			}
			return errors.Wrap(err, errors.ErrCodeExternalService, "failed to fetch message")
		}
		c.stats.Consumed.Add(1)

		for {
			err := c.handle(ctx, msg)
			if err == nil {
				c.stats.Imported.Add(1)
				break
			}
			if !errors.IsCode(err, errors.ErrCodeEmbeddingUnavailable) {
				c.stats.Skipped.Add(1)
				c.log.Warn("skipping unimportable message",
					logging.Int64("offset", msg.Offset),
					logging.Err(err))
				break
			}
			c.log.Warn("embedding provider unavailable, retrying message",
				logging.Int64("offset", msg.Offset),
				logging.Duration("backoff", c.backoff),
				logging.Err(err))
			select {
			case <-ctx.Done():
				// Shut down with the message uncommitted; the group
				// redelivers it on restart.
				return nil
			case <-time.After(c.backoff):
			}
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, errors.ErrCodeExternalService, "failed to commit offset")
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) error {
	var payload referenceMessage
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "malformed reference message")
	}

	l := listing.New(payload.Title, payload.Description, payload.Brand, payload.Price)
	if payload.ID != "" {
		l.ID = payload.ID
	}
	l.SourceURL = payload.SourceURL

	imported, err := c.importer.ImportReference(ctx, l)
	if err != nil {
		return err
	}
	c.log.Debug("reference listing imported from topic",
		logging.String("listing_id", imported.ID),
		logging.Int64("offset", msg.Offset))
	return nil
}
