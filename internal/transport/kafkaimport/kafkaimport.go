// Package kafkaimport feeds chunks into an importer.Importer from a Kafka
// topic: one message, one Import call. It is grounded on the teacher's
// internal/ingester/kafka (franz-go consumer group, TLS, SASL), adapted from
// a fan-out IngestMessage producer into a direct import consumer since
// GeoRocket has no separate ingest-message bus.
package kafkaimport

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/sasl"
	"github.com/twmb/franz-go/pkg/sasl/plain"
	"github.com/twmb/franz-go/pkg/sasl/scram"

	"github.com/tobias93/georocket/internal/chunk"
	"github.com/tobias93/georocket/internal/importer"
	"github.com/tobias93/georocket/internal/logging"
)

// SASLConfig holds SASL authentication parameters.
type SASLConfig struct {
	Mechanism string // "plain", "scram-sha-256", "scram-sha-512"
	User      string
	Password  string //nolint:gosec // G117: config field, not a hardcoded credential
}

// Consumer imports one chunk per Kafka message.
type Consumer struct {
	cfg    Config
	logger *slog.Logger
}

// Config holds Kafka import consumer configuration.
type Config struct {
	Brokers  []string
	Topic    string
	Group    string
	TLS      bool
	SASL     *SASLConfig
	MimeType string
	Layer    string
	Importer *importer.Importer
	Logger   *slog.Logger
}

// New creates a Consumer from cfg.
func New(cfg Config) *Consumer {
	return &Consumer{
		cfg:    cfg,
		logger: logging.Default(cfg.Logger).With("component", "transport", "type", "kafka", "topic", cfg.Topic),
	}
}

// Run connects to Kafka and imports every message's value until ctx is
// cancelled or an import fails. Offsets are committed only after a successful Import, so a
// crash mid-batch redelivers the message rather than silently dropping it.
func (c *Consumer) Run(ctx context.Context) error {
	opts := []kgo.Opt{
		kgo.SeedBrokers(c.cfg.Brokers...),
		kgo.ConsumeTopics(c.cfg.Topic),
		kgo.ConsumerGroup(c.cfg.Group),
		kgo.DisableAutoCommit(),
	}
	if c.cfg.TLS {
		opts = append(opts, kgo.DialTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12}))
	}
	if c.cfg.SASL != nil {
		mech, err := buildSASLMechanism(c.cfg.SASL)
		if err != nil {
			return err
		}
		opts = append(opts, kgo.SASL(mech))
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return fmt.Errorf("kafkaimport: create client: %w", err)
	}
	defer client.Close()

	c.logger.Info("kafka import consumer started", "brokers", c.cfg.Brokers, "group", c.cfg.Group)

	for {
		fetches := client.PollFetches(ctx)
		if ctx.Err() != nil {
			c.logger.Info("kafka import consumer stopping")
			return ctx.Err()
		}

		for _, e := range fetches.Errors() {
			c.logger.Warn("kafka fetch error", "topic", e.Topic, "partition", e.Partition, "error", e.Err)
		}

		var importErr error
		fetches.EachRecord(func(rec *kgo.Record) {
			if importErr != nil {
				return
			}
			indexMeta := chunk.IndexMeta{
				Timestamp: rec.Timestamp,
				Tags:      map[string]struct{}{"kafka:" + rec.Topic: {}},
			}
			if _, err := c.cfg.Importer.Import(ctx, bytes.NewReader(rec.Value), c.cfg.MimeType, indexMeta, c.cfg.Layer); err != nil {
				importErr = fmt.Errorf("kafkaimport: import record at offset %d: %w", rec.Offset, err)
			}
		})
		if importErr != nil {
			return importErr
		}

		if err := client.CommitUncommittedOffsets(ctx); err != nil {
			c.logger.Warn("commit offsets failed", "error", err)
		}
	}
}

func buildSASLMechanism(cfg *SASLConfig) (sasl.Mechanism, error) {
	switch cfg.Mechanism {
	case "plain":
		return plain.Auth{User: cfg.User, Pass: cfg.Password}.AsMechanism(), nil
	case "scram-sha-256":
		return scram.Auth{User: cfg.User, Pass: cfg.Password}.AsSha256Mechanism(), nil
	case "scram-sha-512":
		return scram.Auth{User: cfg.User, Pass: cfg.Password}.AsSha512Mechanism(), nil
	default:
		return nil, fmt.Errorf("kafkaimport: unsupported SASL mechanism %q", cfg.Mechanism)
	}
}
