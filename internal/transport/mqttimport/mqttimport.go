// Package mqttimport feeds chunks into an importer.Importer from an MQTT
// topic subscription: one message, one Import call. It follows the same
// Config/New/Run shape as the teacher's single-connection ingesters (see
// internal/ingester/syslog), adapted to paho.mqtt.golang's callback-driven
// client instead of a blocking Accept loop.
package mqttimport

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/tobias93/georocket/internal/chunk"
	"github.com/tobias93/georocket/internal/importer"
	"github.com/tobias93/georocket/internal/logging"
)

// Config configures a Subscriber.
type Config struct {
	Broker   string // e.g. "tcp://localhost:1883"
	ClientID string
	Topic    string
	QoS      byte
	Username string
	Password string //nolint:gosec // G117: config field, not a hardcoded credential

	MimeType string
	Layer    string
	Importer *importer.Importer
	Logger   *slog.Logger
}

// Subscriber imports one chunk per message received on an MQTT topic.
type Subscriber struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Subscriber from cfg.
func New(cfg Config) *Subscriber {
	return &Subscriber{
		cfg:    cfg,
		logger: logging.Default(cfg.Logger).With("component", "transport", "type", "mqtt", "topic", cfg.Topic),
	}
}

// Run connects to the broker, subscribes to Topic, and imports every
// received message until ctx is cancelled, the subscription fails, or an
// import fails.
func (s *Subscriber) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	opts := mqtt.NewClientOptions().
		AddBroker(s.cfg.Broker).
		SetClientID(s.cfg.ClientID).
		SetAutoReconnect(true)
	if s.cfg.Username != "" {
		opts.SetUsername(s.cfg.Username)
		opts.SetPassword(s.cfg.Password)
	}
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		token := client.Subscribe(s.cfg.Topic, s.cfg.QoS, func(_ mqtt.Client, msg mqtt.Message) {
			s.handleMessage(ctx, msg, errCh)
		})
		token.Wait()
		if err := token.Error(); err != nil {
			select {
			case errCh <- fmt.Errorf("mqttimport: subscribe %s: %w", s.cfg.Topic, err):
			default:
			}
		}
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqttimport: connect to %s: %w", s.cfg.Broker, err)
	}
	defer client.Disconnect(250)

	s.logger.Info("mqtt subscriber started", "broker", s.cfg.Broker, "topic", s.cfg.Topic)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func (s *Subscriber) handleMessage(ctx context.Context, msg mqtt.Message, errCh chan<- error) {
	indexMeta := chunk.IndexMeta{
		Timestamp: time.Now(),
		Tags:      map[string]struct{}{"mqtt:" + msg.Topic(): {}},
	}
	if _, err := s.cfg.Importer.Import(ctx, bytes.NewReader(msg.Payload()), s.cfg.MimeType, indexMeta, s.cfg.Layer); err != nil {
		s.logger.Error("import mqtt message", "topic", msg.Topic(), "error", err)
		select {
		case errCh <- fmt.Errorf("mqttimport: import message on %s: %w", msg.Topic(), err):
		default:
		}
		return
	}
}
