package hermes

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/MikeSquared-Agency/Prioritize/internal/config"
)

// Client moves encoded event payloads. Publisher adds typing on top.
type Client interface {
	Publish(ctx context.Context, subject string, payload []byte) error
	Subscribe(subject string, handler func(subject string, payload []byte)) error
	Close()
}

// NATSClient persists events in a JetStream stream and fans them out to core
// subscribers.
type NATSClient struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	stream string
	logger *slog.Logger
}

// NewNATSClient connects and makes sure the event stream exists. A stream
// that cannot be created is logged; publishing then falls back to core NATS.
func NewNATSClient(ctx context.Context, cfg config.HermesConfig, logger *slog.Logger) (*NATSClient, error) {
	log := logger.With("component", "hermes", "stream", cfg.Stream)
	nc, err := nats.Connect(cfg.URL,
		nats.Name(cfg.ClientName),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait()),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", cfg.URL, err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	c := &NATSClient{conn: nc, js: js, logger: log}
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     cfg.Stream,
		Subjects: StreamSubjects,
		MaxAge:   cfg.StreamMaxAge(),
	})
	if err != nil {
		log.Warn("event stream unavailable, publishing without persistence", "error", err)
	} else {
		c.stream = cfg.Stream
	}
	return c, nil
}

// Publish waits for the stream acknowledgement when the stream is available.
func (c *NATSClient) Publish(ctx context.Context, subject string, payload []byte) error {
	if c.stream == "" {
		return c.conn.Publish(subject, payload)
	}
	if _, err := c.js.Publish(ctx, subject, payload); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

func (c *NATSClient) Subscribe(subject string, handler func(string, []byte)) error {
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	c.logger.Debug("subscribed", "subject", sub.Subject)
	return nil
}

// Close drains subscriptions so in-flight handlers finish before the
// connection goes away.
func (c *NATSClient) Close() {
	if err := c.conn.Drain(); err != nil {
		c.logger.Warn("nats drain failed", "error", err)
		c.conn.Close()
	}
}
