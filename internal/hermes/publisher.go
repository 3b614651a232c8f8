package hermes

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Event is a payload that knows where it is published.
type Event interface {
	Subject() string
}

// Publisher encodes typed events onto a Client. Delivery is best effort: a
// failed publish is logged and never fails the caller's operation. A
// Publisher without a client drops every event.
type Publisher struct {
	client Client
	logger *slog.Logger
}

func NewPublisher(c Client, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Publisher{client: c, logger: logger}
}

// Enabled reports whether events leave the process.
func (p *Publisher) Enabled() bool {
	return p != nil && p.client != nil
}

// Emit publishes evt and reports whether it was handed to the broker.
func (p *Publisher) Emit(ctx context.Context, evt Event) bool {
	if !p.Enabled() {
		return false
	}
	subject := evt.Subject()
	payload, err := json.Marshal(evt)
	if err != nil {
		p.logger.Error("failed to encode event", "subject", subject, "error", err)
		return false
	}
	if err := p.client.Publish(ctx, subject, payload); err != nil {
		p.logger.Warn("failed to publish event", "subject", subject, "error", err)
		return false
	}
	return true
}
