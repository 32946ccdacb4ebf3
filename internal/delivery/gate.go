// Package delivery decides whether a composed message reaches the transport
// and how transport failures are reported.
package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sumire/issuemail/internal/domain"
	"github.com/sumire/issuemail/internal/recipient"
)

// Transport hands a composed message to a mail system.
type Transport interface {
	Send(ctx context.Context, msg domain.ComposedMessage) error
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, msg domain.ComposedMessage) error

// Send implements Transport.
func (f TransportFunc) Send(ctx context.Context, msg domain.ComposedMessage) error {
	return f(ctx, msg)
}

// Options are scoped to a single Deliver call.
type Options struct {
	// RaiseErrors returns transport failures to the caller instead of
	// logging them.
	RaiseErrors bool
	// PerformDeliveries set to false suppresses every send.
	PerformDeliveries bool
}

// Gate wraps a transport with the send/suppress/fail decision.
type Gate struct {
	logger    *slog.Logger
	transport Transport
}

// NewGate creates a Gate. A nil logger falls back to slog.Default.
func NewGate(transport Transport, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{logger: logger, transport: transport}
}

// Deliver sends msg through transport unless it has no recipients or
// deliveries are disabled. A non-nil error is only returned in raise mode.
func (g *Gate) Deliver(ctx context.Context, msg domain.ComposedMessage, opts Options) (domain.DeliveryOutcome, error) {
	return g.deliver(ctx, g.transport, msg, opts)
}

// DeliverVia behaves like Deliver but uses t for this call only.
func (g *Gate) DeliverVia(ctx context.Context, t Transport, msg domain.ComposedMessage, opts Options) (domain.DeliveryOutcome, error) {
	return g.deliver(ctx, t, msg, opts)
}

// Transport returns the gate's default transport.
func (g *Gate) Transport() Transport { return g.transport }

func (g *Gate) deliver(ctx context.Context, t Transport, msg domain.ComposedMessage, opts Options) (domain.DeliveryOutcome, error) {
	outcome := domain.DeliveryOutcome{MessageID: msg.Headers.Get("Message-ID")}

	if !recipient.ShouldSend(msg.Audience()) {
		deliveriesTotal.WithLabelValues("empty_audience").Inc()
		return outcome, nil
	}
	if !opts.PerformDeliveries {
		deliveriesTotal.WithLabelValues("disabled").Inc()
		return outcome, nil
	}

	outcome.Attempted = true
	start := time.Now()
	err := t.Send(ctx, msg)
	deliveryDuration.Observe(time.Since(start).Seconds())
	if err == nil {
		deliveriesTotal.WithLabelValues("delivered").Inc()
		outcome.Succeeded = true
		return outcome, nil
	}

	deliveriesTotal.WithLabelValues("failed").Inc()
	outcome.Err = fmt.Errorf("%w: %w", domain.ErrDelivery, err)
	if opts.RaiseErrors {
		return outcome, fmt.Errorf("%w: %w", domain.ErrDelivery, err)
	}

	g.logger.ErrorContext(ctx, "error while sending email notification, check the SMTP settings in the environment configuration",
		"error", err,
		"message_id", outcome.MessageID,
		"recipients", len(msg.Recipients()),
	)
	return outcome, nil
}
