// Package memory keeps sent messages in process. It backs the "test"
// delivery method.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/sumire/issuemail/internal/domain"
)

// Transport records every message it is asked to send.
type Transport struct {
	mu   sync.Mutex
	sent []domain.ComposedMessage
	err  error
}

// New returns an empty Transport.
func New() *Transport { return &Transport{} }

// Send implements delivery.Transport.
func (t *Transport) Send(ctx context.Context, msg domain.ComposedMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return t.err
	}
	t.sent = append(t.sent, msg)
	return nil
}

// FailWith makes subsequent sends return err. Pass nil to recover.
func (t *Transport) FailWith(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.err = err
}

// Sent returns a copy of the recorded messages.
func (t *Transport) Sent() []domain.ComposedMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.sent)
}

// Last returns the most recent message.
func (t *Transport) Last() (domain.ComposedMessage, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.sent) == 0 {
		return domain.ComposedMessage{}, false
	}
	return t.sent[len(t.sent)-1], true
}

// Reset clears recorded messages.
func (t *Transport) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = nil
}
