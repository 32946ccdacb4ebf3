package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumire/issuemail/internal/domain"
)

func TestTransport(t *testing.T) {
	tr := New()
	_, ok := tr.Last()
	assert.False(t, ok)

	require.NoError(t, tr.Send(context.Background(), domain.ComposedMessage{Subject: "one"}))
	require.NoError(t, tr.Send(context.Background(), domain.ComposedMessage{Subject: "two"}))

	last, ok := tr.Last()
	require.True(t, ok)
	assert.Equal(t, "two", last.Subject)
	assert.Len(t, tr.Sent(), 2)

	boom := errors.New("boom")
	tr.FailWith(boom)
	assert.ErrorIs(t, tr.Send(context.Background(), domain.ComposedMessage{}), boom)
	assert.Len(t, tr.Sent(), 2)

	tr.Reset()
	assert.Empty(t, tr.Sent())
}

func TestTransport_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, New().Send(ctx, domain.ComposedMessage{}), context.Canceled)
}
