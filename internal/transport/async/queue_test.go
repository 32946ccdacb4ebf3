package async

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumire/issuemail/internal/delivery"
	"github.com/sumire/issuemail/internal/domain"
	"github.com/sumire/issuemail/internal/transport/memory"
)

func message(id string) domain.ComposedMessage {
	return domain.ComposedMessage{
		Headers: domain.Headers{{Name: "Message-ID", Value: id}},
		To:      []string{"a@x.com"},
	}
}

func TestQueue_DeliversInBackground(t *testing.T) {
	mem := memory.New()
	q := New(mem, Config{Workers: 2, Buffer: 10}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	q.Start(ctx)

	for _, id := range []string{"<1>", "<2>", "<3>"} {
		require.NoError(t, q.Send(context.Background(), message(id)))
	}

	assert.Eventually(t, func() bool { return len(mem.Sent()) == 3 }, time.Second, 5*time.Millisecond)
	cancel()
	q.Close()
}

func TestQueue_DrainsOnShutdown(t *testing.T) {
	mem := memory.New()
	q := New(mem, Config{Workers: 1, Buffer: 10}, nil)

	for _, id := range []string{"<1>", "<2>", "<3>"} {
		require.NoError(t, q.Send(context.Background(), message(id)))
	}
	assert.Equal(t, 3, q.Pending())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	q.Start(ctx)
	q.Close()

	assert.Len(t, mem.Sent(), 3)
	assert.Zero(t, q.Pending())
}

func TestQueue_BufferFull(t *testing.T) {
	q := New(memory.New(), Config{Workers: 1, Buffer: 1}, nil)
	before := testutil.ToFloat64(queueTotal.WithLabelValues("dropped"))

	require.NoError(t, q.Send(context.Background(), message("<1>")))
	err := q.Send(context.Background(), message("<2>"))
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, before+1, testutil.ToFloat64(queueTotal.WithLabelValues("dropped")))
}

func TestQueue_SendOutlivesCallerContext(t *testing.T) {
	var (
		mu   sync.Mutex
		errs []error
	)
	inner := delivery.TransportFunc(func(ctx context.Context, _ domain.ComposedMessage) error {
		mu.Lock()
		defer mu.Unlock()
		errs = append(errs, ctx.Err())
		return nil
	})
	q := New(inner, Config{Workers: 1, Buffer: 1}, nil)

	callerCtx, cancelCaller := context.WithCancel(context.Background())
	require.NoError(t, q.Send(callerCtx, message("<1>")))
	cancelCaller()

	ctx, cancel := context.WithCancel(context.Background())
	q.Start(ctx)
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(errs) == 1
	}, time.Second, 5*time.Millisecond)
	cancel()
	q.Close()

	assert.NoError(t, errs[0])
}

func TestQueue_FailuresAreLoggedNotReturned(t *testing.T) {
	mem := memory.New()
	mem.FailWith(errors.New("relay down"))
	q := New(mem, Config{Workers: 1, Buffer: 1}, nil)
	before := testutil.ToFloat64(queueTotal.WithLabelValues("failed"))

	require.NoError(t, q.Send(context.Background(), message("<1>")))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	q.Start(ctx)
	q.Close()

	assert.Equal(t, before+1, testutil.ToFloat64(queueTotal.WithLabelValues("failed")))
}

func TestQueue_SyncReturnsInner(t *testing.T) {
	mem := memory.New()
	q := New(mem, Config{}, nil)
	assert.Same(t, mem, q.Sync())
}

func TestQueue_RejectsAfterShutdown(t *testing.T) {
	mem := memory.New()
	q := New(mem, Config{Workers: 1, Buffer: 10}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	q.Start(ctx)
	cancel()
	q.Close()

	before := testutil.ToFloat64(queueTotal.WithLabelValues("rejected"))
	err := q.Send(context.Background(), message("<late>"))
	assert.ErrorIs(t, err, ErrQueueClosed)
	assert.Zero(t, q.Pending())
	assert.Empty(t, mem.Sent())
	assert.Equal(t, before+1, testutil.ToFloat64(queueTotal.WithLabelValues("rejected")))
}

func TestQueue_LateSendIsReportedAsFailure(t *testing.T) {
	q := New(memory.New(), Config{Workers: 1, Buffer: 10}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	q.Start(ctx)
	cancel()
	q.Close()

	outcome, err := delivery.NewGate(q, nil).Deliver(context.Background(), message("<late>"),
		delivery.Options{PerformDeliveries: true})
	require.NoError(t, err)
	assert.Equal(t, domain.DeliveryStatusFailed, outcome.Status())
	assert.ErrorIs(t, outcome.Err, ErrQueueClosed)
}
