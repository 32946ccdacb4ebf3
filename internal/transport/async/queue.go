// Package async hands messages to a pool of workers that deliver them
// through a wrapped transport.
package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sumire/issuemail/internal/delivery"
	"github.com/sumire/issuemail/internal/domain"
)

var (
	// ErrQueueFull is returned by Send when the buffer has no free slot.
	ErrQueueFull = errors.New("mail queue full")
	// ErrQueueClosed is returned by Send once the queue stopped accepting
	// messages.
	ErrQueueClosed = errors.New("mail queue closed")
)

var queueTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "issuemail_async_queue_total",
	Help: "Messages handled by the async mail queue, by result.",
}, []string{"result"})

type work struct {
	ctx context.Context
	msg domain.ComposedMessage
}

// Queue delivers messages in the background. Send only enqueues; transport
// failures are logged by the workers.
type Queue struct {
	inner        delivery.Transport
	logger       *slog.Logger
	workers      int
	drainTimeout time.Duration
	ch           chan work
	wg           sync.WaitGroup

	mu      sync.RWMutex
	closed  bool
	stopped chan struct{}
}

// Config sizes the queue.
type Config struct {
	Workers int
	Buffer  int
	// DrainTimeout bounds each send made while shutting down.
	DrainTimeout time.Duration
}

// New creates a Queue around inner. Call Start before Send.
func New(inner delivery.Transport, cfg Config, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = 30 * time.Second
	}
	return &Queue{
		inner:        inner,
		logger:       logger,
		workers:      cfg.Workers,
		drainTimeout: cfg.DrainTimeout,
		ch:           make(chan work, cfg.Buffer),
		stopped:      make(chan struct{}),
	}
}

// Start launches the workers. Once ctx is cancelled the queue rejects new
// messages, and the workers drain the buffer and exit.
func (q *Queue) Start(ctx context.Context) {
	go func() {
		<-ctx.Done()
		q.mu.Lock()
		q.closed = true
		q.mu.Unlock()
		close(q.stopped)
	}()
	for range q.workers {
		q.wg.Add(1)
		go q.worker()
	}
	q.logger.Info("async mail queue started", "workers", q.workers, "buffer", cap(q.ch))
}

// Close waits for the workers to finish. Call after the context passed to
// Start is cancelled.
func (q *Queue) Close() {
	q.wg.Wait()
}

// Send implements delivery.Transport.
func (q *Queue) Send(ctx context.Context, msg domain.ComposedMessage) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		queueTotal.WithLabelValues("rejected").Inc()
		return ErrQueueClosed
	}
	w := work{ctx: context.WithoutCancel(ctx), msg: msg}
	select {
	case q.ch <- w:
		queueTotal.WithLabelValues("enqueued").Inc()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		queueTotal.WithLabelValues("dropped").Inc()
		return ErrQueueFull
	}
}

// Sync returns the wrapped transport for callers that need the result of
// the send.
func (q *Queue) Sync() delivery.Transport {
	return q.inner
}

// Pending reports the number of buffered messages.
func (q *Queue) Pending() int {
	return len(q.ch)
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.stopped:
			for {
				select {
				case w := <-q.ch:
					drainCtx, cancel := context.WithTimeout(w.ctx, q.drainTimeout)
					q.send(drainCtx, w.msg)
					cancel()
				default:
					return
				}
			}
		case w := <-q.ch:
			q.send(w.ctx, w.msg)
		}
	}
}

func (q *Queue) send(ctx context.Context, msg domain.ComposedMessage) {
	if err := q.inner.Send(ctx, msg); err != nil {
		queueTotal.WithLabelValues("failed").Inc()
		q.logger.ErrorContext(ctx, "async mail delivery failed",
			"message_id", msg.Headers.Get("Message-ID"),
			"recipients", len(msg.Recipients()),
			"error", err,
		)
		return
	}
	queueTotal.WithLabelValues("sent").Inc()
}
