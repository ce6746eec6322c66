package amqp

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"companyops/internal/core"
)

var (
	ErrQueueFull   = errors.New("audit queue is full")
	ErrQueueClosed = errors.New("audit queue is closed")
)

type auditPublisher interface {
	PublishAuditEvent(ctx context.Context, ev core.AuditEvent) error
}

// AuditQueue buffers audit events and publishes them from one goroutine, so
// a slow or unreachable broker never holds up the request that caused them.
type AuditQueue struct {
	pub    auditPublisher
	logger *slog.Logger
	events chan core.AuditEvent
	stop   chan struct{}
	done   chan struct{}
	once   sync.Once

	published, failed, dropped atomic.Int64
}

func NewAuditQueue(pub auditPublisher, size int, logger *slog.Logger) *AuditQueue {
	if size <= 0 {
		size = 256
	}
	if logger == nil {
		logger = slog.Default()
	}
	q := &AuditQueue{
		pub:    pub,
		logger: logger,
		events: make(chan core.AuditEvent, size),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go q.run()
	return q
}

// Record enqueues ev and returns at once. A full queue drops the event.
func (q *AuditQueue) Record(_ context.Context, ev core.AuditEvent) error {
	select {
	case <-q.stop:
		return ErrQueueClosed
	default:
	}
	select {
	case q.events <- ev:
		return nil
	default:
		q.dropped.Add(1)
		return ErrQueueFull
	}
}

func (q *AuditQueue) run() {
	defer close(q.done)
	for {
		select {
		case ev := <-q.events:
			q.publish(ev)
		case <-q.stop:
			for {
				select {
				case ev := <-q.events:
					q.publish(ev)
				default:
					return
				}
			}
		}
	}
}

func (q *AuditQueue) publish(ev core.AuditEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := q.pub.PublishAuditEvent(ctx, ev); err != nil {
		q.failed.Add(1)
		q.logger.Warn("Audit event not published",
			"id", ev.ID,
			"resource", ev.Resource,
			"action", ev.Action,
			"error", err)
		return
	}
	q.published.Add(1)
}

// Stats reports counts since the queue was created.
func (q *AuditQueue) Stats() (published, failed, dropped int64) {
	return q.published.Load(), q.failed.Load(), q.dropped.Load()
}

// Close stops accepting events and publishes what is buffered, giving up
// when ctx ends.
func (q *AuditQueue) Close(ctx context.Context) error {
	q.once.Do(func() { close(q.stop) })
	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
