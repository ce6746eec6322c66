package amqp

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"companyops/internal/core"
)

// gatedPublisher blocks every publish until release is closed.
type gatedPublisher struct {
	release chan struct{}
	fail    bool

	mu  sync.Mutex
	ids []string
}

func (p *gatedPublisher) PublishAuditEvent(ctx context.Context, ev core.AuditEvent) error {
	select {
	case <-p.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	if p.fail {
		return errors.New("connection refused")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ids = append(p.ids, ev.ID)
	return nil
}

func (p *gatedPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.ids...)
}

func TestAuditQueue_RecordDoesNotWaitForBroker(t *testing.T) {
	pub := &gatedPublisher{release: make(chan struct{})}
	q := NewAuditQueue(pub, 2, discardLogger())

	start := time.Now()
	require.NoError(t, q.Record(context.Background(), core.AuditEvent{ID: "1"}))
	assert.Less(t, time.Since(start), time.Second)

	close(pub.release)
	require.NoError(t, q.Close(context.Background()))
	assert.Equal(t, []string{"1"}, pub.published())
}

func TestAuditQueue_DropsWhenFull(t *testing.T) {
	pub := &gatedPublisher{release: make(chan struct{})}
	q := NewAuditQueue(pub, 1, discardLogger())

	var full int
	for i := 0; i < 5; i++ {
		if err := q.Record(context.Background(), core.AuditEvent{ID: "x"}); errors.Is(err, ErrQueueFull) {
			full++
		}
	}
	// One event is held by the publisher and one fills the buffer.
	assert.GreaterOrEqual(t, full, 3)

	close(pub.release)
	require.NoError(t, q.Close(context.Background()))
	_, _, dropped := q.Stats()
	assert.Equal(t, int64(full), dropped)
}

func TestAuditQueue_CloseDrainsBuffer(t *testing.T) {
	pub := &gatedPublisher{release: make(chan struct{})}
	close(pub.release)
	q := NewAuditQueue(pub, 10, discardLogger())

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, q.Record(context.Background(), core.AuditEvent{ID: id}))
	}
	require.NoError(t, q.Close(context.Background()))

	assert.ElementsMatch(t, []string{"a", "b", "c"}, pub.published())
	published, failed, _ := q.Stats()
	assert.Equal(t, int64(3), published)
	assert.Zero(t, failed)
	assert.ErrorIs(t, q.Record(context.Background(), core.AuditEvent{ID: "late"}), ErrQueueClosed)
}

func TestAuditQueue_FailedPublishIsCounted(t *testing.T) {
	pub := &gatedPublisher{release: make(chan struct{}), fail: true}
	close(pub.release)
	q := NewAuditQueue(pub, 4, discardLogger())

	require.NoError(t, q.Record(context.Background(), core.AuditEvent{ID: "1"}))
	require.NoError(t, q.Close(context.Background()))

	_, failed, _ := q.Stats()
	assert.Equal(t, int64(1), failed)
}

func TestAuditQueue_CloseGivesUpWithContext(t *testing.T) {
	pub := &gatedPublisher{release: make(chan struct{})}
	q := NewAuditQueue(pub, 4, discardLogger())
	require.NoError(t, q.Record(context.Background(), core.AuditEvent{ID: "stuck"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Close(ctx), context.DeadlineExceeded)
	close(pub.release)
}
