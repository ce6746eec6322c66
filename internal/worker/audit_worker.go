package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"companyops/internal/core"
)

// AuditStore persists consumed audit events.
type AuditStore interface {
	InsertAuditEvent(ctx context.Context, ev core.AuditEvent) (bool, error)
	CountAuditEvents(ctx context.Context) (int64, error)
}

// Consumer feeds events to a handler until ctx ends.
type Consumer interface {
	ConsumeAuditEvents(ctx context.Context, handler func(context.Context, core.AuditEvent) error) error
}

// AuditWorker moves audit events from the broker into the store.
type AuditWorker struct {
	store      AuditStore
	logger     *slog.Logger
	statsEvery time.Duration
	stored     atomic.Int64
	duplicates atomic.Int64
}

func NewAuditWorker(store AuditStore, logger *slog.Logger, statsEvery time.Duration) *AuditWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditWorker{store: store, logger: logger, statsEvery: statsEvery}
}

// HandleEvent stores one event. Redeliveries are counted, not failed.
func (w *AuditWorker) HandleEvent(ctx context.Context, ev core.AuditEvent) error {
	inserted, err := w.store.InsertAuditEvent(ctx, ev)
	if err != nil {
		return fmt.Errorf("store audit event %s: %w", ev.ID, err)
	}
	if !inserted {
		w.duplicates.Add(1)
		w.logger.DebugContext(ctx, "Duplicate audit event ignored", "id", ev.ID)
		return nil
	}
	w.stored.Add(1)
	w.logger.InfoContext(ctx, "Audit event stored",
		"id", ev.ID,
		"actor", ev.ActorEmail,
		"resource", ev.Resource,
		"action", ev.Action)
	return nil
}

// Run consumes until ctx is cancelled, logging totals every statsEvery.
func (w *AuditWorker) Run(ctx context.Context, consumer Consumer) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return consumer.ConsumeAuditEvents(ctx, w.HandleEvent)
	})

	if w.statsEvery > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(w.statsEvery)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					w.logStats(ctx)
				}
			}
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (w *AuditWorker) logStats(ctx context.Context) {
	total, err := w.store.CountAuditEvents(ctx)
	if err != nil {
		w.logger.WarnContext(ctx, "Audit count failed", "error", err)
		return
	}
	w.logger.InfoContext(ctx, "Audit worker stats",
		"stored_this_run", w.stored.Load(),
		"duplicates", w.duplicates.Load(),
		"total", total)
}

// Stats returns events stored and duplicates skipped since start.
func (w *AuditWorker) Stats() (stored, duplicates int64) {
	return w.stored.Load(), w.duplicates.Load()
}
