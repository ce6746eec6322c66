package resource

import (
	"context"
	"errors"
	"log/slog"

	"companyops/internal/core"
)

// LogRecorder writes audit events to the log. Used when no broker is configured.
type LogRecorder struct {
	Logger *slog.Logger
}

func (r LogRecorder) Record(ctx context.Context, ev core.AuditEvent) error {
	l := r.Logger
	if l == nil {
		l = slog.Default()
	}
	l.InfoContext(ctx, "Audit event",
		"id", ev.ID,
		"actor", ev.ActorEmail,
		"role", ev.ActorRole,
		"resource", ev.Resource,
		"action", ev.Action,
		"subject", ev.Subject)
	return nil
}

// MultiRecorder fans an event out to several recorders and joins their errors.
type MultiRecorder []Recorder

func (m MultiRecorder) Record(ctx context.Context, ev core.AuditEvent) error {
	var errs []error
	for _, r := range m {
		if err := r.Record(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
