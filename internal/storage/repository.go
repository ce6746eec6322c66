package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"companyops/internal/core"

	_ "modernc.org/sqlite"
)

// Fixed-width UTC timestamps sort correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteRepository stores the audit trail consumed from the broker.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// modernc sqlite serialises writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// InsertAuditEvent stores ev. Redelivered events with a known ID are
// ignored; inserted reports whether a row was written.
func (r *SQLiteRepository) InsertAuditEvent(ctx context.Context, ev core.AuditEvent) (inserted bool, err error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO audit_events
			(id, actor_email, actor_role, resource, action, subject, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.ActorEmail, string(ev.ActorRole), ev.Resource, string(ev.Action), ev.Subject,
		ev.OccurredAt.UTC().Format(timeLayout))
	if err != nil {
		return false, fmt.Errorf("insert audit event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert audit event: %w", err)
	}

	if n > 0 {
		slog.DebugContext(ctx, "Audit event stored",
			"id", ev.ID,
			"resource", ev.Resource,
			"action", ev.Action)
	}
	return n > 0, nil
}

// ListAuditEvents returns the newest events first.
func (r *SQLiteRepository) ListAuditEvents(ctx context.Context, limit int) ([]core.AuditEvent, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, actor_email, actor_role, resource, action, subject, occurred_at
		FROM audit_events
		ORDER BY occurred_at DESC, id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	events := make([]core.AuditEvent, 0, limit)
	for rows.Next() {
		var (
			ev                 core.AuditEvent
			role, action, when string
		)
		if err := rows.Scan(&ev.ID, &ev.ActorEmail, &role, &ev.Resource, &action, &ev.Subject, &when); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		ev.ActorRole = core.Role(role)
		ev.Action = core.AuditAction(action)
		if ev.OccurredAt, err = time.Parse(timeLayout, when); err != nil {
			return nil, fmt.Errorf("parse occurred_at %q: %w", when, err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	return events, nil
}

func (r *SQLiteRepository) CountAuditEvents(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count audit events: %w", err)
	}
	return n, nil
}
