// Package resource implements the load-after-mutate list shared by every
// dashboard panel: mutations go to the API, then the whole collection is
// fetched again. There is no optimistic merge.
package resource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"companyops/internal/core"
)

// ErrReload marks a mutation that succeeded but whose follow-up fetch failed.
var ErrReload = errors.New("reload after mutation failed")

// Requester is the subset of the API client a collection needs.
type Requester interface {
	Get(ctx context.Context, token, path string, query url.Values, out any) error
	Post(ctx context.Context, token, path string, body, out any) error
	Patch(ctx context.Context, token, path string, body, out any) error
}

// Recorder receives an audit event after each successful mutation.
type Recorder interface {
	Record(ctx context.Context, ev core.AuditEvent) error
}

// Identity is the caller on whose behalf requests are made.
type Identity interface {
	BearerToken() string
	Actor() core.User
}

// Mutation describes one write.
type Mutation struct {
	Action core.AuditAction
	// ID targets an item for updates; unused on create.
	ID      string
	Payload any
	// Subject is a short human description kept in the audit trail.
	Subject string
	// Reload is the query used to fetch the collection afterwards.
	Reload url.Values
}

type Option func(*settings)

type settings struct {
	recorder Recorder
	logger   *slog.Logger
}

func WithRecorder(r Recorder) Option {
	return func(s *settings) { s.recorder = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// Collection is a typed view of one API collection endpoint.
type Collection[T any] struct {
	name string
	path string
	api  Requester
	settings
}

// New binds a collection named name to the endpoint path, e.g. "/tasks".
func New[T any](api Requester, name, path string, opts ...Option) *Collection[T] {
	c := &Collection[T]{
		name:     name,
		path:     "/" + strings.Trim(path, "/"),
		api:      api,
		settings: settings{logger: slog.Default()},
	}
	for _, opt := range opts {
		opt(&c.settings)
	}
	return c
}

func (c *Collection[T]) Name() string { return c.name }

// Load fetches the whole collection. A null body yields an empty slice.
func (c *Collection[T]) Load(ctx context.Context, who Identity, query url.Values) ([]T, error) {
	var items []T
	if err := c.api.Get(ctx, who.BearerToken(), c.path, query, &items); err != nil {
		return nil, fmt.Errorf("load %s: %w", c.name, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// Create posts m.Payload and returns the reloaded collection.
func (c *Collection[T]) Create(ctx context.Context, who Identity, m Mutation) ([]T, error) {
	if m.Action == "" {
		m.Action = core.ActionCreated
	}
	if err := c.api.Post(ctx, who.BearerToken(), c.path, m.Payload, nil); err != nil {
		return nil, fmt.Errorf("create %s: %w", c.name, err)
	}
	return c.afterMutation(ctx, who, m)
}

// Update patches the item m.ID and returns the reloaded collection.
func (c *Collection[T]) Update(ctx context.Context, who Identity, m Mutation) ([]T, error) {
	if m.ID == "" {
		return nil, fmt.Errorf("update %s: %w: missing id", c.name, core.ErrInvalidInput)
	}
	path := c.path + "/" + url.PathEscape(m.ID)
	if err := c.api.Patch(ctx, who.BearerToken(), path, m.Payload, nil); err != nil {
		return nil, fmt.Errorf("update %s %s: %w", c.name, m.ID, err)
	}
	return c.afterMutation(ctx, who, m)
}

func (c *Collection[T]) afterMutation(ctx context.Context, who Identity, m Mutation) ([]T, error) {
	if c.recorder != nil {
		ev := core.NewAuditEvent(who.Actor(), c.name, m.Action, m.Subject)
		if err := c.recorder.Record(ctx, ev); err != nil {
			c.logger.WarnContext(ctx, "Audit record failed",
				"resource", c.name,
				"action", m.Action,
				"error", err)
		}
	}
	items, err := c.Load(ctx, who, m.Reload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReload, err)
	}
	return items, nil
}

// Set holds the four dashboard collections.
type Set struct {
	Tasks   *Collection[core.Task]
	Reports *Collection[core.Report]
	Salary  *Collection[core.SalaryRecord]
	Finance *Collection[core.FinanceEntry]
}

func NewSet(api Requester, opts ...Option) Set {
	return Set{
		Tasks:   New[core.Task](api, "tasks", "/tasks", opts...),
		Reports: New[core.Report](api, "reports", "/reports", opts...),
		Salary:  New[core.SalaryRecord](api, "salary", "/salary", opts...),
		Finance: New[core.FinanceEntry](api, "finance", "/finance", opts...),
	}
}
