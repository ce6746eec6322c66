package core

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction names what happened to a resource.
type AuditAction string

const (
	ActionCreated       AuditAction = "created"
	ActionStatusChanged AuditAction = "status_changed"
)

// AuditEvent records a successful mutation made through the dashboard.
type AuditEvent struct {
	ID         string      `json:"id"`
	ActorEmail string      `json:"actor_email"`
	ActorRole  Role        `json:"actor_role"`
	Resource   string      `json:"resource"`
	Action     AuditAction `json:"action"`
	Subject    string      `json:"subject"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// NewAuditEvent stamps a fresh id and the current time.
func NewAuditEvent(actor User, resource string, action AuditAction, subject string) AuditEvent {
	return AuditEvent{
		ID:         uuid.NewString(),
		ActorEmail: actor.Email,
		ActorRole:  actor.Role,
		Resource:   resource,
		Action:     action,
		Subject:    subject,
		OccurredAt: time.Now().UTC(),
	}
}
