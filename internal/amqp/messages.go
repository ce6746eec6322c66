package amqp

import (
	"encoding/json"
	"errors"
	"fmt"

	"companyops/internal/core"
)

var errMissingEventID = errors.New("audit event without id")

// EncodeAuditEvent is the wire form of an audit event: the event's own JSON.
func EncodeAuditEvent(ev core.AuditEvent) ([]byte, error) {
	if ev.ID == "" {
		return nil, errMissingEventID
	}
	return json.Marshal(ev)
}

func DecodeAuditEvent(data []byte) (core.AuditEvent, error) {
	var ev core.AuditEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return core.AuditEvent{}, fmt.Errorf("decode audit event: %w", err)
	}
	if ev.ID == "" {
		return core.AuditEvent{}, errMissingEventID
	}
	return ev, nil
}
