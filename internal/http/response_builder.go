// Package http serves the Company Ops dashboard: full pages, htmx panel
// partials and a small JSON API, all backed by the remote Company Ops API.
package http

import (
	"encoding/json"
	"html/template"
	"net/http"
)

// Client-side events fired through HX-Trigger.
const (
	EventFormReset        = "form:reset"
	EventAnalyticsRefresh = "analytics:refresh"
	EventNotification     = "show-notification"
)

// Toast durations in milliseconds. Errors stay up longer.
const (
	successToastMs = 3000
	errorToastMs   = 5000
)

// HTMXResponseBuilder collects the status, HX-Trigger events and HTML body of
// one htmx response.
type HTMXResponseBuilder struct {
	status   int
	triggers map[string]any
	html     []byte
}

func NewHTMXResponse() *HTMXResponseBuilder {
	return &HTMXResponseBuilder{
		status:   http.StatusOK,
		triggers: make(map[string]any),
	}
}

func (b *HTMXResponseBuilder) Status(code int) *HTMXResponseBuilder {
	b.status = code
	return b
}

// Trigger queues a client event. A later call with the same name wins.
func (b *HTMXResponseBuilder) Trigger(name string, data any) *HTMXResponseBuilder {
	b.triggers[name] = data
	return b
}

// TriggerFormReset clears the forms marked data-reset.
func (b *HTMXResponseBuilder) TriggerFormReset() *HTMXResponseBuilder {
	return b.Trigger(EventFormReset, struct{}{})
}

// TriggerAnalyticsRefresh asks the finance totals and charts to reload.
func (b *HTMXResponseBuilder) TriggerAnalyticsRefresh() *HTMXResponseBuilder {
	return b.Trigger(EventAnalyticsRefresh, struct{}{})
}

type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
)

func (b *HTMXResponseBuilder) notify(kind NotificationType, message string, durationMs int) *HTMXResponseBuilder {
	return b.Trigger(EventNotification, map[string]any{
		"type":     string(kind),
		"message":  message,
		"duration": durationMs,
	})
}

func (b *HTMXResponseBuilder) TriggerSuccessNotification(message string) *HTMXResponseBuilder {
	return b.notify(NotificationSuccess, message, successToastMs)
}

func (b *HTMXResponseBuilder) TriggerErrorNotification(message string) *HTMXResponseBuilder {
	return b.notify(NotificationError, message, errorToastMs)
}

// BodyHTML sets an HTML body.
func (b *HTMXResponseBuilder) BodyHTML(html []byte) *HTMXResponseBuilder {
	b.html = html
	return b
}

func (b *HTMXResponseBuilder) Write(w http.ResponseWriter) {
	if len(b.triggers) > 0 {
		if events, err := json.Marshal(b.triggers); err == nil {
			w.Header().Set("HX-Trigger", string(events))
		}
	}
	if len(b.html) > 0 {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	}
	w.WriteHeader(b.status)
	if len(b.html) > 0 {
		_, _ = w.Write(b.html)
	}
}

// ErrorResponse renders message as an escaped alert and an error toast.
func ErrorResponse(status int, message string) *HTMXResponseBuilder {
	alert := `<div class="error" role="alert">` + template.HTMLEscapeString(message) + `</div>`
	return NewHTMXResponse().
		Status(status).
		TriggerErrorNotification(message).
		BodyHTML([]byte(alert))
}

func BadRequestError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func UnprocessableEntityError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

func InternalServerError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

func NotFoundError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func TooManyRequestsError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusTooManyRequests, message)
}
