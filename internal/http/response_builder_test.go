package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTMXResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().Status(http.StatusNoContent).Write(w)

	if w.Code != http.StatusNoContent {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusNoContent)
	}
	if w.Body.Len() != 0 {
		t.Errorf("Body = %q, want empty", w.Body.String())
	}
	if h := w.Header().Get("HX-Trigger"); h != "" {
		t.Errorf("HX-Trigger = %q, want none", h)
	}
	if ct := w.Header().Get("Content-Type"); ct != "" {
		t.Errorf("Content-Type = %q, want none", ct)
	}
}

func TestHTMXResponseBuilder_Triggers(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		TriggerFormReset().
		TriggerAnalyticsRefresh().
		TriggerSuccessNotification("Entry added").
		Write(w)

	trigger := w.Header().Get("HX-Trigger")
	if trigger == "" {
		t.Fatal("HX-Trigger header not set")
	}

	var events map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trigger), &events); err != nil {
		t.Fatalf("HX-Trigger is not JSON: %v", err)
	}
	for _, name := range []string{EventFormReset, EventAnalyticsRefresh, EventNotification} {
		if _, ok := events[name]; !ok {
			t.Errorf("HX-Trigger missing %q: %s", name, trigger)
		}
	}

	var note struct {
		Type     string `json:"type"`
		Message  string `json:"message"`
		Duration int    `json:"duration"`
	}
	if err := json.Unmarshal(events[EventNotification], &note); err != nil {
		t.Fatalf("notification payload: %v", err)
	}
	if note.Type != "success" || note.Message != "Entry added" || note.Duration != 3000 {
		t.Errorf("notification = %+v", note)
	}
}

func TestHTMXResponseBuilder_ErrorNotificationLastsLonger(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().TriggerErrorNotification("Something went wrong").Write(w)

	trigger := w.Header().Get("HX-Trigger")
	for _, part := range []string{`"type":"error"`, `"duration":5000`, `"Something went wrong"`} {
		if !strings.Contains(trigger, part) {
			t.Errorf("HX-Trigger missing %q: %s", part, trigger)
		}
	}
}

func TestHTMXResponseBuilder_BodyHTML(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().BodyHTML([]byte("<div>ok</div>")).Write(w)

	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q, want text/html", ct)
	}
	if w.Body.String() != "<div>ok</div>" {
		t.Errorf("Body = %q", w.Body.String())
	}
}

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		name    string
		builder *HTMXResponseBuilder
		want    int
	}{
		{"bad request", BadRequestError("Invalid request format"), http.StatusBadRequest},
		{"unprocessable", UnprocessableEntityError("Check the form"), http.StatusUnprocessableEntity},
		{"internal", InternalServerError("Error rendering page"), http.StatusInternalServerError},
		{"not found", NotFoundError("Page not found"), http.StatusNotFound},
		{"too many", TooManyRequestsError("Slow down"), http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.builder.Write(w)

			if w.Code != tt.want {
				t.Errorf("Status code = %d, want %d", w.Code, tt.want)
			}
			if !strings.Contains(w.Body.String(), `role="alert"`) {
				t.Errorf("Body = %q, want an alert", w.Body.String())
			}
			if !strings.Contains(w.Header().Get("HX-Trigger"), `"type":"error"`) {
				t.Errorf("HX-Trigger = %q, want an error notification", w.Header().Get("HX-Trigger"))
			}
		})
	}
}

func TestErrorResponse_EscapesMessage(t *testing.T) {
	w := httptest.NewRecorder()

	ErrorResponse(http.StatusBadRequest, "<script>alert(1)</script>").Write(w)

	body := w.Body.String()
	if strings.Contains(body, "<script>") {
		t.Errorf("Body not escaped: %s", body)
	}
	if !strings.Contains(body, "&lt;script&gt;") {
		t.Errorf("Body = %q, want escaped script tag", body)
	}
}
