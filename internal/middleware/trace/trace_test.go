package trace

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	applog "companyops/internal/log"
)

func newTestMiddleware(buf *bytes.Buffer, hook func(*http.Request, string)) *Middleware {
	logger := applog.New(applog.Config{Level: slog.LevelDebug, Output: buf})
	return NewMiddleware(logger, func(*http.Request) string { return "10.0.0.1" }, hook)
}

func TestRequestIDAssignedAndEchoed(t *testing.T) {
	var buf bytes.Buffer
	m := newTestMiddleware(&buf, nil)

	var seen string
	h := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(HeaderRequestID))

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.Header.Set(HeaderRequestID, "upstream-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "upstream-123", seen)

	req = httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.Header.Set(HeaderRequestID, "bad id with spaces")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.NotEqual(t, "bad id with spaces", seen)
}

func TestMetricsAndLogging(t *testing.T) {
	var buf bytes.Buffer
	inspected := 0
	m := newTestMiddleware(&buf, func(r *http.Request, ip string) {
		inspected++
		assert.Equal(t, "10.0.0.1", ip)
	})

	status := http.StatusOK
	h := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))

	for _, s := range []int{http.StatusOK, http.StatusNotFound, http.StatusBadGateway} {
		status = s
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
	}

	got := m.Metrics()
	assert.Equal(t, int64(3), got.TotalRequests)
	assert.Equal(t, int64(1), got.ClientErrors)
	assert.Equal(t, int64(1), got.ServerErrors)
	assert.Equal(t, int64(0), got.InFlight)
	assert.Equal(t, 3, inspected)
	assert.Contains(t, buf.String(), "status_code=502")
	assert.Contains(t, buf.String(), "component=trace")
}

func TestCompletionLoggedBelowInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := applog.New(applog.Config{Level: slog.LevelInfo, Output: &buf})
	m := NewMiddleware(logger, nil, nil)

	h := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Empty(t, buf.String())
	assert.Equal(t, int64(1), m.Metrics().ServerErrors)
}
