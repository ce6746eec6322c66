package trace

import (
	"context"
	"net/http"
	"regexp"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	applog "companyops/internal/log"
)

const HeaderRequestID = "X-Request-ID"

type contextKey struct{}

var validRequestID = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// Metrics are cumulative since process start.
type Metrics struct {
	TotalRequests     int64
	ClientErrors      int64
	ServerErrors      int64
	InFlight          int64
	TotalDurationMs   int64
	AverageDurationMs float64
}

// Middleware assigns request IDs, logs request completion and counts requests.
type Middleware struct {
	clientIP  func(*http.Request) string
	onRequest func(*http.Request, string)
	log       *applog.StructuredLogger

	total, clientErrs, serverErrs, inFlight, durationMs atomic.Int64
}

// NewMiddleware takes the client-IP resolver and an optional inspection hook
// run on every request (suspicious-request detection).
func NewMiddleware(logger *applog.Logger, clientIP func(*http.Request) string, onRequest func(*http.Request, string)) *Middleware {
	return &Middleware{
		clientIP:  clientIP,
		onRequest: onRequest,
		log:       applog.NewStructuredLogger(logger.WithComponent(applog.ComponentTrace)),
	}
}

func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.inFlight.Add(1)
		defer m.inFlight.Add(-1)

		id := r.Header.Get(HeaderRequestID)
		if !validRequestID.MatchString(id) {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)
		ctx := context.WithValue(r.Context(), contextKey{}, id)
		r = r.WithContext(ctx)

		clientIP := ""
		if m.clientIP != nil {
			clientIP = m.clientIP(r)
		}
		if m.onRequest != nil {
			m.onRequest(r, clientIP)
		}
		m.log.LogHTTPStart(ctx, r, clientIP)

		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		elapsed := time.Since(start).Milliseconds()
		m.total.Add(1)
		m.durationMs.Add(elapsed)
		switch {
		case rw.status >= 500:
			m.serverErrs.Add(1)
		case rw.status >= 400:
			m.clientErrs.Add(1)
		}
		m.log.LogHTTPEnd(ctx, r, rw.status, elapsed, clientIP)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// RequestID returns the ID assigned to the request carried by ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}

// RequestIDFromRequest adapts RequestID for applog.RequestIDMiddleware.
func RequestIDFromRequest(r *http.Request) string {
	return RequestID(r.Context())
}

func (m *Middleware) Metrics() Metrics {
	out := Metrics{
		TotalRequests:   m.total.Load(),
		ClientErrors:    m.clientErrs.Load(),
		ServerErrors:    m.serverErrs.Load(),
		InFlight:        m.inFlight.Load(),
		TotalDurationMs: m.durationMs.Load(),
	}
	if out.TotalRequests > 0 {
		out.AverageDurationMs = float64(out.TotalDurationMs) / float64(out.TotalRequests)
	}
	return out
}
