package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	applog "companyops/internal/log"
	"companyops/internal/session"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports ready only when the session store answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := map[string]string{"templates": "ok", "session_store": "ok"}

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	}
	if err := s.sessions.Store().Ping(ctx); err != nil {
		checks["session_store"] = "failed: " + err.Error()
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides request, security and cache counters in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	tm := s.tracer.Metrics()
	metrics := []struct {
		name, help, kind string
		value            any
	}{
		{"http_requests_total", "Total number of HTTP requests", "counter", tm.TotalRequests},
		{"http_requests_in_flight", "Requests currently being served", "gauge", tm.InFlight},
		{"http_client_errors_total", "Responses with a 4xx status", "counter", tm.ClientErrors},
		{"http_server_errors_total", "Responses with a 5xx status", "counter", tm.ServerErrors},
		{"http_request_duration_avg_ms", "Average request duration in milliseconds", "gauge", fmt.Sprintf("%.2f", tm.AverageDurationMs)},
		{"rate_limit_rejected_total", "Requests refused by the rate limiter", "counter", s.limiter.Rejected()},
		{"rate_limit_active_clients", "Clients tracked by the rate limiter", "gauge", s.limiter.ActiveClients()},
		{"security_suspicious_requests_total", "Requests flagged as suspicious", "counter", s.detector.Suspicious()},
		{"analytics_cache_entries", "Analytics summaries currently cached", "gauge", s.analytics.Len()},
		{"uptime_seconds", "Seconds since the server started", "gauge", int64(time.Since(s.started).Seconds())},
	}

	w.WriteHeader(http.StatusOK)
	for _, m := range metrics {
		fmt.Fprintf(w, "# HELP %s %s\n", m.name, m.help)
		fmt.Fprintf(w, "# TYPE %s %s\n", m.name, m.kind)
		fmt.Fprintf(w, "%s %v\n\n", m.name, m.value)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if _, ok := session.FromContext(r.Context()); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// currentSession is only called behind session.Manager.Require.
func currentSession(r *http.Request) *session.Session {
	sess, _ := session.FromContext(r.Context())
	return sess
}

func (s *Server) logMutation(r *http.Request, sess *session.Session, op, resourceName, itemID string) {
	ctx := r.Context()
	requestEvents(ctx).LogMutation(ctx, op, resourceName, itemID, sess.User.Email, string(sess.User.Role))
}

// requestEvents logs through the request-scoped logger so records carry the request ID.
func requestEvents(ctx context.Context) *applog.StructuredLogger {
	return applog.NewStructuredLogger(applog.FromContext(ctx))
}
