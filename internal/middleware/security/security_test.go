package security

import (
	"crypto/tls"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDetector(t *testing.T, extra ...string) *Detector {
	t.Helper()
	d, err := NewDetector(slog.New(slog.NewTextHandler(io.Discard, nil)), extra...)
	require.NoError(t, err)
	return d
}

func TestInspect(t *testing.T) {
	d := newDetector(t)
	tests := []struct {
		name    string
		method  string
		target  string
		agent   string
		flagged bool
	}{
		{"dashboard", http.MethodGet, "/dashboard?tab=finance", "Mozilla/5.0", false},
		{"traversal", http.MethodGet, "/static/../../etc/passwd", "", true},
		{"dotenv", http.MethodGet, "/.env", "", true},
		{"scanner", http.MethodGet, "/", "sqlmap/1.7", true},
		{"trace method", "TRACE", "/", "", true},
		{"script in query", http.MethodGet, "/ui/tasks?assignee=%3Cscript%3E", "", false},
		{"long url", http.MethodGet, "/ui/tasks?assignee=" + strings.Repeat("a", 2100), "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, tt.target, nil)
			r.Header.Set("User-Agent", tt.agent)
			assert.Equal(t, tt.flagged, d.Inspect(r) != "")
		})
	}
}

func TestCheckCounts(t *testing.T) {
	d := newDetector(t)
	assert.True(t, d.Check(httptest.NewRequest(http.MethodGet, "/.git/config", nil), "1.2.3.4"))
	assert.False(t, d.Check(httptest.NewRequest(http.MethodGet, "/login", nil), "1.2.3.4"))
	assert.Equal(t, int64(1), d.Suspicious())
}

func TestClientIP(t *testing.T) {
	d := newDetector(t, "203.0.113.0/24")

	tests := []struct {
		name   string
		remote string
		xff    string
		xri    string
		want   string
	}{
		{"direct", "198.51.100.7:5555", "", "", "198.51.100.7"},
		{"untrusted peer ignores xff", "198.51.100.7:5555", "1.1.1.1", "", "198.51.100.7"},
		{"trusted peer uses xff", "10.0.0.2:80", "1.1.1.1, 10.0.0.2", "", "1.1.1.1"},
		{"extra trusted", "203.0.113.9:80", "2.2.2.2", "", "2.2.2.2"},
		{"real ip fallback", "127.0.0.1:80", "garbage", "3.3.3.3", "3.3.3.3"},
		{"no port", "192.168.1.4", "", "", "192.168.1.4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			assert.Equal(t, tt.want, d.ClientIP(r))
		})
	}

	_, err := NewDetector(nil, "not-a-cidr")
	assert.Error(t, err)
}

func TestHeaders(t *testing.T) {
	cfg := DefaultHeadersConfig()
	cfg.PermissionsPolicy = ""
	h := Headers(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "https://unpkg.com")
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Empty(t, rec.Header().Values("Permissions-Policy"))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
	assert.Empty(t, rec.Header().Get("Cross-Origin-Embedder-Policy"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.TLS = &tls.ConnectionState{}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "max-age=31536000; includeSubDomains", rec.Header().Get("Strict-Transport-Security"))
}

func TestCacheControl(t *testing.T) {
	rec := httptest.NewRecorder()
	CacheControl(3600)(http.NotFoundHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/app.css", nil))
	assert.Equal(t, "public, max-age=3600", rec.Header().Get("Cache-Control"))
}
