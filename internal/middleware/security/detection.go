package security

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync/atomic"
)

var (
	pathPatterns = []string{
		"../", "..\\", ".env", ".git", ".ssh", "wp-admin", "phpmyadmin",
		"etc/passwd", "cmd.exe", "<script", "javascript:", "union select",
	}
	scannerAgents = []string{"sqlmap", "nmap", "nikto", "gobuster", "dirb", "masscan"}
	oddMethods    = []string{"TRACE", "TRACK", "DEBUG", "CONNECT"}

	defaultTrusted = []string{"127.0.0.0/8", "::1/128", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"}
)

const maxURLLength = 2048

// Detector flags probe-like requests and resolves the client address behind
// trusted proxies. It only observes; nothing is blocked.
type Detector struct {
	trusted    []netip.Prefix
	suspicious atomic.Int64
	logger     *slog.Logger
}

// NewDetector trusts loopback and private ranges plus any extra CIDRs.
func NewDetector(logger *slog.Logger, extraTrusted ...string) (*Detector, error) {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Detector{logger: logger}
	for _, cidr := range append(append([]string{}, defaultTrusted...), extraTrusted...) {
		p, err := netip.ParsePrefix(cidr)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy CIDR %s: %w", cidr, err)
		}
		d.trusted = append(d.trusted, p)
	}
	return d, nil
}

// Inspect returns why r looks like a probe, or "" when it does not.
func (d *Detector) Inspect(r *http.Request) string {
	path := strings.ToLower(r.URL.Path)
	query := strings.ToLower(r.URL.RawQuery)
	for _, p := range pathPatterns {
		if strings.Contains(path, p) || strings.Contains(query, p) {
			return "pattern " + p
		}
	}
	ua := strings.ToLower(r.Header.Get("User-Agent"))
	for _, a := range scannerAgents {
		if strings.Contains(ua, a) {
			return "scanner agent " + a
		}
	}
	for _, m := range oddMethods {
		if r.Method == m {
			return "method " + m
		}
	}
	if len(r.URL.String()) > maxURLLength {
		return "oversized url"
	}
	if strings.Count(r.Header.Get("X-Forwarded-For"), ",") > 5 {
		return "forwarding chain too long"
	}
	return ""
}

// Check logs and counts r when Inspect flags it.
func (d *Detector) Check(r *http.Request, clientIP string) bool {
	reason := d.Inspect(r)
	if reason == "" {
		return false
	}
	d.suspicious.Add(1)
	d.logger.WarnContext(r.Context(), "Suspicious request",
		"reason", reason,
		"method", r.Method,
		"path", r.URL.Path,
		"client_ip", clientIP)
	return true
}

// ClientIP returns the peer address, or the first forwarded address when the
// peer is a trusted proxy.
func (d *Detector) ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	peer, err := netip.ParseAddr(host)
	if err != nil || !d.isTrusted(peer.Unmap()) {
		return host
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if _, err := netip.ParseAddr(first); err == nil {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		if _, err := netip.ParseAddr(xri); err == nil {
			return xri
		}
	}
	return host
}

func (d *Detector) isTrusted(ip netip.Addr) bool {
	for _, p := range d.trusted {
		if p.Contains(ip) {
			return true
		}
	}
	return false
}

func (d *Detector) Suspicious() int64 {
	return d.suspicious.Load()
}
