package http

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"companyops/internal/resource"
)

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		// Keep tab, newline and carriage return.
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// parseMonths reads ?months=N, clamped to 1..24; anything else means def.
func parseMonths(raw string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return def
	}
	if n > 24 {
		return 24
	}
	return n
}

// loadQuietly refetches a collection for an error view. A failure yields an
// empty list: the caller is already reporting a more relevant error.
func loadQuietly[T any](ctx context.Context, c *resource.Collection[T], who resource.Identity, query url.Values) []T {
	items, err := c.Load(ctx, who, query)
	if err != nil {
		return []T{}
	}
	return items
}
