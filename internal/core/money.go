package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

func init() {
	// The API reads amounts as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// ParseAmount reads a form amount. Both "12.34" and "12,34" are accepted and
// the result is rounded half-up to cents. Negative amounts are rejected.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: negative", ErrInvalidAmount)
	}
	return d.Round(2), nil
}

// FormatUSD renders a total the way the dashboard cards show it: "$1234.50".
func FormatUSD(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}
