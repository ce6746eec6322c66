package apiclient

import (
	"context"
	"net/url"
	"strconv"

	"companyops/internal/core"
)

// AnalyticsSummary fetches the monthly aggregation over the last months.
func (c *Client) AnalyticsSummary(ctx context.Context, token string, months int) (core.AnalyticsSummary, error) {
	if months < 1 {
		months = core.DefaultAnalyticsMonths
	}
	var out core.AnalyticsSummary
	q := url.Values{"months": {strconv.Itoa(months)}}
	if err := c.Get(ctx, token, "/analytics/summary", q, &out); err != nil {
		return core.AnalyticsSummary{}, err
	}
	return out, nil
}
