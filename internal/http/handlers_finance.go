package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"companyops/internal/apiclient"
	"companyops/internal/chart"
	"companyops/internal/core"
	applog "companyops/internal/log"
	"companyops/internal/resource"
	"companyops/internal/session"
)

const analyticsKeyPrefix = "analytics:"

func analyticsKey(sessionID string, months int) string {
	return analyticsKeyPrefix + sessionID + ":" + strconv.Itoa(months)
}

// analyticsSummary serves the summary from cache when a fresh copy exists.
// Entries are per session: the API decides what each token may see.
func (s *Server) analyticsSummary(ctx context.Context, sess *session.Session, months int) (core.AnalyticsSummary, error) {
	key := analyticsKey(sess.ID, months)
	if a, ok := s.analytics.Get(key); ok {
		applog.FromContext(ctx).DebugContext(ctx, "Analytics cache hit", "months", months)
		return a, nil
	}
	a, err := s.api.AnalyticsSummary(ctx, sess.Token, months)
	if err != nil {
		return core.AnalyticsSummary{}, err
	}
	if !a.Aligned() {
		applog.FromContext(ctx).WarnContext(ctx, "Analytics series do not match the month labels",
			"months", len(a.Months))
	}
	s.analytics.Set(key, a)
	return a, nil
}

func (s *Server) invalidateAnalytics(r *http.Request) {
	n := s.analytics.DeleteFunc(func(key string) bool {
		return strings.HasPrefix(key, analyticsKeyPrefix)
	})
	if n > 0 {
		ctx := r.Context()
		applog.FromContext(ctx).DebugContext(ctx, "Analytics cache invalidated", "entries_removed", n)
	}
}

func newFinanceView(sess *session.Session) financeView {
	return financeView{
		Kinds:     core.FinanceKinds(),
		CanCreate: sess.User.Role.Can(core.CapViewFinance),
	}
}

const financeForbiddenMessage = "Finance is available to Core users only"

func canViewFinance(r *http.Request) bool {
	sess, ok := session.FromContext(r.Context())
	return ok && sess.User.Role.Can(core.CapViewFinance)
}

func logFinanceRefused(r *http.Request) {
	ctx := r.Context()
	sess := currentSession(r)
	role := ""
	if sess != nil {
		role = string(sess.User.Role)
	}
	applog.FromContext(ctx).InfoContext(ctx, "Request refused",
		applog.FieldResource, "finance",
		applog.FieldStatusCode, http.StatusForbidden,
		"role", role)
}

// requireFinance answers 403 for roles without finance access. The API is
// not called.
func requireFinance(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !canViewFinance(r) {
			logFinanceRefused(r)
			ErrorResponse(http.StatusForbidden, financeForbiddenMessage).Write(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleFinance loads the entries and the analytics summary concurrently. A
// failed summary only blanks the totals and charts.
func (s *Server) handleFinance(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	months := parseMonths(r.URL.Query().Get("months"), s.months)
	view := newFinanceView(sess)
	tmpl := partial(r, financeListID, "finance_panel", "finance_list")

	var (
		items      []core.FinanceEntry
		summary    core.AnalyticsSummary
		summaryErr error
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		items, err = s.resources.Finance.Load(ctx, sess, nil)
		return err
	})
	if tmpl == "finance_panel" {
		g.Go(func() error {
			summary, summaryErr = s.analyticsSummary(ctx, sess, months)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.failed(w, r, err, applog.OpList, s.resources.Finance.Name(), tmpl, func(msg string) any {
			view.Items, view.Error = []core.FinanceEntry{}, msg
			view.Analytics = newAnalyticsView(core.AnalyticsSummary{}, months)
			return view
		})
		return
	}
	view.Items = items
	view.Analytics = newAnalyticsView(summary, months)
	if summaryErr != nil {
		_, msg, handled := s.apiFailure(w, r, summaryErr, applog.OpList, "analytics")
		if handled {
			return
		}
		view.Analytics.Error = msg
	}
	s.page(w, r, tmpl, view)
}

// handleFinanceAnalytics re-renders the totals and charts, e.g. after a write.
func (s *Server) handleFinanceAnalytics(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	months := parseMonths(r.URL.Query().Get("months"), s.months)

	summary, err := s.analyticsSummary(r.Context(), sess, months)
	if err != nil {
		s.failed(w, r, err, applog.OpList, "analytics", "finance_analytics", func(msg string) any {
			v := newAnalyticsView(core.AnalyticsSummary{}, months)
			v.Error = msg
			return v
		})
		return
	}
	s.page(w, r, "finance_analytics", newAnalyticsView(summary, months))
}

func (s *Server) handleCreateFinance(w http.ResponseWriter, r *http.Request) {
	p, resp := ParseBodyOrFail(w, r)
	if resp != nil {
		resp.Write(w)
		return
	}
	sess := currentSession(r)
	ctx := r.Context()
	view := newFinanceView(sess)
	onError := func(msg string) any {
		view.Items, view.Error = loadQuietly(ctx, s.resources.Finance, sess, nil), msg
		return view
	}

	amount, err := p.Amount("amount")
	if err != nil {
		s.failed(w, r, err, applog.OpCreate, s.resources.Finance.Name(), "finance_list", onError)
		return
	}
	kind := core.FinanceKind(p.Get("kind"))
	if kind == "" {
		kind = core.KindRevenue
	}
	in := core.NewFinanceEntry{
		Kind:        kind,
		Amount:      amount,
		Category:    p.Get("category"),
		Description: p.Get("description"),
		Reference:   p.Get("reference"),
	}
	if err := in.Validate(); err != nil {
		s.failed(w, r, err, applog.OpCreate, s.resources.Finance.Name(), "finance_list", onError)
		return
	}

	items, err := s.resources.Finance.Create(ctx, sess, resource.Mutation{
		Payload: in,
		Subject: string(in.Kind) + " " + core.FormatUSD(in.Amount) + " " + in.Category,
	})
	if err != nil {
		s.createFailed(w, r, err, s.resources.Finance.Name(), "finance_list", onError, true)
		return
	}
	s.invalidateAnalytics(r)
	s.logMutation(r, sess, applog.OpCreate, s.resources.Finance.Name(), "")
	view.Items = items
	s.render(w, r, NewHTMXResponse().
		TriggerFormReset().
		TriggerAnalyticsRefresh().
		TriggerSuccessNotification("Entry added"), "finance_list", view)
}

type chartsResponse struct {
	Months            []string          `json:"months"`
	Totals            map[string]string `json:"totals"`
	RevenueVsExpenses chart.Chart       `json:"revenue_vs_expenses"`
	Salary            chart.Chart       `json:"salary"`
}

// handleAnalyticsCharts serves both finance charts as JSON.
func (s *Server) handleAnalyticsCharts(w http.ResponseWriter, r *http.Request) {
	if !canViewFinance(r) {
		logFinanceRefused(r)
		writeJSONError(w, http.StatusForbidden, financeForbiddenMessage)
		return
	}
	sess := currentSession(r)
	months := parseMonths(r.URL.Query().Get("months"), s.months)

	summary, err := s.analyticsSummary(r.Context(), sess, months)
	if err != nil {
		if errors.Is(err, apiclient.ErrUnauthorized) {
			s.sessions.End(w, r)
			writeJSONError(w, http.StatusUnauthorized, session.ExpiredMessage)
			return
		}
		status, msg, _ := s.apiFailure(w, r, err, applog.OpList, "analytics")
		writeJSONError(w, status, msg)
		return
	}

	t := summary.Totals()
	rve, sal := financeCharts(summary)
	labels := summary.Months
	if labels == nil {
		labels = []string{}
	}
	writeJSON(w, http.StatusOK, chartsResponse{
		Months: labels,
		Totals: map[string]string{
			"revenue": core.FormatUSD(t.Revenue),
			"expense": core.FormatUSD(t.Expense),
			"salary":  core.FormatUSD(t.Salary),
			"net":     core.FormatUSD(t.Net),
		},
		RevenueVsExpenses: rve,
		Salary:            sal,
	})
}

// requireAPISession answers 401 JSON instead of redirecting.
func requireAPISession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := session.FromContext(r.Context()); !ok {
			writeJSONError(w, http.StatusUnauthorized, "Not signed in")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
