package http

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"companyops/internal/core"
	applog "companyops/internal/log"
	"companyops/internal/resource"
	"companyops/internal/session"
)

// Element ids the list partials replace. A GET whose HX-Target is one of
// them gets only the list back instead of the whole panel.
const (
	tasksListID   = "tasks-list"
	reportsListID = "reports-list"
	salaryListID  = "salary-list"
	financeListID = "finance-list"
)

func partial(r *http.Request, listID, panel, list string) string {
	if r.Header.Get("HX-Target") == listID {
		return list
	}
	return panel
}

// failed renders tmpl after an error. A 401 has already redirected to the
// login page; anything else is shown inline and as a toast.
func (s *Server) failed(w http.ResponseWriter, r *http.Request, err error, op, resourceName, tmpl string, view func(msg string) any) {
	s.failedWith(w, r, NewHTMXResponse(), err, op, resourceName, tmpl, view)
}

func (s *Server) failedWith(w http.ResponseWriter, r *http.Request, b *HTMXResponseBuilder, err error, op, resourceName, tmpl string, view func(msg string) any) {
	status, msg, handled := s.apiFailure(w, r, err, op, resourceName)
	if handled {
		return
	}
	s.render(w, r, b.Status(status).TriggerErrorNotification(msg), tmpl, view(msg))
}

// createFailed reports a failed create. When only the reload failed the
// record exists, so the form is cleared and, for writes that feed the
// analytics, the cached summary is dropped and the charts refresh.
func (s *Server) createFailed(w http.ResponseWriter, r *http.Request, err error, resourceName, tmpl string, view func(msg string) any, feedsAnalytics bool) {
	b := NewHTMXResponse()
	if errors.Is(err, resource.ErrReload) {
		b.TriggerFormReset()
		if feedsAnalytics {
			s.invalidateAnalytics(r)
			b.TriggerAnalyticsRefresh()
		}
	}
	s.failedWith(w, r, b, err, applog.OpCreate, resourceName, tmpl, view)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	role := sess.User.Role
	active := role.ResolveTab(r.URL.Query().Get("tab"))

	view := dashboardView{User: sess.User, Active: active}
	for _, t := range role.Tabs() {
		view.Tabs = append(view.Tabs, tabView{Tab: t, Title: t.Title(), Active: t == active})
	}
	s.page(w, r, "dashboard_page", view)
}

// Tasks

func newTasksView(sess *session.Session, assignee string) tasksView {
	role := sess.User.Role
	v := tasksView{
		Statuses:     core.TaskStatuses(),
		CanFilter:    role.Can(core.CapFilterTasks),
		CanCreate:    role.Can(core.CapCreateTasks),
		ShowAssignee: role.Can(core.CapSeeTaskAssignee),
		CanUpdate:    role.Can(core.CapUpdateTaskStatus),
	}
	if v.CanFilter {
		v.Assignee = assignee
	}
	return v
}

func (v tasksView) query() url.Values {
	q := url.Values{}
	if v.Assignee != "" {
		q.Set("assignee", v.Assignee)
	}
	return q
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	view := newTasksView(sess, sanitizeInput(r.URL.Query().Get("assignee")))
	tmpl := partial(r, tasksListID, "tasks_panel", "tasks_list")

	items, err := s.resources.Tasks.Load(r.Context(), sess, view.query())
	if err != nil {
		s.failed(w, r, err, applog.OpList, s.resources.Tasks.Name(), tmpl, func(msg string) any {
			view.Items, view.Error = []core.Task{}, msg
			return view
		})
		return
	}
	view.Items = items
	s.page(w, r, tmpl, view)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	p, resp := ParseBodyOrFail(w, r)
	if resp != nil {
		resp.Write(w)
		return
	}
	sess := currentSession(r)
	ctx := r.Context()
	view := newTasksView(sess, p.Get("assignee"))
	onError := func(msg string) any {
		view.Items, view.Error = loadQuietly(ctx, s.resources.Tasks, sess, view.query()), msg
		return view
	}

	in := core.NewTask{
		Title:         p.Get("title"),
		Description:   p.Get("description"),
		AssigneeEmail: p.Get("assignee_email"),
	}
	if err := in.Validate(); err != nil {
		s.failed(w, r, err, applog.OpCreate, s.resources.Tasks.Name(), "tasks_list", onError)
		return
	}

	items, err := s.resources.Tasks.Create(ctx, sess, resource.Mutation{
		Payload: in,
		Subject: in.Title + " for " + in.AssigneeEmail,
		Reload:  view.query(),
	})
	if err != nil {
		s.createFailed(w, r, err, s.resources.Tasks.Name(), "tasks_list", onError, false)
		return
	}
	s.logMutation(r, sess, applog.OpCreate, s.resources.Tasks.Name(), "")
	view.Items = items
	s.render(w, r, NewHTMXResponse().TriggerFormReset().TriggerSuccessNotification("Task created"), "tasks_list", view)
}

func (s *Server) handleUpdateTaskStatus(w http.ResponseWriter, r *http.Request) {
	p, resp := ParseBodyOrFail(w, r)
	if resp != nil {
		resp.Write(w)
		return
	}
	sess := currentSession(r)
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	view := newTasksView(sess, p.Get("assignee"))
	onError := func(msg string) any {
		view.Items, view.Error = loadQuietly(ctx, s.resources.Tasks, sess, view.query()), msg
		return view
	}

	change := core.TaskStatusChange{Status: core.TaskStatus(p.Get("status"))}
	if err := change.Validate(); err != nil {
		s.failed(w, r, err, applog.OpUpdate, s.resources.Tasks.Name(), "tasks_list", onError)
		return
	}

	items, err := s.resources.Tasks.Update(ctx, sess, resource.Mutation{
		Action:  core.ActionStatusChanged,
		ID:      id,
		Payload: change,
		Subject: id + " -> " + string(change.Status),
		Reload:  view.query(),
	})
	if err != nil {
		s.failed(w, r, err, applog.OpUpdate, s.resources.Tasks.Name(), "tasks_list", onError)
		return
	}
	s.logMutation(r, sess, applog.OpUpdate, s.resources.Tasks.Name(), id)
	view.Items = items
	s.page(w, r, "tasks_list", view)
}

// Reports

func newReportsView(sess *session.Session) reportsView {
	return reportsView{
		CanSubmit:    sess.User.Role.Can(core.CapSubmitReports),
		DefaultHours: core.DefaultHoursWorked,
	}
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	view := newReportsView(sess)
	tmpl := partial(r, reportsListID, "reports_panel", "reports_list")

	items, err := s.resources.Reports.Load(r.Context(), sess, nil)
	if err != nil {
		s.failed(w, r, err, applog.OpList, s.resources.Reports.Name(), tmpl, func(msg string) any {
			view.Items, view.Error = []core.Report{}, msg
			return view
		})
		return
	}
	view.Items = items
	s.page(w, r, tmpl, view)
}

func (s *Server) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	p, resp := ParseBodyOrFail(w, r)
	if resp != nil {
		resp.Write(w)
		return
	}
	sess := currentSession(r)
	ctx := r.Context()
	view := newReportsView(sess)
	onError := func(msg string) any {
		view.Items, view.Error = loadQuietly(ctx, s.resources.Reports, sess, nil), msg
		return view
	}

	hours, err := p.Float("hours_worked", core.DefaultHoursWorked)
	if err != nil {
		s.failed(w, r, err, applog.OpCreate, s.resources.Reports.Name(), "reports_list", onError)
		return
	}
	in := core.NewReport{Date: p.Get("date"), Summary: p.Get("summary"), HoursWorked: hours}
	if err := in.Validate(); err != nil {
		s.failed(w, r, err, applog.OpCreate, s.resources.Reports.Name(), "reports_list", onError)
		return
	}

	items, err := s.resources.Reports.Create(ctx, sess, resource.Mutation{
		Payload: in,
		Subject: "report for " + in.Date,
	})
	if err != nil {
		s.createFailed(w, r, err, s.resources.Reports.Name(), "reports_list", onError, false)
		return
	}
	s.logMutation(r, sess, applog.OpCreate, s.resources.Reports.Name(), "")
	view.Items = items
	s.render(w, r, NewHTMXResponse().TriggerFormReset().TriggerSuccessNotification("Report submitted"), "reports_list", view)
}

// Salary

func newSalaryView(sess *session.Session) salaryView {
	return salaryView{
		Statuses:  core.SalaryStatuses(),
		CanCreate: sess.User.Role.Can(core.CapCreateSalary),
	}
}

func (s *Server) handleSalary(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	view := newSalaryView(sess)
	tmpl := partial(r, salaryListID, "salary_panel", "salary_list")

	items, err := s.resources.Salary.Load(r.Context(), sess, nil)
	if err != nil {
		s.failed(w, r, err, applog.OpList, s.resources.Salary.Name(), tmpl, func(msg string) any {
			view.Items, view.Error = []core.SalaryRecord{}, msg
			return view
		})
		return
	}
	view.Items = items
	s.page(w, r, tmpl, view)
}

func (s *Server) handleCreateSalary(w http.ResponseWriter, r *http.Request) {
	p, resp := ParseBodyOrFail(w, r)
	if resp != nil {
		resp.Write(w)
		return
	}
	sess := currentSession(r)
	ctx := r.Context()
	view := newSalaryView(sess)
	onError := func(msg string) any {
		view.Items, view.Error = loadQuietly(ctx, s.resources.Salary, sess, nil), msg
		return view
	}

	amount, err := p.Amount("amount")
	if err != nil {
		s.failed(w, r, err, applog.OpCreate, s.resources.Salary.Name(), "salary_list", onError)
		return
	}
	status := core.SalaryStatus(p.Get("status"))
	if status == "" {
		status = core.SalaryPaid
	}
	in := core.NewSalaryRecord{
		EmployeeEmail: p.Get("employee_email"),
		Amount:        amount,
		Month:         p.Get("month"),
		Notes:         p.Get("notes"),
		Status:        status,
	}
	if err := in.Validate(); err != nil {
		s.failed(w, r, err, applog.OpCreate, s.resources.Salary.Name(), "salary_list", onError)
		return
	}

	items, err := s.resources.Salary.Create(ctx, sess, resource.Mutation{
		Payload: in,
		Subject: in.EmployeeEmail + " " + in.Month + " " + core.FormatUSD(in.Amount),
	})
	if err != nil {
		s.createFailed(w, r, err, s.resources.Salary.Name(), "salary_list", onError, true)
		return
	}
	s.invalidateAnalytics(r)
	s.logMutation(r, sess, applog.OpCreate, s.resources.Salary.Name(), "")
	view.Items = items
	s.render(w, r, NewHTMXResponse().
		TriggerFormReset().
		TriggerAnalyticsRefresh().
		TriggerSuccessNotification("Payment added"), "salary_list", view)
}
