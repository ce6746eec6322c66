package http

import (
	"errors"
	"net/http"

	"companyops/internal/apiclient"
	"companyops/internal/core"
	applog "companyops/internal/log"
	"companyops/internal/session"
)

const registeredNotice = "Account created, please sign in"

func newLoginView(register bool) loginView {
	return loginView{
		Register: register,
		Role:     core.RoleEmployee,
		Roles:    core.Roles(),
	}
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := session.FromContext(r.Context()); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	q := r.URL.Query()
	view := newLoginView(q.Get("mode") == "register")
	view.Error = sanitizeInput(q.Get("error"))
	view.Notice = sanitizeInput(q.Get("notice"))
	s.page(w, r, "login_page", view)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	p, resp := ParseBodyOrFail(w, r)
	if resp != nil {
		resp.Write(w)
		return
	}
	view := newLoginView(false)
	view.Email = p.Get("email")
	creds := apiclient.Credentials{Email: view.Email, Password: p.Get("password")}
	if creds.Email == "" || creds.Password == "" {
		view.Error = "Email and password are required"
		s.render(w, r, NewHTMXResponse().Status(http.StatusUnprocessableEntity), "login_page", view)
		return
	}

	ctx := r.Context()
	res, err := s.api.Login(ctx, creds)
	if err != nil {
		status, msg := classify(err)
		if errors.Is(err, core.ErrUnknownRole) {
			msg = "Your account has a role this dashboard does not know"
		}
		applog.FromContext(ctx).WarnContext(ctx, "Login failed",
			applog.FieldOperation, applog.OpLogin,
			applog.FieldUserEmail, creds.Email,
			applog.FieldStatusCode, status,
			applog.FieldError, err.Error())
		view.Error = msg
		s.render(w, r, NewHTMXResponse().Status(status), "login_page", view)
		return
	}

	if _, err := s.sessions.Begin(w, r, res); err != nil {
		requestEvents(ctx).LogError(ctx, "Session start failed", err, applog.OpLogin, applog.NewFields().WithActor(res.User.Email, string(res.User.Role)))
		view.Error = "Could not start a session, please retry"
		s.render(w, r, NewHTMXResponse().Status(http.StatusInternalServerError), "login_page", view)
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// handleRegister creates the account and returns to the sign-in form; it
// never signs the new user in.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	p, resp := ParseBodyOrFail(w, r)
	if resp != nil {
		resp.Write(w)
		return
	}
	view := newLoginView(true)
	view.Name = p.Get("name")
	view.Email = p.Get("email")

	role, err := core.ParseRole(p.Get("role"))
	if err != nil {
		view.Error = "Choose a role: employee or core"
		s.render(w, r, NewHTMXResponse().Status(http.StatusUnprocessableEntity), "login_page", view)
		return
	}
	view.Role = role
	reg := apiclient.Registration{Name: view.Name, Email: view.Email, Password: p.Get("password"), Role: role}
	if reg.Name == "" || reg.Email == "" || reg.Password == "" {
		view.Error = "Name, email and password are required"
		s.render(w, r, NewHTMXResponse().Status(http.StatusUnprocessableEntity), "login_page", view)
		return
	}

	ctx := r.Context()
	if err := s.api.Register(ctx, reg); err != nil {
		status, msg := classify(err)
		applog.FromContext(ctx).WarnContext(ctx, "Registration failed",
			applog.FieldOperation, applog.OpRegister,
			applog.FieldUserEmail, reg.Email,
			applog.FieldStatusCode, status,
			applog.FieldError, err.Error())
		view.Error = msg
		s.render(w, r, NewHTMXResponse().Status(status), "login_page", view)
		return
	}

	applog.FromContext(ctx).InfoContext(ctx, "Account registered",
		applog.FieldOperation, applog.OpRegister,
		applog.FieldUserEmail, reg.Email,
		applog.FieldRole, string(role))
	done := newLoginView(false)
	done.Email = reg.Email
	done.Notice = registeredNotice
	s.page(w, r, "login_page", done)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if sess, ok := session.FromContext(ctx); ok {
		applog.FromContext(ctx).InfoContext(ctx, "Signed out",
			applog.FieldOperation, applog.OpLogout,
			applog.FieldUserEmail, sess.User.Email)
	}
	s.sessions.End(w, r)
	session.RedirectToLogin(w, r, "")
}
