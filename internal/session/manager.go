package session

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"companyops/internal/apiclient"
)

const (
	// CookieName is the cookie jwtauth.TokenFromCookie reads.
	CookieName = "jwt"
	claimSID   = "sid"

	ExpiredMessage = "Session expired, please sign in again"
)

type Config struct {
	Secret       string
	TTL          time.Duration
	SecureCookie bool
}

// Manager ties the store to the signed cookie.
type Manager struct {
	store  Store
	auth   *jwtauth.JWTAuth
	ttl    time.Duration
	secure bool
	logger *slog.Logger
	now    func() time.Time
}

func NewManager(store Store, cfg Config, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	secret := []byte(cfg.Secret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("generate session secret: %w", err)
		}
		logger.Warn("SESSION_SECRET not set, using a random secret; sessions will not survive restarts")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Manager{
		store:  store,
		auth:   jwtauth.New("HS256", secret, nil, jwt.WithAcceptableSkew(30*time.Second)),
		ttl:    ttl,
		secure: cfg.SecureCookie,
		logger: logger,
		now:    time.Now,
	}, nil
}

func (m *Manager) Store() Store { return m.store }

// Begin creates a session from a successful login and sets the cookie.
func (m *Manager) Begin(w http.ResponseWriter, r *http.Request, res apiclient.LoginResult) (*Session, error) {
	now := m.now().UTC()
	s := &Session{
		ID:        uuid.NewString(),
		Token:     res.Token,
		User:      res.User,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.store.Save(r.Context(), s); err != nil {
		return nil, fmt.Errorf("begin session: %w", err)
	}

	claims := map[string]any{claimSID: s.ID, "sub": s.User.Email}
	jwtauth.SetIssuedAt(claims, now)
	jwtauth.SetExpiry(claims, s.ExpiresAt)
	_, signed, err := m.auth.Encode(claims)
	if err != nil {
		return nil, fmt.Errorf("sign session cookie: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    signed,
		Path:     "/",
		Expires:  s.ExpiresAt,
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	m.logger.InfoContext(r.Context(), "Session started",
		"session_id", s.ID,
		"user_email", s.User.Email,
		"role", s.User.Role)
	return s, nil
}

// End destroys the current session, if any, and expires the cookie.
func (m *Manager) End(w http.ResponseWriter, r *http.Request) {
	if s, ok := FromContext(r.Context()); ok {
		if err := m.store.Delete(r.Context(), s.ID); err != nil {
			m.logger.WarnContext(r.Context(), "Session delete failed", "session_id", s.ID, "error", err)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Verifier parses the cookie into the request context.
func (m *Manager) Verifier() func(http.Handler) http.Handler {
	return jwtauth.Verify(m.auth, jwtauth.TokenFromCookie)
}

// Load resolves the verified cookie to a stored session. Requests without a
// valid session pass through unchanged; Require decides what to do with them.
func (m *Manager) Load(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := m.resolve(r.Context())
		if err != nil {
			if !errors.Is(err, ErrNotFound) && !errors.Is(err, jwtauth.ErrNoTokenFound) {
				m.logger.DebugContext(r.Context(), "Session not resolved", "error", err)
			}
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), s)))
	})
}

func (m *Manager) resolve(ctx context.Context) (*Session, error) {
	token, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	if token == nil {
		return nil, ErrNotFound
	}
	sid, _ := claims[claimSID].(string)
	if sid == "" {
		return nil, ErrNotFound
	}
	return m.store.Get(ctx, sid)
}

// Require sends requests without a session to the login page.
func (m *Manager) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := FromContext(r.Context()); !ok {
			RedirectToLogin(w, r, "")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Expire tears down the session after the API rejected its token.
func (m *Manager) Expire(w http.ResponseWriter, r *http.Request) {
	m.End(w, r)
	RedirectToLogin(w, r, ExpiredMessage)
}

// RedirectToLogin redirects to /login, using HX-Redirect for htmx requests so
// the whole page navigates instead of a panel swap.
func RedirectToLogin(w http.ResponseWriter, r *http.Request, message string) {
	target := "/login"
	if message != "" {
		target += "?" + url.Values{"error": {message}}.Encode()
	}
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
