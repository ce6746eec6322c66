package http

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"

	"companyops/internal/apiclient"
	"companyops/internal/cache"
	"companyops/internal/core"
	applog "companyops/internal/log"
	"companyops/internal/middleware/ratelimit"
	"companyops/internal/middleware/security"
	"companyops/internal/middleware/trace"
	"companyops/internal/resource"
	"companyops/internal/session"
	appweb "companyops/web"
)

// Config holds the listener and policy settings of the dashboard server.
type Config struct {
	Addr               string
	AllowedOrigins     []string
	RateLimitPerMinute int
	AnalyticsMonths    int
	AnalyticsCacheTTL  time.Duration
	// TrustedProxies are extra CIDRs whose forwarding headers are believed.
	TrustedProxies []string
}

// Deps are the collaborators the handlers call.
type Deps struct {
	API       *apiclient.Client
	Resources resource.Set
	Sessions  *session.Manager
	// Analytics may be nil, in which case one is built from Config.
	Analytics *cache.LRU[core.AnalyticsSummary]
	Logger    *applog.Logger
}

type Server struct {
	http.Server
	templates *template.Template
	api       *apiclient.Client
	resources resource.Set
	sessions  *session.Manager
	analytics *cache.LRU[core.AnalyticsSummary]
	months    int

	logger   *applog.Logger
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	started  time.Time

	shutdownOnce sync.Once
}

// NewServer parses the embedded templates and wires the router.
func NewServer(cfg Config, deps Deps) (*Server, error) {
	if deps.API == nil || deps.Sessions == nil {
		return nil, errors.New("http server needs an API client and a session manager")
	}
	logger := deps.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	months := cfg.AnalyticsMonths
	if months < 1 {
		months = core.DefaultAnalyticsMonths
	}
	analytics := deps.Analytics
	if analytics == nil {
		ttl := cfg.AnalyticsCacheTTL
		if ttl <= 0 {
			ttl = time.Minute
		}
		analytics = cache.NewLRU[core.AnalyticsSummary](256, ttl)
	}

	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	detector, err := security.NewDetector(logger.WithComponent(applog.ComponentSecurity).Slog(), cfg.TrustedProxies...)
	if err != nil {
		return nil, fmt.Errorf("security detector: %w", err)
	}

	rl := ratelimit.DefaultConfig()
	if cfg.RateLimitPerMinute > 0 {
		rl.RequestsPerMinute = cfg.RateLimitPerMinute
	}

	s := &Server{
		Server: http.Server{
			Addr:              cfg.Addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		templates: tmpl,
		api:       deps.API,
		resources: deps.Resources,
		sessions:  deps.Sessions,
		analytics: analytics,
		months:    months,
		logger:    logger,
		limiter:   ratelimit.NewLimiter(rl),
		detector:  detector,
		started:   time.Now(),
	}
	s.tracer = trace.NewMiddleware(logger, detector.ClientIP, func(r *http.Request, clientIP string) {
		detector.Check(r, clientIP)
	})
	s.Handler = s.routes(cfg)
	return s, nil
}

func (s *Server) routes(cfg Config) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.CleanPath)
	r.Use(s.tracer.Handler)
	r.Use(applog.Middleware(s.logger))
	r.Use(applog.RequestIDMiddleware(trace.RequestIDFromRequest))
	r.Use(httplog.RequestLogger(s.logger.Slog(), &httplog.Options{
		Level:  slog.LevelInfo,
		Schema: httplog.SchemaECS,
		Skip: func(req *http.Request, respStatus int) bool {
			return respStatus < 400 && (req.URL.Path == "/healthz" || req.URL.Path == "/readyz")
		},
	}))
	r.Use(chiMiddleware.Recoverer)
	r.Use(security.Headers(security.DefaultHeadersConfig()))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("Page not found").Write(w)
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		r.With(security.CacheControl(3600)).
			Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(sub))))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	r.Group(func(r chi.Router) {
		r.Use(s.limiter.Middleware(s.detector.ClientIP, s.handleRateLimited))
		r.Use(s.sessions.Verifier())
		r.Use(s.sessions.Load)

		r.Get("/", s.handleIndex)
		r.Get("/login", s.handleLoginPage)
		r.Post("/login", s.handleLogin)
		r.Post("/register", s.handleRegister)
		r.Get("/logout", s.handleLogout)
		r.Post("/logout", s.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(s.sessions.Require)
			r.Get("/dashboard", s.handleDashboard)

			r.Route("/ui", func(r chi.Router) {
				r.Get("/tasks", s.handleTasks)
				r.Post("/tasks", s.handleCreateTask)
				r.Patch("/tasks/{id}", s.handleUpdateTaskStatus)

				r.Get("/reports", s.handleReports)
				r.Post("/reports", s.handleCreateReport)

				r.Get("/salary", s.handleSalary)
				r.Post("/salary", s.handleCreateSalary)

				r.Group(func(r chi.Router) {
					r.Use(requireFinance)
					r.Get("/finance", s.handleFinance)
					r.Post("/finance", s.handleCreateFinance)
					r.Get("/finance/analytics", s.handleFinanceAnalytics)
				})
			})
		})

		r.Route("/api", func(r chi.Router) {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins:   cfg.AllowedOrigins,
				AllowCredentials: true,
				AllowedMethods:   []string{http.MethodGet, http.MethodOptions},
				AllowedHeaders:   []string{"Accept", "Content-Type", trace.HeaderRequestID},
				ExposedHeaders:   []string{trace.HeaderRequestID},
				MaxAge:           300,
			}))
			r.Use(requireAPISession)
			r.Get("/analytics/charts", s.handleAnalyticsCharts)
		})
	})

	return r
}

func parseTemplates() (*template.Template, error) {
	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return t, nil
}

// Shutdown stops the background loops and drains the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// Analytics exposes the summary cache so the caller can register it for sweeping.
func (s *Server) Analytics() *cache.LRU[core.AnalyticsSummary] {
	return s.analytics
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	TooManyRequestsError("Too many changes in a short time, please wait a minute").Write(w)
}
