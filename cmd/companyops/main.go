package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"companyops/internal/amqp"
	"companyops/internal/apiclient"
	"companyops/internal/cache"
	"companyops/internal/cli"
	"companyops/internal/config"
	apphttp "companyops/internal/http"
	applog "companyops/internal/log"
	"companyops/internal/resource"
	"companyops/internal/session"
)

var cfgPath string

func main() {
	rootCmd := &cobra.Command{
		Use:          "companyops",
		Short:        "Serve the Company Ops dashboard",
		SilenceUsage: true,
		RunE:         runServer,
	}
	rootCmd.Flags().StringVarP(&cfgPath, "config", "c", "", "Path to a config file (yaml, toml or json); environment variables win")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServer(_ *cobra.Command, _ []string) error {
	cli.LoadEnvFile()

	cfg, err := cli.LoadConfig(cfgPath)
	if err != nil {
		return err
	}
	logger := cli.SetupLogger(cfg, applog.ComponentApp)

	caches := cache.NewManager(logger.WithComponent(applog.ComponentCache).Slog())
	store, closeStore := sessionStore(cfg, caches)
	defer closeStore()

	sessions, err := session.NewManager(store, session.Config{
		Secret:       cfg.SessionSecret,
		TTL:          cfg.SessionTTL,
		SecureCookie: cfg.SessionCookieSecure,
	}, logger.WithComponent(applog.ComponentSession).Slog())
	if err != nil {
		return err
	}

	api := apiclient.New(cfg.APIBaseURL,
		apiclient.WithTimeout(cfg.APITimeout),
		apiclient.WithLogger(logger.WithComponent(applog.ComponentAPIClient).Slog()))

	recorder, closeRecorder := auditRecorder(cfg, logger)
	defer closeRecorder()

	srv, err := apphttp.NewServer(apphttp.Config{
		Addr:               ":" + cfg.Port,
		AllowedOrigins:     cfg.CORSAllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		AnalyticsMonths:    cfg.AnalyticsMonths,
		AnalyticsCacheTTL:  cfg.AnalyticsCacheTTL,
	}, apphttp.Deps{
		API: api,
		Resources: resource.NewSet(api,
			resource.WithRecorder(recorder),
			resource.WithLogger(logger.WithComponent(applog.ComponentHTTP).Slog())),
		Sessions: sessions,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	caches.Register("analytics", srv.Analytics())
	caches.StartCleanup(time.Minute)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		caches.Stop()
	})

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting companyops server",
			"port", cfg.Port,
			"api_base_url", cfg.APIBaseURL,
			"session_store", cfg.SessionStore,
			"audit", cfg.AuditEnabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		return err
	case <-ctx.Done():
	}
	<-done
	logger.Info("Server stopped gracefully")
	return nil
}

// sessionStore builds the configured store. The in-memory store's cache is
// swept by caches; Redis expires keys on its own.
func sessionStore(cfg *config.Config, caches *cache.Manager) (session.Store, func()) {
	if cfg.SessionStore == config.SessionStoreRedis {
		rs := session.NewRedisStore(session.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		return rs, func() { _ = rs.Close() }
	}
	ms := session.NewMemoryStore(10000)
	caches.Register("sessions", ms.Cache())
	return ms, func() {}
}

// auditRecorder always logs audit events and also queues them for the broker
// when one is configured. A broker that cannot be reached at start-up is
// reported and skipped.
func auditRecorder(cfg *config.Config, logger *applog.Logger) (resource.Recorder, func()) {
	logRecorder := resource.LogRecorder{Logger: logger.WithComponent(applog.ComponentApp).Slog()}
	if !cfg.AuditEnabled() {
		return logRecorder, func() {}
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue,
		logger.WithComponent(applog.ComponentAMQP).Slog())
	if err != nil {
		logger.Warn("AMQP unavailable, audit events will only be logged", applog.FieldError, err)
		return logRecorder, func() {}
	}
	queue := amqp.NewAuditQueue(client, 256, logger.WithComponent(applog.ComponentAMQP).Slog())
	logger.Info("Publishing audit events", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return resource.MultiRecorder{logRecorder, queue}, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := queue.Close(ctx); err != nil {
			logger.Warn("Audit events left unpublished", applog.FieldError, err)
		}
		published, failed, dropped := queue.Stats()
		logger.Info("Audit queue closed", "published", published, "failed", failed, "dropped", dropped)
		_ = client.Close()
	}
}
