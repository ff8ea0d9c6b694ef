// Package main is the entrypoint for the LambdaPulse API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kiranshivaraju/lambdapulse/internal/ai"
	"github.com/kiranshivaraju/lambdapulse/internal/api"
	"github.com/kiranshivaraju/lambdapulse/internal/api/handler"
	mw "github.com/kiranshivaraju/lambdapulse/internal/api/middleware"
	"github.com/kiranshivaraju/lambdapulse/internal/cache"
	"github.com/kiranshivaraju/lambdapulse/internal/config"
	"github.com/kiranshivaraju/lambdapulse/internal/lambdametrics"
	"github.com/kiranshivaraju/lambdapulse/internal/logs"
	"github.com/kiranshivaraju/lambdapulse/internal/logsource"
	"github.com/kiranshivaraju/lambdapulse/internal/logsource/cloudwatch"
	"github.com/kiranshivaraju/lambdapulse/internal/logsource/loki"
	"github.com/kiranshivaraju/lambdapulse/internal/metrics"
	"github.com/kiranshivaraju/lambdapulse/internal/secrets"
	"github.com/kiranshivaraju/lambdapulse/internal/store"
	"golang.org/x/sync/errgroup"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	slog.SetDefault(newLogger("info"))

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(level),
	}))
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func run() error {
	// 1. Load config; fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.SetDefault(newLogger(cfg.Server.LogLevel))
	slog.Info("config loaded",
		"ai_provider", cfg.AI.Provider,
		"log_source", cfg.LogSource.Kind,
		"env", cfg.Server.Env,
		"version", version,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database and apply migrations
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 3. Cache: Redis when configured, in-process otherwise
	ca, closeCache, err := newCache(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer closeCache()

	// 4. Credentials box, log source and metrics fetcher
	box, err := secrets.NewBox(cfg.AWS.CredentialsKey)
	if err != nil {
		return fmt.Errorf("load credentials key: %w", err)
	}
	resolver, sourceCheck := newResolver(cfg, box)

	// 5. AI client and summary service
	client, err := ai.NewClient(cfg.AI)
	if err != nil {
		return fmt.Errorf("create AI client: %w", err)
	}
	slog.Info("AI client initialized", "provider", client.Name(), "model", cfg.AI.DefaultModel())

	m := metrics.New()
	pgStore := store.NewPostgresStore(pool)
	logSvc := logs.NewService(resolver, ca, cfg.Cache.LogsTTL, m)
	summaries := ai.NewSummaryService(client, ca, cfg.Summary, cfg.AI.DefaultModel(), m)
	summaryHandlers := handler.NewSummaryHandlers(pgStore, summaries, logSvc, cfg.Summary.MaxLogs)

	// 6. Build router with dependencies
	checks := map[string]handler.Pinger{
		"database": pgStore,
		"cache":    ca,
	}
	if sourceCheck != nil {
		checks["log_source"] = sourceCheck
	}

	router := api.NewRouter(api.Dependencies{
		Auth:      mw.NewAuth(pgStore),
		RateLimit: mw.NewRateLimit(ca, cfg.Server.RateLimitPerMinute),
		Metrics:   m,

		HealthHandler:       handler.NewHealthHandler(version, checks),
		ListIntegrations:    handler.NewListIntegrationsHandler(pgStore),
		LogsHandler:         handler.NewLogsHandler(pgStore, logSvc),
		FunctionMetrics:     handler.NewFunctionMetricsHandler(pgStore, lambdametrics.NewFetcher(box, cfg.AWS.EndpointURL), ca, cfg.Cache.MetricsTTL),
		StartSummaryHandler: summaryHandlers.Start,
		SummaryStatus:       summaryHandlers.Status,
		ClearSummaryHandler: summaryHandlers.Clear,
	})

	// 7. Serve until a signal or a server error, then drain
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received, draining connections...")
		return shutdown(srv, summaries, cfg.Server.ShutdownTimeout)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("server stopped gracefully")
	return nil
}

// shutdown drains HTTP connections, then waits for summary tasks, both
// within one timeout.
func shutdown(srv *http.Server, summaries *ai.SummaryService, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	if err := summaries.Shutdown(ctx); err != nil {
		return fmt.Errorf("summary shutdown: %w", err)
	}
	return nil
}

func newCache(ctx context.Context, cfg config.RedisConfig) (cache.Cache, func(), error) {
	if cfg.URL == "" {
		slog.Warn("REDIS_URL not set, using in-process cache")
		return cache.NewMemoryCache(), func() {}, nil
	}

	rc, err := cache.NewRedisCache(cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("create redis cache: %w", err)
	}
	if err := rc.Ping(ctx); err != nil {
		rc.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")
	return rc, func() { rc.Close() }, nil
}

// newResolver returns the configured log source and, when the source can
// report readiness, a health check for it.
func newResolver(cfg *config.Config, box *secrets.Box) (logsource.Resolver, handler.Pinger) {
	if cfg.LogSource.Kind == "loki" {
		src := loki.New(loki.Options{
			BaseURL:       cfg.Loki.BaseURL,
			Username:      cfg.Loki.Username,
			Password:      cfg.Loki.Password,
			OrgID:         cfg.Loki.OrgID,
			FunctionLabel: cfg.Loki.FunctionLabel,
			Timeout:       cfg.Loki.Timeout,
		})
		return src, handler.PingFunc(src.Ready)
	}
	return cloudwatch.NewResolver(box, cfg.AWS.EndpointURL), nil
}
