package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/okian/upshot/internal/adapters/http/api"
	"github.com/okian/upshot/internal/adapters/http/swagger"
	"github.com/okian/upshot/internal/adapters/repository"
	app "github.com/okian/upshot/internal/app"
	"github.com/okian/upshot/internal/config"
	"github.com/okian/upshot/internal/domain/fetch"
	"github.com/okian/upshot/pkg/logger"
	"github.com/okian/upshot/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	minWriteTimeout           = 30 * time.Second
	writeTimeoutSlack         = 5 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Load configuration (defaults -> optional file -> env)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		// logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	loggerInstance := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		loggerInstance.Fatal(ctx, "failed to open counter store",
			logger.String("backend", cfg.StoreBackend),
			logger.Error(err),
		)
	}

	svc := newService(cfg, store, loggerInstance)
	if err := svc.Start(ctx); err != nil {
		loggerInstance.Fatal(ctx, "failed to start service", logger.Error(err))
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx, metrics.RefreshInterval())
	go startServiceMetricsUpdater(ctx, svc, metrics.RefreshInterval())

	srv := newHTTPServer(cfg, newRouter(ctx, svc))

	go func() {
		loggerInstance.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("backend", cfg.StoreBackend),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			loggerInstance.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// openStore builds the counter store backend named in cfg.
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	return repository.Open(ctx, repository.Options{
		Backend:       cfg.StoreBackend,
		Path:          cfg.StorePath,
		SQLiteDSN:     cfg.SQLiteDSN,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
		PostgresDSN:   cfg.PostgresDSN,
		Logger:        logger.Named("filestore"),
	})
}

// newService wires store, fetcher and retry policy from cfg.
func newService(cfg *config.Config, store repository.Store, l logger.Logger) *app.Service {
	fetcher := fetch.NewHTTPFetcher(
		fetch.WithTimeout(cfg.FetchTimeout()),
		fetch.WithMaxBytes(cfg.MaxImageBytes),
	)
	return app.New(
		app.WithLogger(l.Named("service")),
		app.WithStore(store, cfg.StoreBackend),
		app.WithFetcher(fetcher),
		app.WithRetryPolicy(fetch.Policy{Attempts: fetch.DefaultAttempts, Delay: cfg.RetryDelay()}),
		app.WithBaseURL(cfg.BaseURL),
		app.WithQueueSize(cfg.WriterQueueSize),
	)
}

// newRouter registers docs and API routes. Docs go first so the catch-all
// image route does not shadow them.
func newRouter(ctx context.Context, svc *app.Service) *mux.Router {
	r := mux.NewRouter()
	swagger.Register(ctx, r)
	api.NewServer(svc, svc, api.WithLogger(logger.Named("api"))).Register(ctx, r)
	return r
}

// newHTTPServer sizes the write timeout to cover two fetch attempts and the
// retry wait.
func newHTTPServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeoutFor(cfg),
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

func writeTimeoutFor(cfg *config.Config) time.Duration {
	worst := fetch.DefaultAttempts*cfg.FetchTimeout() + cfg.RetryDelay() + writeTimeoutSlack
	if worst < minWriteTimeout {
		return minWriteTimeout
	}
	return worst
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater refreshes the queue and store gauges.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// GetStats refreshes the writer queue and store total gauges.
			_ = svc.GetStats()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)

	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
