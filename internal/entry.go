// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/journal/internal/api"
	"github.com/starford/journal/internal/auth"
	"github.com/starford/journal/internal/metrics"
	"github.com/starford/journal/internal/persistence"
	"github.com/starford/journal/internal/persistence/postgres"
	"github.com/starford/journal/internal/persistence/sqlite"
	"github.com/starford/journal/internal/session"
	"github.com/starford/journal/internal/sse"
	pkgconfig "github.com/starford/journal/pkg/config"
)

const (
	shutdownTimeout = 10 * time.Second
	sweepInterval   = time.Minute
	tagsThrottle    = 2 * time.Second
)

func newApplication(opts []Option) (*application, error) {
	app := &application{
		out:     os.Stdout,
		logOut:  os.Stdout,
		version: "dev",
	}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	app.level = new(slog.LevelVar)
	app.level.Set(app.config.App.LogLevel)
	return app, nil
}

// newLogger returns the structured JSON logger used by every command.
func newLogger(w io.Writer, level *slog.LevelVar) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// openBackend connects to the configured persistence backend and wraps it
// with metrics.
func openBackend(ctx context.Context, cfg StorageConfig, m *metrics.Metrics) (*persistence.Instrumented, error) {
	var (
		b   persistence.UserBackend
		err error
	)
	switch cfg.Driver {
	case DriverPostgres:
		b, err = postgres.Open(ctx, cfg.Postgres.DSN)
	default:
		b, err = sqlite.Open(ctx, cfg.SQLite.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	return persistence.Instrument(b, m), nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := newLogger(app.logOut, app.level)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("storage_driver", cfg.Storage.Driver),
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.Bool("auth_enabled", cfg.Auth.AuthEnabled()),
		slog.String("log_level", cfg.App.LogLevel.String()))

	m := metrics.New()

	backend, err := openBackend(ctx, cfg.Storage, m)
	if err != nil {
		return err
	}
	defer backend.Close()

	// SSE broker.
	broker := sse.NewBroker(tagsThrottle, sse.WithClientGauge(m.SSEClients))

	authSvc := auth.NewService(backend, cfg.Auth.Service())
	sessions := session.NewManager(backend,
		session.WithPublisher(broker),
		session.WithLogger(logger),
		session.WithMetrics(m),
		session.WithStoreOptions(cfg.Journal.StoreOptions()...),
	)
	authSvc.OnSignOut(sessions.Close)

	apiRouter := api.NewRouter(api.Deps{
		Auth:        authSvc,
		Sessions:    sessions,
		Events:      broker,
		CORSOrigins: cfg.App.HTTP.CORSOrigins,
	})

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := backend.Ping(r.Context()); err != nil {
			logger.Warn("readiness check failed", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", m.Handler())

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Reload the log level when the config file changes.
	if app.configPath != "" {
		g.Go(func() error {
			return pkgconfig.Watch(gCtx, app.configPath, logger, func() {
				next := NewDefaultConfig()
				if err := pkgconfig.Load(app.configPath, next); err != nil {
					logger.Warn("config reload failed", slog.String("error", err.Error()))
					return
				}
				app.level.Set(next.App.LogLevel)
				logger.Info("config reloaded", slog.String("log_level", next.App.LogLevel.String()))
			})
		})
	}

	// Drop expired bearer sessions.
	g.Go(func() error {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gCtx.Done():
				return nil
			case <-ticker.C:
				if n := authSvc.Sweep(); n > 0 {
					logger.Debug("expired sessions removed", slog.Int("count", n))
				}
			}
		}
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// Event streams never end on their own.
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the background loops stop once the
// server is down.
var errShutdown = errors.New("shutdown")
