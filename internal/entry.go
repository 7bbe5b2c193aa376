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

	"github.com/starford/ticktock/internal/api"
	"github.com/starford/ticktock/internal/entrystore"
	"github.com/starford/ticktock/internal/inbox"
	"github.com/starford/ticktock/internal/mcpserver"
	"github.com/starford/ticktock/internal/metrics"
	"github.com/starford/ticktock/internal/parser"
	"github.com/starford/ticktock/internal/sse"
	"github.com/starford/ticktock/internal/timesheet"
)

// OpenStore opens the entry store selected by cfg.
func OpenStore(cfg *StoreConfig) (entrystore.Store, error) {
	var opts []entrystore.Option
	if cfg.DemoData {
		opts = append(opts, entrystore.WithDemoData(
			entrystore.NewRandomDemoData(uint64(time.Now().UnixNano()), time.Now)))
	}

	switch cfg.Driver {
	case StoreDriverSQLite:
		s, err := entrystore.OpenSQLite(cfg.SQLitePath, opts...)
		if err != nil {
			return nil, err
		}
		return s, nil
	case StoreDriverMemory, "":
		return entrystore.NewMemory(opts...), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// setup resolves options into a config and a store. The returned close
// function releases the store when Run opened it.
func setup(opts []Option) (*application, func() error, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}

	closeStore := func() error { return nil }
	if app.store == nil {
		s, err := OpenStore(&app.config.Store)
		if err != nil {
			return nil, nil, fmt.Errorf("init store: %w", err)
		}
		app.store = s
		closeStore = s.Close
	}
	return app, closeStore, nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// newRouter builds the root router: health probes, metrics and the API.
func newRouter(cfg *Config, svc *timesheet.Service, broker *sse.Broker, m *metrics.Metrics) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(m.Middleware)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := svc.Ping(req.Context()); err != nil {
			slog.Warn("readiness check failed", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Handle("/metrics", m.Handler())

	var sseHandler http.Handler
	if broker != nil {
		sseHandler = broker
	}
	r.Mount("/api", api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, sseHandler))

	return r
}

// Run starts the HTTP service with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, closeStore, err := setup(opts)
	if err != nil {
		return err
	}
	defer closeStore() //nolint:errcheck // shutdown path

	cfg := app.config

	// Initialize structured JSON logger.
	logger := newLogger(os.Stdout, cfg.App.LogLevel)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("store_driver", cfg.Store.Driver),
		slog.Bool("demo_data", cfg.Store.DemoData),
		slog.Bool("inbox_enabled", cfg.Inbox.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	m := metrics.New()

	broker := sse.NewBroker(2*time.Second, sse.WithLogger(logger))
	defer broker.Close()

	svc := timesheet.NewService(app.store, parser.New(),
		timesheet.WithNotifier(broker),
		timesheet.WithRecorder(m),
		timesheet.WithLogger(logger))

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           newRouter(cfg, svc, broker, m),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Inbox.Enabled {
		dir, err := inbox.NewDir(cfg.Inbox.Path)
		if err != nil {
			return fmt.Errorf("init inbox: %w", err)
		}
		watcher := inbox.NewWatcher(dir, svc, inbox.WithLogger(logger), inbox.WithRecorder(m))
		g.Go(func() error {
			return watcher.Run(gCtx)
		})
	}

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

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the MCP tools over stdio. Logs go to stderr since stdout
// carries the protocol.
func RunMCP(_ context.Context, opts ...Option) error {
	app, closeStore, err := setup(opts)
	if err != nil {
		return err
	}
	defer closeStore() //nolint:errcheck // shutdown path

	logger := newLogger(os.Stderr, app.config.App.LogLevel)
	slog.SetDefault(logger)

	svc := timesheet.NewService(app.store, parser.New(), timesheet.WithLogger(logger))
	logger.Info("MCP server starting", slog.String("store_driver", app.config.Store.Driver))
	return mcpserver.New(svc).ServeStdio()
}
