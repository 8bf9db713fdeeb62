// Package internal provides the main application initialization and runtime logic.
package internal

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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/raido/internal/api"
	"github.com/starford/raido/internal/ledger"
	"github.com/starford/raido/internal/mcpserver"
	"github.com/starford/raido/internal/mover"
	"github.com/starford/raido/internal/settings"
	"github.com/starford/raido/internal/sse"
	"github.com/starford/raido/internal/storage"
	"github.com/starford/raido/internal/watch"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("settings_path", cfg.Mover.SettingsPath),
		slog.String("history_path", cfg.Mover.HistoryPath),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure vault directory exists.
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return fmt.Errorf("create vault dir: %w", err)
	}

	// Initialize storage.
	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	// Move history ledger.
	history, err := ledger.Open(cfg.Mover.HistoryPath)
	if err != nil {
		return fmt.Errorf("init history: %w", err)
	}
	defer history.Close()

	// Rule settings with debounced persistence.
	mgr, err := settings.Load(cfg.Mover.SettingsPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	saver := settings.NewDebouncer(cfg.Mover.SaveDebounce, func() {
		if err := mgr.Save(); err != nil {
			logger.Error("settings save failed", slog.String("error", err.Error()))
		}
	})
	defer saver.Close()
	mgr.AttachSaver(saver)

	if issues := mgr.Issues(); len(issues) > 0 {
		for _, is := range issues {
			logger.Warn("rule disabled by compile issue", slog.String("issue", is.String()))
		}
	}

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	// Mover engine; executed moves are pushed to SSE clients.
	engine := mover.New(store, history, mgr, logger,
		mover.WithMatchTimeout(cfg.Mover.MatchTimeout),
		mover.WithNotify(func(out mover.Outcome) {
			if out.Kind == mover.KindMoved {
				broker.PublishMoveEvent("move.executed", out)
			}
		}),
	)

	// Build API service and router.
	svc := api.NewService(engine, mgr, broker)
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start file watcher feeding the mover.
	if cfg.Mover.Watch {
		g.Go(func() error {
			if err := watch.Run(gCtx, engine, store.Root(), logger); err != nil {
				return fmt.Errorf("watcher error: %w", err)
			}
			return nil
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

// RunMCP starts the MCP stdio server instead of the HTTP stack. Logs go
// to stderr; stdout belongs to the MCP transport.
func RunMCP(_ context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	history, err := ledger.Open(cfg.Mover.HistoryPath)
	if err != nil {
		return fmt.Errorf("init history: %w", err)
	}
	defer history.Close()

	mgr, err := settings.Load(cfg.Mover.SettingsPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	saver := settings.NewDebouncer(cfg.Mover.SaveDebounce, func() {
		if err := mgr.Save(); err != nil {
			logger.Error("settings save failed", slog.String("error", err.Error()))
		}
	})
	defer saver.Close()
	mgr.AttachSaver(saver)

	engine := mover.New(store, history, mgr, logger,
		mover.WithMatchTimeout(cfg.Mover.MatchTimeout))

	logger.Info("MCP server starting on stdio", slog.String("vault_path", cfg.Vault.Path))
	return mcpserver.New(engine, mgr).ServeStdio()
}
