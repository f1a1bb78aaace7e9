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

	"github.com/starford/minuta/internal/api"
	"github.com/starford/minuta/internal/extraction"
	"github.com/starford/minuta/internal/importer"
	"github.com/starford/minuta/internal/mcpserver"
	"github.com/starford/minuta/internal/sse"
	"github.com/starford/minuta/internal/storage"
	"github.com/starford/minuta/internal/store"
	"github.com/starford/minuta/internal/templateservice"
	"github.com/starford/minuta/internal/workflow"
)

// components are the pieces shared by the HTTP and MCP front ends.
type components struct {
	cfg       *Config
	logger    *slog.Logger
	db        *store.DB
	library   storage.Provider
	templates *templateservice.Service
}

func setup(opts []Option) (*application, *components, error) {
	app := &application{version: "dev"}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}

	cfg := app.config

	out := app.logOutput
	if out == nil {
		out = os.Stdout
	}
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("library_path", cfg.Library.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("extraction_mode", cfg.Extraction.Mode),
		slog.String("log_level", cfg.App.LogLevel.String()))

	var library storage.Provider
	if cfg.Library.Path != "" {
		if err := os.MkdirAll(cfg.Library.Path, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create library dir: %w", err)
		}
		fs, err := storage.NewFS(cfg.Library.Path, storage.WithFilter(importer.Supported))
		if err != nil {
			return nil, nil, fmt.Errorf("init library: %w", err)
		}
		library = fs
	}

	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init store: %w", err)
	}

	return app, &components{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		library:   library,
		templates: templateservice.NewService(db, library, logger),
	}, nil
}

// sync imports the library folder into the store once.
func (c *components) sync(ctx context.Context, cb store.EventCallback) {
	if c.library == nil {
		return
	}
	if err := store.Sync(ctx, c.db, c.library, c.logger, cb); err != nil {
		c.logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}
}

// Run starts the HTTP application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, c, err := setup(opts)
	if err != nil {
		return err
	}
	defer c.db.Close()

	cfg, logger := c.cfg, c.logger

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	c.sync(ctx, broker.PublishTemplateEvent)

	if err := os.MkdirAll(cfg.Uploads.Path, 0o755); err != nil {
		return fmt.Errorf("create uploads dir: %w", err)
	}
	uploads, err := storage.NewFS(cfg.Uploads.Path)
	if err != nil {
		return fmt.Errorf("init uploads: %w", err)
	}
	sessions := workflow.NewManager(uploads, cfg.Uploads.MaxBytes, logger)

	extractor := app.extractor
	if extractor == nil {
		extractor = extraction.New(cfg.Extraction.Client(), logger)
	}

	apiRouter := api.NewRouter(c.templates, sessions, extractor, broker, cfg.Auth.AuthEnabled(), cfg.Auth.Token)

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
		if err := c.db.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start library watcher with SSE callback.
	if c.library != nil && cfg.Library.Watch {
		g.Go(func() error {
			if err := store.Watch(gCtx, c.db, c.library, cfg.Library.Path, logger, broker.PublishTemplateEvent); err != nil {
				logger.Error("watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Expire idle review sessions.
	g.Go(func() error {
		return sessions.Run(gCtx, cfg.Sessions.SweepInterval, cfg.Sessions.IdleTimeout)
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

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
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

// errShutdown cancels the group so the watcher and sweeper stop with the
// server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools on stdio against the configured store. Logs
// go to stderr unless WithLogOutput says otherwise.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, c, err := setup(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	defer c.db.Close()

	c.sync(ctx, nil)

	srv := mcpserver.New(c.templates, app.version)
	c.logger.Info("MCP server starting on stdio")
	return srv.ServeStdio()
}
