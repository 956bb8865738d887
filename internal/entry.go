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

	"github.com/starford/forcegraph/internal/api"
	"github.com/starford/forcegraph/internal/catalog"
	"github.com/starford/forcegraph/internal/mcpserver"
	"github.com/starford/forcegraph/internal/sceneservice"
	"github.com/starford/forcegraph/internal/storage"
)

// runtime is what both the HTTP and the MCP front ends need: the scene
// directory, its catalog and the live scenes.
type runtime struct {
	cfg    *Config
	logger *slog.Logger
	store  storage.Provider
	db     *catalog.DB
	svc    *sceneservice.Service
}

func setup(ctx context.Context, opts []Option) (*application, *runtime, error) {
	app := &application{logOutput: os.Stdout, version: "dev"}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("scenes_path", cfg.Scenes.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.Int("tick_rate", cfg.Stream.TickRate),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure scenes directory exists.
	if err := os.MkdirAll(cfg.Scenes.Path, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create scenes dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Scenes.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := catalog.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init catalog: %w", err)
	}

	if err := catalog.Sync(db, store, cfg.Simulation, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	svcOpts := sceneservice.Options{
		Defaults:      cfg.Simulation,
		TickRate:      cfg.Stream.TickRate,
		FrameThrottle: cfg.Stream.FrameThrottle,
		Logger:        logger,
	}
	if cfg.Auth.AuthEnabled() {
		svcOpts.AccessToken = cfg.Auth.Token
	}
	svc := sceneservice.NewService(ctx, store, db, svcOpts)
	if err := svc.LoadAll(); err != nil {
		logger.Warn("initial load failed", slog.String("error", err.Error()))
	}

	return app, &runtime{cfg: cfg, logger: logger, store: store, db: db, svc: svc}, nil
}

func (rt *runtime) close() {
	rt.svc.Close()
	if err := rt.db.Close(); err != nil {
		rt.logger.Warn("catalog close failed", slog.String("error", err.Error()))
	}
}

func (rt *runtime) watch(ctx context.Context) error {
	w := catalog.NewWatcher(rt.db, rt.store, rt.cfg.Scenes.Path, rt.cfg.Simulation, rt.logger, rt.svc.HandleFileEvent)
	if err := w.Run(ctx); err != nil {
		rt.logger.Error("scene watcher stopped", slog.String("error", err.Error()))
	}
	return nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	_, rt, err := setup(ctx, opts)
	if err != nil {
		return err
	}
	defer rt.close()

	cfg := rt.cfg
	logger := rt.logger

	apiRouter := api.NewRouter(rt.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", api.Health)
	r.Get("/health/ready", api.Health)

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return rt.watch(gCtx)
	})

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

		// Event streams never finish on their own; stopping the scenes
		// closes them so Shutdown does not wait out its timeout.
		rt.svc.Close()

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

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the scene tools over stdio until the client disconnects.
// Scene files are still watched so edits show up in tool answers.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, rt, err := setup(ctx, append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	defer rt.close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() { _ = rt.watch(ctx) }()

	srv := mcpserver.New(rt.svc, app.version)
	if err := srv.ServeStdio(); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
