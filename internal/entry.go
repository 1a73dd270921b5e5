// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/voss/atelier/internal/autoimport"
	"github.com/voss/atelier/internal/coordinator"
	"github.com/voss/atelier/internal/events"
	"github.com/voss/atelier/internal/kvstore"
	"github.com/voss/atelier/internal/media"
	"github.com/voss/atelier/internal/remote"
)

// runtime bundles the wired application components.
type runtime struct {
	cfg    *Config
	logger *slog.Logger
	store  *kvstore.DB
	bus    *events.Bus
	coord  *coordinator.Coordinator
	media  *media.Controller
}

func (r *runtime) close() {
	r.bus.Close()
	if err := r.store.Close(); err != nil {
		r.logger.Warn("close cache store", slog.String("error", err.Error()))
	}
}

// newRuntime applies the options and wires the storage coordinator,
// media controller, and event bus over the configured backends.
func newRuntime(opts ...Option) (*runtime, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("remote_base_url", cfg.Remote.BaseURL),
		slog.String("cache_path", cfg.Cache.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store, err := kvstore.Open(cfg.Cache.Path)
	if err != nil {
		return nil, fmt.Errorf("open cache store: %w", err)
	}

	api := remote.NewClient(cfg.Remote.BaseURL, cfg.Remote.Token, cfg.Remote.Timeout())
	bus := events.NewBus()
	coord := coordinator.New(api, store, cfg.Cache.MediaTTL(), cfg.Cache.TimelineTTL(), logger, bus)
	ctrl := media.NewController(coord, logger)

	return &runtime{cfg: cfg, logger: logger, store: store, bus: bus, coord: coord, media: ctrl}, nil
}

// Run starts the import daemon with the given options: the drop
// directory is watched and new files are uploaded until a shutdown
// signal arrives or ctx is cancelled.
func Run(ctx context.Context, opts ...Option) error {
	rt, err := newRuntime(opts...)
	if err != nil {
		return err
	}
	defer rt.close()

	cfg := rt.cfg
	logger := rt.logger

	if !cfg.Import.Enabled {
		return fmt.Errorf("import is disabled; set import.enabled to run the daemon")
	}
	if err := os.MkdirAll(cfg.Import.Dir, 0o755); err != nil {
		return fmt.Errorf("create import dir: %w", err)
	}

	// Prime the session media list so duplicate names are visible in logs.
	if err := rt.media.Load(ctx, cfg.Import.ProjectID); err != nil {
		logger.Warn("initial media load failed", slog.String("error", err.Error()))
	}

	importer := autoimport.New(rt.media, rt.store, cfg.Import.Dir, cfg.Import.ProjectID, logger)

	g, gCtx := errgroup.WithContext(ctx)
	watchCtx, cancelWatch := context.WithCancel(gCtx)
	defer cancelWatch()

	g.Go(func() error {
		return importer.Watch(watchCtx, func(mediaID, path string) {
			logger.Info("media imported",
				slog.String("media_id", mediaID),
				slog.String("path", path))
		})
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

		cancelWatch()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Daemon stopped successfully")
	return nil
}

// ListProjects prints every project known to the remote, one id and
// name per line.
func ListProjects(ctx context.Context, opts ...Option) error {
	rt, err := newRuntime(opts...)
	if err != nil {
		return err
	}
	defer rt.close()

	projects, err := rt.coord.LoadAllProjects(ctx)
	if err != nil {
		return fmt.Errorf("list projects: %w", err)
	}
	for _, p := range projects {
		fmt.Printf("%s\t%s\n", p.ID, p.Name)
	}
	return nil
}

// Reset deletes every project from the remote and clears the local
// caches.
func Reset(ctx context.Context, opts ...Option) error {
	rt, err := newRuntime(opts...)
	if err != nil {
		return err
	}
	defer rt.close()

	if err := rt.coord.ClearAllData(ctx); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	rt.logger.Info("All projects deleted and caches cleared")
	return nil
}
