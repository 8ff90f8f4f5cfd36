package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vk/framegraph/internal/api"
	"github.com/vk/framegraph/internal/builder"
	"github.com/vk/framegraph/internal/config"
	"github.com/vk/framegraph/internal/ctxlog"
	"github.com/vk/framegraph/internal/graph"
	"github.com/vk/framegraph/internal/metrics"
	"github.com/vk/framegraph/internal/preview"
	"github.com/vk/framegraph/internal/registry"
	"github.com/vk/framegraph/internal/session"
	"github.com/vk/framegraph/internal/snapshot"
	"github.com/vk/framegraph/internal/snapshotstore"
	"github.com/vk/framegraph/internal/snapshotstore/postgres"
	"github.com/vk/framegraph/internal/source"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	config   *Config
	logger   *slog.Logger
	registry *registry.Registry

	dir     *source.Directory
	session *session.Session
	metrics *metrics.Metrics
	store   snapshotstore.Store
	pool    *pgxpool.Pool
	api     *api.Server

	publisher     *preview.Publisher
	previewClient *preview.Client

	httpServer *http.Server
	closeOnce  sync.Once
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and registry.
// The initial graph comes from the pipeline files or the snapshot named in
// cfg, or is empty.
func NewApp(ctx context.Context, outW io.Writer, cfg *Config, loader config.Loader, modules ...registry.Module) (_ *App, err error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Logger configured successfully.")

	a := &App{config: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	var frameService source.FrameService
	if cfg.FramesDir != "" {
		opts := []source.DirectoryOption{source.WithLoop(cfg.Loop), source.WithLogger(logger)}
		if cfg.CacheSize > 0 {
			opts = append(opts, source.WithCacheSize(cfg.CacheSize))
		}
		a.dir, err = source.OpenDirectory(cfg.FramesDir, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to open frames directory: %w", err)
		}
		frameService = a.dir
		logger.Info("Frames directory opened.", "path", cfg.FramesDir, "frames", a.dir.Len())
	}

	a.registry = registry.New()
	if len(modules) == 0 {
		modules = coreModules(frameService, outW, logger)
	}
	for _, mod := range modules {
		mod.Register(a.registry)
	}
	logger.Debug("All Go modules registered.", "count", len(modules))
	if err := a.registry.ValidateRegistry(ctx); err != nil {
		return nil, err
	}

	g, layout, err := a.initialGraph(ctx, loader)
	if err != nil {
		return nil, err
	}

	if err := a.openStore(ctx); err != nil {
		return nil, err
	}

	a.metrics = metrics.New(nil)
	sessionOpts := []session.Option{
		session.WithLogger(logger),
		session.WithLayout(layout),
		session.WithListener(a.metrics.Observe),
		session.WithObserver(a.metrics.ObserveCommand),
	}
	if cfg.PreviewURL != "" {
		a.previewClient, err = preview.Dial(ctx, preview.DialConfig{URL: cfg.PreviewURL, Namespace: cfg.PreviewNamespace})
		if err != nil {
			return nil, fmt.Errorf("failed to connect preview client: %w", err)
		}
		a.publisher = preview.NewPublisher(a.previewClient, 0, logger)
		sessionOpts = append(sessionOpts, session.WithListener(a.publisher.Observe))
	}
	a.session = session.New(g, sessionOpts...)

	if cfg.ListenAddr != "" {
		apiCfg := api.Config{
			Session:  a.session,
			Registry: a.registry,
			Store:    a.store,
			Metrics:  a.metrics,
			Logger:   logger,
		}
		if a.dir != nil {
			apiCfg.Frames = a.dir
		}
		a.api = api.New(apiCfg)
	}

	logger.Debug("Application assembled.", "nodes", g.Len(), "api", cfg.ListenAddr != "")
	return a, nil
}

func (a *App) initialGraph(ctx context.Context, loader config.Loader) (*graph.Graph, snapshot.Layout, error) {
	switch {
	case a.config.PipelinePath != "":
		if loader == nil {
			return nil, nil, errors.New("a pipeline path was given without a pipeline loader")
		}
		pipeline, err := loader.Load(ctx, a.config.PipelinePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load pipeline: %w", err)
		}
		res, err := builder.Build(ctx, pipeline, a.registry)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to build pipeline: %w", err)
		}
		return res.Graph, res.Layout, nil

	case a.config.SnapshotPath != "":
		f, err := os.Open(a.config.SnapshotPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open snapshot: %w", err)
		}
		defer f.Close()
		snap, err := snapshot.Read(f)
		if err != nil {
			return nil, nil, err
		}
		g, layout, err := snapshot.Restore(snap, a.registry, snapshot.WithLogger(a.logger))
		if err != nil {
			return nil, nil, err
		}
		a.logger.Info("Snapshot loaded.", "path", a.config.SnapshotPath, "nodes", g.Len())
		return g, layout, nil
	}
	return graph.New(graph.WithLogger(a.logger)), snapshot.Layout{}, nil
}

func (a *App) openStore(ctx context.Context) error {
	switch {
	case a.config.StoreDir != "":
		store, err := snapshotstore.NewFileStore(a.config.StoreDir)
		if err != nil {
			return fmt.Errorf("failed to open snapshot directory: %w", err)
		}
		a.store = store
	case a.config.DatabaseURL != "":
		pool, err := pgxpool.New(ctx, a.config.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect: %w", err)
		}
		a.pool = pool
		store := postgres.New(pool)
		if err := store.CreateSchema(ctx); err != nil {
			return fmt.Errorf("failed to create snapshot schema: %w", err)
		}
		a.store = store
	}
	return nil
}

// Close releases every resource the app holds. It is safe to call more
// than once.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		if a.session != nil {
			a.session.Close()
		}
		if a.previewClient != nil {
			a.previewClient.Close()
		}
		if a.pool != nil {
			a.pool.Close()
		}
	})
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry { return a.registry }

// Session returns the session owning the graph.
func (a *App) Session() *session.Session { return a.session }

// API returns the HTTP server, or nil when no listen address is configured.
func (a *App) API() *api.Server { return a.api }
