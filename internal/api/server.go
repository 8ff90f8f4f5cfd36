// Package api is the HTTP surface a graph editor drives. Every handler runs
// its graph work through the session, so requests never race the player or
// the directory watcher.
package api

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/vk/framegraph/internal/metrics"
	"github.com/vk/framegraph/internal/registry"
	"github.com/vk/framegraph/internal/session"
	"github.com/vk/framegraph/internal/snapshotstore"
	"github.com/vk/framegraph/internal/source"
)

// Config holds the collaborators of a Server. Session and Registry are
// required; the rest enable optional routes.
type Config struct {
	Session  *session.Session
	Registry *registry.Registry
	Store    snapshotstore.Store
	Frames   source.Seeker
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

// Server owns the fiber application.
type Server struct {
	app     *fiber.App
	session *session.Session
	reg     *registry.Registry
	store   snapshotstore.Store
	frames  source.Seeker
	logger  *slog.Logger
}

// New builds the server and its routes.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		session: cfg.Session,
		reg:     cfg.Registry,
		store:   cfg.Store,
		frames:  cfg.Frames,
		logger:  logger,
	}
	s.app = fiber.New(fiber.Config{
		AppName:      "framegraph",
		Immutable:    true,
		ErrorHandler: s.handleError,
	})

	s.app.Get("/healthz", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	if cfg.Metrics != nil {
		s.app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	v1 := s.app.Group("/api/v1")
	v1.Get("/node-types", s.listNodeTypes)

	v1.Get("/nodes", s.listNodes)
	v1.Post("/nodes", s.createNode)
	v1.Get("/nodes/:id", s.getNode)
	v1.Patch("/nodes/:id", s.updateNode)
	v1.Delete("/nodes/:id", s.deleteNode)
	v1.Post("/nodes/:id/invalidate", s.invalidateNode)
	v1.Put("/nodes/:id/inputs/:idx", s.setManualValue)
	v1.Delete("/nodes/:id/inputs/:idx", s.clearManualValue)
	v1.Get("/nodes/:id/outputs/:idx", s.pullOutput)

	v1.Get("/connections", s.listConnections)
	v1.Post("/connections", s.createConnection)
	v1.Delete("/connections/:id/:idx", s.deleteConnection)

	v1.Get("/snapshot", s.getSnapshot)
	v1.Put("/snapshot", s.putSnapshot)

	v1.Get("/snapshots", s.listSnapshots)
	v1.Get("/snapshots/:name", s.getStoredSnapshot)
	v1.Put("/snapshots/:name", s.saveSnapshot)
	v1.Post("/snapshots/:name/load", s.loadSnapshot)
	v1.Delete("/snapshots/:name", s.deleteSnapshot)

	v1.Get("/source", s.getSource)
	v1.Post("/source/seek", s.seekSource)
	v1.Post("/source/step", s.stepSource)
	return s
}

// App exposes the fiber application, mainly for tests.
func (s *Server) App() *fiber.App { return s.app }

// Listen serves on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	s.logger.Info("HTTP API listening.", "addr", addr)
	return s.app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
}

// Shutdown stops accepting connections and waits for active requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) do(c fiber.Ctx, fn session.Command) error {
	return s.session.Do(c.Context(), fn)
}
