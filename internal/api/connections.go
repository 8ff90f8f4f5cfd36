package api

import (
	"github.com/gofiber/fiber/v3"
	"github.com/vk/framegraph/internal/graph"
	"github.com/vk/framegraph/internal/session"
	"github.com/vk/framegraph/internal/snapshot"
)

func (s *Server) listConnections(c fiber.Ctx) error {
	var conns []snapshot.Connection
	err := s.do(c, func(env *session.Env) error {
		conns = connectionViews(env.Graph)
		return nil
	})
	if err != nil {
		return err
	}
	return c.JSON(conns)
}

func connectionViews(g *graph.Graph) []snapshot.Connection {
	conns := make([]snapshot.Connection, 0)
	for _, conn := range g.Connections() {
		conns = append(conns, snapshot.Connection(conn))
	}
	return conns
}

func (s *Server) createConnection(c fiber.Ctx) error {
	var req snapshot.Connection
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest("invalid body: %v", err)
	}
	err := s.do(c, func(env *session.Env) error {
		return env.Graph.Connect(req.InputNode, req.InputIdx, req.OutputNode, req.OutputIdx)
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(req)
}

// deleteConnection removes the edge feeding input idx of node id.
func (s *Server) deleteConnection(c fiber.Ctx) error {
	id := c.Params("id")
	idx, err := socketIndex(c)
	if err != nil {
		return err
	}
	err = s.do(c, func(env *session.Env) error {
		return env.Graph.Disconnect(id, idx)
	})
	if err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
