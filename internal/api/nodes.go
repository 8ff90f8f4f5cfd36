package api

import (
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/vk/framegraph/internal/graph"
	"github.com/vk/framegraph/internal/node"
	"github.com/vk/framegraph/internal/session"
	"github.com/vk/framegraph/internal/snapshot"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

func (s *Server) listNodeTypes(c fiber.Ctx) error {
	types := make([]nodeTypeView, 0)
	for _, name := range s.reg.Types() {
		def, _ := s.reg.Describe(name)
		types = append(types, newNodeTypeView(def))
	}
	return c.JSON(types)
}

func (s *Server) listNodes(c fiber.Ctx) error {
	var views []nodeView
	err := s.do(c, func(env *session.Env) error {
		views = make([]nodeView, 0, env.Graph.Len())
		for _, n := range env.Graph.Nodes() {
			views = append(views, newNodeView(env.Graph, n, env.Layout))
		}
		return nil
	})
	if err != nil {
		return err
	}
	return c.JSON(views)
}

type createNodeRequest struct {
	Type     string                  `json:"type"`
	Label    string                  `json:"label"`
	Params   ctyjson.SimpleJSONValue `json:"params"`
	Position *snapshot.Position      `json:"position"`
}

func (s *Server) createNode(c fiber.Ctx) error {
	var req createNodeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest("invalid body: %v", err)
	}
	if req.Type == "" {
		return badRequest("type is required")
	}
	params := req.Params.Value
	if params.Type() == cty.NilType {
		params = cty.EmptyObjectVal
	}
	opts := []node.Option{node.WithID(uuid.NewString())}
	if req.Label != "" {
		opts = append(opts, node.WithLabel(req.Label))
	}
	n, err := s.reg.Build(req.Type, params, opts...)
	if err != nil {
		return err
	}

	var view nodeView
	err = s.do(c, func(env *session.Env) error {
		id, err := env.Graph.AddNode(n)
		if err != nil {
			return err
		}
		if req.Position != nil {
			env.Layout[id] = *req.Position
		}
		view = newNodeView(env.Graph, n, env.Layout)
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("Node created.", "node", view.ID, "type", view.Type)
	return c.Status(fiber.StatusCreated).JSON(view)
}

func (s *Server) getNode(c fiber.Ctx) error {
	id := c.Params("id")
	var view nodeView
	err := s.do(c, func(env *session.Env) error {
		n, err := lookup(env, id)
		if err != nil {
			return err
		}
		view = newNodeView(env.Graph, n, env.Layout)
		return nil
	})
	if err != nil {
		return err
	}
	return c.JSON(view)
}

type updateNodeRequest struct {
	Label    *string            `json:"label"`
	Position *snapshot.Position `json:"position"`
}

func (s *Server) updateNode(c fiber.Ctx) error {
	var req updateNodeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest("invalid body: %v", err)
	}
	id := c.Params("id")
	var view nodeView
	err := s.do(c, func(env *session.Env) error {
		n, err := lookup(env, id)
		if err != nil {
			return err
		}
		if req.Label != nil {
			n.SetLabel(*req.Label)
		}
		if req.Position != nil {
			env.Layout[id] = *req.Position
		}
		view = newNodeView(env.Graph, n, env.Layout)
		return nil
	})
	if err != nil {
		return err
	}
	return c.JSON(view)
}

func (s *Server) deleteNode(c fiber.Ctx) error {
	id := c.Params("id")
	err := s.do(c, func(env *session.Env) error {
		if err := env.Graph.RemoveNode(id); err != nil {
			return err
		}
		delete(env.Layout, id)
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("Node removed.", "node", id)
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) invalidateNode(c fiber.Ctx) error {
	id := c.Params("id")
	err := s.do(c, func(env *session.Env) error {
		return env.Graph.Invalidate(id)
	})
	if err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func lookup(env *session.Env, id string) (*node.Node, error) {
	n, ok := env.Graph.Node(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", graph.ErrNodeNotFound, id)
	}
	return n, nil
}

func socketIndex(c fiber.Ctx) (int, error) {
	idx, err := strconv.Atoi(c.Params("idx"))
	if err != nil || idx < 0 {
		return 0, badRequest("socket index %q is not a non-negative integer", c.Params("idx"))
	}
	return idx, nil
}
