package api

import (
	"github.com/gofiber/fiber/v3"
	"github.com/vk/framegraph/internal/session"
	"github.com/vk/framegraph/modules/frames"
)

type sourceView struct {
	Len     int `json:"len"`
	Current int `json:"current"`
	Sources int `json:"sources,omitempty"`
}

func (s *Server) getSource(c fiber.Ctx) error {
	if s.frames == nil {
		return errFramesMissing
	}
	return c.JSON(sourceView{Len: s.frames.Len(), Current: s.frames.Current()})
}

type seekRequest struct {
	Index int `json:"index"`
}

type stepRequest struct {
	Delta *int `json:"delta"`
}

// moveSource repositions the sequence and invalidates every source node so
// the next pull reads the new frames.
func (s *Server) moveSource(c fiber.Ctx, move func() error) error {
	var view sourceView
	err := s.do(c, func(env *session.Env) error {
		if err := move(); err != nil {
			return err
		}
		view = sourceView{
			Len:     s.frames.Len(),
			Current: s.frames.Current(),
			Sources: frames.InvalidateSources(env.Graph),
		}
		return nil
	})
	if err != nil {
		return err
	}
	return c.JSON(view)
}

func (s *Server) seekSource(c fiber.Ctx) error {
	if s.frames == nil {
		return errFramesMissing
	}
	var req seekRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest("invalid body: %v", err)
	}
	return s.moveSource(c, func() error { return s.frames.Seek(req.Index) })
}

func (s *Server) stepSource(c fiber.Ctx) error {
	if s.frames == nil {
		return errFramesMissing
	}
	req := stepRequest{}
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest("invalid body: %v", err)
		}
	}
	delta := 1
	if req.Delta != nil {
		delta = *req.Delta
	}
	return s.moveSource(c, func() error {
		_, err := s.frames.Step(delta)
		return err
	})
}
