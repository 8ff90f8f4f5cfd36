package api

import (
	"github.com/gofiber/fiber/v3"
	"github.com/vk/framegraph/internal/session"
	"github.com/vk/framegraph/internal/snapshot"
)

func (s *Server) capture(c fiber.Ctx) (*snapshot.Snapshot, error) {
	var snap *snapshot.Snapshot
	err := s.do(c, func(env *session.Env) error {
		snap = snapshot.Capture(env.Graph, env.Layout)
		return nil
	})
	return snap, err
}

// restore rebuilds snap off the session goroutine, then swaps it in.
func (s *Server) restore(c fiber.Ctx, snap *snapshot.Snapshot) error {
	g, layout, err := snapshot.Restore(snap, s.reg, snapshot.WithLogger(s.logger))
	if err != nil {
		return err
	}
	return s.do(c, func(env *session.Env) error {
		env.Replace(g, layout)
		return nil
	})
}

func (s *Server) getSnapshot(c fiber.Ctx) error {
	snap, err := s.capture(c)
	if err != nil {
		return err
	}
	return c.JSON(snap)
}

func (s *Server) putSnapshot(c fiber.Ctx) error {
	snap, err := snapshot.Unmarshal(c.Body())
	if err != nil {
		return s.snapshotDecodeError(err)
	}
	if err := s.restore(c, snap); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) snapshotDecodeError(err error) error {
	if statusFor(err) == fiber.StatusUnprocessableEntity {
		return err
	}
	return badRequest("%v", err)
}

func (s *Server) listSnapshots(c fiber.Ctx) error {
	if s.store == nil {
		return errStoreMissing
	}
	infos, err := s.store.List(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(infos)
}

func (s *Server) getStoredSnapshot(c fiber.Ctx) error {
	if s.store == nil {
		return errStoreMissing
	}
	snap, err := s.store.Load(c.Context(), c.Params("name"))
	if err != nil {
		return err
	}
	return c.JSON(snap)
}

func (s *Server) saveSnapshot(c fiber.Ctx) error {
	if s.store == nil {
		return errStoreMissing
	}
	snap, err := s.capture(c)
	if err != nil {
		return err
	}
	info, err := s.store.Save(c.Context(), c.Params("name"), snap)
	if err != nil {
		return err
	}
	s.logger.Info("Snapshot saved.", "name", info.Name, "nodes", info.Nodes)
	return c.JSON(info)
}

func (s *Server) loadSnapshot(c fiber.Ctx) error {
	if s.store == nil {
		return errStoreMissing
	}
	snap, err := s.store.Load(c.Context(), c.Params("name"))
	if err != nil {
		return err
	}
	if err := s.restore(c, snap); err != nil {
		return err
	}
	s.logger.Info("Snapshot loaded.", "name", c.Params("name"), "nodes", len(snap.Nodes))
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) deleteSnapshot(c fiber.Ctx) error {
	if s.store == nil {
		return errStoreMissing
	}
	if err := s.store.Delete(c.Context(), c.Params("name")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
