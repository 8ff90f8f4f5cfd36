package api

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v3"
	"github.com/vk/framegraph/internal/graph"
	"github.com/vk/framegraph/internal/node"
	"github.com/vk/framegraph/internal/registry"
	"github.com/vk/framegraph/internal/session"
	"github.com/vk/framegraph/internal/snapshot"
	"github.com/vk/framegraph/internal/snapshotstore"
	"github.com/vk/framegraph/internal/source"
	"github.com/vk/framegraph/internal/value"
)

var (
	errBadRequest    = errors.New("bad request")
	errNotConfigured = errors.New("not configured")

	errStoreMissing  = fmt.Errorf("%w: no snapshot store", errNotConfigured)
	errFramesMissing = fmt.Errorf("%w: no frame sequence", errNotConfigured)
)

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// statusFor maps an error onto an HTTP status.
func statusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, errBadRequest):
		return fiber.StatusBadRequest
	case errors.Is(err, graph.ErrNodeNotFound),
		errors.Is(err, node.ErrIndexOutOfRange),
		errors.Is(err, snapshotstore.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, graph.ErrSelfLoop),
		errors.Is(err, graph.ErrCycleDetected),
		errors.Is(err, graph.ErrCyclicGraph),
		errors.Is(err, node.ErrReentrant),
		errors.Is(err, source.ErrNoFrames):
		return fiber.StatusConflict
	case errors.Is(err, node.ErrTypeMismatch),
		errors.Is(err, node.ErrOutOfRange),
		errors.Is(err, node.ErrInvalidChoice),
		errors.Is(err, registry.ErrUnknownType),
		errors.Is(err, value.ErrNotSerializable),
		errors.Is(err, snapshot.ErrUnsupportedVersion),
		errors.Is(err, snapshotstore.ErrInvalidName),
		errors.Is(err, source.ErrOutOfBounds):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, errNotConfigured):
		return fiber.StatusNotImplemented
	case errors.Is(err, session.ErrClosed):
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusInternalServerError
}

func (s *Server) handleError(c fiber.Ctx, err error) error {
	code := statusFor(err)
	if code >= fiber.StatusInternalServerError {
		s.logger.Error("Request failed.", "method", c.Method(), "path", c.Path(), "error", err)
	} else {
		s.logger.Debug("Request rejected.", "method", c.Method(), "path", c.Path(), "status", code, "error", err)
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
