package builder

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/vk/framegraph/internal/config"
	"github.com/vk/framegraph/internal/ctxlog"
	"github.com/vk/framegraph/internal/graph"
	"github.com/vk/framegraph/internal/registry"
	"github.com/vk/framegraph/internal/snapshot"
)

// idNamespace seeds the name-derived node ids.
var idNamespace = uuid.MustParse("6f1c3f0e-40d2-4c8a-9a57-3be1f0b7d5a2")

// NodeID returns the id a declaration named name receives.
func NodeID(name string) string {
	return uuid.NewSHA1(idNamespace, []byte(name)).String()
}

// Result is a built pipeline.
type Result struct {
	Graph *graph.Graph
	// IDs maps declaration names to node ids.
	IDs    map[string]string
	Layout snapshot.Layout
}

// Build constructs a graph from a pipeline model.
func Build(ctx context.Context, p *config.Pipeline, r *registry.Registry) (*Result, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: Starting graph construction.")

	res := &Result{
		Graph:  graph.New(graph.WithLogger(logger)),
		IDs:    make(map[string]string, len(p.Nodes)),
		Layout: make(snapshot.Layout),
	}

	if err := createNodes(ctx, p, r, res); err != nil {
		return nil, err
	}
	logger.Debug("Build: Node creation complete.", "node_count", res.Graph.Len())

	if err := linkNodes(ctx, p, res); err != nil {
		return nil, err
	}
	logger.Debug("Build: Node linking complete.", "connection_count", len(p.Connections))

	if err := applyInputs(ctx, p, res); err != nil {
		return nil, err
	}

	logger.Info("Pipeline built.", "nodes", res.Graph.Len(), "connections", len(p.Connections))
	return res, nil
}

func declError(decl *config.NodeDecl, format string, args ...any) error {
	return fmt.Errorf("%s: node %q: %s", decl.Range, decl.Name, fmt.Sprintf(format, args...))
}

func withNode(logger *slog.Logger, decl *config.NodeDecl) *slog.Logger {
	return logger.With("node_type", decl.TypeName, "node_name", decl.Name)
}
