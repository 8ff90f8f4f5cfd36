package builder

import (
	"context"
	"fmt"

	"github.com/vk/framegraph/internal/config"
	"github.com/vk/framegraph/internal/ctxlog"
	"github.com/vk/framegraph/internal/node"
	"github.com/vk/framegraph/internal/registry"
	"github.com/vk/framegraph/internal/snapshot"
)

// createNodes builds and adds one node per declaration.
func createNodes(ctx context.Context, p *config.Pipeline, r *registry.Registry, res *Result) error {
	logger := ctxlog.FromContext(ctx)
	for _, decl := range p.Nodes {
		if _, dup := res.IDs[decl.Name]; dup {
			return declError(decl, "declared twice")
		}
		id := NodeID(decl.Name)
		label := decl.Name
		if decl.Label != "" {
			label = decl.Label
		}

		n, err := r.Build(decl.TypeName, decl.Params, node.WithID(id), node.WithLabel(label))
		if err != nil {
			return fmt.Errorf("%s: node %q: %w", decl.Range, decl.Name, err)
		}
		if _, err := res.Graph.AddNode(n); err != nil {
			return fmt.Errorf("%s: node %q: %w", decl.Range, decl.Name, err)
		}
		res.IDs[decl.Name] = id
		if decl.Position != nil {
			res.Layout[id] = snapshot.Position{X: decl.Position.X, Y: decl.Position.Y}
		}
		withNode(logger, decl).Debug("Build: Created node.", "id", id)
	}
	return nil
}
