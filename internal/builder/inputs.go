package builder

import (
	"context"
	"fmt"
	"sort"

	"github.com/vk/framegraph/internal/config"
	"github.com/vk/framegraph/internal/ctxlog"
	"github.com/vk/framegraph/internal/value"
)

// applyInputs converts and sets the declared manual values. Keys of one
// node are applied in sorted order.
func applyInputs(ctx context.Context, p *config.Pipeline, res *Result) error {
	logger := ctxlog.FromContext(ctx)
	for _, decl := range p.Nodes {
		if len(decl.Inputs) == 0 {
			continue
		}
		id := res.IDs[decl.Name]
		n, _ := res.Graph.Node(id)

		names := make([]string, 0, len(decl.Inputs))
		for name := range decl.Inputs {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			idx := -1
			for _, in := range n.Inputs() {
				if in.Name() == name {
					idx = in.Index()
					break
				}
			}
			if idx < 0 {
				return declError(decl, "has no input named %q", name)
			}
			in := n.Inputs()[idx]
			v, err := value.FromCty(in.Kind(), decl.Inputs[name])
			if err != nil {
				return fmt.Errorf("%s: node %q input %q: %w", decl.Range, decl.Name, name, err)
			}
			if err := res.Graph.SetManualValue(id, idx, v); err != nil {
				return fmt.Errorf("%s: node %q input %q: %w", decl.Range, decl.Name, name, err)
			}
			withNode(logger, decl).Debug("Build: Applied manual value.", "input", name, "value", v.String())
		}
	}
	return nil
}
