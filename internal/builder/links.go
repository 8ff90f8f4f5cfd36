package builder

import (
	"context"
	"fmt"

	"github.com/vk/framegraph/internal/config"
	"github.com/vk/framegraph/internal/ctxlog"
	"github.com/vk/framegraph/internal/graph"
	"github.com/vk/framegraph/internal/node"
)

// linkNodes applies the connect declarations in order.
func linkNodes(ctx context.Context, p *config.Pipeline, res *Result) error {
	logger := ctxlog.FromContext(ctx)
	for _, c := range p.Connections {
		outID, outIdx, err := resolve(res, c.From, node.DirOutput)
		if err != nil {
			return fmt.Errorf("%s: connect from: %w", c.Range, err)
		}
		inID, inIdx, err := resolve(res, c.To, node.DirInput)
		if err != nil {
			return fmt.Errorf("%s: connect to: %w", c.Range, err)
		}
		if err := res.Graph.Connect(inID, inIdx, outID, outIdx); err != nil {
			return fmt.Errorf("%s: connect %s -> %s: %w", c.Range, c.From, c.To, err)
		}
		logger.Debug("Build: Linked sockets.", "from", c.From.String(), "to", c.To.String())
	}
	return nil
}

// resolve maps a reference onto a node id and socket index.
func resolve(res *Result, ref config.SocketRef, dir node.Direction) (string, int, error) {
	id, ok := res.IDs[ref.Node]
	if !ok {
		return "", 0, fmt.Errorf("%w: no node named %q", graph.ErrNodeNotFound, ref.Node)
	}
	if ref.Name == "" {
		return id, ref.Index, nil
	}
	n, _ := res.Graph.Node(id)
	if dir == node.DirInput {
		for _, in := range n.Inputs() {
			if in.Name() == ref.Name {
				return id, in.Index(), nil
			}
		}
	} else {
		for _, out := range n.Outputs() {
			if out.Name() == ref.Name {
				return id, out.Index(), nil
			}
		}
	}
	return "", 0, fmt.Errorf("%w: %s has no %s named %q", node.ErrIndexOutOfRange, ref.Node, dir, ref.Name)
}
