package graph

import (
	"time"

	"github.com/vk/framegraph/internal/node"
	"github.com/vk/framegraph/internal/value"
)

// EvaluateOutput pulls output idx of node id. A Fresh node answers from its
// cache; otherwise stale ancestors are computed first, each at most once.
//
// A compute failure is not an error here: the failed node's outputs are
// nulls and its Err explains why. Errors are reserved for bad addresses and
// cycles found at runtime.
func (g *Graph) EvaluateOutput(id string, idx int) (value.Value, error) {
	n, err := g.lookup(id)
	if err != nil {
		return value.Value{}, err
	}
	out, err := n.Output(idx)
	if err != nil {
		return value.Value{}, err
	}
	if n.ResultsValid() {
		return out.Cached(), nil
	}

	start := time.Now()
	computed := 0
	err = node.PullFunc(n, func(c *node.Node) {
		computed++
		g.logger.Debug("Node computed.", "node", c.ID(), "label", c.Label(), "state", c.State())
	})
	if err != nil {
		g.logger.Error("Evaluation aborted.", "node", id, "output", idx, "error", err)
		return value.Value{}, err
	}
	g.logger.Debug("Output evaluated.", "node", id, "output", idx, "computed", computed, "duration", time.Since(start))
	return out.Cached(), nil
}

// Invalidate flags node id and everything downstream of it as stale. It is
// the entry point for push events such as a new live frame.
func (g *Graph) Invalidate(id string) error {
	n, err := g.lookup(id)
	if err != nil {
		return err
	}
	n.Invalidate()
	return nil
}

// SetManualValue sets the manual value of an input.
func (g *Graph) SetManualValue(id string, idx int, v value.Value) error {
	in, err := g.input(id, idx)
	if err != nil {
		return err
	}
	return in.SetManualValue(v)
}

// ClearManualValue removes the manual value of an input.
func (g *Graph) ClearManualValue(id string, idx int) error {
	in, err := g.input(id, idx)
	if err != nil {
		return err
	}
	in.ClearManualValue()
	return nil
}

func (g *Graph) input(id string, idx int) (*node.InputSocket, error) {
	n, err := g.lookup(id)
	if err != nil {
		return nil, err
	}
	return n.Input(idx)
}

// Subscribe receives the events of every member node, including nodes added
// later. It returns a function that removes the subscription.
func (g *Graph) Subscribe(fn node.Listener) (unsubscribe func()) {
	sub := &subscription{fn: fn}
	g.listeners = append(g.listeners, sub)
	return func() {
		for i, s := range g.listeners {
			if s == sub {
				g.listeners = append(g.listeners[:i:i], g.listeners[i+1:]...)
				return
			}
		}
	}
}

func (g *Graph) forward(ev node.Event) {
	if ev.Kind == node.ComputeFailed {
		g.logger.Warn("Node compute failed.", "node", ev.Node.ID(), "label", ev.Node.Label(), "error", ev.Err)
	}
	for _, s := range g.listeners {
		s.fn(ev)
	}
}
