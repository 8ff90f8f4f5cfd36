package node

import (
	"time"

	"github.com/vk/framegraph/internal/value"
)

// EventKind names the notifications a node emits.
type EventKind int

const (
	// InputsChanged fires before compute and carries the resolved inputs.
	InputsChanged EventKind = iota
	// ResultsChanged fires after a successful compute.
	ResultsChanged
	// ComputeFailed fires after a compute that left the node Failed.
	ComputeFailed
	// Invalidated fires when a settled node turns stale.
	Invalidated
)

func (k EventKind) String() string {
	switch k {
	case InputsChanged:
		return "inputs_changed"
	case ResultsChanged:
		return "results_changed"
	case ComputeFailed:
		return "compute_failed"
	case Invalidated:
		return "invalidated"
	}
	return "unknown"
}

// Event is delivered synchronously to every subscriber.
type Event struct {
	Kind     EventKind
	Node     *Node
	Inputs   []value.Value
	Outputs  []value.Value
	Err      error
	Duration time.Duration
}

// Listener receives node events. It runs on the evaluating goroutine and
// must not mutate the graph.
type Listener func(Event)

type listener struct {
	id int
	fn Listener
}

// Subscribe registers fn and returns a function that removes it.
func (n *Node) Subscribe(fn Listener) (unsubscribe func()) {
	n.nextSub++
	sub := &listener{id: n.nextSub, fn: fn}
	n.listeners = append(n.listeners, sub)
	return func() {
		for i, l := range n.listeners {
			if l == sub {
				n.listeners = append(n.listeners[:i:i], n.listeners[i+1:]...)
				return
			}
		}
	}
}

func (n *Node) emit(ev Event) {
	for _, l := range n.listeners {
		l.fn(ev)
	}
}
