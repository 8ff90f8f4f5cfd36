// Package node implements a single dataflow node: its typed sockets, its
// cached results and the driver that runs its compute function.
//
// Nodes are not safe for concurrent use. A graph and all of its nodes are
// owned by one goroutine at a time.
package node

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/vk/framegraph/internal/value"
	"github.com/zclconf/go-cty/cty"
)

// State is the cache validity of a node.
type State int

const (
	// Stale means inputs changed since the last compute, or it never ran.
	Stale State = iota
	// Computing is transient, inside Evaluate.
	Computing
	// Fresh means the cached results are usable.
	Fresh
	// Failed means the last compute failed; outputs hold nulls and Err is
	// set. A failed node is settled until invalidated.
	Failed
)

func (s State) String() string {
	switch s {
	case Stale:
		return "stale"
	case Computing:
		return "computing"
	case Fresh:
		return "fresh"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Node is one unit of computation with a fixed set of typed sockets.
type Node struct {
	id       string
	typeName string
	label    string
	help     string
	params   cty.Value

	inputs  []*InputSocket
	outputs []*OutputSocket
	compute ComputeFunc

	state State
	err   error
	// dirty records an invalidation received while Computing.
	dirty bool

	listeners []*listener
	nextSub   int
}

// Option configures a Node at construction.
type Option func(*Node)

// WithID sets a stable id, for example one restored from a snapshot.
func WithID(id string) Option {
	return func(n *Node) { n.id = id }
}

// WithLabel overrides the label from the spec.
func WithLabel(label string) Option {
	return func(n *Node) { n.label = label }
}

// WithParams records the constructor parameters the node was built from, so
// it can be rebuilt on load.
func WithParams(params cty.Value) Option {
	return func(n *Node) { n.params = params }
}

// New builds a node from spec. Its sockets are fixed for its lifetime.
func New(spec Spec, opts ...Option) (*Node, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	n := &Node{
		typeName: spec.Type,
		label:    spec.Label,
		help:     spec.Help,
		params:   cty.EmptyObjectVal,
		compute:  spec.Compute,
		state:    Stale,
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.id == "" {
		n.id = uuid.NewString()
	}
	if n.label == "" {
		n.label = spec.Type
	}
	for i, in := range spec.Inputs {
		in.Choices = slices.Clone(in.Choices)
		n.inputs = append(n.inputs, &InputSocket{node: n, index: i, spec: in})
	}
	for i, out := range spec.Outputs {
		n.outputs = append(n.outputs, &OutputSocket{node: n, index: i, spec: out, cached: value.Null(out.Kind)})
	}
	return n, nil
}

func (n *Node) ID() string        { return n.id }
func (n *Node) Type() string      { return n.typeName }
func (n *Node) Label() string     { return n.label }
func (n *Node) Help() string      { return n.help }
func (n *Node) Params() cty.Value { return n.params }
func (n *Node) State() State      { return n.state }

// SetLabel renames the node. The label is cosmetic and does not invalidate.
func (n *Node) SetLabel(label string) { n.label = label }

// Err returns the error recorded by the last failed compute.
func (n *Node) Err() error { return n.err }

func (n *Node) Inputs() []*InputSocket   { return slices.Clone(n.inputs) }
func (n *Node) Outputs() []*OutputSocket { return slices.Clone(n.outputs) }

func (n *Node) Input(idx int) (*InputSocket, error) {
	if idx < 0 || idx >= len(n.inputs) {
		return nil, fmt.Errorf("%w: input %d of node %s (has %d)", ErrIndexOutOfRange, idx, n.id, len(n.inputs))
	}
	return n.inputs[idx], nil
}

func (n *Node) Output(idx int) (*OutputSocket, error) {
	if idx < 0 || idx >= len(n.outputs) {
		return nil, fmt.Errorf("%w: output %d of node %s (has %d)", ErrIndexOutOfRange, idx, n.id, len(n.outputs))
	}
	return n.outputs[idx], nil
}

// ResultsValid reports whether cached results can be used without a
// recompute.
func (n *Node) ResultsValid() bool {
	return n.state == Fresh || n.state == Failed
}

// Results returns the cached output values without computing.
func (n *Node) Results() []value.Value {
	res := make([]value.Value, len(n.outputs))
	for i, out := range n.outputs {
		res[i] = out.Cached()
	}
	return res
}

// Invalidate marks this node and everything downstream of it stale.
func (n *Node) Invalidate() {
	n.invalidate(make(map[*Node]struct{}))
}

// invalidate visits each node at most once per wave. A node that is
// computing is marked dirty and ends its compute Stale; the wave is still
// forwarded.
func (n *Node) invalidate(seen map[*Node]struct{}) {
	if _, ok := seen[n]; ok {
		return
	}
	seen[n] = struct{}{}
	switch n.state {
	case Computing:
		n.dirty = true
	case Fresh, Failed:
		n.state = Stale
		n.emit(Event{Kind: Invalidated, Node: n})
	}
	for _, out := range n.outputs {
		out.notify(seen)
	}
}
