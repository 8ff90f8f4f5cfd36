package graph

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/vk/framegraph/internal/node"
	"github.com/vk/framegraph/internal/value"
)

var (
	ErrNodeNotFound   = errors.New("node not found")
	ErrDuplicateNode  = errors.New("node already in graph")
	ErrSelfLoop       = errors.New("self-referential edge not allowed")
	ErrCycleDetected  = errors.New("connection would create a cycle")
	ErrForeignSockets = errors.New("node has connections outside the graph")
	// ErrCyclicGraph is the runtime counterpart of ErrCycleDetected.
	ErrCyclicGraph = node.ErrCyclicGraph
)

// Endpoint addresses one socket of a member node.
type Endpoint struct {
	Node  string
	Index int
}

// Connection is one edge, from an output into an input.
type Connection struct {
	InputNode  string
	InputIdx   int
	OutputNode string
	OutputIdx  int
}

type member struct {
	node        *node.Node
	unsubscribe func()
}

// Graph is the node set plus the connection relation.
type Graph struct {
	logger *slog.Logger

	members map[string]*member
	order   []string
	// edges maps an input endpoint to the output feeding it.
	edges map[Endpoint]Endpoint

	listeners []*subscription
}

type subscription struct{ fn node.Listener }

// Option configures a Graph.
type Option func(*Graph)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(g *Graph) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// New creates an empty graph.
func New(opts ...Option) *Graph {
	g := &Graph{
		logger:  slog.Default(),
		members: make(map[string]*member),
		edges:   make(map[Endpoint]Endpoint),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// AddNode adds an unconnected node and returns its id.
func (g *Graph) AddNode(n *node.Node) (string, error) {
	if n == nil {
		return "", errors.New("cannot add a nil node")
	}
	id := n.ID()
	if _, ok := g.members[id]; ok {
		return "", fmt.Errorf("%w: %s", ErrDuplicateNode, id)
	}
	for _, in := range n.Inputs() {
		if in.Connected() != nil {
			return "", fmt.Errorf("%w: input %d of %s", ErrForeignSockets, in.Index(), id)
		}
	}
	for _, out := range n.Outputs() {
		if len(out.Fanout()) > 0 {
			return "", fmt.Errorf("%w: output %d of %s", ErrForeignSockets, out.Index(), id)
		}
	}

	g.members[id] = &member{node: n, unsubscribe: n.Subscribe(g.forward)}
	g.order = append(g.order, id)
	g.logger.Debug("Node added to graph.", "node", id, "type", n.Type(), "label", n.Label())
	return id, nil
}

// RemoveNode detaches every socket of the node in both directions and then
// drops it.
func (g *Graph) RemoveNode(id string) error {
	m, ok := g.members[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	for _, out := range m.node.Outputs() {
		for _, in := range out.Fanout() {
			in.Disconnect()
			delete(g.edges, Endpoint{Node: in.Node().ID(), Index: in.Index()})
		}
	}
	for _, in := range m.node.Inputs() {
		in.Disconnect()
		delete(g.edges, Endpoint{Node: id, Index: in.Index()})
	}
	m.unsubscribe()
	delete(g.members, id)
	g.order = slices.DeleteFunc(g.order, func(s string) bool { return s == id })
	g.logger.Debug("Node removed from graph.", "node", id)
	return nil
}

// Node looks up a member by id.
func (g *Graph) Node(id string) (*node.Node, bool) {
	m, ok := g.members[id]
	if !ok {
		return nil, false
	}
	return m.node, true
}

// Nodes returns members in insertion order.
func (g *Graph) Nodes() []*node.Node {
	nodes := make([]*node.Node, 0, len(g.order))
	for _, id := range g.order {
		nodes = append(nodes, g.members[id].node)
	}
	return nodes
}

// Len returns the number of member nodes.
func (g *Graph) Len() int { return len(g.members) }

func (g *Graph) lookup(id string) (*node.Node, error) {
	n, ok := g.Node(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	return n, nil
}

// Connect feeds output outIdx of outNode into input inIdx of inNode,
// replacing any prior edge into that input. On error nothing changes.
func (g *Graph) Connect(inNode string, inIdx int, outNode string, outIdx int) error {
	dst, err := g.lookup(inNode)
	if err != nil {
		return err
	}
	src, err := g.lookup(outNode)
	if err != nil {
		return err
	}
	in, err := dst.Input(inIdx)
	if err != nil {
		return err
	}
	out, err := src.Output(outIdx)
	if err != nil {
		return err
	}
	if inNode == outNode {
		return fmt.Errorf("%w: %s -> %s", ErrSelfLoop, outNode, inNode)
	}
	if !value.Compatible(out.Kind(), in.Kind()) {
		return &node.TypeMismatchError{Socket: in.Ref(), Expected: in.Kind(), Actual: out.Kind()}
	}
	if g.reaches(inNode, outNode) {
		return fmt.Errorf("%w: %s already depends on %s", ErrCycleDetected, outNode, inNode)
	}

	if err := in.Connect(out); err != nil {
		return err
	}
	g.edges[Endpoint{Node: inNode, Index: inIdx}] = Endpoint{Node: outNode, Index: outIdx}
	g.logger.Debug("Sockets connected.", "output_node", outNode, "output", outIdx, "input_node", inNode, "input", inIdx)
	return nil
}

// reaches reports whether target is downstream of (or equal to) start.
func (g *Graph) reaches(start, target string) bool {
	seen := make(map[string]bool)
	stack := []string{start}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == target {
			return true
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		stack = append(stack, g.dependents(id)...)
	}
	return false
}

// Disconnect removes the edge into input inIdx of inNode, if any.
func (g *Graph) Disconnect(inNode string, inIdx int) error {
	dst, err := g.lookup(inNode)
	if err != nil {
		return err
	}
	in, err := dst.Input(inIdx)
	if err != nil {
		return err
	}
	in.Disconnect()
	delete(g.edges, Endpoint{Node: inNode, Index: inIdx})
	g.logger.Debug("Input disconnected.", "input_node", inNode, "input", inIdx)
	return nil
}

// Connection returns the output feeding an input.
func (g *Graph) Connection(inNode string, inIdx int) (Endpoint, bool) {
	ep, ok := g.edges[Endpoint{Node: inNode, Index: inIdx}]
	return ep, ok
}

// Connections lists every edge, ordered by the input node's insertion order
// and then by input index.
func (g *Graph) Connections() []Connection {
	rank := make(map[string]int, len(g.order))
	for i, id := range g.order {
		rank[id] = i
	}
	conns := make([]Connection, 0, len(g.edges))
	for in, out := range g.edges {
		conns = append(conns, Connection{InputNode: in.Node, InputIdx: in.Index, OutputNode: out.Node, OutputIdx: out.Index})
	}
	slices.SortFunc(conns, func(a, b Connection) int {
		if d := rank[a.InputNode] - rank[b.InputNode]; d != 0 {
			return d
		}
		return a.InputIdx - b.InputIdx
	})
	return conns
}

// Dependents returns the ids of nodes fed directly by id, in insertion order.
func (g *Graph) Dependents(id string) ([]string, error) {
	if _, err := g.lookup(id); err != nil {
		return nil, err
	}
	return g.dependents(id), nil
}

func (g *Graph) dependents(id string) []string {
	set := make(map[string]bool)
	for in, out := range g.edges {
		if out.Node == id {
			set[in.Node] = true
		}
	}
	var ids []string
	for _, candidate := range g.order {
		if set[candidate] {
			ids = append(ids, candidate)
		}
	}
	return ids
}
