// Package snapshot saves and restores graph layouts as JSON documents.
//
// A snapshot holds every node's type name, label, constructor parameters,
// editor position and manual input values, plus the connection list.
// Restoring re-creates nodes through a registry, then connections, then
// manual values, so the rebuilt graph is isomorphic to the captured one.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"

	"github.com/vk/framegraph/internal/graph"
	"github.com/vk/framegraph/internal/node"
	"github.com/vk/framegraph/internal/registry"
	"github.com/vk/framegraph/internal/value"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Version is the document format written by Write.
const Version = 1

// ErrUnsupportedVersion is returned by Read for documents from a newer
// format.
var ErrUnsupportedVersion = errors.New("unsupported snapshot version")

// Position is the cosmetic editor placement of a node.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Layout maps node ids to positions. Nodes without an entry sit at the
// origin.
type Layout map[string]Position

// Node is one saved node. ManualValues is keyed by input index.
type Node struct {
	TypeName     string                  `json:"type_name"`
	Label        string                  `json:"label,omitempty"`
	CtorParams   ctyjson.SimpleJSONValue `json:"ctor_params"`
	Position     Position                `json:"position"`
	ManualValues map[string]value.Value  `json:"manual_values,omitempty"`
}

// Connection is one saved edge.
type Connection struct {
	InputNode  string `json:"input_node"`
	InputIdx   int    `json:"input_idx"`
	OutputNode string `json:"output_node"`
	OutputIdx  int    `json:"output_idx"`
}

// Snapshot is the whole document. Order lists node ids in graph order;
// documents without it restore in id order.
type Snapshot struct {
	Version     int             `json:"version"`
	Order       []string        `json:"order,omitempty"`
	Nodes       map[string]Node `json:"nodes"`
	Connections []Connection    `json:"connections"`
}

// Capture records g. Manual values of runtime-only kinds, such as images,
// are left out.
func Capture(g *graph.Graph, layout Layout) *Snapshot {
	snap := &Snapshot{
		Version:     Version,
		Order:       make([]string, 0, g.Len()),
		Nodes:       make(map[string]Node, g.Len()),
		Connections: []Connection{},
	}
	for _, n := range g.Nodes() {
		snap.Order = append(snap.Order, n.ID())
		saved := Node{
			TypeName:   n.Type(),
			Label:      n.Label(),
			CtorParams: ctyjson.SimpleJSONValue{Value: n.Params()},
			Position:   layout[n.ID()],
		}
		for _, in := range n.Inputs() {
			v, ok := in.ManualValue()
			if !ok || !serializable(v) {
				continue
			}
			if saved.ManualValues == nil {
				saved.ManualValues = make(map[string]value.Value)
			}
			saved.ManualValues[strconv.Itoa(in.Index())] = v
		}
		snap.Nodes[n.ID()] = saved
	}
	for _, c := range g.Connections() {
		snap.Connections = append(snap.Connections, Connection(c))
	}
	return snap
}

func serializable(v value.Value) bool {
	_, err := v.MarshalJSON()
	return err == nil
}

// RestoreOption configures Restore.
type RestoreOption func(*restoreConfig)

type restoreConfig struct {
	logger *slog.Logger
}

// WithLogger sets the logger used for the rebuilt graph.
func WithLogger(logger *slog.Logger) RestoreOption {
	return func(c *restoreConfig) { c.logger = logger }
}

// Restore rebuilds a graph from snap. Node ids and graph order are
// preserved. Nodes are created first, then connections are applied in
// document order, then manual values.
func Restore(snap *Snapshot, reg *registry.Registry, opts ...RestoreOption) (*graph.Graph, Layout, error) {
	cfg := restoreConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if snap.Version > Version {
		return nil, nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, snap.Version)
	}

	ids, err := snap.NodeOrder()
	if err != nil {
		return nil, nil, err
	}

	g := graph.New(graph.WithLogger(cfg.logger))
	layout := make(Layout, len(ids))
	for _, id := range ids {
		saved := snap.Nodes[id]
		nodeOpts := []node.Option{node.WithID(id)}
		if saved.Label != "" {
			nodeOpts = append(nodeOpts, node.WithLabel(saved.Label))
		}
		n, err := reg.Build(saved.TypeName, saved.CtorParams.Value, nodeOpts...)
		if err != nil {
			return nil, nil, fmt.Errorf("snapshot: node %s: %w", id, err)
		}
		if _, err := g.AddNode(n); err != nil {
			return nil, nil, fmt.Errorf("snapshot: node %s: %w", id, err)
		}
		layout[id] = saved.Position
	}

	for _, c := range snap.Connections {
		if err := g.Connect(c.InputNode, c.InputIdx, c.OutputNode, c.OutputIdx); err != nil {
			return nil, nil, fmt.Errorf("snapshot: connection %s[%d] <- %s[%d]: %w", c.InputNode, c.InputIdx, c.OutputNode, c.OutputIdx, err)
		}
	}

	for _, id := range ids {
		manual := snap.Nodes[id].ManualValues
		keys := make([]string, 0, len(manual))
		for k := range manual {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			idx, err := strconv.Atoi(k)
			if err != nil {
				return nil, nil, fmt.Errorf("snapshot: node %s: manual value key %q is not an input index", id, k)
			}
			if err := g.SetManualValue(id, idx, manual[k]); err != nil {
				return nil, nil, fmt.Errorf("snapshot: node %s input %d: %w", id, idx, err)
			}
		}
	}

	cfg.logger.Debug("Snapshot restored.", "nodes", g.Len(), "connections", len(snap.Connections))
	return g, layout, nil
}

// NodeOrder returns the ids in Order followed by any unlisted ids, sorted.
func (s *Snapshot) NodeOrder() ([]string, error) {
	ids := make([]string, 0, len(s.Nodes))
	listed := make(map[string]bool, len(s.Order))
	for _, id := range s.Order {
		if _, ok := s.Nodes[id]; !ok {
			return nil, fmt.Errorf("snapshot: order lists unknown node %s", id)
		}
		if listed[id] {
			return nil, fmt.Errorf("snapshot: order lists node %s twice", id)
		}
		listed[id] = true
		ids = append(ids, id)
	}
	rest := make([]string, 0, len(s.Nodes)-len(ids))
	for id := range s.Nodes {
		if !listed[id] {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	return append(ids, rest...), nil
}

// Read decodes a snapshot document. A missing version is read as the
// current one.
func Read(r io.Reader) (*Snapshot, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("snapshot: reading: %w", err)
	}
	return Unmarshal(data)
}

// Write encodes snap as indented JSON.
func Write(w io.Writer, snap *Snapshot) error {
	snap.Normalize()
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

// Marshal and Unmarshal are the byte-slice forms used by stores.
func Marshal(snap *Snapshot) ([]byte, error) {
	snap.Normalize()
	return json.Marshal(snap)
}

func Unmarshal(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("snapshot: decoding: %w", err)
	}
	snap.Normalize()
	if snap.Version > Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, snap.Version)
	}
	return &snap, nil
}

// Normalize fills the parts a hand-written document may leave out: the
// node map, the connection list and constructor parameters.
func (s *Snapshot) Normalize() {
	if s.Version == 0 {
		s.Version = Version
	}
	if s.Nodes == nil {
		s.Nodes = map[string]Node{}
	}
	if s.Connections == nil {
		s.Connections = []Connection{}
	}
	for id, n := range s.Nodes {
		if n.CtorParams.Value.Type() == cty.NilType {
			n.CtorParams = ctyjson.SimpleJSONValue{Value: cty.EmptyObjectVal}
			s.Nodes[id] = n
		}
	}
}
