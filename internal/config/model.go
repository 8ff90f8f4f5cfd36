package config

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// Pipeline is the unified, format-agnostic representation of a pipeline
// file set.
type Pipeline struct {
	Nodes       []*NodeDecl
	Connections []*ConnectDecl
}

// NodeDecl is one declared node. Name is the handle other declarations use
// to refer to it.
type NodeDecl struct {
	TypeName string
	Name     string
	Label    string
	// Params is the constructor parameter object; null when omitted.
	Params cty.Value
	// Inputs holds manual values keyed by input name.
	Inputs   map[string]cty.Value
	Position *Position
	Range    hcl.Range
}

// Position is the optional editor placement of a node.
type Position struct {
	X, Y float64
}

// SocketRef addresses one socket of a declared node, by index or by name.
type SocketRef struct {
	Node  string
	Index int
	// Name is set instead of Index when the socket was referenced by name.
	Name string
}

func (r SocketRef) String() string {
	if r.Name != "" {
		return fmt.Sprintf("%s[%q]", r.Node, r.Name)
	}
	return fmt.Sprintf("%s[%d]", r.Node, r.Index)
}

// ConnectDecl feeds an output socket into an input socket.
type ConnectDecl struct {
	From  SocketRef
	To    SocketRef
	Range hcl.Range
}

// Node returns the declaration with the given name.
func (p *Pipeline) Node(name string) (*NodeDecl, bool) {
	for _, n := range p.Nodes {
		if n.Name == name {
			return n, true
		}
	}
	return nil, false
}
