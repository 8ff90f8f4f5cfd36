package api

import (
	"encoding/json"

	"github.com/vk/framegraph/internal/graph"
	"github.com/vk/framegraph/internal/node"
	"github.com/vk/framegraph/internal/registry"
	"github.com/vk/framegraph/internal/snapshot"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

type paramView struct {
	Name        string                   `json:"name"`
	Type        string                   `json:"type"`
	Default     *ctyjson.SimpleJSONValue `json:"default,omitempty"`
	Description string                   `json:"description,omitempty"`
}

type nodeTypeView struct {
	Type        string      `json:"type"`
	Description string      `json:"description,omitempty"`
	Params      []paramView `json:"params"`
}

func newNodeTypeView(def *registry.Definition) nodeTypeView {
	v := nodeTypeView{Type: def.Type, Description: def.Description, Params: []paramView{}}
	for _, p := range def.Params {
		pv := paramView{Name: p.Name, Type: p.Type.FriendlyName(), Description: p.Description}
		if !p.Default.IsNull() {
			pv.Default = &ctyjson.SimpleJSONValue{Value: p.Default}
		}
		v.Params = append(v.Params, pv)
	}
	return v
}

type endpointView struct {
	Node  string `json:"node"`
	Index int    `json:"index"`
}

type inputView struct {
	Index     int             `json:"index"`
	Name      string          `json:"name"`
	Kind      string          `json:"kind"`
	Min       *float64        `json:"min,omitempty"`
	Max       *float64        `json:"max,omitempty"`
	Choices   []string        `json:"choices,omitempty"`
	Manual    json.RawMessage `json:"manual,omitempty"`
	Connected *endpointView   `json:"connected,omitempty"`
}

type outputView struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Kind  string `json:"kind"`
}

type nodeView struct {
	ID       string                  `json:"id"`
	Type     string                  `json:"type"`
	Label    string                  `json:"label"`
	Help     string                  `json:"help,omitempty"`
	State    string                  `json:"state"`
	Error    string                  `json:"error,omitempty"`
	Params   ctyjson.SimpleJSONValue `json:"params"`
	Position snapshot.Position       `json:"position"`
	Inputs   []inputView             `json:"inputs"`
	Outputs  []outputView            `json:"outputs"`
}

func newNodeView(g *graph.Graph, n *node.Node, layout snapshot.Layout) nodeView {
	v := nodeView{
		ID:       n.ID(),
		Type:     n.Type(),
		Label:    n.Label(),
		Help:     n.Help(),
		State:    n.State().String(),
		Params:   ctyjson.SimpleJSONValue{Value: n.Params()},
		Position: layout[n.ID()],
		Inputs:   make([]inputView, 0, len(n.Inputs())),
		Outputs:  make([]outputView, 0, len(n.Outputs())),
	}
	if err := n.Err(); err != nil {
		v.Error = err.Error()
	}
	for _, in := range n.Inputs() {
		iv := inputView{Index: in.Index(), Name: in.Name(), Kind: in.Kind().String(), Choices: in.Choices()}
		iv.Min, iv.Max = in.Bounds()
		if manual, ok := in.ManualValue(); ok {
			if b, err := manual.MarshalJSON(); err == nil {
				iv.Manual = b
			}
		}
		if ep, ok := g.Connection(n.ID(), in.Index()); ok {
			iv.Connected = &endpointView{Node: ep.Node, Index: ep.Index}
		}
		v.Inputs = append(v.Inputs, iv)
	}
	for _, out := range n.Outputs() {
		v.Outputs = append(v.Outputs, outputView{Index: out.Index(), Name: out.Name(), Kind: out.Kind().String()})
	}
	return v
}
