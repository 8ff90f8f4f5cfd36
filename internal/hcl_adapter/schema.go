package hcl_adapter

import "github.com/hashicorp/hcl/v2"

// fileRoot is a struct used to decode all possible top-level blocks from any
// file. Anything else is rejected.
type fileRoot struct {
	Nodes    []*nodeBlock    `hcl:"node,block"`
	Connects []*connectBlock `hcl:"connect,block"`
}

// nodeBlock is `node "<type>" "<name>" { ... }`.
type nodeBlock struct {
	TypeName string         `hcl:"type,label"`
	Name     string         `hcl:"name,label"`
	Label    *string        `hcl:"label,optional"`
	Params   hcl.Expression `hcl:"params,optional"`
	Inputs   hcl.Expression `hcl:"inputs,optional"`
	Position hcl.Expression `hcl:"position,optional"`
	DefRange hcl.Range      `hcl:",def_range"`
}

// connectBlock is `connect { from = a.output[0] to = b.input[1] }`.
type connectBlock struct {
	From     hcl.Expression `hcl:"from"`
	To       hcl.Expression `hcl:"to"`
	DefRange hcl.Range      `hcl:",def_range"`
}
