// This file contains the logic for translating decoded HCL blocks into the
// format-agnostic pipeline model defined in the config package.

package hcl_adapter

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/framegraph/internal/config"
	"github.com/vk/framegraph/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// translateNode evaluates the attributes of a node block. Params and inputs
// are plain expressions; they may call the functions in the eval context
// but cannot reference other nodes.
func (l *Loader) translateNode(ctx context.Context, n *nodeBlock) (*config.NodeDecl, error) {
	logger := ctxlog.FromContext(ctx).With("node_type", n.TypeName, "node_name", n.Name)
	logger.Debug("Translating HCL node to internal config model.")

	decl := &config.NodeDecl{
		TypeName: n.TypeName,
		Name:     n.Name,
		Params:   cty.NullVal(cty.DynamicPseudoType),
		Range:    n.DefRange,
	}
	if n.Label != nil {
		decl.Label = *n.Label
	}

	if isExprDefined(ctx, n.Params, "params") {
		v, diags := n.Params.Value(l.evalCtx)
		if diags.HasErrors() {
			return nil, fmt.Errorf("node %q params: %w", n.Name, diags)
		}
		if !v.IsNull() && !v.Type().IsObjectType() && !v.Type().IsMapType() {
			return nil, fmt.Errorf("%s: node %q params must be an object", n.Params.Range(), n.Name)
		}
		decl.Params = v
	}

	if isExprDefined(ctx, n.Inputs, "inputs") {
		v, diags := n.Inputs.Value(l.evalCtx)
		if diags.HasErrors() {
			return nil, fmt.Errorf("node %q inputs: %w", n.Name, diags)
		}
		if !v.IsNull() {
			if !v.Type().IsObjectType() && !v.Type().IsMapType() {
				return nil, fmt.Errorf("%s: node %q inputs must be an object", n.Inputs.Range(), n.Name)
			}
			decl.Inputs = v.AsValueMap()
		}
	}

	if isExprDefined(ctx, n.Position, "position") {
		v, diags := n.Position.Value(l.evalCtx)
		if diags.HasErrors() {
			return nil, fmt.Errorf("node %q position: %w", n.Name, diags)
		}
		if !v.IsNull() {
			var xy []float64
			list, err := convert.Convert(v, cty.List(cty.Number))
			if err == nil {
				err = gocty.FromCtyValue(list, &xy)
			}
			if err != nil || len(xy) != 2 {
				return nil, fmt.Errorf("%s: node %q position must be a list of two numbers", n.Position.Range(), n.Name)
			}
			decl.Position = &config.Position{X: xy[0], Y: xy[1]}
		}
	}
	return decl, nil
}

func (l *Loader) translateConnect(ctx context.Context, c *connectBlock) (*config.ConnectDecl, error) {
	from, err := socketRef(c.From, "output")
	if err != nil {
		return nil, err
	}
	to, err := socketRef(c.To, "input")
	if err != nil {
		return nil, err
	}
	ctxlog.FromContext(ctx).Debug("Translating HCL connection.", "from", from.String(), "to", to.String())
	return &config.ConnectDecl{From: from, To: to, Range: c.DefRange}, nil
}

// socketRef parses `<node>.<kind>[<index or name>]` or `<node>.<kind>.<name>`.
func socketRef(expr hcl.Expression, kind string) (config.SocketRef, error) {
	traversal, diags := hcl.AbsTraversalForExpr(expr)
	if diags.HasErrors() {
		return config.SocketRef{}, fmt.Errorf("%s: expected a reference like node.%s[0]: %w", expr.Range(), kind, diags)
	}
	bad := func() (config.SocketRef, error) {
		return config.SocketRef{}, fmt.Errorf("%s: expected a reference like node.%s[0]", expr.Range(), kind)
	}
	if len(traversal) != 3 {
		return bad()
	}
	ref := config.SocketRef{Node: traversal.RootName()}
	if attr, ok := traversal[1].(hcl.TraverseAttr); !ok || attr.Name != kind {
		return bad()
	}

	switch step := traversal[2].(type) {
	case hcl.TraverseAttr:
		ref.Name = step.Name
	case hcl.TraverseIndex:
		switch step.Key.Type() {
		case cty.String:
			ref.Name = step.Key.AsString()
		case cty.Number:
			if err := gocty.FromCtyValue(step.Key, &ref.Index); err != nil || ref.Index < 0 {
				return bad()
			}
		default:
			return bad()
		}
	default:
		return bad()
	}
	return ref, nil
}
