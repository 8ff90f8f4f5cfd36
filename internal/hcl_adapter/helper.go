package hcl_adapter

import (
	"context"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/framegraph/internal/ctxlog"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// isExprDefined checks if an HCL expression was actually present in the source
// code. The HCL decoder populates omitted optional attributes with non-nil,
// zero-width expressions, so a nil check is not enough.
func isExprDefined(ctx context.Context, expr hcl.Expression, attrName string) bool {
	if expr == nil {
		return false
	}
	exprRange := expr.Range()
	isDefined := exprRange.End.Byte > exprRange.Start.Byte

	ctxlog.FromContext(ctx).Debug("Checking if HCL attribute was explicitly defined.",
		"attribute", attrName,
		"hcl_range", exprRange.String(),
		"is_defined", isDefined,
	)
	return isDefined
}

// newEvalContext exposes a small set of cty stdlib functions to params and
// inputs expressions.
func newEvalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Functions: map[string]function.Function{
			"abs":    stdlib.AbsoluteFunc,
			"ceil":   stdlib.CeilFunc,
			"floor":  stdlib.FloorFunc,
			"max":    stdlib.MaxFunc,
			"min":    stdlib.MinFunc,
			"format": stdlib.FormatFunc,
			"lower":  stdlib.LowerFunc,
			"upper":  stdlib.UpperFunc,
		},
	}
}
