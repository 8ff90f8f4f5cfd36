package registry

import (
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Params is the normalized constructor parameter object handed to a factory.
// Every declared parameter is present, possibly null.
type Params struct {
	v cty.Value
}

// NewParams wraps an already normalized object, mostly for tests.
func NewParams(v cty.Value) Params { return Params{v: v} }

// Value returns the underlying object.
func (p Params) Value() cty.Value { return p.v }

func (p Params) attr(name string) (cty.Value, bool) {
	if p.v.IsNull() || !p.v.Type().IsObjectType() || !p.v.Type().HasAttribute(name) {
		return cty.NilVal, false
	}
	attr := p.v.GetAttr(name)
	if attr.IsNull() {
		return cty.NilVal, false
	}
	return attr, true
}

// Int returns a whole-number parameter, or 0 when absent or fractional.
func (p Params) Int(name string) int {
	var out int
	if attr, ok := p.attr(name); ok {
		if err := gocty.FromCtyValue(attr, &out); err != nil {
			return 0
		}
	}
	return out
}

// Float returns a number parameter, or 0 when absent or not a number.
func (p Params) Float(name string) float64 {
	var out float64
	if attr, ok := p.attr(name); ok {
		if err := gocty.FromCtyValue(attr, &out); err != nil {
			return 0
		}
	}
	return out
}

// Bool returns a bool parameter, or false when absent or not a bool.
func (p Params) Bool(name string) bool {
	var out bool
	if attr, ok := p.attr(name); ok {
		if err := gocty.FromCtyValue(attr, &out); err != nil {
			return false
		}
	}
	return out
}

// String returns a string parameter, or "" when absent or not a string.
func (p Params) String(name string) string {
	var out string
	if attr, ok := p.attr(name); ok {
		if err := gocty.FromCtyValue(attr, &out); err != nil {
			return ""
		}
	}
	return out
}
