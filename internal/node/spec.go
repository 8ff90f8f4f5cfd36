package node

import (
	"fmt"
	"slices"

	"github.com/vk/framegraph/internal/value"
)

// ComputeFunc is a node body. It receives one value per input in declared
// order and must return one value per output in declared order. Missing data
// is reported with null values, not errors.
type ComputeFunc func(inputs []value.Value) ([]value.Value, error)

// InputSpec is the template for one input socket.
type InputSpec struct {
	Name string
	Kind value.Kind
	// Default is used when the input is neither connected nor set manually.
	// The zero Value means a null of Kind.
	Default value.Value
	Min     *float64
	Max     *float64
	// Choices lists the allowed values of an option input.
	Choices []string
}

// OutputSpec is the template for one output socket.
type OutputSpec struct {
	Name string
	Kind value.Kind
}

// Spec fully describes a node before construction. Registry factories
// produce Specs; New turns one into a Node.
type Spec struct {
	Type    string
	Label   string
	Help    string
	Inputs  []InputSpec
	Outputs []OutputSpec
	Compute ComputeFunc
}

// Bound is a small helper for building InputSpec bounds inline.
func Bound(f float64) *float64 { return &f }

// Validate checks names, kinds and defaults.
func (s Spec) Validate() error {
	if s.Type == "" {
		return fmt.Errorf("%w: type name is empty", ErrInvalidSpec)
	}
	if s.Compute == nil {
		return fmt.Errorf("%w: %s has no compute function", ErrInvalidSpec, s.Type)
	}
	for i, in := range s.Inputs {
		if in.Name == "" {
			return fmt.Errorf("%w: %s input %d has no name", ErrInvalidSpec, s.Type, i)
		}
		if in.Kind == value.KindInvalid {
			return fmt.Errorf("%w: %s input %q has no kind", ErrInvalidSpec, s.Type, in.Name)
		}
		if in.Min != nil && in.Max != nil && *in.Min > *in.Max {
			return fmt.Errorf("%w: %s input %q has min above max", ErrInvalidSpec, s.Type, in.Name)
		}
		if !in.Default.IsValid() {
			continue
		}
		def, ok := value.Conform(in.Default, in.Kind)
		if !ok {
			return fmt.Errorf("%w: %s input %q default is %s, want %s", ErrInvalidSpec, s.Type, in.Name, in.Default.Kind(), in.Kind)
		}
		if f, ok := def.AsFloat(); ok && !within(f, in.Min, in.Max) {
			return fmt.Errorf("%w: %s input %q default %g outside %s", ErrInvalidSpec, s.Type, in.Name, f, formatBounds(in.Min, in.Max))
		}
		if choice, ok := def.AsString(); ok && in.Kind == value.KindOption && len(in.Choices) > 0 && !slices.Contains(in.Choices, choice) {
			return fmt.Errorf("%w: %s input %q default %q is not a choice", ErrInvalidSpec, s.Type, in.Name, choice)
		}
	}
	for i, out := range s.Outputs {
		if out.Name == "" {
			return fmt.Errorf("%w: %s output %d has no name", ErrInvalidSpec, s.Type, i)
		}
		if out.Kind == value.KindInvalid {
			return fmt.Errorf("%w: %s output %q has no kind", ErrInvalidSpec, s.Type, out.Name)
		}
	}
	return nil
}

func within(f float64, lo, hi *float64) bool {
	if lo != nil && f < *lo {
		return false
	}
	if hi != nil && f > *hi {
		return false
	}
	return true
}
