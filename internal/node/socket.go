package node

import (
	"errors"
	"fmt"
	"slices"

	"github.com/vk/framegraph/internal/value"
)

// InputSocket is a typed input terminal. Its value comes from, in order of
// priority, the connected output, the manual value, or the default.
type InputSocket struct {
	node  *Node
	index int
	spec  InputSpec

	connected *OutputSocket
	manual    *value.Value
}

func (in *InputSocket) Node() *Node      { return in.node }
func (in *InputSocket) Index() int       { return in.index }
func (in *InputSocket) Name() string     { return in.spec.Name }
func (in *InputSocket) Kind() value.Kind { return in.spec.Kind }
func (in *InputSocket) Choices() []string {
	return slices.Clone(in.spec.Choices)
}

// Bounds returns the current min/max, nil meaning unbounded.
func (in *InputSocket) Bounds() (lo, hi *float64) { return in.spec.Min, in.spec.Max }

// Default returns the value used when nothing else is set.
func (in *InputSocket) Default() value.Value {
	if !in.spec.Default.IsValid() {
		return value.Null(in.spec.Kind)
	}
	def, _ := value.Conform(in.spec.Default, in.spec.Kind)
	return def
}

// Connected returns the upstream output, or nil.
func (in *InputSocket) Connected() *OutputSocket { return in.connected }

// ManualValue returns the manual override and whether one is set. The value
// is retained while connected.
func (in *InputSocket) ManualValue() (value.Value, bool) {
	if in.manual == nil {
		return value.Value{}, false
	}
	return *in.manual, true
}

func (in *InputSocket) Ref() SocketRef {
	return SocketRef{NodeID: in.node.id, NodeLabel: in.node.label, Index: in.index, Name: in.spec.Name, Direction: DirInput}
}

// Connect subscribes in to out, replacing any prior connection. Narrowing
// from a general image to a concrete image kind is accepted here and checked
// when a value arrives.
func (in *InputSocket) Connect(out *OutputSocket) error {
	if out == nil {
		return errors.New("cannot connect to a nil output")
	}
	if !value.Compatible(out.spec.Kind, in.spec.Kind) {
		return &TypeMismatchError{Socket: in.Ref(), Expected: in.spec.Kind, Actual: out.spec.Kind}
	}
	if in.connected == out {
		return nil
	}
	if in.connected != nil {
		in.connected.unsubscribe(in)
	}
	in.connected = out
	out.fanout = append(out.fanout, in)
	in.node.Invalidate()
	return nil
}

// Disconnect removes the connection and keeps the manual value. It is a
// no-op when nothing is connected.
func (in *InputSocket) Disconnect() {
	if in.connected == nil {
		return
	}
	in.connected.unsubscribe(in)
	in.connected = nil
	in.node.Invalidate()
}

// EffectiveValue resolves the input without computing anything.
func (in *InputSocket) EffectiveValue() value.Value {
	if in.connected != nil {
		return in.connected.Cached()
	}
	if in.manual != nil {
		return *in.manual
	}
	return in.Default()
}

// SetManualValue validates and stores v. On failure the prior value stays.
func (in *InputSocket) SetManualValue(v value.Value) error {
	conformed, ok := value.Conform(v, in.spec.Kind)
	if !v.IsValid() || !ok {
		return &TypeMismatchError{Socket: in.Ref(), Expected: in.spec.Kind, Actual: v.Kind()}
	}
	if err := in.check(conformed, in.spec.Min, in.spec.Max); err != nil {
		return err
	}
	in.manual = &conformed
	in.node.Invalidate()
	return nil
}

// ClearManualValue drops the manual override, falling back to the default.
func (in *InputSocket) ClearManualValue() {
	if in.manual == nil {
		return
	}
	in.manual = nil
	in.node.Invalidate()
}

// SetBounds replaces the numeric bounds of the input. Bounds that the
// current manual value would violate are rejected.
func (in *InputSocket) SetBounds(lo, hi *float64) error {
	if !in.spec.Kind.IsNumeric() {
		return fmt.Errorf("%w: bounds on %s input %s", ErrTypeMismatch, in.spec.Kind, in.Ref())
	}
	if lo != nil && hi != nil && *lo > *hi {
		return fmt.Errorf("%w: min %g above max %g on %s", ErrOutOfRange, *lo, *hi, in.Ref())
	}
	if in.manual != nil {
		if err := in.check(*in.manual, lo, hi); err != nil {
			return err
		}
	}
	in.spec.Min, in.spec.Max = lo, hi
	in.node.Invalidate()
	return nil
}

func (in *InputSocket) check(v value.Value, lo, hi *float64) error {
	if v.IsNull() {
		return nil
	}
	if f, ok := v.AsFloat(); ok && !within(f, lo, hi) {
		return &RangeError{Socket: in.Ref(), Value: f, Min: lo, Max: hi}
	}
	if in.spec.Kind == value.KindOption && len(in.spec.Choices) > 0 {
		choice, _ := v.AsString()
		if !slices.Contains(in.spec.Choices, choice) {
			return &ChoiceError{Socket: in.Ref(), Value: choice, Choices: slices.Clone(in.spec.Choices)}
		}
	}
	return nil
}

// OutputSocket is a typed output terminal holding the last computed value.
type OutputSocket struct {
	node   *Node
	index  int
	spec   OutputSpec
	fanout []*InputSocket
	cached value.Value
}

func (out *OutputSocket) Node() *Node      { return out.node }
func (out *OutputSocket) Index() int       { return out.index }
func (out *OutputSocket) Name() string     { return out.spec.Name }
func (out *OutputSocket) Kind() value.Kind { return out.spec.Kind }

func (out *OutputSocket) Ref() SocketRef {
	return SocketRef{NodeID: out.node.id, NodeLabel: out.node.label, Index: out.index, Name: out.spec.Name, Direction: DirOutput}
}

// Fanout lists the connected inputs in connection order.
func (out *OutputSocket) Fanout() []*InputSocket { return slices.Clone(out.fanout) }

// Cached returns the last stored value, or a null of the output's kind
// before the first evaluation.
func (out *OutputSocket) Cached() value.Value {
	if !out.cached.IsValid() {
		return value.Null(out.spec.Kind)
	}
	return out.cached
}

// FanoutNotify marks every downstream node stale. Nothing is recomputed.
func (out *OutputSocket) FanoutNotify() {
	out.notify(make(map[*Node]struct{}))
}

func (out *OutputSocket) notify(seen map[*Node]struct{}) {
	for _, in := range out.fanout {
		in.node.invalidate(seen)
	}
}

func (out *OutputSocket) unsubscribe(in *InputSocket) {
	out.fanout = slices.DeleteFunc(out.fanout, func(s *InputSocket) bool { return s == in })
}
