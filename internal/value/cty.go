package value

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// ErrNotSerializable is returned for kinds that only exist at runtime.
var ErrNotSerializable = errors.New("value kind cannot be serialized")

// FromCty converts an arbitrary cty value, such as an HCL attribute or a
// decoded JSON document, into a Value of kind k.
func FromCty(k Kind, in cty.Value) (Value, error) {
	if !serializable(k) {
		return Value{}, fmt.Errorf("%w: %s", ErrNotSerializable, k)
	}
	if in.IsNull() {
		return Null(k), nil
	}
	if !in.IsWhollyKnown() {
		return Value{}, fmt.Errorf("value for %s is not known", k)
	}
	converted, err := convert.Convert(in, k.CtyType())
	if err != nil {
		return Value{}, fmt.Errorf("cannot use %s as %s: %w", in.Type().FriendlyName(), k, err)
	}
	if k == KindInt {
		bf := converted.AsBigFloat()
		if !bf.IsInt() {
			return Value{}, fmt.Errorf("cannot use %s as int: not a whole number", bf.String())
		}
		i, _ := bf.Int64()
		return Int(i), nil
	}
	return Value{kind: k, v: converted}, nil
}

func serializable(k Kind) bool {
	switch k {
	case KindInt, KindFloat, KindBool, KindOption, KindString:
		return true
	}
	return false
}

type wireValue struct {
	Kind  Kind            `json:"kind"`
	Value json.RawMessage `json:"value"`
}

// MarshalJSON encodes scalar kinds as {"kind": ..., "value": ...}. Image and
// contour values are runtime-only and fail with ErrNotSerializable.
func (v Value) MarshalJSON() ([]byte, error) {
	if !serializable(v.kind) {
		return nil, fmt.Errorf("%w: %s", ErrNotSerializable, v.kind)
	}
	if f, ok := v.AsFloat(); ok && (math.IsInf(f, 0) || math.IsNaN(f)) {
		return nil, fmt.Errorf("cannot encode non-finite number %v", f)
	}
	raw, err := ctyjson.Marshal(v.v, v.kind.CtyType())
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireValue{Kind: v.kind, Value: raw})
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var w wireValue
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if !serializable(w.Kind) {
		return fmt.Errorf("%w: %s", ErrNotSerializable, w.Kind)
	}
	raw := w.Value
	if len(raw) == 0 {
		raw = json.RawMessage("null")
	}
	decoded, err := ctyjson.Unmarshal(raw, w.Kind.CtyType())
	if err != nil {
		return fmt.Errorf("decoding %s value: %w", w.Kind, err)
	}
	parsed, err := FromCty(w.Kind, decoded)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// FromNative converts a plain Go scalar into a Value of kind k.
func FromNative(k Kind, in any) (Value, error) {
	var cv cty.Value
	switch typed := in.(type) {
	case nil:
		return Null(k), nil
	case int:
		cv = cty.NumberIntVal(int64(typed))
	case int64:
		cv = cty.NumberIntVal(typed)
	case float64:
		cv = cty.NumberFloatVal(typed)
	case bool:
		cv = cty.BoolVal(typed)
	case string:
		cv = cty.StringVal(typed)
	case Value:
		return typed, nil
	default:
		return Value{}, fmt.Errorf("unsupported native type %T", in)
	}
	return FromCty(k, cv)
}
