package value

import (
	"fmt"
	"strings"
)

// Kind is the declared type of a socket and the runtime tag of a Value.
type Kind int

const (
	KindInvalid Kind = iota
	// KindImage is a declared-only general image; a present value is always
	// either KindGrayImage or KindColorImage.
	KindImage
	KindGrayImage
	KindColorImage
	KindInt
	KindFloat
	KindBool
	KindOption
	KindString
	KindContours
)

var kindNames = map[Kind]string{
	KindImage:      "image",
	KindGrayImage:  "gray_image",
	KindColorImage: "color_image",
	KindInt:        "int",
	KindFloat:      "float",
	KindBool:       "bool",
	KindOption:     "option",
	KindString:     "string",
	KindContours:   "contours",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("invalid(%d)", int(k))
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return KindInvalid, fmt.Errorf("unknown value kind %q", s)
}

// MarshalText lets kinds appear as names in JSON and YAML documents.
func (k Kind) MarshalText() ([]byte, error) {
	if _, ok := kindNames[k]; !ok {
		return nil, fmt.Errorf("cannot marshal value kind %d", int(k))
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// IsImage reports whether k is any of the image kinds.
func (k Kind) IsImage() bool {
	return k == KindImage || k == KindGrayImage || k == KindColorImage
}

// IsNumeric reports whether values of kind k can carry min/max bounds.
func (k Kind) IsNumeric() bool {
	return k == KindInt || k == KindFloat
}

// Compatible reports whether an output of kind from may be connected to an
// input of kind to. Narrowing from KindImage to a concrete image kind is
// accepted here and checked again by Conform once a value arrives.
func Compatible(from, to Kind) bool {
	if from == KindInvalid || to == KindInvalid {
		return false
	}
	if from == to {
		return true
	}
	switch to {
	case KindImage:
		return from == KindGrayImage || from == KindColorImage
	case KindGrayImage, KindColorImage:
		return from == KindImage
	case KindFloat:
		return from == KindInt
	}
	return false
}

// Conform adapts v to the declared kind to. It returns false when the runtime
// payload does not satisfy the declared kind, for example a color frame
// arriving on a gray input.
func Conform(v Value, to Kind) (Value, bool) {
	if v.kind == to {
		return v, true
	}
	if v.IsNull() {
		if !Compatible(v.kind, to) && !(to.IsImage() && v.kind.IsImage()) {
			return Value{}, false
		}
		return Null(to), true
	}
	switch to {
	case KindImage:
		return v, v.kind == KindGrayImage || v.kind == KindColorImage
	case KindFloat:
		if i, ok := v.AsInt(); ok {
			return Float(float64(i)), true
		}
	}
	return Value{}, false
}
