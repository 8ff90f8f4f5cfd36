// Package value defines the tagged values that flow along graph edges.
//
// Every Value wraps a cty.Value. Scalars map onto the cty primitive types and
// image buffers and contour lists travel as cty capsules, so a Value always
// has a null state of its declared kind that is distinct from a present zero.
package value

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"math"
	"reflect"

	"github.com/zclconf/go-cty/cty"
)

// Contour is one closed outline, in image coordinates.
type Contour []image.Point

var (
	grayImageType  = cty.Capsule("gray_image", reflect.TypeOf(image.Gray{}))
	colorImageType = cty.Capsule("color_image", reflect.TypeOf(image.RGBA{}))
	contoursType   = cty.Capsule("contours", reflect.TypeOf([]Contour(nil)))
)

// CtyType returns the cty type used to carry values of kind k.
func (k Kind) CtyType() cty.Type {
	switch k {
	case KindGrayImage:
		return grayImageType
	case KindColorImage:
		return colorImageType
	case KindContours:
		return contoursType
	case KindInt, KindFloat:
		return cty.Number
	case KindBool:
		return cty.Bool
	case KindOption, KindString:
		return cty.String
	}
	return cty.DynamicPseudoType
}

// Value is a kind-tagged cty value. The zero Value is invalid.
type Value struct {
	kind Kind
	v    cty.Value
}

// Null returns the absent value of kind k.
func Null(k Kind) Value {
	return Value{kind: k, v: cty.NullVal(k.CtyType())}
}

// Gray wraps a single-channel image. A nil image yields a null value.
func Gray(img *image.Gray) Value {
	if img == nil {
		return Null(KindGrayImage)
	}
	return Value{kind: KindGrayImage, v: cty.CapsuleVal(grayImageType, img)}
}

// Color wraps a three-channel image. A nil image yields a null value.
func Color(img *image.RGBA) Value {
	if img == nil {
		return Null(KindColorImage)
	}
	return Value{kind: KindColorImage, v: cty.CapsuleVal(colorImageType, img)}
}

// FromImage wraps an arbitrary decoded image. Gray images keep one channel;
// everything else is converted to RGBA. A nil image is a null KindImage.
func FromImage(img image.Image) Value {
	switch typed := img.(type) {
	case nil:
		return Null(KindImage)
	case *image.Gray:
		return Gray(typed)
	case *image.RGBA:
		return Color(typed)
	}
	rgba := image.NewRGBA(img.Bounds())
	draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)
	return Color(rgba)
}

func Int(i int64) Value {
	return Value{kind: KindInt, v: cty.NumberIntVal(i)}
}

func Float(f float64) Value {
	return Value{kind: KindFloat, v: cty.NumberFloatVal(f)}
}

func Bool(b bool) Value {
	return Value{kind: KindBool, v: cty.BoolVal(b)}
}

// Option is a named choice; the allowed set lives on the socket.
func Option(choice string) Value {
	return Value{kind: KindOption, v: cty.StringVal(choice)}
}

func String(s string) Value {
	return Value{kind: KindString, v: cty.StringVal(s)}
}

// Contours wraps a contour list. A nil list yields a null value; an empty
// non-nil list is present.
func Contours(list []Contour) Value {
	if list == nil {
		return Null(KindContours)
	}
	return Value{kind: KindContours, v: cty.CapsuleVal(contoursType, &list)}
}

// Kind returns the runtime tag.
func (v Value) Kind() Kind { return v.kind }

// IsValid reports whether v was built by one of the constructors.
func (v Value) IsValid() bool { return v.kind != KindInvalid }

// IsNull reports whether v is absent. The zero Value counts as absent.
func (v Value) IsNull() bool {
	return v.kind == KindInvalid || v.v.IsNull()
}

// Cty exposes the underlying cty value.
func (v Value) Cty() cty.Value { return v.v }

func (v Value) AsGray() (*image.Gray, bool) {
	if v.kind != KindGrayImage || v.IsNull() {
		return nil, false
	}
	return v.v.EncapsulatedValue().(*image.Gray), true
}

func (v Value) AsColor() (*image.RGBA, bool) {
	if v.kind != KindColorImage || v.IsNull() {
		return nil, false
	}
	return v.v.EncapsulatedValue().(*image.RGBA), true
}

// AsImage returns the payload of either image kind, or nil when absent.
func (v Value) AsImage() image.Image {
	if g, ok := v.AsGray(); ok {
		return g
	}
	if c, ok := v.AsColor(); ok {
		return c
	}
	return nil
}

func (v Value) AsInt() (int64, bool) {
	if v.kind != KindInt || v.IsNull() {
		return 0, false
	}
	i, _ := v.v.AsBigFloat().Int64()
	return i, true
}

// AsFloat accepts both numeric kinds.
func (v Value) AsFloat() (float64, bool) {
	if !v.kind.IsNumeric() || v.IsNull() {
		return 0, false
	}
	f, _ := v.v.AsBigFloat().Float64()
	return f, true
}

func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool || v.IsNull() {
		return false, false
	}
	return v.v.True(), true
}

// AsString accepts both option and string kinds.
func (v Value) AsString() (string, bool) {
	if (v.kind != KindOption && v.kind != KindString) || v.IsNull() {
		return "", false
	}
	return v.v.AsString(), true
}

func (v Value) AsContours() ([]Contour, bool) {
	if v.kind != KindContours || v.IsNull() {
		return nil, false
	}
	return *v.v.EncapsulatedValue().(*[]Contour), true
}

// Equal compares kind, presence and payload. Images compare by bounds and
// pixel bytes, not identity.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	if v.IsNull() || o.IsNull() {
		return v.IsNull() == o.IsNull()
	}
	switch v.kind {
	case KindGrayImage:
		a, _ := v.AsGray()
		b, _ := o.AsGray()
		return a.Rect == b.Rect && bytes.Equal(a.Pix, b.Pix)
	case KindColorImage:
		a, _ := v.AsColor()
		b, _ := o.AsColor()
		return a.Rect == b.Rect && bytes.Equal(a.Pix, b.Pix)
	case KindContours:
		a, _ := v.AsContours()
		b, _ := o.AsContours()
		return reflect.DeepEqual(a, b)
	}
	return v.v.Equals(o.v).True()
}

// String renders v for logs and error messages.
func (v Value) String() string {
	if !v.IsValid() {
		return "<invalid>"
	}
	if v.IsNull() {
		return fmt.Sprintf("null(%s)", v.kind)
	}
	switch v.kind {
	case KindGrayImage, KindColorImage:
		b := v.AsImage().Bounds()
		return fmt.Sprintf("%s(%dx%d)", v.kind, b.Dx(), b.Dy())
	case KindContours:
		list, _ := v.AsContours()
		return fmt.Sprintf("contours(%d)", len(list))
	case KindInt:
		i, _ := v.AsInt()
		return fmt.Sprintf("%d", i)
	case KindFloat:
		f, _ := v.AsFloat()
		if f == math.Trunc(f) {
			return fmt.Sprintf("%.1f", f)
		}
		return fmt.Sprintf("%g", f)
	case KindBool:
		b, _ := v.AsBool()
		return fmt.Sprintf("%t", b)
	}
	s, _ := v.AsString()
	return fmt.Sprintf("%q", s)
}
