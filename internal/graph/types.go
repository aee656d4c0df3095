package graph

import (
	"fmt"
	"strings"

	"github.com/roach88/cutline/internal/keyframe"
	"github.com/roach88/cutline/internal/rational"
)

// DataType is the value type of an input. Each type is made of one or more
// scalar component tracks.
type DataType int

const (
	TypeNumber DataType = iota + 1
	TypeVec2
	TypeVec3
	TypeColor
	TypeBool
	TypeText
)

var dataTypeNames = map[DataType]string{
	TypeNumber: "number",
	TypeVec2:   "vec2",
	TypeVec3:   "vec3",
	TypeColor:  "color",
	TypeBool:   "bool",
	TypeText:   "text",
}

func (t DataType) String() string {
	if n, ok := dataTypeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("datatype(%d)", int(t))
}

// ParseDataType is the inverse of DataType.String.
func ParseDataType(s string) (DataType, error) {
	for t, n := range dataTypeNames {
		if n == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown data type %q", s)
}

// TrackCount is the number of component tracks: x/y for vec2, r/g/b/a for
// color, and so on.
func (t DataType) TrackCount() int {
	switch t {
	case TypeVec2:
		return 2
	case TypeVec3:
		return 3
	case TypeColor:
		return 4
	default:
		return 1
	}
}

// TrackKind is the scalar kind every component track of t holds.
func (t DataType) TrackKind() keyframe.Kind {
	switch t {
	case TypeBool:
		return keyframe.KindBool
	case TypeText:
		return keyframe.KindText
	default:
		return keyframe.KindNumber
	}
}

// TypedValue is a complete value of an input element: one scalar per
// component track.
type TypedValue struct {
	Type       DataType
	Components []keyframe.Value
}

// DefaultTypedValue is all components at their kind's default.
func DefaultTypedValue(t DataType) TypedValue {
	comps := make([]keyframe.Value, t.TrackCount())
	for i := range comps {
		comps[i] = keyframe.DefaultValue(t.TrackKind())
	}
	return TypedValue{Type: t, Components: comps}
}

// NumberValue builds a TypeNumber value.
func NumberValue(r rational.Rational) TypedValue {
	return TypedValue{Type: TypeNumber, Components: []keyframe.Value{keyframe.Num(r)}}
}

// Vec2Value builds a TypeVec2 value.
func Vec2Value(x, y rational.Rational) TypedValue {
	return TypedValue{Type: TypeVec2, Components: []keyframe.Value{keyframe.Num(x), keyframe.Num(y)}}
}

// Vec3Value builds a TypeVec3 value.
func Vec3Value(x, y, z rational.Rational) TypedValue {
	return TypedValue{Type: TypeVec3, Components: []keyframe.Value{keyframe.Num(x), keyframe.Num(y), keyframe.Num(z)}}
}

// ColorValue builds a TypeColor value.
func ColorValue(r, g, b, a rational.Rational) TypedValue {
	return TypedValue{Type: TypeColor, Components: []keyframe.Value{
		keyframe.Num(r), keyframe.Num(g), keyframe.Num(b), keyframe.Num(a),
	}}
}

// BoolValue builds a TypeBool value.
func BoolValue(b bool) TypedValue {
	return TypedValue{Type: TypeBool, Components: []keyframe.Value{keyframe.Bool(b)}}
}

// TextValue builds a TypeText value.
func TextValue(s string) TypedValue {
	return TypedValue{Type: TypeText, Components: []keyframe.Value{keyframe.Text(s)}}
}

// ParseTypedValue reads a value of type t from one string per component,
// each in keyframe.ParseValue form.
func ParseTypedValue(t DataType, parts []string) (TypedValue, error) {
	if len(parts) != t.TrackCount() {
		return TypedValue{}, fmt.Errorf("%w: %s needs %d components, got %d",
			ErrTypeMismatch, t, t.TrackCount(), len(parts))
	}
	comps := make([]keyframe.Value, len(parts))
	for i, p := range parts {
		v, err := keyframe.ParseValue(t.TrackKind(), p)
		if err != nil {
			return TypedValue{}, fmt.Errorf("component %d: %w", i, err)
		}
		comps[i] = v
	}
	return TypedValue{Type: t, Components: comps}, nil
}

// Check verifies v has the component count and kinds of type t.
func (v TypedValue) Check(t DataType) error {
	if v.Type != t {
		return fmt.Errorf("%w: want %s, got %s", ErrTypeMismatch, t, v.Type)
	}
	if len(v.Components) != t.TrackCount() {
		return fmt.Errorf("%w: %s has %d components, got %d",
			ErrTypeMismatch, t, t.TrackCount(), len(v.Components))
	}
	for i, c := range v.Components {
		if c == nil || c.Kind() != t.TrackKind() {
			return fmt.Errorf("%w: component %d of %s", ErrTypeMismatch, i, t)
		}
	}
	return nil
}

// Equal compares type and every component exactly.
func (v TypedValue) Equal(o TypedValue) bool {
	if v.Type != o.Type || len(v.Components) != len(o.Components) {
		return false
	}
	for i := range v.Components {
		if !keyframe.Equal(v.Components[i], o.Components[i]) {
			return false
		}
	}
	return true
}

// String returns the single component for scalar types and "(a, b, ...)"
// otherwise.
func (v TypedValue) String() string {
	if len(v.Components) == 1 {
		return v.Components[0].String()
	}
	parts := make([]string, len(v.Components))
	for i, c := range v.Components {
		parts[i] = c.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// InputDef describes one input of a node type.
type InputDef struct {
	Name        string
	Type        DataType
	Array       bool
	Keyframable bool
	Connectable bool

	// Size is the initial number of elements of an array input.
	Size int

	// Default seeds every standard element. A zero Default means
	// DefaultTypedValue(Type).
	Default TypedValue
}

func (d InputDef) defaultValue() TypedValue {
	if d.Default.Type == 0 {
		return DefaultTypedValue(d.Type)
	}
	return d.Default
}

// NodeType is a named, ordered set of input definitions.
type NodeType struct {
	Name   string
	Inputs []InputDef
}

// Element addresses one element of an input: the whole input, or one slot
// of an array input. The zero value is Whole().
type Element struct {
	index int
	slot  bool
}

// Whole addresses a non-array input.
func Whole() Element { return Element{} }

// At addresses slot i of an array input.
func At(i int) Element { return Element{index: i, slot: true} }

// Index returns the array slot, or false for Whole().
func (e Element) Index() (int, bool) { return e.index, e.slot }

// IsWhole reports whether e is Whole().
func (e Element) IsWhole() bool { return !e.slot }

func (e Element) String() string {
	if !e.slot {
		return "whole"
	}
	return fmt.Sprintf("[%d]", e.index)
}

// NodeID identifies a node within a project.
type NodeID string

// Key identifies one input element in a project.
type Key struct {
	Node    NodeID
	Input   string
	Element Element
}

func (k Key) String() string {
	if k.Element.IsWhole() {
		return fmt.Sprintf("%s.%s", k.Node, k.Input)
	}
	return fmt.Sprintf("%s.%s%s", k.Node, k.Input, k.Element)
}
