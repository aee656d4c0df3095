package keyframe

import (
	"fmt"
	"strconv"

	"github.com/roach88/cutline/internal/rational"
)

// Kind identifies the scalar type carried by a track.
type Kind int

const (
	// KindNumber is an exact rational scalar; the only interpolatable kind.
	KindNumber Kind = iota + 1
	// KindBool is a boolean scalar; always held.
	KindBool
	// KindText is a string scalar; always held.
	KindText
)

// String returns the kind name used in catalogs and scenarios.
func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindText:
		return "text"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is a sealed interface over the scalar types a track can hold.
// Only Number, Bool and Text implement it.
type Value interface {
	Kind() Kind
	String() string
	value() // sealed
}

// Number is an exact rational scalar.
type Number struct {
	rational.Rational
}

func (Number) value() {}

// Kind returns KindNumber.
func (Number) Kind() Kind { return KindNumber }

// Bool is a boolean scalar.
type Bool bool

func (Bool) value() {}

// Kind returns KindBool.
func (Bool) Kind() Kind { return KindBool }

func (b Bool) String() string { return strconv.FormatBool(bool(b)) }

// Text is a string scalar.
type Text string

func (Text) value() {}

// Kind returns KindText.
func (Text) Kind() Kind { return KindText }

func (s Text) String() string { return string(s) }

// Num wraps a rational as a Number.
func Num(r rational.Rational) Number {
	return Number{Rational: r}
}

// Int is shorthand for Num(rational.FromInt(n)).
func Int(n int64) Number {
	return Number{Rational: rational.FromInt(n)}
}

// DefaultValue is what an empty track of the given kind evaluates to.
func DefaultValue(k Kind) Value {
	switch k {
	case KindBool:
		return Bool(false)
	case KindText:
		return Text("")
	default:
		return Number{}
	}
}

// Equal compares two values exactly. Values of different kinds are never
// equal; two nil values are.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch av := a.(type) {
	case Number:
		bv, ok := b.(Number)
		return ok && av.Rational.Equal(bv.Rational)
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Text:
		bv, ok := b.(Text)
		return ok && av == bv
	default:
		return false
	}
}

// ParseValue reads the textual form of a value of kind k: a rational for
// numbers ("1/2", "2.5", "10"), "true"/"false" for bools, raw text for text.
func ParseValue(k Kind, s string) (Value, error) {
	switch k {
	case KindNumber:
		r, err := rational.Parse(s)
		if err != nil {
			return nil, err
		}
		return Num(r), nil
	case KindBool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("parse bool %q: %w", s, err)
		}
		return Bool(b), nil
	case KindText:
		return Text(s), nil
	default:
		return nil, fmt.Errorf("parse value: unknown kind %s", k)
	}
}
