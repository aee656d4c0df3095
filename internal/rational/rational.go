// Package rational provides the exact fractional time value used by every
// timeline and keyframe computation.
//
// A Rational is an int64 numerator over a positive int64 denominator, always
// reduced. Arithmetic is carried out in math/big and the result is checked
// back into int64: an operation that cannot be represented returns
// ErrOverflow rather than rounding. Floating point is available through
// Float64 for display only.
package rational

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"
)

var (
	// ErrInvalidRational is returned for a zero denominator, either at
	// construction, in Div, or when parsing.
	ErrInvalidRational = errors.New("invalid rational")

	// ErrOverflow is returned when an exact result does not fit in int64.
	ErrOverflow = errors.New("rational overflow")
)

// Rational is an exact signed fraction.
//
// The zero value is 0. The representation is canonical, so == and
// reflect.DeepEqual agree with Equal.
type Rational struct {
	num int64
	dm1 int64 // denominator minus one, so the zero value reads as 0/1
}

// Timeline bounds standing in for negative and positive infinity.
// MaxTime - MinTime still fits in an int64.
var (
	MinTime = Rational{num: -(1 << 61)}
	MaxTime = Rational{num: 1 << 61}
)

// Zero is the rational 0.
var Zero = Rational{}

// New creates num/den reduced to lowest terms with a positive denominator.
func New(num, den int64) (Rational, error) {
	if den == 0 {
		return Rational{}, fmt.Errorf("%w: %d/0", ErrInvalidRational, num)
	}
	return fromBig(new(big.Rat).SetFrac64(num, den))
}

// MustNew is like New but panics on error.
// Use only in tests or for constants known to be valid.
func MustNew(num, den int64) Rational {
	r, err := New(num, den)
	if err != nil {
		panic(err)
	}
	return r
}

// FromInt returns n/1.
func FromInt(n int64) Rational {
	return Rational{num: n}
}

// Num returns the reduced numerator.
func (r Rational) Num() int64 {
	return r.num
}

// Den returns the reduced, always positive, denominator.
func (r Rational) Den() int64 {
	return r.denom()
}

func (r Rational) denom() int64 {
	return r.dm1 + 1
}

func (r Rational) toBig() *big.Rat {
	return new(big.Rat).SetFrac64(r.num, r.denom())
}

// fromBig converts back to int64 form, failing instead of truncating.
func fromBig(b *big.Rat) (Rational, error) {
	n, d := b.Num(), b.Denom()
	if !n.IsInt64() || !d.IsInt64() {
		return Rational{}, fmt.Errorf("%w: %s", ErrOverflow, b.RatString())
	}
	return Rational{num: n.Int64(), dm1: d.Int64() - 1}, nil
}

// Add returns r + o.
func (r Rational) Add(o Rational) (Rational, error) {
	return fromBig(new(big.Rat).Add(r.toBig(), o.toBig()))
}

// Sub returns r - o.
func (r Rational) Sub(o Rational) (Rational, error) {
	return fromBig(new(big.Rat).Sub(r.toBig(), o.toBig()))
}

// Mul returns r * o.
func (r Rational) Mul(o Rational) (Rational, error) {
	return fromBig(new(big.Rat).Mul(r.toBig(), o.toBig()))
}

// Div returns r / o. Dividing by zero fails with ErrInvalidRational.
func (r Rational) Div(o Rational) (Rational, error) {
	if o.IsZero() {
		return Rational{}, fmt.Errorf("%w: division of %s by zero", ErrInvalidRational, r)
	}
	return fromBig(new(big.Rat).Quo(r.toBig(), o.toBig()))
}

// Neg returns -r.
func (r Rational) Neg() (Rational, error) {
	return fromBig(new(big.Rat).Neg(r.toBig()))
}

// Abs returns |r|.
func (r Rational) Abs() (Rational, error) {
	return fromBig(new(big.Rat).Abs(r.toBig()))
}

// Sign returns -1, 0 or +1.
func (r Rational) Sign() int {
	switch {
	case r.num < 0:
		return -1
	case r.num > 0:
		return 1
	default:
		return 0
	}
}

// IsZero reports whether r == 0.
func (r Rational) IsZero() bool {
	return r.num == 0
}

// Cmp compares r and o exactly and returns -1, 0 or +1.
func (r Rational) Cmp(o Rational) int {
	if r.dm1 == o.dm1 {
		switch {
		case r.num < o.num:
			return -1
		case r.num > o.num:
			return 1
		default:
			return 0
		}
	}
	return r.toBig().Cmp(o.toBig())
}

// Equal reports r == o.
func (r Rational) Equal(o Rational) bool { return r.Cmp(o) == 0 }

// Less reports r < o.
func (r Rational) Less(o Rational) bool { return r.Cmp(o) < 0 }

// LessEq reports r <= o.
func (r Rational) LessEq(o Rational) bool { return r.Cmp(o) <= 0 }

// Greater reports r > o.
func (r Rational) Greater(o Rational) bool { return r.Cmp(o) > 0 }

// GreaterEq reports r >= o.
func (r Rational) GreaterEq(o Rational) bool { return r.Cmp(o) >= 0 }

// Min returns the smaller of a and b.
func Min(a, b Rational) Rational {
	if b.Less(a) {
		return b
	}
	return a
}

// Max returns the larger of a and b.
func Max(a, b Rational) Rational {
	if b.Greater(a) {
		return b
	}
	return a
}

// Float64 returns the nearest float64. For display only: timeline logic
// must never compare or accumulate floats.
func (r Rational) Float64() float64 {
	f, _ := r.toBig().Float64()
	return f
}

// String returns "n" for whole numbers and "n/d" otherwise.
func (r Rational) String() string {
	if r.denom() == 1 {
		return fmt.Sprintf("%d", r.num)
	}
	return fmt.Sprintf("%d/%d", r.num, r.denom())
}

// Parse reads "n", "n/d" or a finite decimal such as "2.5" (converted
// exactly to 5/2).
func Parse(s string) (Rational, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Rational{}, fmt.Errorf("%w: empty string", ErrInvalidRational)
	}
	if i := strings.IndexByte(s, '/'); i >= 0 && strings.TrimSpace(s[i+1:]) == "0" {
		return Rational{}, fmt.Errorf("%w: %q has a zero denominator", ErrInvalidRational, s)
	}
	b, ok := new(big.Rat).SetString(s)
	if !ok {
		return Rational{}, fmt.Errorf("%w: cannot parse %q", ErrInvalidRational, s)
	}
	return fromBig(b)
}

// MustParse is like Parse but panics on error.
func MustParse(s string) Rational {
	r, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return r
}

// MarshalText implements encoding.TextMarshaler.
func (r Rational) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Rational) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// Approximate converts a float to the nearest multiple of 1/den. It exists
// for the few computations that are inherently approximate (bezier curve
// solving, user input typed as a float); exact inputs never pass through it.
func Approximate(f float64, den int64) (Rational, error) {
	if den <= 0 {
		return Rational{}, fmt.Errorf("%w: non-positive denominator %d", ErrInvalidRational, den)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Rational{}, fmt.Errorf("%w: %v is not finite", ErrInvalidRational, f)
	}
	scaled := math.Round(f * float64(den))
	if math.Abs(scaled) >= 1<<62 {
		return Rational{}, fmt.Errorf("%w: %v", ErrOverflow, f)
	}
	return New(int64(scaled), den)
}
