// Package timerange implements half-open intervals over rational time and a
// normalized set of such intervals.
//
// Conventions, applied everywhere in this package:
//   - A range with in > out is rejected with ErrMalformedRange. Nothing is
//     swapped or clamped on the caller's behalf.
//   - Overlap is strict half-open: a.in < b.out && b.in < a.out. Two ranges
//     that only share a boundary point do not overlap; they Touch.
//   - An empty range (in == out) is the empty set. It overlaps nothing and
//     inserting or removing it leaves a List unchanged.
package timerange

import (
	"errors"
	"fmt"

	"github.com/roach88/cutline/internal/rational"
)

// ErrMalformedRange is returned when in > out.
var ErrMalformedRange = errors.New("malformed time range")

// TimeRange is the half-open interval [in, out).
// Length is derived from the bounds on demand. Any two ordered rationals
// form a range, even when out - in does not fit in an int64 fraction.
type TimeRange struct {
	in  rational.Rational
	out rational.Rational
}

// New creates [in, out). Fails with ErrMalformedRange when in > out.
func New(in, out rational.Rational) (TimeRange, error) {
	var r TimeRange
	if err := r.SetRange(in, out); err != nil {
		return TimeRange{}, err
	}
	return r, nil
}

// MustNew is like New but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustNew(in, out rational.Rational) TimeRange {
	r, err := New(in, out)
	if err != nil {
		panic(err)
	}
	return r
}

// Ints is shorthand for New(FromInt(in), FromInt(out)), panicking on error.
func Ints(in, out int64) TimeRange {
	return MustNew(rational.FromInt(in), rational.FromInt(out))
}

// All spans the whole timeline.
func All() TimeRange {
	return span(rational.MinTime, rational.MaxTime)
}

// span builds a range from bounds the caller has already ordered.
func span(in, out rational.Rational) TimeRange {
	return TimeRange{in: in, out: out}
}

// In returns the inclusive start.
func (r TimeRange) In() rational.Rational { return r.in }

// Out returns the exclusive end.
func (r TimeRange) Out() rational.Rational { return r.out }

// Length returns Out - In. Fails with rational.ErrOverflow when the
// difference is not representable, for example between bounds on two
// unrelated fine timebases.
func (r TimeRange) Length() (rational.Rational, error) {
	length, err := r.out.Sub(r.in)
	if err != nil {
		return rational.Rational{}, fmt.Errorf("time range length: %w", err)
	}
	return length, nil
}

// IsEmpty reports whether in == out.
func (r TimeRange) IsEmpty() bool { return r.in.Equal(r.out) }

// SetIn moves the start. The range is unchanged on error.
func (r *TimeRange) SetIn(in rational.Rational) error {
	return r.SetRange(in, r.out)
}

// SetOut moves the end. The range is unchanged on error.
func (r *TimeRange) SetOut(out rational.Rational) error {
	return r.SetRange(r.in, out)
}

// SetRange replaces both bounds. The range is unchanged on error.
func (r *TimeRange) SetRange(in, out rational.Rational) error {
	if in.Greater(out) {
		return fmt.Errorf("%w: in %s > out %s", ErrMalformedRange, in, out)
	}
	r.in, r.out = in, out
	return nil
}

// Equal reports whether in and out match exactly.
func (r TimeRange) Equal(o TimeRange) bool {
	return r.in.Equal(o.in) && r.out.Equal(o.out)
}

// OverlapsWith reports whether the two half-open intervals share any point.
// A shared boundary alone is not overlap.
func (r TimeRange) OverlapsWith(o TimeRange) bool {
	return Overlap(r, o)
}

// Touches reports whether the ranges overlap or are adjacent (one ends
// exactly where the other begins). Empty ranges touch nothing.
func (r TimeRange) Touches(o TimeRange) bool {
	if r.IsEmpty() || o.IsEmpty() {
		return false
	}
	return r.in.LessEq(o.out) && o.in.LessEq(r.out)
}

// CombineWith returns the bounding union {min(in), max(out)}. Valid for
// disjoint ranges, in which case the result also covers the gap.
func (r TimeRange) CombineWith(o TimeRange) TimeRange {
	return Combine(r, o)
}

// Contains reports whether o lies within r. With inoutInclusive, o may
// share r's boundaries; without it, o must be strictly inside.
func (r TimeRange) Contains(o TimeRange, inoutInclusive bool) bool {
	if inoutInclusive {
		return r.in.LessEq(o.in) && o.out.LessEq(r.out)
	}
	return r.in.Less(o.in) && o.out.Less(r.out)
}

// Intersected returns r ∩ o and whether it is non-empty.
func (r TimeRange) Intersected(o TimeRange) (TimeRange, bool) {
	if !Overlap(r, o) {
		return TimeRange{}, false
	}
	return span(rational.Max(r.in, o.in), rational.Min(r.out, o.out)), true
}

// String formats the range as "[in, out)".
func (r TimeRange) String() string {
	return fmt.Sprintf("[%s, %s)", r.in, r.out)
}

// Overlap reports whether a and b share any point (strict half-open).
// An empty range has no points and overlaps nothing.
func Overlap(a, b TimeRange) bool {
	if a.IsEmpty() || b.IsEmpty() {
		return false
	}
	return a.in.Less(b.out) && b.in.Less(a.out)
}

// Combine returns the bounding union of a and b.
func Combine(a, b TimeRange) TimeRange {
	return span(rational.Min(a.in, b.in), rational.Max(a.out, b.out))
}
