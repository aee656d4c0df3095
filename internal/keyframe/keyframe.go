// Package keyframe implements per-component keyframe tracks and their
// deterministic interpolation.
//
// A Track is one scalar channel of one parameter element (for example the x
// of a position). Keyframes are small immutable records held by value: code
// that needs to detach a keyframe and later reinsert it (undo of a removal)
// simply keeps the record.
//
// All time coordinates are rational.Rational. Linear interpolation of
// Numbers is exact. Bezier interpolation solves the curve parameter in
// float64 and quantizes the result to BezierResolution; the curve endpoints
// still return the keyframe values exactly.
package keyframe

import (
	"errors"
	"fmt"

	"github.com/roach88/cutline/internal/rational"
)

var (
	// ErrKeyframeNotFound is returned when no keyframe exists at a time.
	ErrKeyframeNotFound = errors.New("keyframe not found")

	// ErrKeyframeTimeOccupied is returned when moving a keyframe onto the
	// time of another keyframe in the same track.
	ErrKeyframeTimeOccupied = errors.New("keyframe time occupied")

	// ErrUnknownInterpolation is returned for an Interpolation outside
	// Linear, Hold and Bezier.
	ErrUnknownInterpolation = errors.New("unknown interpolation")
)

// Interpolation selects how values between a keyframe and the next one are
// computed. The mode of the earlier keyframe of a pair applies.
type Interpolation int

const (
	// Linear blends by the exact fraction of elapsed time. Zero value.
	Linear Interpolation = iota
	// Hold keeps the earlier keyframe's value until the next keyframe.
	Hold
	// Bezier follows a cubic through the keyframes' handles.
	Bezier
)

// String returns the interpolation name used in scenarios and journals.
func (i Interpolation) String() string {
	switch i {
	case Linear:
		return "linear"
	case Hold:
		return "hold"
	case Bezier:
		return "bezier"
	default:
		return fmt.Sprintf("interpolation(%d)", int(i))
	}
}

// Valid reports whether i is one of the defined modes.
func (i Interpolation) Valid() bool {
	return i >= Linear && i <= Bezier
}

// ParseInterpolation is the inverse of Interpolation.String.
// The empty string means Linear.
func ParseInterpolation(s string) (Interpolation, error) {
	switch s {
	case "", "linear":
		return Linear, nil
	case "hold":
		return Hold, nil
	case "bezier":
		return Bezier, nil
	default:
		return Linear, fmt.Errorf("%w %q", ErrUnknownInterpolation, s)
	}
}

// Handle is a bezier control point stored as an offset from its keyframe.
type Handle struct {
	Time  rational.Rational
	Value rational.Rational
}

// Keyframe is one time/value pair of a track.
type Keyframe struct {
	Time          rational.Rational
	Value         Value
	Interpolation Interpolation

	// InHandle shapes the curve arriving at this keyframe, OutHandle the
	// curve leaving it. Only used by Bezier.
	InHandle  Handle
	OutHandle Handle
}

// New returns a keyframe with no bezier handles.
func New(time rational.Rational, v Value, interp Interpolation) Keyframe {
	return Keyframe{Time: time, Value: v, Interpolation: interp}
}

// Equal compares every field exactly.
func (k Keyframe) Equal(o Keyframe) bool {
	return k.Time.Equal(o.Time) &&
		Equal(k.Value, o.Value) &&
		k.Interpolation == o.Interpolation &&
		k.InHandle == o.InHandle &&
		k.OutHandle == o.OutHandle
}

// String is used in logs and journal descriptions.
func (k Keyframe) String() string {
	return fmt.Sprintf("%s@%s(%s)", k.Value, k.Time, k.Interpolation)
}
