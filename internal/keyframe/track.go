package keyframe

import (
	"fmt"
	"slices"

	"github.com/roach88/cutline/internal/rational"
	"github.com/roach88/cutline/internal/timerange"
)

// BezierResolution is the denominator bezier results are quantized to.
const BezierResolution = 1 << 16

// bezierIterations bounds the bisection for the curve parameter. 64 halvings
// exhaust float64 precision on [0, 1].
const bezierIterations = 64

// Track is an ordered sequence of keyframes for one scalar channel.
// Times are strictly increasing. The zero value is an empty track.
type Track struct {
	keys []Keyframe
}

// NewTrack builds a track from keyframes in any order. Later keyframes at an
// already used time replace earlier ones.
func NewTrack(keys ...Keyframe) *Track {
	t := &Track{}
	for _, k := range keys {
		t.InsertKeyframe(k)
	}
	return t
}

func (t *Track) search(at rational.Rational) (int, bool) {
	return slices.BinarySearchFunc(t.keys, at, func(k Keyframe, at rational.Rational) int {
		return k.Time.Cmp(at)
	})
}

// InsertKeyframe places k in time order. If a keyframe already exists at
// k.Time it is overwritten and returned with replaced == true.
func (t *Track) InsertKeyframe(k Keyframe) (prev Keyframe, replaced bool) {
	i, found := t.search(k.Time)
	if found {
		prev = t.keys[i]
		t.keys[i] = k
		return prev, true
	}
	t.keys = slices.Insert(t.keys, i, k)
	return Keyframe{}, false
}

// RemoveKeyframe detaches the keyframe at time and returns it.
func (t *Track) RemoveKeyframe(at rational.Rational) (Keyframe, bool) {
	i, found := t.search(at)
	if !found {
		return Keyframe{}, false
	}
	k := t.keys[i]
	t.keys = slices.Delete(t.keys, i, i+1)
	return k, true
}

// KeyframeAt returns the keyframe at exactly time.
func (t *Track) KeyframeAt(at rational.Rational) (Keyframe, bool) {
	i, found := t.search(at)
	if !found {
		return Keyframe{}, false
	}
	return t.keys[i], true
}

// Keyframes returns a copy of the keyframes in time order.
func (t *Track) Keyframes() []Keyframe { return slices.Clone(t.keys) }

// Len returns the number of keyframes.
func (t *Track) Len() int { return len(t.keys) }

// IsEmpty reports whether the track has no keyframes.
func (t *Track) IsEmpty() bool { return len(t.keys) == 0 }

// First returns the earliest keyframe.
func (t *Track) First() (Keyframe, bool) {
	if len(t.keys) == 0 {
		return Keyframe{}, false
	}
	return t.keys[0], true
}

// Last returns the latest keyframe.
func (t *Track) Last() (Keyframe, bool) {
	if len(t.keys) == 0 {
		return Keyframe{}, false
	}
	return t.keys[len(t.keys)-1], true
}

// Clone returns an independent copy.
func (t *Track) Clone() *Track {
	return &Track{keys: slices.Clone(t.keys)}
}

// Equal reports whether both tracks hold identical keyframes.
func (t *Track) Equal(o *Track) bool {
	return slices.EqualFunc(t.keys, o.keys, Keyframe.Equal)
}

// SetKeyframeTime moves the keyframe at from to to, keeping the track sorted.
func (t *Track) SetKeyframeTime(from, to rational.Rational) error {
	i, found := t.search(from)
	if !found {
		return fmt.Errorf("%w at %s", ErrKeyframeNotFound, from)
	}
	if from.Equal(to) {
		return nil
	}
	if _, occupied := t.search(to); occupied {
		return fmt.Errorf("%w: %s", ErrKeyframeTimeOccupied, to)
	}
	k := t.keys[i]
	t.keys = slices.Delete(t.keys, i, i+1)
	k.Time = to
	j, _ := t.search(to)
	t.keys = slices.Insert(t.keys, j, k)
	return nil
}

// SetKeyframeValue replaces the value of the keyframe at time and returns
// the previous one.
func (t *Track) SetKeyframeValue(at rational.Rational, v Value) (Value, error) {
	i, found := t.search(at)
	if !found {
		return nil, fmt.Errorf("%w at %s", ErrKeyframeNotFound, at)
	}
	prev := t.keys[i].Value
	t.keys[i].Value = v
	return prev, nil
}

// SetKeyframeInterpolation replaces the interpolation of the keyframe at
// time and returns the previous mode.
func (t *Track) SetKeyframeInterpolation(at rational.Rational, interp Interpolation) (Interpolation, error) {
	if !interp.Valid() {
		return Linear, fmt.Errorf("%w: %s", ErrUnknownInterpolation, interp)
	}
	i, found := t.search(at)
	if !found {
		return Linear, fmt.Errorf("%w at %s", ErrKeyframeNotFound, at)
	}
	prev := t.keys[i].Interpolation
	t.keys[i].Interpolation = interp
	return prev, nil
}

// AffectedRange is the span whose evaluated values depend on the keyframe
// at time: from the previous keyframe to the next one, unbounded at the
// track's edges where values are clamped. Keyframes placed beyond
// rational.MaxTime or before rational.MinTime widen it to the whole
// timeline.
func (t *Track) AffectedRange(at rational.Rational) timerange.TimeRange {
	in, out := rational.MinTime, rational.MaxTime
	i, found := t.search(at)
	if i > 0 {
		in = t.keys[i-1].Time
	}
	if found {
		i++
	}
	if i < len(t.keys) {
		out = t.keys[i].Time
	}
	r, err := timerange.New(in, out)
	if err != nil {
		return timerange.All()
	}
	return r
}

// ValueAt evaluates the track at time. An empty track yields
// DefaultValue(kind). Outside the keyed span the edge value is returned.
// A lookup at the exact time of a keyframe returns its value unchanged.
func (t *Track) ValueAt(at rational.Rational, kind Kind) (Value, error) {
	if len(t.keys) == 0 {
		return DefaultValue(kind), nil
	}
	i, found := t.search(at)
	switch {
	case found:
		return t.keys[i].Value, nil
	case i == 0:
		return t.keys[0].Value, nil
	case i == len(t.keys):
		return t.keys[i-1].Value, nil
	}

	before, after := t.keys[i-1], t.keys[i]
	v0, ok0 := before.Value.(Number)
	v1, ok1 := after.Value.(Number)
	if !ok0 || !ok1 {
		return before.Value, nil
	}

	switch before.Interpolation {
	case Hold:
		return before.Value, nil
	case Bezier:
		return bezierAt(before, after, at)
	default:
		return linearAt(before.Time, after.Time, v0.Rational, v1.Rational, at)
	}
}

// linearAt returns v0 + (v1-v0) * (at-t0)/(t1-t0), exactly.
func linearAt(t0, t1, v0, v1, at rational.Rational) (Value, error) {
	elapsed, err := at.Sub(t0)
	if err != nil {
		return nil, err
	}
	span, err := t1.Sub(t0)
	if err != nil {
		return nil, err
	}
	frac, err := elapsed.Div(span)
	if err != nil {
		return nil, err
	}
	delta, err := v1.Sub(v0)
	if err != nil {
		return nil, err
	}
	step, err := delta.Mul(frac)
	if err != nil {
		return nil, err
	}
	v, err := v0.Add(step)
	if err != nil {
		return nil, err
	}
	return Num(v), nil
}

// bezierAt evaluates the cubic through the keyframes and their handles.
// Control point times are clamped into [t0, t1] so x(s) stays monotonic.
func bezierAt(before, after Keyframe, at rational.Rational) (Value, error) {
	t0, t1 := before.Time.Float64(), after.Time.Float64()
	v0 := before.Value.(Number).Float64()
	v1 := after.Value.(Number).Float64()

	x1 := clamp(t0+before.OutHandle.Time.Float64(), t0, t1)
	y1 := v0 + before.OutHandle.Value.Float64()
	x2 := clamp(t1+after.InHandle.Time.Float64(), t0, t1)
	y2 := v1 + after.InHandle.Value.Float64()

	x := at.Float64()
	lo, hi := 0.0, 1.0
	for range bezierIterations {
		mid := (lo + hi) / 2
		if cubic(t0, x1, x2, t1, mid) < x {
			lo = mid
		} else {
			hi = mid
		}
	}
	y := cubic(v0, y1, y2, v1, (lo+hi)/2)

	r, err := rational.Approximate(y, BezierResolution)
	if err != nil {
		return nil, fmt.Errorf("bezier value: %w", err)
	}
	return Num(r), nil
}

func cubic(p0, p1, p2, p3, s float64) float64 {
	u := 1 - s
	return u*u*u*p0 + 3*u*u*s*p1 + 3*u*s*s*p2 + s*s*s*p3
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(v, hi))
}
