package graph

import (
	"fmt"
	"slices"
	"sync"

	"github.com/roach88/cutline/internal/keyframe"
	"github.com/roach88/cutline/internal/rational"
	"github.com/roach88/cutline/internal/timerange"
)

// elementState is the tagged variant held by every element: exactly one of
// standardState or keyframedState.
type elementState interface {
	isElementState()
}

type standardState struct {
	values []keyframe.Value
}

type keyframedState struct {
	tracks []*keyframe.Track
}

func (standardState) isElementState()  {}
func (keyframedState) isElementState() {}

func cloneState(s elementState) elementState {
	switch s := s.(type) {
	case standardState:
		return standardState{values: slices.Clone(s.values)}
	case keyframedState:
		tracks := make([]*keyframe.Track, len(s.tracks))
		for i, t := range s.tracks {
			tracks[i] = t.Clone()
		}
		return keyframedState{tracks: tracks}
	default:
		return nil
	}
}

type element struct {
	state  elementState
	source NodeID // connected upstream node, "" when unconnected
}

// Snapshot is a detached deep copy of one element: its standard value or
// keyframe tracks, and its connection. Restoring a snapshot puts the element
// back exactly as it was.
type Snapshot struct {
	state  elementState
	source NodeID
}

// IsKeyframed reports whether the snapshot holds keyframe tracks.
func (s Snapshot) IsKeyframed() bool {
	_, ok := s.state.(keyframedState)
	return ok
}

// Input is a parameter slot on a node (a ParameterInput).
//
// Thread-safety: all methods are safe for concurrent use. Mutations take the
// write lock for their whole duration; reads take the read lock and return
// copies.
type Input struct {
	node *Node
	def  InputDef

	mu       sync.RWMutex
	elements []element
}

func newInput(n *Node, def InputDef) *Input {
	in := &Input{node: n, def: def}
	size := 1
	if def.Array {
		size = def.Size
	}
	for range size {
		in.elements = append(in.elements, in.newElement())
	}
	return in
}

func (in *Input) newElement() element {
	return element{state: standardState{values: slices.Clone(in.def.defaultValue().Components)}}
}

// Name returns the input's name.
func (in *Input) Name() string { return in.def.Name }

// Def returns the input's definition.
func (in *Input) Def() InputDef { return in.def }

// Node returns the owning node.
func (in *Input) Node() *Node { return in.node }

// Key returns the project-wide key of element e.
func (in *Input) Key(e Element) Key {
	return Key{Node: in.node.id, Input: in.def.Name, Element: e}
}

// slot resolves e to an index into elements. Callers hold mu.
func (in *Input) slot(e Element) (int, error) {
	i, isSlot := e.Index()
	if !in.def.Array {
		if isSlot {
			return 0, fmt.Errorf("%w: %s is not an array, got element %s", ErrElementOutOfRange, in.def.Name, e)
		}
		return 0, nil
	}
	if !isSlot {
		return 0, fmt.Errorf("%w: array input %s needs an element index", ErrElementOutOfRange, in.def.Name)
	}
	if i < 0 || i >= len(in.elements) {
		return 0, fmt.Errorf("%w: %s%s, size %d", ErrElementOutOfRange, in.def.Name, e, len(in.elements))
	}
	return i, nil
}

func (in *Input) checkTrack(track int) error {
	if track < 0 || track >= in.def.Type.TrackCount() {
		return fmt.Errorf("%w: %s has %d tracks, got %d", ErrTrackOutOfRange, in.def.Type, in.def.Type.TrackCount(), track)
	}
	return nil
}

func (in *Input) checkValue(v keyframe.Value) error {
	if v == nil || v.Kind() != in.def.Type.TrackKind() {
		return fmt.Errorf("%w: %s tracks hold %s", ErrTypeMismatch, in.def.Name, in.def.Type.TrackKind())
	}
	return nil
}

// read runs fn on element e under the read lock.
func (in *Input) read(e Element, fn func(el *element) error) error {
	in.mu.RLock()
	defer in.mu.RUnlock()

	idx, err := in.slot(e)
	if err != nil {
		return err
	}
	return fn(&in.elements[idx])
}

// mutate runs fn on element e under the write lock and publishes the event
// it returns once the lock is released. fn must leave the element untouched
// when it fails.
func (in *Input) mutate(e Element, fn func(el *element) (Event, error)) error {
	ev, err := in.mutateLocked(e, fn)
	if err != nil {
		return err
	}

	ev.Key = in.Key(e)
	in.node.notify(ev)
	return nil
}

func (in *Input) mutateLocked(e Element, fn func(el *element) (Event, error)) (Event, error) {
	in.mu.Lock()
	defer in.mu.Unlock()

	idx, err := in.slot(e)
	if err != nil {
		return Event{}, err
	}
	return fn(&in.elements[idx])
}

// withLock runs fn under the write lock.
func (in *Input) withLock(fn func()) {
	in.mu.Lock()
	defer in.mu.Unlock()
	fn()
}

// keyframedTrack returns the track of a keyframed element.
func (in *Input) keyframedTrack(el *element, track int) (*keyframe.Track, error) {
	if err := in.checkTrack(track); err != nil {
		return nil, err
	}
	kf, ok := el.state.(keyframedState)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotKeyframed, in.def.Name)
	}
	return kf.tracks[track], nil
}

// ValueAt returns the value of element e at time t. A standard element
// ignores t.
func (in *Input) ValueAt(e Element, t rational.Rational) (TypedValue, error) {
	out := TypedValue{Type: in.def.Type}
	err := in.read(e, func(el *element) error {
		switch s := el.state.(type) {
		case standardState:
			out.Components = slices.Clone(s.values)
		case keyframedState:
			out.Components = make([]keyframe.Value, len(s.tracks))
			for i, tr := range s.tracks {
				v, err := tr.ValueAt(t, in.def.Type.TrackKind())
				if err != nil {
					return fmt.Errorf("evaluate %s track %d at %s: %w", in.Key(e), i, t, err)
				}
				out.Components[i] = v
			}
		}
		return nil
	})
	if err != nil {
		return TypedValue{}, err
	}
	return out, nil
}

// IsKeyframed reports whether element e holds keyframe tracks. Invalid
// elements are not keyframed.
func (in *Input) IsKeyframed(e Element) bool {
	var keyframed bool
	_ = in.read(e, func(el *element) error {
		_, keyframed = el.state.(keyframedState)
		return nil
	})
	return keyframed
}

// KeyframeTracks returns copies of element e's tracks in component order,
// or nil when e is not keyframed.
func (in *Input) KeyframeTracks(e Element) []*keyframe.Track {
	var out []*keyframe.Track
	_ = in.read(e, func(el *element) error {
		if kf, ok := el.state.(keyframedState); ok {
			out = make([]*keyframe.Track, len(kf.tracks))
			for i, t := range kf.tracks {
				out[i] = t.Clone()
			}
		}
		return nil
	})
	return out
}

// AllTracksEmpty reports whether e is keyframed and every track has no
// keyframes left. Callers use it to decide whether to disable keyframing.
func (in *Input) AllTracksEmpty(e Element) bool {
	empty := false
	_ = in.read(e, func(el *element) error {
		kf, ok := el.state.(keyframedState)
		if !ok {
			return nil
		}
		empty = true
		for _, t := range kf.tracks {
			if !t.IsEmpty() {
				empty = false
			}
		}
		return nil
	})
	return empty
}

// StandardValue returns the time-independent value of a standard element.
func (in *Input) StandardValue(e Element) (TypedValue, error) {
	var out TypedValue
	err := in.read(e, func(el *element) error {
		s, ok := el.state.(standardState)
		if !ok {
			return fmt.Errorf("%w: %s", ErrAlreadyKeyframed, in.Key(e))
		}
		out = TypedValue{Type: in.def.Type, Components: slices.Clone(s.values)}
		return nil
	})
	return out, err
}

// SetStandardValue replaces one component of a standard element and
// returns the previous component value.
func (in *Input) SetStandardValue(e Element, track int, v keyframe.Value) (keyframe.Value, error) {
	var prev keyframe.Value
	err := in.mutate(e, func(el *element) (Event, error) {
		if err := in.checkTrack(track); err != nil {
			return Event{}, err
		}
		if err := in.checkValue(v); err != nil {
			return Event{}, err
		}
		s, ok := el.state.(standardState)
		if !ok {
			return Event{}, fmt.Errorf("%w: %s", ErrAlreadyKeyframed, in.Key(e))
		}
		prev = s.values[track]
		s.values[track] = v
		return Event{Kind: EventValueChanged, Range: timerange.All(), Track: track}, nil
	})
	return prev, err
}

// SetKeyframing converts element e between standard and keyframed and
// returns a snapshot of the element as it was.
//
// Enabling seeds each track with one Linear keyframe at time 0 holding the
// standard value. Disabling takes each track's value at time 0 as the new
// standard value. Either way the value at time 0 is preserved.
func (in *Input) SetKeyframing(e Element, enabled bool) (Snapshot, error) {
	var snap Snapshot
	err := in.mutate(e, func(el *element) (Event, error) {
		if !in.def.Keyframable {
			return Event{}, fmt.Errorf("%w: %s", ErrNotKeyframable, in.def.Name)
		}
		before := Snapshot{state: cloneState(el.state), source: el.source}

		switch s := el.state.(type) {
		case standardState:
			if !enabled {
				return Event{}, fmt.Errorf("%w: %s", ErrNotKeyframed, in.Key(e))
			}
			tracks := make([]*keyframe.Track, len(s.values))
			for i, v := range s.values {
				tracks[i] = keyframe.NewTrack(keyframe.New(rational.Zero, v, keyframe.Linear))
			}
			el.state = keyframedState{tracks: tracks}

		case keyframedState:
			if enabled {
				return Event{}, fmt.Errorf("%w: %s", ErrAlreadyKeyframed, in.Key(e))
			}
			values := make([]keyframe.Value, len(s.tracks))
			for i, t := range s.tracks {
				v, err := t.ValueAt(rational.Zero, in.def.Type.TrackKind())
				if err != nil {
					return Event{}, fmt.Errorf("disable keyframing %s: %w", in.Key(e), err)
				}
				values[i] = v
			}
			el.state = standardState{values: values}
		}

		snap = before
		return Event{Kind: EventKeyframingToggled, Range: timerange.All()}, nil
	})
	return snap, err
}

// Snapshot returns a deep copy of element e.
func (in *Input) Snapshot(e Element) (Snapshot, error) {
	var snap Snapshot
	err := in.read(e, func(el *element) error {
		snap = Snapshot{state: cloneState(el.state), source: el.source}
		return nil
	})
	return snap, err
}

// Restore replaces element e with a copy of snap. The snapshot stays
// reusable.
func (in *Input) Restore(e Element, snap Snapshot) error {
	if snap.state == nil {
		return fmt.Errorf("restore %s: empty snapshot", in.Key(e))
	}
	return in.mutate(e, func(el *element) (Event, error) {
		_, wasKeyframed := el.state.(keyframedState)
		el.state = cloneState(snap.state)
		el.source = snap.source

		kind := EventValueChanged
		if wasKeyframed != snap.IsKeyframed() {
			kind = EventKeyframingToggled
		}
		return Event{Kind: kind, Range: timerange.All()}, nil
	})
}

// InsertKeyframe adds k to a track of keyframed element e. A keyframe
// already at k.Time is overwritten and returned with replaced == true.
func (in *Input) InsertKeyframe(e Element, track int, k keyframe.Keyframe) (prev keyframe.Keyframe, replaced bool, err error) {
	err = in.mutate(e, func(el *element) (Event, error) {
		if err := in.checkValue(k.Value); err != nil {
			return Event{}, err
		}
		if !k.Interpolation.Valid() {
			return Event{}, fmt.Errorf("%w: %s", ErrUnknownInterpolation, k.Interpolation)
		}
		t, err := in.keyframedTrack(el, track)
		if err != nil {
			return Event{}, err
		}
		prev, replaced = t.InsertKeyframe(k)
		kind := EventKeyframeAdded
		if replaced {
			kind = EventKeyframeChanged
		}
		return Event{Kind: kind, Range: t.AffectedRange(k.Time), Track: track, Keyframe: k}, nil
	})
	return prev, replaced, err
}

// RemoveKeyframe detaches the keyframe at time t from a track and returns
// it. Keyframing stays enabled even when the track becomes empty.
func (in *Input) RemoveKeyframe(e Element, track int, t rational.Rational) (keyframe.Keyframe, error) {
	var removed keyframe.Keyframe
	err := in.mutate(e, func(el *element) (Event, error) {
		tr, err := in.keyframedTrack(el, track)
		if err != nil {
			return Event{}, err
		}
		affected := tr.AffectedRange(t)
		k, ok := tr.RemoveKeyframe(t)
		if !ok {
			return Event{}, fmt.Errorf("%w: %s track %d at %s", ErrKeyframeNotFound, in.Key(e), track, t)
		}
		removed = k
		return Event{Kind: EventKeyframeRemoved, Range: affected, Track: track, Keyframe: k}, nil
	})
	return removed, err
}

// SetKeyframeTime moves a keyframe from one time to another.
func (in *Input) SetKeyframeTime(e Element, track int, from, to rational.Rational) error {
	return in.mutate(e, func(el *element) (Event, error) {
		tr, err := in.keyframedTrack(el, track)
		if err != nil {
			return Event{}, err
		}
		before := tr.AffectedRange(from)
		if err := tr.SetKeyframeTime(from, to); err != nil {
			return Event{}, fmt.Errorf("%s track %d: %w", in.Key(e), track, err)
		}
		k, _ := tr.KeyframeAt(to)
		return Event{
			Kind:     EventKeyframeChanged,
			Range:    timerange.Combine(before, tr.AffectedRange(to)),
			Track:    track,
			Keyframe: k,
		}, nil
	})
}

// SetKeyframeValue replaces the value of a keyframe and returns the
// previous value.
func (in *Input) SetKeyframeValue(e Element, track int, t rational.Rational, v keyframe.Value) (keyframe.Value, error) {
	var prev keyframe.Value
	err := in.mutate(e, func(el *element) (Event, error) {
		if err := in.checkValue(v); err != nil {
			return Event{}, err
		}
		tr, err := in.keyframedTrack(el, track)
		if err != nil {
			return Event{}, err
		}
		p, err := tr.SetKeyframeValue(t, v)
		if err != nil {
			return Event{}, fmt.Errorf("%s track %d: %w", in.Key(e), track, err)
		}
		prev = p
		k, _ := tr.KeyframeAt(t)
		return Event{Kind: EventKeyframeChanged, Range: tr.AffectedRange(t), Track: track, Keyframe: k}, nil
	})
	return prev, err
}

// SetKeyframeInterpolation replaces the interpolation of a keyframe and
// returns the previous mode.
func (in *Input) SetKeyframeInterpolation(e Element, track int, t rational.Rational, interp keyframe.Interpolation) (keyframe.Interpolation, error) {
	var prev keyframe.Interpolation
	err := in.mutate(e, func(el *element) (Event, error) {
		tr, err := in.keyframedTrack(el, track)
		if err != nil {
			return Event{}, err
		}
		p, err := tr.SetKeyframeInterpolation(t, interp)
		if err != nil {
			return Event{}, fmt.Errorf("%s track %d: %w", in.Key(e), track, err)
		}
		prev = p
		k, _ := tr.KeyframeAt(t)
		return Event{Kind: EventKeyframeChanged, Range: tr.AffectedRange(t), Track: track, Keyframe: k}, nil
	})
	return prev, err
}

// ArraySize returns the element count of an array input, or 0 for a
// non-array input.
func (in *Input) ArraySize() int {
	if !in.def.Array {
		return 0
	}
	in.mu.RLock()
	defer in.mu.RUnlock()
	return len(in.elements)
}

// ResizeArray grows or shrinks an array input. New elements take the
// input's default value. Snapshots of removed elements are returned so the
// resize can be reverted with AppendElements.
func (in *Input) ResizeArray(n int) ([]Snapshot, error) {
	if !in.def.Array {
		return nil, fmt.Errorf("%w: %s", ErrNotArray, in.def.Name)
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: negative size %d", ErrElementOutOfRange, n)
	}

	var removed []Snapshot
	in.withLock(func() {
		for len(in.elements) < n {
			in.elements = append(in.elements, in.newElement())
		}
		for _, el := range in.elements[n:] {
			removed = append(removed, Snapshot{state: cloneState(el.state), source: el.source})
		}
		in.elements = in.elements[:n:n]
	})

	in.node.notify(Event{Kind: EventArrayResized, Key: in.Key(Whole()), Range: timerange.All()})
	return removed, nil
}

// AppendElements grows an array input by restoring snaps at its end, in
// one step.
func (in *Input) AppendElements(snaps []Snapshot) error {
	if !in.def.Array {
		return fmt.Errorf("%w: %s", ErrNotArray, in.def.Name)
	}
	for i, s := range snaps {
		if s.state == nil {
			return fmt.Errorf("append to %s: snapshot %d is empty", in.def.Name, i)
		}
	}

	in.withLock(func() {
		for _, s := range snaps {
			in.elements = append(in.elements, element{state: cloneState(s.state), source: s.source})
		}
	})

	in.node.notify(Event{Kind: EventArrayResized, Key: in.Key(Whole()), Range: timerange.All()})
	return nil
}

// Connect attaches element e to an upstream node's output and returns the
// previous source, "" if there was none.
func (in *Input) Connect(e Element, source NodeID) (NodeID, error) {
	var prev NodeID
	err := in.mutate(e, func(el *element) (Event, error) {
		if !in.def.Connectable {
			return Event{}, fmt.Errorf("%w: %s", ErrNotConnectable, in.def.Name)
		}
		prev = el.source
		el.source = source
		return Event{Kind: EventConnectionChanged, Range: timerange.All()}, nil
	})
	return prev, err
}

// Disconnect detaches element e and returns the source it had.
func (in *Input) Disconnect(e Element) (NodeID, error) {
	var prev NodeID
	err := in.mutate(e, func(el *element) (Event, error) {
		if el.source == "" {
			return Event{}, fmt.Errorf("%w: %s", ErrNotConnected, in.Key(e))
		}
		prev = el.source
		el.source = ""
		return Event{Kind: EventConnectionChanged, Range: timerange.All()}, nil
	})
	return prev, err
}

// ConnectedNode returns the upstream node of element e, if any.
// A connected element still answers ValueAt from its own state; resolving
// the upstream output is the evaluator's job.
func (in *Input) ConnectedNode(e Element) (NodeID, bool) {
	var src NodeID
	_ = in.read(e, func(el *element) error {
		src = el.source
		return nil
	})
	return src, src != ""
}
