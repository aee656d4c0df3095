// Package edit provides the concrete undoable operations on parameter
// inputs, and builders that turn a user gesture into a complete undo group.
//
// Every op captures what it needs to revert itself when it is applied:
// previous values, replaced or removed keyframes (by value), or a snapshot of
// the element. Keyframes are addressed by (input, element, track, time),
// never by reference.
package edit

import (
	"fmt"

	"github.com/roach88/cutline/internal/graph"
	"github.com/roach88/cutline/internal/keyframe"
	"github.com/roach88/cutline/internal/rational"
	"github.com/roach88/cutline/internal/undo"
)

// target is the input element an op edits.
type target struct {
	in   *graph.Input
	elem graph.Element
}

func (t target) Project() undo.Document { return t.in.Node().Project() }

func (t target) key() graph.Key { return t.in.Key(t.elem) }

// SetKeyframing enables or disables keyframing on one element.
type SetKeyframing struct {
	target
	enabled bool
	before  graph.Snapshot
}

// NewSetKeyframing returns an op toggling keyframing on in's element e.
func NewSetKeyframing(in *graph.Input, e graph.Element, enabled bool) *SetKeyframing {
	return &SetKeyframing{target: target{in, e}, enabled: enabled}
}

func (o *SetKeyframing) Redo() error {
	snap, err := o.in.SetKeyframing(o.elem, o.enabled)
	if err != nil {
		return err
	}
	o.before = snap
	return nil
}

// Undo restores the element snapshot taken by Redo, so disabling and
// re-enabling keyframing brings back every keyframe, not just one.
func (o *SetKeyframing) Undo() error {
	return o.in.Restore(o.elem, o.before)
}

func (o *SetKeyframing) Description() string {
	if o.enabled {
		return fmt.Sprintf("enable keyframing %s", o.key())
	}
	return fmt.Sprintf("disable keyframing %s", o.key())
}

// InsertKeyframe adds a keyframe, or overwrites the one at the same time.
type InsertKeyframe struct {
	target
	track    int
	k        keyframe.Keyframe
	prev     keyframe.Keyframe
	replaced bool
}

// NewInsertKeyframe returns an op inserting k into one track.
func NewInsertKeyframe(in *graph.Input, e graph.Element, track int, k keyframe.Keyframe) *InsertKeyframe {
	return &InsertKeyframe{target: target{in, e}, track: track, k: k}
}

func (o *InsertKeyframe) Redo() error {
	prev, replaced, err := o.in.InsertKeyframe(o.elem, o.track, o.k)
	if err != nil {
		return err
	}
	o.prev, o.replaced = prev, replaced
	return nil
}

func (o *InsertKeyframe) Undo() error {
	if o.replaced {
		_, _, err := o.in.InsertKeyframe(o.elem, o.track, o.prev)
		return err
	}
	_, err := o.in.RemoveKeyframe(o.elem, o.track, o.k.Time)
	return err
}

func (o *InsertKeyframe) Description() string {
	return fmt.Sprintf("insert keyframe %s track %d at %s = %s", o.key(), o.track, o.k.Time, o.k.Value)
}

// RemoveKeyframe detaches a keyframe and keeps it by value for undo.
type RemoveKeyframe struct {
	target
	track   int
	time    rational.Rational
	removed keyframe.Keyframe
}

// NewRemoveKeyframe returns an op removing the keyframe at time t.
func NewRemoveKeyframe(in *graph.Input, e graph.Element, track int, t rational.Rational) *RemoveKeyframe {
	return &RemoveKeyframe{target: target{in, e}, track: track, time: t}
}

func (o *RemoveKeyframe) Redo() error {
	k, err := o.in.RemoveKeyframe(o.elem, o.track, o.time)
	if err != nil {
		return err
	}
	o.removed = k
	return nil
}

func (o *RemoveKeyframe) Undo() error {
	_, _, err := o.in.InsertKeyframe(o.elem, o.track, o.removed)
	return err
}

func (o *RemoveKeyframe) Description() string {
	return fmt.Sprintf("remove keyframe %s track %d at %s", o.key(), o.track, o.time)
}

// SetKeyframeTime moves a keyframe.
type SetKeyframeTime struct {
	target
	track    int
	from, to rational.Rational
}

// NewSetKeyframeTime returns an op moving the keyframe at from to to.
func NewSetKeyframeTime(in *graph.Input, e graph.Element, track int, from, to rational.Rational) *SetKeyframeTime {
	return &SetKeyframeTime{target: target{in, e}, track: track, from: from, to: to}
}

func (o *SetKeyframeTime) Redo() error {
	return o.in.SetKeyframeTime(o.elem, o.track, o.from, o.to)
}

func (o *SetKeyframeTime) Undo() error {
	return o.in.SetKeyframeTime(o.elem, o.track, o.to, o.from)
}

func (o *SetKeyframeTime) Description() string {
	return fmt.Sprintf("move keyframe %s track %d from %s to %s", o.key(), o.track, o.from, o.to)
}

// SetKeyframeValue changes the value of a keyframe.
type SetKeyframeValue struct {
	target
	track int
	time  rational.Rational
	value keyframe.Value
	prev  keyframe.Value
}

// NewSetKeyframeValue returns an op setting the value of the keyframe at t.
func NewSetKeyframeValue(in *graph.Input, e graph.Element, track int, t rational.Rational, v keyframe.Value) *SetKeyframeValue {
	return &SetKeyframeValue{target: target{in, e}, track: track, time: t, value: v}
}

func (o *SetKeyframeValue) Redo() error {
	prev, err := o.in.SetKeyframeValue(o.elem, o.track, o.time, o.value)
	if err != nil {
		return err
	}
	o.prev = prev
	return nil
}

func (o *SetKeyframeValue) Undo() error {
	_, err := o.in.SetKeyframeValue(o.elem, o.track, o.time, o.prev)
	return err
}

func (o *SetKeyframeValue) Description() string {
	return fmt.Sprintf("set keyframe value %s track %d at %s = %s", o.key(), o.track, o.time, o.value)
}

// SetKeyframeInterpolation changes the interpolation of a keyframe.
type SetKeyframeInterpolation struct {
	target
	track  int
	time   rational.Rational
	interp keyframe.Interpolation
	prev   keyframe.Interpolation
}

// NewSetKeyframeInterpolation returns an op setting the interpolation of
// the keyframe at t.
func NewSetKeyframeInterpolation(in *graph.Input, e graph.Element, track int, t rational.Rational, interp keyframe.Interpolation) *SetKeyframeInterpolation {
	return &SetKeyframeInterpolation{target: target{in, e}, track: track, time: t, interp: interp}
}

func (o *SetKeyframeInterpolation) Redo() error {
	prev, err := o.in.SetKeyframeInterpolation(o.elem, o.track, o.time, o.interp)
	if err != nil {
		return err
	}
	o.prev = prev
	return nil
}

func (o *SetKeyframeInterpolation) Undo() error {
	_, err := o.in.SetKeyframeInterpolation(o.elem, o.track, o.time, o.prev)
	return err
}

func (o *SetKeyframeInterpolation) Description() string {
	return fmt.Sprintf("set interpolation %s track %d at %s = %s", o.key(), o.track, o.time, o.interp)
}

// SetStandardValue changes one component of a non-keyframed element.
type SetStandardValue struct {
	target
	track int
	value keyframe.Value
	prev  keyframe.Value
}

// NewSetStandardValue returns an op setting component track of e to v.
func NewSetStandardValue(in *graph.Input, e graph.Element, track int, v keyframe.Value) *SetStandardValue {
	return &SetStandardValue{target: target{in, e}, track: track, value: v}
}

func (o *SetStandardValue) Redo() error {
	prev, err := o.in.SetStandardValue(o.elem, o.track, o.value)
	if err != nil {
		return err
	}
	o.prev = prev
	return nil
}

func (o *SetStandardValue) Undo() error {
	_, err := o.in.SetStandardValue(o.elem, o.track, o.prev)
	return err
}

func (o *SetStandardValue) Description() string {
	return fmt.Sprintf("set value %s track %d = %s", o.key(), o.track, o.value)
}

// Connect attaches an element to an upstream node.
type Connect struct {
	target
	source graph.NodeID
	prev   graph.NodeID
}

// NewConnect returns an op connecting e to source.
func NewConnect(in *graph.Input, e graph.Element, source graph.NodeID) *Connect {
	return &Connect{target: target{in, e}, source: source}
}

func (o *Connect) Redo() error {
	prev, err := o.in.Connect(o.elem, o.source)
	if err != nil {
		return err
	}
	o.prev = prev
	return nil
}

func (o *Connect) Undo() error {
	if o.prev == "" {
		_, err := o.in.Disconnect(o.elem)
		return err
	}
	_, err := o.in.Connect(o.elem, o.prev)
	return err
}

func (o *Connect) Description() string {
	return fmt.Sprintf("connect %s to %s", o.key(), o.source)
}

// Disconnect detaches an element from its upstream node.
type Disconnect struct {
	target
	prev graph.NodeID
}

// NewDisconnect returns an op disconnecting e.
func NewDisconnect(in *graph.Input, e graph.Element) *Disconnect {
	return &Disconnect{target: target{in, e}}
}

func (o *Disconnect) Redo() error {
	prev, err := o.in.Disconnect(o.elem)
	if err != nil {
		return err
	}
	o.prev = prev
	return nil
}

func (o *Disconnect) Undo() error {
	_, err := o.in.Connect(o.elem, o.prev)
	return err
}

func (o *Disconnect) Description() string {
	return fmt.Sprintf("disconnect %s", o.key())
}

// ResizeArray changes the size of an array input, keeping removed elements
// for undo.
type ResizeArray struct {
	target
	size    int
	old     int
	removed []graph.Snapshot
}

// NewResizeArray returns an op resizing array input in to n elements.
func NewResizeArray(in *graph.Input, n int) *ResizeArray {
	return &ResizeArray{target: target{in, graph.Whole()}, size: n}
}

func (o *ResizeArray) Redo() error {
	old := o.in.ArraySize()
	removed, err := o.in.ResizeArray(o.size)
	if err != nil {
		return err
	}
	o.old, o.removed = old, removed
	return nil
}

func (o *ResizeArray) Undo() error {
	if len(o.removed) > 0 {
		return o.in.AppendElements(o.removed)
	}
	_, err := o.in.ResizeArray(o.old)
	return err
}

func (o *ResizeArray) Description() string {
	return fmt.Sprintf("resize %s to %d", o.key(), o.size)
}

var (
	_ undo.Op = (*SetKeyframing)(nil)
	_ undo.Op = (*InsertKeyframe)(nil)
	_ undo.Op = (*RemoveKeyframe)(nil)
	_ undo.Op = (*SetKeyframeTime)(nil)
	_ undo.Op = (*SetKeyframeValue)(nil)
	_ undo.Op = (*SetKeyframeInterpolation)(nil)
	_ undo.Op = (*SetStandardValue)(nil)
	_ undo.Op = (*Connect)(nil)
	_ undo.Op = (*Disconnect)(nil)
	_ undo.Op = (*ResizeArray)(nil)
)
