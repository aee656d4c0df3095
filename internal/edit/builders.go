package edit

import (
	"fmt"

	"github.com/roach88/cutline/internal/graph"
	"github.com/roach88/cutline/internal/keyframe"
	"github.com/roach88/cutline/internal/rational"
	"github.com/roach88/cutline/internal/undo"
)

// SetValueAt builds the group for a user setting element e to v at time t.
//
// On a keyframed element every track gets a keyframe at t: an existing
// keyframe there keeps its interpolation and handles and only changes
// value, otherwise a Linear keyframe is inserted. On a standard element each
// component that differs is set. Components already equal to v produce no
// command, so the group may be empty.
func SetValueAt(in *graph.Input, e graph.Element, t rational.Rational, v graph.TypedValue) (*undo.Group, error) {
	if err := v.Check(in.Def().Type); err != nil {
		return nil, fmt.Errorf("set %s: %w", in.Key(e), err)
	}
	g := undo.NewGroup("Set Value")

	if in.IsKeyframed(e) {
		for i, tr := range in.KeyframeTracks(e) {
			k, exists := tr.KeyframeAt(t)
			switch {
			case !exists:
				k = keyframe.New(t, v.Components[i], keyframe.Linear)
			case keyframe.Equal(k.Value, v.Components[i]):
				continue
			default:
				k.Value = v.Components[i]
			}
			if err := g.Add(NewInsertKeyframe(in, e, i, k)); err != nil {
				return nil, err
			}
		}
		return g, nil
	}

	cur, err := in.StandardValue(e)
	if err != nil {
		return nil, err
	}
	for i, c := range v.Components {
		if keyframe.Equal(cur.Components[i], c) {
			continue
		}
		if err := g.Add(NewSetStandardValue(in, e, i, c)); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// RemoveKeyframesAt builds the group removing the keyframe at t from every
// track of e that has one. With autoDisable, when that leaves every track
// empty the group also disables keyframing, making the element standard
// again. Fails with graph.ErrKeyframeNotFound when no track has a keyframe
// at t.
func RemoveKeyframesAt(in *graph.Input, e graph.Element, t rational.Rational, autoDisable bool) (*undo.Group, error) {
	tracks := in.KeyframeTracks(e)
	if tracks == nil {
		return nil, fmt.Errorf("%w: %s", graph.ErrNotKeyframed, in.Key(e))
	}

	g := undo.NewGroup("Delete Keyframes")
	emptied := true
	for i, tr := range tracks {
		_, ok := tr.KeyframeAt(t)
		if ok {
			if err := g.Add(NewRemoveKeyframe(in, e, i, t)); err != nil {
				return nil, err
			}
		}
		remaining := tr.Len()
		if ok {
			remaining--
		}
		if remaining > 0 {
			emptied = false
		}
	}
	if g.Len() == 0 {
		return nil, fmt.Errorf("%w: %s at %s", graph.ErrKeyframeNotFound, in.Key(e), t)
	}

	if autoDisable && emptied {
		if err := g.Add(NewSetKeyframing(in, e, false)); err != nil {
			return nil, err
		}
	}
	return g, nil
}
