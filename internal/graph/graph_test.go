package graph

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cutline/internal/keyframe"
	"github.com/roach88/cutline/internal/rational"
	"github.com/roach88/cutline/internal/timerange"
)

func r(n int64) rational.Rational { return rational.FromInt(n) }

var transformType = NodeType{
	Name: "transform",
	Inputs: []InputDef{
		{Name: "position", Type: TypeVec2, Keyframable: true, Connectable: true},
		{Name: "opacity", Type: TypeNumber, Keyframable: true, Default: NumberValue(r(1))},
		{Name: "visible", Type: TypeBool, Keyframable: true, Default: BoolValue(true)},
		{Name: "label", Type: TypeText},
		{Name: "points", Type: TypeVec2, Array: true, Keyframable: true, Size: 2},
	},
}

func newTestNode(t *testing.T) (*Project, *Node) {
	t.Helper()
	p := NewProject("test", WithIDGenerator(NewFixedGenerator("project-1", "node-1", "node-2")))
	n, err := p.AddNode(transformType)
	require.NoError(t, err)
	return p, n
}

func mustInput(t *testing.T, n *Node, name string) *Input {
	t.Helper()
	in, err := n.Input(name)
	require.NoError(t, err)
	return in
}

func TestNewProject_IDs(t *testing.T) {
	p, n := newTestNode(t)
	assert.Equal(t, "project-1", p.ID())
	assert.Equal(t, NodeID("node-1"), n.ID())
	assert.Equal(t, "transform", n.Type())
	assert.Same(t, p, n.Project())

	got, err := p.Node("node-1")
	require.NoError(t, err)
	assert.Same(t, n, got)

	_, err = p.Node("nope")
	assert.ErrorIs(t, err, ErrUnknownNode)
	assert.Len(t, p.Nodes(), 1)
}

func TestUUIDv7GeneratorIsDefault(t *testing.T) {
	p := NewProject("default")
	assert.Len(t, p.ID(), 36)
}

func TestAddNode_RejectsBadDefinitions(t *testing.T) {
	p := NewProject("test")

	tests := []struct {
		name string
		nt   NodeType
	}{
		{"duplicate input", NodeType{Name: "x", Inputs: []InputDef{
			{Name: "a", Type: TypeNumber}, {Name: "a", Type: TypeBool},
		}}},
		{"default of wrong type", NodeType{Name: "x", Inputs: []InputDef{
			{Name: "a", Type: TypeNumber, Default: BoolValue(true)},
		}}},
		{"unknown type", NodeType{Name: "x", Inputs: []InputDef{{Name: "a"}}}},
		{"size on scalar", NodeType{Name: "x", Inputs: []InputDef{{Name: "a", Type: TypeNumber, Size: 3}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.AddNode(tt.nt)
			assert.Error(t, err)
		})
	}
}

func TestValueAt_StandardIgnoresTime(t *testing.T) {
	_, n := newTestNode(t)
	opacity := mustInput(t, n, "opacity")

	for _, at := range []int64{-100, 0, 7, 1 << 40} {
		v, err := opacity.ValueAt(Whole(), r(at))
		require.NoError(t, err)
		assert.True(t, v.Equal(NumberValue(r(1))))
	}

	pos := mustInput(t, n, "position")
	v, err := pos.ValueAt(Whole(), r(0))
	require.NoError(t, err)
	assert.True(t, v.Equal(Vec2Value(r(0), r(0))), "got %s", v)
}

func TestSetStandardValue(t *testing.T) {
	_, n := newTestNode(t)
	pos := mustInput(t, n, "position")

	prev, err := pos.SetStandardValue(Whole(), 1, keyframe.Int(5))
	require.NoError(t, err)
	assert.Equal(t, keyframe.Int(0), prev)

	v, err := pos.StandardValue(Whole())
	require.NoError(t, err)
	assert.True(t, v.Equal(Vec2Value(r(0), r(5))))

	_, err = pos.SetStandardValue(Whole(), 2, keyframe.Int(1))
	assert.ErrorIs(t, err, ErrTrackOutOfRange)
	_, err = pos.SetStandardValue(Whole(), 0, keyframe.Bool(true))
	assert.ErrorIs(t, err, ErrTypeMismatch)
	_, err = pos.SetStandardValue(At(0), 0, keyframe.Int(1))
	assert.ErrorIs(t, err, ErrElementOutOfRange)
}

func TestSetKeyframing_PreservesValue(t *testing.T) {
	_, n := newTestNode(t)
	pos := mustInput(t, n, "position")
	_, err := pos.SetStandardValue(Whole(), 0, keyframe.Int(3))
	require.NoError(t, err)

	before, err := pos.SetKeyframing(Whole(), true)
	require.NoError(t, err)
	assert.False(t, before.IsKeyframed())
	assert.True(t, pos.IsKeyframed(Whole()))

	tracks := pos.KeyframeTracks(Whole())
	require.Len(t, tracks, 2)
	for i, want := range []int64{3, 0} {
		k, ok := tracks[i].KeyframeAt(rational.Zero)
		require.True(t, ok)
		assert.Equal(t, keyframe.Int(want), k.Value)
	}

	v, err := pos.ValueAt(Whole(), r(42))
	require.NoError(t, err)
	assert.True(t, v.Equal(Vec2Value(r(3), r(0))))

	_, err = pos.StandardValue(Whole())
	assert.ErrorIs(t, err, ErrAlreadyKeyframed)
	_, err = pos.SetStandardValue(Whole(), 0, keyframe.Int(1))
	assert.ErrorIs(t, err, ErrAlreadyKeyframed)

	// Move the value at 0 and disable: the standard value follows.
	_, err = pos.SetKeyframeValue(Whole(), 0, rational.Zero, keyframe.Int(8))
	require.NoError(t, err)
	_, _, err = pos.InsertKeyframe(Whole(), 0, keyframe.New(r(10), keyframe.Int(100), keyframe.Linear))
	require.NoError(t, err)

	_, err = pos.SetKeyframing(Whole(), false)
	require.NoError(t, err)
	v, err = pos.StandardValue(Whole())
	require.NoError(t, err)
	assert.True(t, v.Equal(Vec2Value(r(8), r(0))), "got %s", v)
}

func TestSetKeyframing_Errors(t *testing.T) {
	_, n := newTestNode(t)

	_, err := mustInput(t, n, "label").SetKeyframing(Whole(), true)
	assert.ErrorIs(t, err, ErrNotKeyframable)

	op := mustInput(t, n, "opacity")
	_, err = op.SetKeyframing(Whole(), false)
	assert.ErrorIs(t, err, ErrNotKeyframed)

	_, err = op.SetKeyframing(Whole(), true)
	require.NoError(t, err)
	_, err = op.SetKeyframing(Whole(), true)
	assert.ErrorIs(t, err, ErrAlreadyKeyframed)
}

func TestKeyframes_InsertRemoveAndEvaluate(t *testing.T) {
	_, n := newTestNode(t)
	op := mustInput(t, n, "opacity")
	_, err := op.SetKeyframing(Whole(), true)
	require.NoError(t, err)

	_, replaced, err := op.InsertKeyframe(Whole(), 0, keyframe.New(r(0), keyframe.Int(0), keyframe.Linear))
	require.NoError(t, err)
	assert.True(t, replaced, "seed keyframe at 0 is overwritten")

	_, replaced, err = op.InsertKeyframe(Whole(), 0, keyframe.New(r(10), keyframe.Int(100), keyframe.Linear))
	require.NoError(t, err)
	assert.False(t, replaced)

	v, err := op.ValueAt(Whole(), r(5))
	require.NoError(t, err)
	assert.True(t, v.Equal(NumberValue(r(50))))

	k, err := op.RemoveKeyframe(Whole(), 0, r(10))
	require.NoError(t, err)
	assert.Equal(t, keyframe.Int(100), k.Value)

	_, err = op.RemoveKeyframe(Whole(), 0, r(10))
	assert.ErrorIs(t, err, ErrKeyframeNotFound)

	_, err = op.RemoveKeyframe(Whole(), 0, r(0))
	require.NoError(t, err)
	assert.True(t, op.IsKeyframed(Whole()), "removing the last keyframe keeps keyframing on")
	assert.True(t, op.AllTracksEmpty(Whole()))

	v, err = op.ValueAt(Whole(), r(5))
	require.NoError(t, err)
	assert.True(t, v.Equal(NumberValue(rational.Zero)), "empty track evaluates to the type default")
}

func TestKeyframes_RequireKeyframedElement(t *testing.T) {
	_, n := newTestNode(t)
	op := mustInput(t, n, "opacity")

	_, _, err := op.InsertKeyframe(Whole(), 0, keyframe.New(r(0), keyframe.Int(0), keyframe.Linear))
	assert.ErrorIs(t, err, ErrNotKeyframed)
	_, err = op.RemoveKeyframe(Whole(), 0, r(0))
	assert.ErrorIs(t, err, ErrNotKeyframed)
	assert.Nil(t, op.KeyframeTracks(Whole()))
	assert.False(t, op.AllTracksEmpty(Whole()))
}

func TestKeyframes_TypeChecked(t *testing.T) {
	_, n := newTestNode(t)
	vis := mustInput(t, n, "visible")
	_, err := vis.SetKeyframing(Whole(), true)
	require.NoError(t, err)

	_, _, err = vis.InsertKeyframe(Whole(), 0, keyframe.New(r(1), keyframe.Int(1), keyframe.Hold))
	assert.ErrorIs(t, err, ErrTypeMismatch)

	_, _, err = vis.InsertKeyframe(Whole(), 0, keyframe.New(r(1), keyframe.Bool(false), keyframe.Hold))
	require.NoError(t, err)

	v, err := vis.ValueAt(Whole(), rational.MustNew(1, 2))
	require.NoError(t, err)
	assert.True(t, v.Equal(BoolValue(true)))
}

func TestSetKeyframeTimeAndInterpolation(t *testing.T) {
	_, n := newTestNode(t)
	op := mustInput(t, n, "opacity")
	_, err := op.SetKeyframing(Whole(), true)
	require.NoError(t, err)
	_, _, err = op.InsertKeyframe(Whole(), 0, keyframe.New(r(10), keyframe.Int(3), keyframe.Linear))
	require.NoError(t, err)

	require.NoError(t, op.SetKeyframeTime(Whole(), 0, r(10), r(20)))
	assert.ErrorIs(t, op.SetKeyframeTime(Whole(), 0, r(20), r(0)), keyframe.ErrKeyframeTimeOccupied)

	prev, err := op.SetKeyframeInterpolation(Whole(), 0, r(0), keyframe.Hold)
	require.NoError(t, err)
	assert.Equal(t, keyframe.Linear, prev)

	v, err := op.ValueAt(Whole(), r(19))
	require.NoError(t, err)
	assert.True(t, v.Equal(NumberValue(r(1))))
}

func TestSnapshotRestore_RoundTrip(t *testing.T) {
	_, n := newTestNode(t)
	pos := mustInput(t, n, "position")
	_, err := pos.SetKeyframing(Whole(), true)
	require.NoError(t, err)
	_, _, err = pos.InsertKeyframe(Whole(), 1, keyframe.New(r(4), keyframe.Int(9), keyframe.Bezier))
	require.NoError(t, err)

	snap, err := pos.Snapshot(Whole())
	require.NoError(t, err)
	want := pos.KeyframeTracks(Whole())

	_, err = pos.SetKeyframing(Whole(), false)
	require.NoError(t, err)
	require.NoError(t, pos.Restore(Whole(), snap))

	got := pos.KeyframeTracks(Whole())
	require.Len(t, got, len(want))
	for i := range want {
		assert.True(t, want[i].Equal(got[i]), "track %d", i)
	}

	// The snapshot is not aliased by the restored element.
	_, err = pos.RemoveKeyframe(Whole(), 1, r(4))
	require.NoError(t, err)
	require.NoError(t, pos.Restore(Whole(), snap))
	assert.Equal(t, 2, pos.KeyframeTracks(Whole())[1].Len())

	assert.Error(t, pos.Restore(Whole(), Snapshot{}))
}

func TestArrayInput(t *testing.T) {
	_, n := newTestNode(t)
	pts := mustInput(t, n, "points")
	assert.Equal(t, 2, pts.ArraySize())

	_, err := pts.ValueAt(Whole(), r(0))
	assert.ErrorIs(t, err, ErrElementOutOfRange)
	_, err = pts.ValueAt(At(2), r(0))
	assert.ErrorIs(t, err, ErrElementOutOfRange)

	_, err = pts.SetStandardValue(At(1), 0, keyframe.Int(7))
	require.NoError(t, err)
	_, err = pts.SetKeyframing(At(0), true)
	require.NoError(t, err)
	assert.True(t, pts.IsKeyframed(At(0)))
	assert.False(t, pts.IsKeyframed(At(1)))

	removed, err := pts.ResizeArray(4)
	require.NoError(t, err)
	assert.Empty(t, removed)
	assert.Equal(t, 4, pts.ArraySize())
	v, err := pts.ValueAt(At(3), r(0))
	require.NoError(t, err)
	assert.True(t, v.Equal(Vec2Value(r(0), r(0))))

	removed, err = pts.ResizeArray(1)
	require.NoError(t, err)
	require.Len(t, removed, 3)
	assert.Equal(t, 1, pts.ArraySize())
	assert.True(t, pts.IsKeyframed(At(0)))

	require.NoError(t, pts.AppendElements(removed))
	assert.Equal(t, 4, pts.ArraySize())
	v, err = pts.ValueAt(At(1), r(0))
	require.NoError(t, err)
	assert.True(t, v.Equal(Vec2Value(r(7), r(0))), "restored element keeps its value")

	_, err = pts.ResizeArray(-1)
	assert.ErrorIs(t, err, ErrElementOutOfRange)
	_, err = mustInput(t, n, "opacity").ResizeArray(2)
	assert.ErrorIs(t, err, ErrNotArray)
	assert.ErrorIs(t, mustInput(t, n, "opacity").AppendElements(nil), ErrNotArray)
	assert.Equal(t, 0, mustInput(t, n, "opacity").ArraySize())
}

func TestConnections(t *testing.T) {
	_, n := newTestNode(t)
	pos := mustInput(t, n, "position")

	_, ok := pos.ConnectedNode(Whole())
	assert.False(t, ok)

	prev, err := pos.Connect(Whole(), "node-9")
	require.NoError(t, err)
	assert.Equal(t, NodeID(""), prev)

	src, ok := pos.ConnectedNode(Whole())
	assert.True(t, ok)
	assert.Equal(t, NodeID("node-9"), src)

	prev, err = pos.Disconnect(Whole())
	require.NoError(t, err)
	assert.Equal(t, NodeID("node-9"), prev)

	_, err = pos.Disconnect(Whole())
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = mustInput(t, n, "opacity").Connect(Whole(), "node-9")
	assert.ErrorIs(t, err, ErrNotConnectable)
}

func TestEvents_FireAfterCommitAndInvalidateCache(t *testing.T) {
	p, n := newTestNode(t)
	op := mustInput(t, n, "opacity")

	var events []Event
	unsubscribe := p.Subscribe(func(ev Event) {
		// The lock is released, so reading back is safe and sees the edit.
		_ = op.IsKeyframed(ev.Key.Element)
		events = append(events, ev)
	})

	n.Cache().Validate(timerange.All())

	_, err := op.SetKeyframing(Whole(), true)
	require.NoError(t, err)
	assert.False(t, n.Cache().IsFullyValidated(timerange.Ints(0, 1)))

	n.Cache().Validate(timerange.All())
	_, _, err = op.InsertKeyframe(Whole(), 0, keyframe.New(r(10), keyframe.Int(2), keyframe.Linear))
	require.NoError(t, err)
	_, _, err = op.InsertKeyframe(Whole(), 0, keyframe.New(r(20), keyframe.Int(2), keyframe.Linear))
	require.NoError(t, err)

	n.Cache().Validate(timerange.All())
	_, err = op.SetKeyframeValue(Whole(), 0, r(10), keyframe.Int(5))
	require.NoError(t, err)

	// Only the span between the neighbours of t=10 was invalidated.
	assert.True(t, n.Cache().IsFullyValidated(timerange.Ints(-50, 0)))
	assert.False(t, n.Cache().IsFullyValidated(timerange.Ints(0, 20)))
	assert.True(t, n.Cache().IsFullyValidated(timerange.Ints(20, 50)))

	unsubscribe()
	_, err = op.RemoveKeyframe(Whole(), 0, r(20))
	require.NoError(t, err)

	kinds := make([]EventKind, len(events))
	for i, ev := range events {
		kinds[i] = ev.Kind
		assert.Equal(t, Key{Node: "node-1", Input: "opacity"}, ev.Key)
	}
	assert.Equal(t, []EventKind{
		EventKeyframingToggled,
		EventKeyframeAdded,
		EventKeyframeAdded,
		EventKeyframeChanged,
	}, kinds)
	assert.True(t, events[3].Range.Equal(timerange.Ints(0, 20)))
}

func TestFailedMutationPublishesNothing(t *testing.T) {
	p, n := newTestNode(t)
	count := 0
	p.Subscribe(func(Event) { count++ })

	_, err := mustInput(t, n, "opacity").RemoveKeyframe(Whole(), 0, r(0))
	require.Error(t, err)
	assert.Zero(t, count)
}

func TestKeyframes_VideoTimebases(t *testing.T) {
	tests := []struct {
		name string
		unit rational.Rational
	}{
		{"ntsc 29.97", rational.MustNew(1001, 30000)},
		{"mpeg 90kHz", rational.MustNew(1, 90000)},
		{"audio 48kHz", rational.MustNew(1, 48000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := func(n int64) rational.Rational {
				f, err := tt.unit.Mul(r(n))
				require.NoError(t, err)
				return f
			}
			p, n := newTestNode(t)
			op := mustInput(t, n, "opacity")
			var events []Event
			p.Subscribe(func(ev Event) { events = append(events, ev) })

			_, err := op.SetKeyframing(Whole(), true)
			require.NoError(t, err)
			_, _, err = op.InsertKeyframe(Whole(), 0, keyframe.New(frame(1), keyframe.Int(0), keyframe.Linear))
			require.NoError(t, err)
			_, _, err = op.InsertKeyframe(Whole(), 0, keyframe.New(frame(60), keyframe.Num(rational.MustNew(1, 2)), keyframe.Linear))
			require.NoError(t, err)
			require.NoError(t, op.SetKeyframeTime(Whole(), 0, frame(60), frame(90)))
			_, err = op.RemoveKeyframe(Whole(), 0, frame(1))
			require.NoError(t, err)

			require.Len(t, events, 5)
			assert.True(t, events[1].Range.Equal(timerange.MustNew(r(0), rational.MaxTime)), "got %s", events[1].Range)
			assert.True(t, events[2].Range.Equal(timerange.MustNew(frame(1), rational.MaxTime)), "got %s", events[2].Range)
			assert.True(t, events[3].Range.Equal(timerange.MustNew(frame(1), rational.MaxTime)), "got %s", events[3].Range)
			assert.True(t, events[4].Range.Equal(timerange.MustNew(r(0), frame(90))), "got %s", events[4].Range)
			assert.False(t, n.Cache().IsFullyValidated(timerange.MustNew(r(0), frame(1))))

			// Seed 1@0 and 1/2@frame 90 remain; halfway is exact.
			v, err := op.ValueAt(Whole(), frame(45))
			require.NoError(t, err)
			assert.True(t, v.Equal(NumberValue(rational.MustNew(3, 4))), "got %s", v)
		})
	}
}

func TestKeyframes_RejectUnknownInterpolation(t *testing.T) {
	_, n := newTestNode(t)
	op := mustInput(t, n, "opacity")
	_, err := op.SetKeyframing(Whole(), true)
	require.NoError(t, err)

	_, _, err = op.InsertKeyframe(Whole(), 0, keyframe.New(r(5), keyframe.Int(1), keyframe.Interpolation(7)))
	assert.ErrorIs(t, err, ErrUnknownInterpolation)
	assert.Len(t, op.KeyframeTracks(Whole())[0].Keyframes(), 1)

	_, err = op.SetKeyframeInterpolation(Whole(), 0, r(0), keyframe.Interpolation(7))
	assert.ErrorIs(t, err, ErrUnknownInterpolation)
	k, ok := op.KeyframeTracks(Whole())[0].KeyframeAt(r(0))
	require.True(t, ok)
	assert.Equal(t, keyframe.Linear, k.Interpolation)
}

func TestMutateReleasesLockOnPanic(t *testing.T) {
	_, n := newTestNode(t)
	op := mustInput(t, n, "opacity")

	assert.Panics(t, func() {
		_ = op.mutate(Whole(), func(*element) (Event, error) { panic("edit failed") })
	})

	require.True(t, op.mu.TryLock(), "write lock must be released")
	op.mu.Unlock()
	_, err := op.SetStandardValue(Whole(), 0, keyframe.Int(2))
	require.NoError(t, err)
}

func TestInputLookupNormalizesNames(t *testing.T) {
	p := NewProject("test")
	// Precomposed U+00E9 in the definition, e + U+0301 in the lookup.
	n, err := p.AddNode(NodeType{Name: "fx", Inputs: []InputDef{{Name: "\u00e9clat", Type: TypeNumber}}})
	require.NoError(t, err)

	in, err := n.Input("e\u0301clat")
	require.NoError(t, err)
	assert.Equal(t, "\u00e9clat", in.Name())

	_, err = n.Input("missing")
	assert.ErrorIs(t, err, ErrUnknownInput)

	got, err := p.Input(Key{Node: n.ID(), Input: "e\u0301clat"})
	require.NoError(t, err)
	assert.Same(t, in, got)
}

func TestConcurrentReadersNeverSeeHalfEdits(t *testing.T) {
	_, n := newTestNode(t)
	pos := mustInput(t, n, "position")

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				v, err := pos.ValueAt(Whole(), r(0))
				if err != nil {
					t.Error(err)
					return
				}
				if len(v.Components) != 2 {
					t.Errorf("half-built value %s", v)
					return
				}
			}
		}()
	}

	for i := 0; i < 100; i++ {
		_, err := pos.SetKeyframing(Whole(), true)
		require.NoError(t, err)
		_, err = pos.SetKeyframing(Whole(), false)
		require.NoError(t, err)
	}
	close(stop)
	wg.Wait()
}

func TestParseTypedValue(t *testing.T) {
	v, err := ParseTypedValue(TypeColor, []string{"1", "1/2", "0", "1"})
	require.NoError(t, err)
	assert.True(t, v.Equal(ColorValue(r(1), rational.MustNew(1, 2), r(0), r(1))))
	assert.Equal(t, "(1, 1/2, 0, 1)", v.String())

	_, err = ParseTypedValue(TypeVec2, []string{"1"})
	assert.ErrorIs(t, err, ErrTypeMismatch)

	dt, err := ParseDataType("vec3")
	require.NoError(t, err)
	assert.Equal(t, TypeVec3, dt)
	assert.Equal(t, 3, dt.TrackCount())
	_, err = ParseDataType("matrix")
	assert.Error(t, err)
}

func TestElementAndKeyStrings(t *testing.T) {
	assert.True(t, Whole().IsWhole())
	assert.Equal(t, Whole(), Element{})
	i, ok := At(3).Index()
	assert.True(t, ok)
	assert.Equal(t, 3, i)
	assert.Equal(t, "n.points[3]", Key{Node: "n", Input: "points", Element: At(3)}.String())
	assert.Equal(t, "n.opacity", Key{Node: "n", Input: "opacity"}.String())
}
