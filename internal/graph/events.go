package graph

import (
	"github.com/roach88/cutline/internal/keyframe"
	"github.com/roach88/cutline/internal/timerange"
)

// EventKind categorizes a committed mutation.
type EventKind string

const (
	EventValueChanged      EventKind = "value_changed"
	EventKeyframeAdded     EventKind = "keyframe_added"
	EventKeyframeRemoved   EventKind = "keyframe_removed"
	EventKeyframeChanged   EventKind = "keyframe_changed"
	EventKeyframingToggled EventKind = "keyframing_toggled"
	EventConnectionChanged EventKind = "connection_changed"
	EventArrayResized      EventKind = "array_resized"
)

// Event describes one committed mutation of an input.
//
// Range is the span of time whose evaluated value may have changed; the
// owning node invalidates its cache over it before subscribers run.
// Track and Keyframe are set for keyframe events only.
type Event struct {
	Kind     EventKind
	Key      Key
	Range    timerange.TimeRange
	Track    int
	Keyframe keyframe.Keyframe
}

// Subscriber receives events synchronously, on the mutating goroutine,
// after the input's lock has been released.
type Subscriber func(Event)

type subscription struct {
	id int
	fn Subscriber
}
