package timerange

import (
	"iter"
	"slices"
	"strings"
)

// List is a set of time expressed as sorted TimeRanges.
//
// INVARIANTS:
//   - entries are in increasing time order
//   - no two entries overlap or touch (the list is maximally merged)
//   - no entry is empty
//
// The zero value is an empty list ready to use. List is not safe for
// concurrent mutation; owners guard it the way cache.Cache does.
type List struct {
	ranges []TimeRange
}

// NewList builds a list by inserting each range in turn.
func NewList(ranges ...TimeRange) List {
	var l List
	for _, r := range ranges {
		l.InsertTimeRange(r)
	}
	return l
}

// InsertTimeRange adds r to the set. Every entry that overlaps or touches r
// is folded into one combined entry.
func (l *List) InsertTimeRange(r TimeRange) {
	if r.IsEmpty() {
		return
	}

	out := make([]TimeRange, 0, len(l.ranges)+1)
	merged := r
	placed := false
	for _, e := range l.ranges {
		switch {
		case e.Touches(merged):
			merged = merged.CombineWith(e)
		case e.out.Less(merged.in):
			out = append(out, e)
		default:
			// e lies entirely after merged; entries are sorted so merged is final
			if !placed {
				out = append(out, merged)
				placed = true
			}
			out = append(out, e)
		}
	}
	if !placed {
		out = append(out, merged)
	}
	l.ranges = out
}

// RemoveTimeRange subtracts r from the set. Entries r fully covers are
// deleted, entries r cuts in the middle are split in two, entries r covers
// at one edge are trimmed, and disjoint entries are untouched.
func (l *List) RemoveTimeRange(r TimeRange) {
	if r.IsEmpty() {
		return
	}

	out := make([]TimeRange, 0, len(l.ranges)+1)
	for _, e := range l.ranges {
		if !e.OverlapsWith(r) {
			out = append(out, e)
			continue
		}
		if e.in.Less(r.in) {
			out = append(out, span(e.in, r.in))
		}
		if r.out.Less(e.out) {
			out = append(out, span(r.out, e.out))
		}
	}
	l.ranges = out
}

// ContainsTimeRange reports whether a single entry contains r, boundaries
// included. The empty range is contained by every list.
func (l List) ContainsTimeRange(r TimeRange) bool {
	if r.IsEmpty() {
		return true
	}
	for _, e := range l.ranges {
		if e.Contains(r, true) {
			return true
		}
		if r.in.Less(e.in) {
			break
		}
	}
	return false
}

// Intersects returns the parts of the list that fall inside r: each entry
// overlapping r clipped to r.
func (l List) Intersects(r TimeRange) List {
	var out List
	for _, e := range l.ranges {
		if is, ok := e.Intersected(r); ok {
			out.ranges = append(out.ranges, is)
		}
	}
	return out
}

// Len returns the number of entries.
func (l List) Len() int { return len(l.ranges) }

// IsEmpty reports whether the list holds no time at all.
func (l List) IsEmpty() bool { return len(l.ranges) == 0 }

// At returns the i'th entry in time order.
func (l List) At(i int) TimeRange { return l.ranges[i] }

// Ranges returns a copy of the entries in time order.
func (l List) Ranges() []TimeRange { return slices.Clone(l.ranges) }

// All iterates the entries in time order.
func (l List) All() iter.Seq[TimeRange] {
	return func(yield func(TimeRange) bool) {
		for _, e := range l.ranges {
			if !yield(e) {
				return
			}
		}
	}
}

// Clone returns an independent copy.
func (l List) Clone() List { return List{ranges: slices.Clone(l.ranges)} }

// Clear empties the list.
func (l *List) Clear() { l.ranges = nil }

// Equal reports whether both lists cover exactly the same time.
func (l List) Equal(o List) bool {
	return slices.EqualFunc(l.ranges, o.ranges, TimeRange.Equal)
}

// String formats the list as "{[a, b), [c, d)}".
func (l List) String() string {
	parts := make([]string, len(l.ranges))
	for i, e := range l.ranges {
		parts[i] = e.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
