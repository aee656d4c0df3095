// Package cache tracks which spans of a node's output have been rendered and
// are still valid.
//
// A Cache holds no frames itself. It is the validity bookkeeping a playback
// or waveform cache consults: render workers mark spans valid as they finish
// and the edit thread invalidates spans whenever a parameter edit changes
// what those spans would render to.
package cache

import (
	"sync"

	"github.com/roach88/cutline/internal/timerange"
)

// Listener is called after a span has been invalidated.
type Listener func(invalidated timerange.TimeRange)

// Cache is a set of validated time ranges.
//
// Thread-safety: all methods are safe for concurrent use. Listeners run on
// the invalidating goroutine after the lock is released.
type Cache struct {
	mu        sync.RWMutex
	validated timerange.List
	listeners []listener
	nextID    int
}

type listener struct {
	id int
	fn Listener
}

// New returns an empty cache; nothing is validated.
func New() *Cache {
	return &Cache{}
}

// Validate marks r as rendered and valid.
func (c *Cache) Validate(r timerange.TimeRange) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.validated.InsertTimeRange(r)
}

// Invalidate marks r as needing a re-render.
func (c *Cache) Invalidate(r timerange.TimeRange) {
	if r.IsEmpty() {
		return
	}
	ls := func() []listener {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.validated.RemoveTimeRange(r)
		return c.snapshotListeners()
	}()

	for _, l := range ls {
		l.fn(r)
	}
}

// InvalidateAll drops every validated range.
func (c *Cache) InvalidateAll() {
	c.Invalidate(timerange.All())
}

// IsFullyValidated reports whether every point of r is valid.
func (c *Cache) IsFullyValidated(r timerange.TimeRange) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.validated.ContainsTimeRange(r)
}

// InvalidatedRanges returns the parts of within that still need rendering.
func (c *Cache) InvalidatedRanges(within timerange.TimeRange) timerange.List {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := timerange.NewList(within)
	for r := range c.validated.Intersects(within).All() {
		out.RemoveTimeRange(r)
	}
	return out
}

// ValidatedRanges returns a copy of the validated set.
func (c *Cache) ValidatedRanges() timerange.List {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.validated.Clone()
}

// Subscribe registers fn to be called after every invalidation.
// The returned function removes the subscription.
func (c *Cache) Subscribe(fn Listener) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	c.listeners = append(c.listeners, listener{id: id, fn: fn})

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, l := range c.listeners {
			if l.id == id {
				c.listeners = append(c.listeners[:i:i], c.listeners[i+1:]...)
				return
			}
		}
	}
}

// snapshotListeners must be called with mu held.
func (c *Cache) snapshotListeners() []listener {
	if len(c.listeners) == 0 {
		return nil
	}
	out := make([]listener, len(c.listeners))
	copy(out, c.listeners)
	return out
}
