// Package graph holds the parameter model of a project: nodes and their
// inputs.
//
// A Project owns Nodes; a Node exclusively owns its Inputs; an Input
// exclusively owns the keyframe tracks of each of its elements. Every element
// of an input is in exactly one of two states:
//
//   - standard: one value per component track, independent of time
//   - keyframed: one keyframe.Track per component track
//
// The state is a tagged variant, so an element can never hold both.
//
// # Addressing
//
// An input is addressed by Key{Node, Input, Element}. Element is either
// Whole() for a non-array input or At(i) for slot i of an array input.
//
// # Concurrency
//
// Editing happens on one goroutine, evaluation may read from many. Each Input
// guards its elements with a sync.RWMutex and performs every mutation as one
// locked step, so readers never observe half of an edit. Events are
// delivered synchronously after the lock is released.
//
// The methods here are the primitive state transitions. User edits should go
// through package edit so they are recorded on an undo stack.
package graph
