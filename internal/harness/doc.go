// Package harness runs edit scenarios against a real project and undo
// stack and checks the resulting values.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: fade_in
//	description: "Opacity ramps from 0 to 1 over ten frames"
//	catalog:
//	  - nodes.cue
//	nodes:
//	  - id: clip
//	    type: transform
//	steps:
//	  - op: set_keyframing
//	    node: clip
//	    input: opacity
//	    enabled: true
//	  - op: set_value
//	    node: clip
//	    input: opacity
//	    time: 0
//	    value: 0
//	  - op: insert_keyframe
//	    node: clip
//	    input: opacity
//	    time: 10
//	    value: 1
//	expect:
//	  - type: value_at
//	    node: clip
//	    input: opacity
//	    time: 5
//	    value: 1/2
//
// Catalog paths are relative to the scenario file. Times and numbers are
// ints, decimals or "n/d" rationals; all are exact. Multi-component values
// are lists, one entry per component track.
//
// # Steps
//
//   - set_value: set an element at a time (keyframed elements get keyframes)
//   - set_keyframing: enable or disable keyframing
//   - insert_keyframe, remove_keyframe, move_keyframe, set_interpolation
//   - resize: resize an array input
//   - connect, disconnect: attach an element to another node
//   - undo, redo
//
// A step with expect_error must fail with an error containing that text.
//
// # Expectation Types
//
//   - value_at: the element's value at a time
//   - keyframed: whether the element is keyframed
//   - keyframe_count: the number of keyframes on one track
//   - array_size: the size of an array input
//   - can_undo, can_redo: the undo stack state
//   - undo_text, redo_text: the group names undo and redo would act on
//
// # Deterministic Traces
//
// Project, node and group ids come from sequences and every step is
// numbered by a journal.Clock of its own, so the same scenario always
// produces the same trace. RunWithGolden compares that trace, as canonical
// JSON, against testdata/golden.
package harness
