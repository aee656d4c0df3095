package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cutline/internal/rational"
)

func boolPtr(b bool) *bool { return &b }
func intPtr(n int) *int { return &n }
func strPtr(s string) *string { return &s }
func at(s string) Rat { return Rat{Rational: rational.MustParse(s), Set: true} }
func opacity() Target { return Target{Node: "clip", Input: "opacity"} }
func point(i int) Target { return Target{Node: "clip", Input: "points", Element: &i} }

func TestExpectationError_Format(t *testing.T) {
	err := &ExpectationError{
		Type:     ExpectValueAt,
		Target:   "id-2.opacity",
		Expected: "1 at 5",
		Actual:   "1/2",
		Trace: []TraceEvent{
			{Seq: 1, Op: OpSetKeyframing, Target: "id-2.opacity", Action: "push", Group: "Enable Keyframing"},
			{Seq: 2, Op: OpSetKeyframing, Target: "id-2.opacity", Error: "boom"},
		},
	}

	msg := err.Error()
	assert.Contains(t, msg, "Expectation failed: value_at id-2.opacity")
	assert.Contains(t, msg, "Expected: 1 at 5")
	assert.Contains(t, msg, "Actual: 1/2")
	assert.Contains(t, msg, `[1] set_keyframing id-2.opacity -> push "Enable Keyframing"`)
	assert.Contains(t, msg, "[2] set_keyframing id-2.opacity error: boom")
}

func TestExpectationError_StackFormat(t *testing.T) {
	err := &ExpectationError{Type: ExpectCanUndo, Expected: "true", Actual: "false"}
	assert.Contains(t, err.Error(), "Expectation failed: can_undo\n")
}

func TestEvaluateExpectations(t *testing.T) {
	base := loadTestScenario(t, "fade_in")

	tests := []struct {
		name   string
		expect Expectation
		want   string // empty means the expectation holds
	}{
		{
			name:   "value holds",
			expect: Expectation{Type: ExpectValueAt, Target: opacity(), Time: at("15/2"), Value: Components{"3/4"}},
		},
		{
			name:   "value differs",
			expect: Expectation{Type: ExpectValueAt, Target: opacity(), Time: at("5"), Value: Components{"1"}},
			want:   "Actual: 1/2",
		},
		{
			name:   "value not parseable",
			expect: Expectation{Type: ExpectValueAt, Target: opacity(), Time: at("5"), Value: Components{"x"}},
			want:   "id-2.opacity",
		},
		{
			name:   "keyframed differs",
			expect: Expectation{Type: ExpectKeyframed, Target: opacity(), Is: boolPtr(false)},
			want:   "Expectation failed: keyframed id-2.opacity",
		},
		{
			name:   "count differs",
			expect: Expectation{Type: ExpectKeyframeCount, Target: opacity(), Count: intPtr(3)},
			want:   "3 keyframes on track 0",
		},
		{
			name:   "track out of range",
			expect: Expectation{Type: ExpectKeyframeCount, Target: opacity(), Track: 2, Count: intPtr(0)},
			want:   "track",
		},
		{
			name:   "array size of a scalar",
			expect: Expectation{Type: ExpectArraySize, Target: Target{Node: "clip", Input: "points"}, Count: intPtr(2)},
		},
		{
			name:   "element keyframed",
			expect: Expectation{Type: ExpectKeyframed, Target: point(1), Is: boolPtr(false)},
		},
		{
			name:   "can undo",
			expect: Expectation{Type: ExpectCanUndo, Is: boolPtr(false)},
			want:   "Expectation failed: can_undo",
		},
		{
			name:   "undo text",
			expect: Expectation{Type: ExpectUndoText, Text: strPtr("Add Keyframe")},
		},
		{
			name:   "redo text differs",
			expect: Expectation{Type: ExpectRedoText, Text: strPtr("Add Keyframe")},
			want:   `Expected: "Add Keyframe"`,
		},
		{
			name:   "unknown node",
			expect: Expectation{Type: ExpectKeyframed, Target: Target{Node: "nope", Input: "opacity"}, Is: boolPtr(true)},
			want:   `unknown node "nope"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := *base
			s.Expect = []Expectation{tt.expect}

			result, err := Run(&s)
			require.NoError(t, err)

			if tt.want == "" {
				assert.True(t, result.Pass, "errors: %v", result.Errors)
				return
			}
			assert.False(t, result.Pass)
			require.Len(t, result.Errors, 1)
			assert.Contains(t, result.Errors[0], "expect[0]:")
			assert.Contains(t, result.Errors[0], tt.want)
		})
	}
}
