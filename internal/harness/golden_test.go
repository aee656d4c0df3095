package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden(t *testing.T) {
	for _, name := range []string{"fade_in", "points_edit"} {
		t.Run(name, func(t *testing.T) {
			result, err := RunWithGolden(t, loadTestScenario(t, name))
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestMarshalTrace_Canonical(t *testing.T) {
	result := NewResult()
	result.ProjectID = "id-1"
	result.AddTrace(TraceEvent{Seq: 1, Op: OpUndo})
	result.AddTrace(TraceEvent{
		Seq:      2,
		Op:       OpResize,
		Target:   "id-2.points",
		Action:   "push",
		Group:    "Resize Array",
		Commands: []string{"resize id-2.points to 4"},
	})

	got, err := MarshalTrace("tiny", result)
	require.NoError(t, err)

	want := `{"project_id":"id-1","scenario_name":"tiny","trace":[` +
		`{"op":"undo","seq":1},` +
		`{"action":"push","commands":["resize id-2.points to 4"],"group":"Resize Array","op":"resize","seq":2,"target":"id-2.points"}]}`
	assert.Equal(t, want, string(got))
}

func TestMarshalTrace_EmptyTrace(t *testing.T) {
	result := NewResult()
	result.ProjectID = "id-1"

	got, err := MarshalTrace("empty", result)
	require.NoError(t, err)
	assert.Equal(t, `{"project_id":"id-1","scenario_name":"empty","trace":[]}`, string(got))
}
