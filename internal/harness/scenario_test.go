package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cutline/internal/rational"
)

const scenarioDir = "testdata/scenarios"

func TestLoadScenario(t *testing.T) {
	s, err := LoadScenario(filepath.Join(scenarioDir, "fade_in.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "fade_in", s.Name)
	assert.Equal(t, []string{filepath.Join(scenarioDir, "nodes.cue")}, s.Catalog)
	require.Len(t, s.Nodes, 1)
	assert.Equal(t, NodeDecl{ID: "clip", Type: "transform"}, s.Nodes[0])

	require.Len(t, s.Steps, 5)
	assert.Equal(t, OpSetKeyframing, s.Steps[0].Op)
	require.NotNil(t, s.Steps[0].Enabled)
	assert.True(t, *s.Steps[0].Enabled)

	step := s.Steps[3]
	assert.Equal(t, "clip", step.Node)
	assert.Equal(t, "opacity", step.Input)
	assert.Nil(t, step.Element)
	assert.True(t, step.Time.Set)
	assert.True(t, step.Time.Equal(rational.FromInt(10)))
	assert.Equal(t, Components{"1/2"}, step.Value)

	assert.Equal(t, OpUndo, s.Steps[4].Op)
	assert.False(t, s.Steps[4].Time.Set)

	require.Len(t, s.Expect, 6)
	assert.True(t, s.Expect[1].Time.Equal(rational.MustNew(10, 3)))
}

func TestLoadScenarioVectorsAndElements(t *testing.T) {
	s, err := LoadScenario(filepath.Join(scenarioDir, "points_edit.yaml"))
	require.NoError(t, err)

	assert.Equal(t, Components{"3", "4"}, s.Steps[0].Value)
	require.NotNil(t, s.Steps[3].Element)
	assert.Equal(t, 3, *s.Steps[3].Element)
	assert.True(t, s.Steps[4].AutoDisable)
	assert.Equal(t, "not keyframed", s.Steps[5].ExpectError)
	assert.Equal(t, "src", s.Steps[6].Source)
}

func TestLoadScenarioMissingFile(t *testing.T) {
	_, err := LoadScenario("testdata/scenarios/missing.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

// writeCatalog puts a minimal catalog next to the scenarios parsed in the
// validation table.
func writeCatalog(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nodes.cue"),
		[]byte(`node: fade: inputs: opacity: {type: "number", keyframable: true}`), 0644))
	return dir
}

func TestParseScenarioValidation(t *testing.T) {
	const header = `
name: s
description: d
catalog: [nodes.cue]
nodes:
  - {id: a, type: fade}
`
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "unknown field",
			yaml: header + "steps: [{op: undo}]\nexpect: [{type: can_undo, is: false}]\nexpectations: []\n",
			want: "field expectations not found",
		},
		{
			name: "missing name",
			yaml: "description: d\n",
			want: "name is required",
		},
		{
			name: "catalog missing",
			yaml: "name: s\ndescription: d\ncatalog: [other.cue]\nnodes: [{id: a, type: fade}]\nsteps: [{op: undo}]\nexpect: [{type: can_undo, is: false}]\n",
			want: "catalog file not found",
		},
		{
			name: "no steps",
			yaml: header + "expect: [{type: can_undo, is: false}]\n",
			want: "steps list is required",
		},
		{
			name: "unknown op",
			yaml: header + "steps: [{op: explode}]\nexpect: [{type: can_undo, is: false}]\n",
			want: `unknown op "explode"`,
		},
		{
			name: "unknown node alias",
			yaml: header + "steps: [{op: set_keyframing, node: b, input: opacity, enabled: true}]\nexpect: [{type: can_undo, is: false}]\n",
			want: `unknown node "b"`,
		},
		{
			name: "set_value needs a value",
			yaml: header + "steps: [{op: set_value, node: a, input: opacity, time: 0}]\nexpect: [{type: can_undo, is: false}]\n",
			want: "value is required",
		},
		{
			name: "bad time",
			yaml: header + "steps: [{op: remove_keyframe, node: a, input: opacity, time: 1/0}]\nexpect: [{type: can_undo, is: false}]\n",
			want: "zero denominator",
		},
		{
			name: "nested value",
			yaml: header + "steps: [{op: set_value, node: a, input: opacity, time: 0, value: [[1]]}]\nexpect: [{type: can_undo, is: false}]\n",
			want: "must be scalars",
		},
		{
			name: "duplicate node id",
			yaml: "name: s\ndescription: d\ncatalog: [nodes.cue]\nnodes: [{id: a, type: fade}, {id: a, type: fade}]\nsteps: [{op: undo}]\nexpect: [{type: can_undo, is: false}]\n",
			want: `duplicate id "a"`,
		},
		{
			name: "expectation missing is",
			yaml: header + "steps: [{op: undo}]\nexpect: [{type: can_redo}]\n",
			want: "is is required",
		},
		{
			name: "unknown expectation",
			yaml: header + "steps: [{op: undo}]\nexpect: [{type: final_state}]\n",
			want: `unknown expectation type "final_state"`,
		},
		{
			name: "negative count",
			yaml: header + "steps: [{op: undo}]\nexpect: [{type: keyframe_count, node: a, input: opacity, count: -1}]\n",
			want: "non-negative count",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml), writeCatalog(t))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
