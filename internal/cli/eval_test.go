package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cutline/internal/keyframe"
	"github.com/roach88/cutline/internal/rational"
)

func TestEval(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "linear midpoint is exact",
			args: []string{"0=0", "10=1", "--at", "5", "--at", "10/3"},
			want: "5 = 1/2\n10/3 = 1/3\n",
		},
		{
			name: "hold keeps the earlier value",
			args: []string{"0=0:hold", "10=1", "--at", "9", "--at", "10"},
			want: "9 = 0\n10 = 1\n",
		},
		{
			name: "edges extend",
			args: []string{"2=3", "4=5", "--at", "-1", "--at", "100"},
			want: "-1 = 3\n100 = 5\n",
		},
		{
			name: "later keyframe replaces earlier at same time",
			args: []string{"0=1", "0=2", "--at", "0"},
			want: "0 = 2\n",
		},
		{
			name: "text holds",
			args: []string{"--kind", "text", "0=intro", "24=main", "--at", "12", "--at", "24"},
			want: "12 = intro\n24 = main\n",
		},
		{
			name: "text keeps colons that are not interpolations",
			args: []string{"--kind", "text", "0=a:b", "--at", "0"},
			want: "0 = a:b\n",
		},
		{
			name: "bool holds",
			args: []string{"--kind", "bool", "0=true", "5=false", "--at", "4"},
			want: "4 = true\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, err := execute(t, NewEvalCommand(&RootOptions{Format: "text"}), tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestEvalJSON(t *testing.T) {
	buf, err := execute(t, NewEvalCommand(&RootOptions{Format: "json"}),
		"10=1", "0=0:linear", "--at", "2.5")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   EvalResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "number", resp.Data.Kind)
	assert.Equal(t, []string{"0@0(linear)", "1@10(linear)"}, resp.Data.Keyframes)
	assert.Equal(t, []EvalSample{{Time: "5/2", Value: "1/4"}}, resp.Data.Samples)
}

func TestEvalErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "unknown kind", args: []string{"--kind", "color", "0=1", "--at", "0"}, want: "unknown kind"},
		{name: "missing equals", args: []string{"0", "--at", "0"}, want: "want time=value"},
		{name: "bad number", args: []string{"0=abc", "--at", "0"}, want: "cannot parse"},
		{name: "bad bool", args: []string{"--kind", "bool", "0=maybe", "--at", "0"}, want: "parse bool"},
		{name: "bad time", args: []string{"0=1", "--at", "1/0"}, want: "zero denominator"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, err := execute(t, NewEvalCommand(&RootOptions{Format: "text"}), tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), "E301")
			assert.Contains(t, buf.String(), tt.want)
		})
	}
}

func TestEvalRequiresAt(t *testing.T) {
	_, err := execute(t, NewEvalCommand(&RootOptions{Format: "text"}), "0=1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestParseKeyframe(t *testing.T) {
	k, err := ParseKeyframe(keyframe.KindNumber, "3/2=1/4:bezier")
	require.NoError(t, err)
	assert.True(t, k.Time.Equal(rational.MustNew(3, 2)))
	assert.True(t, keyframe.Equal(keyframe.Num(rational.MustNew(1, 4)), k.Value))
	assert.Equal(t, keyframe.Bezier, k.Interpolation)

	k, err = ParseKeyframe(keyframe.KindNumber, "0=2")
	require.NoError(t, err)
	assert.Equal(t, keyframe.Linear, k.Interpolation)

	_, err = ParseKeyframe(keyframe.KindNumber, "0=2:wobble")
	require.Error(t, err, "an unknown suffix stays part of the value")
}
