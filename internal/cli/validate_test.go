package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validCatalog = `package nodes

node: transform: inputs: {
	position: {type: "vec2", keyframable: true}
	opacity:  {type: "number", keyframable: true, default: 1}
}

node: source: inputs: path: {type: "text", default: "clip.mov"}
`

func writeCatalogDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, src := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(src), 0644))
	}
	return dir
}

func executeValidate(t *testing.T, format, dir string) (*bytes.Buffer, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{dir})
	return buf, cmd.Execute()
}

func TestValidateValidCatalog(t *testing.T) {
	dir := writeCatalogDir(t, map[string]string{"nodes.cue": validCatalog})

	buf, err := executeValidate(t, "text", dir)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "✓ Catalog valid: 2 node type(s)")
}

func TestValidateValidCatalogJSON(t *testing.T) {
	dir := writeCatalogDir(t, map[string]string{"nodes.cue": validCatalog})

	buf, err := executeValidate(t, "json", dir)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, []string{"source", "transform"}, resp.Data.NodeTypes)
}

func TestValidateNonExistentDirectory(t *testing.T) {
	buf, err := executeValidate(t, "text", "/nonexistent/catalog")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "E005")
	assert.Contains(t, buf.String(), "not found")
}

func TestValidateEmptyDirectory(t *testing.T) {
	buf, err := executeValidate(t, "text", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "E003")
	assert.Contains(t, buf.String(), "no CUE files found")
}

func TestValidateInvalidCatalogCollectsAll(t *testing.T) {
	dir := writeCatalogDir(t, map[string]string{"nodes.cue": `package nodes

node: good: inputs: x: {type: "number"}
node: blur: inputs: radius: {type: "real"}
node: fade: inputs: alpha: {type: "number", default: 0.5}
node: empty: inputs: {}
`})

	buf, err := executeValidate(t, "text", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "validation failed with 3 error(s)")

	out := buf.String()
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, "E104: type:")
	assert.Contains(t, out, "E105: default:")
	assert.Contains(t, out, "E101: inputs:")
	assert.Contains(t, out, "nodes.cue:4")
}

func TestValidateInvalidCatalogJSON(t *testing.T) {
	dir := writeCatalogDir(t, map[string]string{"nodes.cue": `package nodes

node: good: inputs: x: {type: "number"}
node: blur: inputs: radius: {type: "real"}
`})

	buf, err := executeValidate(t, "json", dir)
	require.Error(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeInvalidType, resp.Error.Code)

	assert.False(t, resp.Data.Valid)
	assert.Equal(t, []string{"good"}, resp.Data.NodeTypes)
	require.Len(t, resp.Data.Errors, 1)
	assert.Equal(t, "type", resp.Data.Errors[0].Field)
	assert.Equal(t, 4, resp.Data.Errors[0].Line)
}

func TestValidateNoNodeTypes(t *testing.T) {
	dir := writeCatalogDir(t, map[string]string{"nodes.cue": "package nodes\n\nother: 1\n"})

	buf, err := executeValidate(t, "text", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "no node types declared")
}

func TestValidateMissingArg(t *testing.T) {
	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}
