package cli

import (
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tamper rewrites one stored entry behind the journal's back.
func tamper(t *testing.T, dbPath string, seq int) {
	t.Helper()
	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec(`UPDATE entries SET group_name = 'Forged' WHERE seq = ?`, seq)
	require.NoError(t, err)
}

func TestVerifyMissingDatabaseFlag(t *testing.T) {
	_, err := execute(t, NewVerifyCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestVerifyNonExistentDatabase(t *testing.T) {
	_, err := execute(t, NewVerifyCommand(&RootOptions{Format: "text"}), "--db", "/nonexistent/journal.db")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "E005")
}

func TestVerifyIntact(t *testing.T) {
	dbPath := seedJournal(t)

	buf, err := execute(t, NewVerifyCommand(&RootOptions{Format: "text"}), "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "✓ ramp (3 entries)")
	assert.Contains(t, buf.String(), "✓ undone (3 entries)")
	assert.Contains(t, buf.String(), "✓ Journal intact")
}

func TestVerifyDetectsTampering(t *testing.T) {
	dbPath := seedJournal(t)
	tamper(t, dbPath, 5)

	buf, err := execute(t, NewVerifyCommand(&RootOptions{Format: "text"}), "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "✓ ramp")
	assert.Contains(t, buf.String(), "✗ undone: journal entry hash mismatch: seq 5")

	// The untouched project still verifies on its own.
	_, err = execute(t, NewVerifyCommand(&RootOptions{Format: "text"}), "--db", dbPath, "--project", "ramp")
	require.NoError(t, err)
}

func TestVerifyJSON(t *testing.T) {
	dbPath := seedJournal(t)
	tamper(t, dbPath, 1)

	buf, err := execute(t, NewVerifyCommand(&RootOptions{Format: "json"}), "--db", dbPath)
	require.Error(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   VerifyResult `json:"data"`
		Error  *CLIError    `json:"error"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeHashMismatch, resp.Error.Code)
	assert.Equal(t, 2, resp.Data.TotalProjects)
	assert.False(t, resp.Data.AllIntact)
	assert.False(t, resp.Data.Projects[0].Intact)
	assert.True(t, resp.Data.Projects[1].Intact)
}
