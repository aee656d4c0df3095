// Package journal is the SQLite edit journal: an append-only audit log of
// every push, undo and redo applied to a project's undo stack.
//
// Entries are ordered by a logical seq and carry a content hash over their
// canonical JSON form, so a journal can be checked for tampering with
// Verify. The journal is never read back to rebuild a project.
package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/cutline/internal/undo"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - initial schema
// 1 - index on entries.group_id
const currentSchemaVersion = 1

// ErrHashMismatch is returned by Verify when a stored entry no longer
// matches its hash.
var ErrHashMismatch = errors.New("journal entry hash mismatch")

// Row is one journal entry as stored.
type Row struct {
	Seq   int64
	Entry undo.Entry
	Hash  string
}

// Journal records undo stack transitions in SQLite. It implements
// undo.Journal.
type Journal struct {
	db     *sql.DB
	clock  *Clock
	logger *slog.Logger
}

// Option configures a Journal.
type Option func(*Journal)

// WithLogger sets the logger. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(j *Journal) {
		j.logger = l
	}
}

var _ undo.Journal = (*Journal)(nil)

// Open creates or opens a journal database at path.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
//
// The seq clock resumes after the highest seq already stored.
func Open(path string, opts ...Option) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	var last int64
	if err := db.QueryRow(`SELECT COALESCE(MAX(seq), 0) FROM entries`).Scan(&last); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to read last seq: %w", err)
	}

	j := &Journal{
		db:     db,
		clock:  NewClockAt(last),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(j)
	}
	j.logger.Debug("journal opened", "path", path, "seq", last)
	return j, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Seq is the seq of the last entry recorded.
func (j *Journal) Seq() int64 {
	return j.clock.Current()
}

// Record appends e with the next seq.
func (j *Journal) Record(ctx context.Context, e undo.Entry) error {
	seq := j.clock.Next()
	hash, err := EntryHash(seq, e)
	if err != nil {
		return fmt.Errorf("record entry: %w", err)
	}
	cmds, err := MarshalCanonical(e.Commands)
	if err != nil {
		return fmt.Errorf("record entry: %w", err)
	}

	_, err = j.db.ExecContext(ctx, `
		INSERT INTO entries
		(seq, project_id, group_id, action, group_name, commands, hash)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		seq,
		e.Project,
		e.GroupID,
		string(e.Action),
		e.Group,
		string(cmds),
		hash,
	)
	if err != nil {
		return fmt.Errorf("record entry: %w", err)
	}
	j.logger.Debug("journal entry", "seq", seq, "action", e.Action, "group", e.Group, "project", e.Project)
	return nil
}

// ReadProject returns every entry of projectID ordered by seq. It returns
// an empty slice, not nil, when there are none.
func (j *Journal) ReadProject(ctx context.Context, projectID string) ([]Row, error) {
	return j.query(ctx, `
		SELECT seq, project_id, group_id, action, group_name, commands, hash
		FROM entries
		WHERE project_id = ?
		ORDER BY seq ASC
	`, projectID)
}

// ReadGroup returns every transition of one group ordered by seq.
func (j *Journal) ReadGroup(ctx context.Context, groupID string) ([]Row, error) {
	return j.query(ctx, `
		SELECT seq, project_id, group_id, action, group_name, commands, hash
		FROM entries
		WHERE group_id = ?
		ORDER BY seq ASC
	`, groupID)
}

// Projects lists the ids of every project with entries, in order of first
// appearance.
func (j *Journal) Projects(ctx context.Context) ([]string, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT project_id FROM entries
		GROUP BY project_id
		ORDER BY MIN(seq) ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return ids, nil
}

// Verify recomputes the hash of every entry of projectID and fails with
// ErrHashMismatch at the first one that differs.
func (j *Journal) Verify(ctx context.Context, projectID string) error {
	rows, err := j.ReadProject(ctx, projectID)
	if err != nil {
		return err
	}
	for _, r := range rows {
		want, err := EntryHash(r.Seq, r.Entry)
		if err != nil {
			return err
		}
		if want != r.Hash {
			return fmt.Errorf("%w: seq %d", ErrHashMismatch, r.Seq)
		}
	}
	return nil
}

func (j *Journal) query(ctx context.Context, q string, args ...any) ([]Row, error) {
	rows, err := j.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	out := []Row{}
	for rows.Next() {
		var (
			r      Row
			action string
			cmds   string
		)
		if err := rows.Scan(&r.Seq, &r.Entry.Project, &r.Entry.GroupID, &action, &r.Entry.Group, &cmds, &r.Hash); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		r.Entry.Action = undo.Action(action)
		if err := json.Unmarshal([]byte(cmds), &r.Entry.Commands); err != nil {
			return nil, fmt.Errorf("decode commands of seq %d: %w", r.Seq, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return out, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_entries_group ON entries(group_id, seq)`); err != nil {
			return fmt.Errorf("migrate to v1: %w", err)
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}
