package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/cutline/internal/journal"
	"github.com/roach88/cutline/internal/undo"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Project  string // optional - list projects when empty
	Group    string // optional - filter to one undo group
}

// HistoryEntry is one journal row in the timeline.
type HistoryEntry struct {
	Seq      int64    `json:"seq"`
	Action   string   `json:"action"`
	GroupID  string   `json:"group_id"`
	Group    string   `json:"group"`
	Commands []string `json:"commands"`
	Hash     string   `json:"hash"`
}

// HistoryResult holds a project's timeline.
type HistoryResult struct {
	Project  string         `json:"project"`
	Timeline []HistoryEntry `json:"timeline"`
	Stats    HistoryStats   `json:"stats"`
}

// HistoryStats summarizes a timeline.
type HistoryStats struct {
	Pushes int `json:"pushes"`
	Undos  int `json:"undos"`
	Redos  int `json:"redos"`
	Groups int `json:"groups"`
}

// ProjectList holds the projects of a journal.
type ProjectList struct {
	Projects []string `json:"projects"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the edit journal of a project",
		Long: `Show the undo stack transitions recorded for a project.

Without --project, lists the projects in the journal in order of their
first entry. With --group, shows only the transitions of one undo group.

Examples:
  cutline history --db ./journal.db
  cutline history --db ./journal.db --project fade_in
  cutline history --db ./journal.db --project fade_in --group group-2 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Project, "project", "", "project id to show")
	cmd.Flags().StringVar(&opts.Group, "group", "", "filter to one undo group id")

	return cmd
}

// openJournal opens an existing journal. Unlike journal.Open it never
// creates a database.
func openJournal(opts *RootOptions, path string, formatter *OutputFormatter) (*journal.Journal, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("journal not found: %s", path))
	}
	j, err := journal.Open(path, journal.WithLogger(opts.logger()))
	if err != nil {
		return nil, formatter.Fail(ExitCommandError, ErrCodeOpenFailed, err.Error())
	}
	return j, nil
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)

	j, err := openJournal(opts.RootOptions, opts.Database, formatter)
	if err != nil {
		return err
	}
	defer j.Close()

	if opts.Project == "" {
		projects, err := j.Projects(ctx)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeReadFailed, err.Error())
		}
		return outputProjects(formatter, projects)
	}

	var rows []journal.Row
	if opts.Group != "" {
		rows, err = j.ReadGroup(ctx, opts.Group)
	} else {
		rows, err = j.ReadProject(ctx, opts.Project)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeReadFailed, err.Error())
	}

	result := buildHistory(opts.Project, rows)
	if formatter.JSON() {
		return formatter.Success(result)
	}
	return outputHistoryText(formatter.Writer, result, opts.Verbose)
}

// buildHistory converts journal rows of one project into a timeline.
// Rows of other projects, possible when filtering by group, are skipped.
func buildHistory(project string, rows []journal.Row) HistoryResult {
	result := HistoryResult{Project: project, Timeline: []HistoryEntry{}}
	groups := make(map[string]bool)

	for _, r := range rows {
		if r.Entry.Project != project {
			continue
		}
		result.Timeline = append(result.Timeline, HistoryEntry{
			Seq:      r.Seq,
			Action:   string(r.Entry.Action),
			GroupID:  r.Entry.GroupID,
			Group:    r.Entry.Group,
			Commands: r.Entry.Commands,
			Hash:     r.Hash,
		})
		groups[r.Entry.GroupID] = true

		switch r.Entry.Action {
		case undo.ActionPush:
			result.Stats.Pushes++
		case undo.ActionUndo:
			result.Stats.Undos++
		case undo.ActionRedo:
			result.Stats.Redos++
		}
	}
	result.Stats.Groups = len(groups)
	return result
}

func outputProjects(formatter *OutputFormatter, projects []string) error {
	if formatter.JSON() {
		return formatter.Success(ProjectList{Projects: projects})
	}
	if len(projects) == 0 {
		fmt.Fprintln(formatter.Writer, "No projects in journal.")
		return nil
	}
	for _, p := range projects {
		fmt.Fprintln(formatter.Writer, p)
	}
	return nil
}

func outputHistoryText(w io.Writer, result HistoryResult, verbose bool) error {
	fmt.Fprintf(w, "History for Project: %s\n", result.Project)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no entries)")
	}
	for _, e := range result.Timeline {
		fmt.Fprintf(w, "  [%d] %-4s %s (%s)\n", e.Seq, strings.ToUpper(e.Action), e.Group, e.GroupID)
		if verbose {
			for _, c := range e.Commands {
				fmt.Fprintf(w, "       %s\n", c)
			}
			fmt.Fprintf(w, "       hash: %s\n", truncateHash(e.Hash))
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Pushes: %d\n", result.Stats.Pushes)
	fmt.Fprintf(w, "  Undos:  %d\n", result.Stats.Undos)
	fmt.Fprintf(w, "  Redos:  %d\n", result.Stats.Redos)
	fmt.Fprintf(w, "  Groups: %d\n", result.Stats.Groups)
	return nil
}

// truncateHash shortens a hex hash for display.
func truncateHash(h string) string {
	if len(h) <= 16 {
		return h
	}
	return h[:8] + "..." + h[len(h)-8:]
}
