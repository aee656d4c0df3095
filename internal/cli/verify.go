package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/cutline/internal/journal"
)

// VerifyOptions holds flags for the verify command.
type VerifyOptions struct {
	*RootOptions
	Database string
	Project  string // optional - specific project only
}

// VerifyProjectResult holds the verification result for a single project.
type VerifyProjectResult struct {
	Project string `json:"project"`
	Entries int    `json:"entries"`
	Intact  bool   `json:"intact"`
	Error   string `json:"error,omitempty"`
}

// VerifyResult holds the overall verification result.
type VerifyResult struct {
	Projects      []VerifyProjectResult `json:"projects"`
	TotalProjects int                   `json:"total_projects"`
	AllIntact     bool                  `json:"all_intact"`
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check the edit journal for tampering",
		Long: `Recompute the content hash of every journal entry and compare it
with the stored hash.

Exit codes:
  0 - Every entry matches its hash
  1 - One or more entries were modified after they were recorded
  2 - Command error (database not found, etc.)

Examples:
  cutline verify --db ./journal.db
  cutline verify --db ./journal.db --project fade_in --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Project, "project", "", "verify one project only")

	return cmd
}

func runVerify(opts *VerifyOptions, cmd *cobra.Command) error {
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

	projects := []string{opts.Project}
	if opts.Project == "" {
		if projects, err = j.Projects(ctx); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeReadFailed, err.Error())
		}
	}

	result := VerifyResult{Projects: []VerifyProjectResult{}, AllIntact: true}
	for _, p := range projects {
		pr, err := verifyProject(ctx, j, p)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeReadFailed, err.Error())
		}
		formatter.VerboseLog("%s: %d entries, intact=%t", p, pr.Entries, pr.Intact)
		result.Projects = append(result.Projects, pr)
		result.AllIntact = result.AllIntact && pr.Intact
	}
	result.TotalProjects = len(result.Projects)

	return outputVerifyResult(formatter, result)
}

// verifyProject checks one project. A hash mismatch is a result, not an
// error; errors are reserved for failing queries.
func verifyProject(ctx context.Context, j *journal.Journal, project string) (VerifyProjectResult, error) {
	rows, err := j.ReadProject(ctx, project)
	if err != nil {
		return VerifyProjectResult{}, err
	}
	pr := VerifyProjectResult{Project: project, Entries: len(rows), Intact: true}

	if err := j.Verify(ctx, project); err != nil {
		if !errors.Is(err, journal.ErrHashMismatch) {
			return VerifyProjectResult{}, err
		}
		pr.Intact = false
		pr.Error = err.Error()
	}
	return pr, nil
}

func outputVerifyResult(formatter *OutputFormatter, result VerifyResult) error {
	var failure error
	if !result.AllIntact {
		failure = NewExitError(ExitFailure, "journal verification failed")
	}

	if formatter.JSON() {
		resp := CLIResponse{Status: "ok", Data: result}
		if failure != nil {
			resp.Status = "error"
			resp.Error = &CLIError{Code: ErrCodeHashMismatch, Message: failure.Error()}
		}
		if err := formatter.encode(resp); err != nil {
			return err
		}
		return failure
	}

	w := formatter.Writer
	if result.TotalProjects == 0 {
		fmt.Fprintln(w, "No projects in journal.")
		return nil
	}
	for _, p := range result.Projects {
		if p.Intact {
			fmt.Fprintf(w, "✓ %s (%d entries)\n", p.Project, p.Entries)
		} else {
			fmt.Fprintf(w, "✗ %s: %s\n", p.Project, p.Error)
		}
	}
	if failure != nil {
		return failure
	}
	fmt.Fprintln(w, "✓ Journal intact")
	return nil
}
