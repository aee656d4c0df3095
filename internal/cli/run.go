package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/cutline/internal/harness"
	"github.com/roach88/cutline/internal/journal"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string // journal every stack transition here
	Golden   string // directory of golden traces
	Update   bool   // regenerate golden files
	Filter   string // scenario filter (glob pattern)
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name      string   `json:"name"`
	ProjectID string   `json:"project_id,omitempty"`
	Pass      bool     `json:"pass"`
	Steps     int      `json:"steps"`
	Errors    []string `json:"errors,omitempty"`
}

// RunResult holds the overall result.
type RunResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml|dir>...",
		Short: "Run edit scenarios",
		Long: `Run YAML edit scenarios against a live project and undo stack.

Each scenario loads its CUE catalog, creates its nodes, applies its steps
through the undo stack and checks its expectations. Directories are
searched for .yaml and .yml files.

With --db every push, undo and redo is recorded in a SQLite journal under
the scenario's name as project id. With --golden each trace is compared
against <dir>/<scenario>.golden, or rewritten with --update.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, database not writable, etc.)

Examples:
  cutline run ./scenarios
  cutline run ./scenarios --filter "fade*" --golden ./scenarios/golden
  cutline run fade_in.yaml --db ./journal.db --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "record stack transitions in this SQLite journal")
	cmd.Flags().StringVar(&opts.Golden, "golden", "", "directory of golden traces to compare against")
	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files (requires --golden)")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runScenarios(opts *RunOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := opts.logger()

	if opts.Update && opts.Golden == "" {
		return formatter.Fail(ExitCommandError, ErrCodeBadArgument, "--update requires --golden")
	}

	var files []string
	for _, p := range paths {
		found, err := findScenarioFiles(p, opts.Filter)
		if os.IsNotExist(err) {
			return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("scenario path not found: %s", p))
		}
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeScanError, err.Error())
		}
		files = append(files, found...)
	}

	var runOpts []harness.Option
	runOpts = append(runOpts, harness.WithLogger(logger))
	if opts.Database != "" {
		j, err := journal.Open(opts.Database, journal.WithLogger(logger))
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeOpenFailed, err.Error())
		}
		defer func() {
			if closeErr := j.Close(); closeErr != nil {
				logger.Error("error closing journal", "error", closeErr)
			}
		}()
		runOpts = append(runOpts, harness.WithJournal(j))
	}

	result := RunResult{Scenarios: make([]ScenarioResult, 0, len(files)), Total: len(files)}
	for _, f := range files {
		sr := runScenario(f, opts, runOpts, formatter)
		result.Scenarios = append(result.Scenarios, sr)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	return outputRunResult(formatter, result)
}

// findScenarioFiles returns path itself for a file, or every YAML file
// below a directory, in lexical order.
func findScenarioFiles(path, filter string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		ext := filepath.Ext(p)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			matched, err := filepath.Match(filter, strings.TrimSuffix(filepath.Base(p), ext))
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}
		files = append(files, p)
		return nil
	})
	return files, err
}

// runScenario executes a single scenario and returns its result. Text
// output is written as each scenario finishes.
func runScenario(file string, opts *RunOptions, runOpts []harness.Option, formatter *OutputFormatter) ScenarioResult {
	fail := func(name string, errs ...string) ScenarioResult {
		if !formatter.JSON() {
			fmt.Fprintf(formatter.Writer, "✗ %s\n", name)
			for _, e := range errs {
				fmt.Fprintf(formatter.Writer, "  %s\n", e)
			}
		}
		return ScenarioResult{Name: name, Errors: errs}
	}

	scenario, err := harness.LoadScenario(file)
	if err != nil {
		return fail(filepath.Base(file), fmt.Sprintf("failed to load scenario: %v", err))
	}

	result, err := harness.Run(scenario, append(slices.Clone(runOpts), harness.WithProjectID(scenario.Name))...)
	if err != nil {
		return fail(scenario.Name, fmt.Sprintf("execution failed: %v", err))
	}
	formatter.VerboseLog("%s: %d step(s), project %s", scenario.Name, len(result.Trace), result.ProjectID)

	errs := result.Errors
	if opts.Golden != "" {
		if msg := checkGolden(opts, scenario.Name, result); msg != "" {
			errs = append(errs, msg)
		}
	}

	if len(errs) > 0 {
		sr := fail(scenario.Name, errs...)
		sr.ProjectID = result.ProjectID
		sr.Steps = len(result.Trace)
		return sr
	}
	if !formatter.JSON() {
		suffix := ""
		if opts.Update {
			suffix = " (golden updated)"
		}
		fmt.Fprintf(formatter.Writer, "✓ %s%s\n", scenario.Name, suffix)
	}
	return ScenarioResult{Name: scenario.Name, ProjectID: result.ProjectID, Pass: true, Steps: len(result.Trace)}
}

// checkGolden compares or rewrites a scenario's golden trace and returns
// a failure message, or "" on success.
func checkGolden(opts *RunOptions, name string, result *harness.Result) string {
	data, err := harness.MarshalTrace(name, result)
	if err != nil {
		return fmt.Sprintf("failed to marshal trace: %v", err)
	}
	path := filepath.Join(opts.Golden, name+".golden")

	if opts.Update {
		if err := os.MkdirAll(opts.Golden, 0755); err != nil {
			return fmt.Sprintf("%s: failed to create golden directory: %v", ErrCodeWriteFailed, err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Sprintf("%s: failed to write golden file: %v", ErrCodeWriteFailed, err)
		}
		return ""
	}

	want, err := os.ReadFile(path)
	if err != nil {
		return fmt.Sprintf("failed to read golden file: %v", err)
	}
	if !bytes.Equal(want, data) {
		return "trace does not match golden file (run with --update to regenerate)"
	}
	return ""
}

// outputRunResult prints the summary. Failing scenarios exit with code 1.
func outputRunResult(formatter *OutputFormatter, result RunResult) error {
	var failure error
	if result.Failed > 0 {
		failure = NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}

	if formatter.JSON() {
		resp := CLIResponse{Status: "ok", Data: result}
		if failure != nil {
			resp.Status = "error"
			resp.Error = &CLIError{Code: "E_SCENARIO_FAILED", Message: failure.Error()}
		}
		if err := formatter.encode(resp); err != nil {
			return err
		}
		return failure
	}

	w := formatter.Writer
	if result.Total == 0 {
		fmt.Fprintln(w, "No scenarios found.")
		return nil
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	if failure != nil {
		return failure
	}
	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}
