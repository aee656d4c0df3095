package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/cutline/internal/catalog"
)

// ValidationError is one catalog problem as reported by validate.
type ValidationError struct {
	Code    string `json:"code"`
	Field   string `json:"field"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool              `json:"valid"`
	NodeTypes []string          `json:"node_types"`
	Errors    []ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <catalog-dir>",
		Short: "Validate a CUE node catalog",
		Long: `Compile every node type of a CUE catalog directory and report all
errors at once.

Exit codes:
  0 - Catalog valid
  1 - One or more node types failed to compile
  2 - Command error (directory not found, no CUE files, etc.)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	logger := opts.logger()

	files, _ := catalog.FindCUEFiles(dir)
	formatter.VerboseLog("Found %d CUE file(s) in %s", len(files), dir)

	cat, errs := catalog.CompileDir(dir, catalog.LoadModeCollectAll)
	if cat == nil && len(errs) > 0 {
		if code, ok := setupErrorCode(errs[0]); ok {
			return formatter.Fail(ExitCommandError, code, errs[0].Error())
		}
	}

	result := ValidationResult{Valid: len(errs) == 0, NodeTypes: []string{}}
	if cat != nil {
		result.NodeTypes = cat.Names()
	}
	for _, err := range errs {
		result.Errors = append(result.Errors, toValidationError(err))
	}
	logger.Debug("catalog compiled", "dir", dir, "node_types", len(result.NodeTypes), "errors", len(errs))

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	if formatter.JSON() {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Catalog valid: %d node type(s)\n", len(result.NodeTypes))
	for _, name := range result.NodeTypes {
		formatter.VerboseLog("  %s", name)
	}
	return nil
}

// setupErrorCode classifies errors that stop validation before any node
// type is compiled.
func setupErrorCode(err error) (string, bool) {
	switch {
	case errors.Is(err, catalog.ErrDirNotFound):
		return ErrCodeNotFound, true
	case errors.Is(err, catalog.ErrNoFiles):
		return ErrCodeNoFiles, true
	}
	var cErr *catalog.CompileError
	if errors.As(err, &cErr) {
		return "", false
	}
	return ErrCodeLoadFailed, true
}

func toValidationError(err error) ValidationError {
	var cErr *catalog.CompileError
	if !errors.As(err, &cErr) {
		return ValidationError{Code: ErrCodeGeneric, Field: "catalog", Message: err.Error()}
	}
	ve := ValidationError{
		Code:    compileErrorCode(cErr),
		Field:   cErr.Field,
		Message: cErr.Message,
	}
	if cErr.Pos.IsValid() {
		ve.File = cErr.Pos.Filename()
		ve.Line = cErr.Pos.Line()
	}
	return ve
}

// compileErrorCode maps a compile error to its error code by field.
func compileErrorCode(e *catalog.CompileError) string {
	switch e.Field {
	case "inputs":
		return ErrCodeNoInputs
	case "type":
		return ErrCodeInvalidType
	case "default":
		return ErrCodeInvalidDefault
	case "size":
		return ErrCodeInvalidSize
	case "cue":
		return ErrCodeBuildFailed
	case "node":
		if strings.HasPrefix(e.Message, "duplicate") {
			return ErrCodeDuplicate
		}
	}
	return ErrCodeGeneric
}

// outputValidationErrors outputs every validation error. Validation
// failures exit with code 1.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	errs := result.Errors
	failure := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))

	if formatter.JSON() {
		if err := formatter.encode(CLIResponse{
			Status: "error",
			Data:   result,
			Error:  &CLIError{Code: errs[0].Code, Message: errs[0].Message},
		}); err != nil {
			return err
		}
		return failure
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, e := range errs {
		if e.Line > 0 {
			fmt.Fprintf(formatter.Writer, "%s:%d\n", e.File, e.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", e.Code, e.Field, e.Message)
	}
	return failure
}
