package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mldulaney/scopehal-apps/internal/compiler"
	"github.com/mldulaney/scopehal-apps/internal/filters"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid       bool                       `json:"valid"`
	Instruments int                        `json:"instruments"`
	Nodes       int                        `json:"nodes"`
	Errors      []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <graph>",
		Short: "Validate a graph description without building it",
		Long: `Validate a CUE graph description against the built-in node types.

Reports every problem found: unknown node types, ports, parameters and
units, parameter text that does not parse, stream references that name
nothing, and binding loops. <graph> is a directory or a single .cue file.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	res, err := LoadGraphSpec(path)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			return formatter.Fail(ExitCommandError, loadErr.Code, loadErr.Message)
		}
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error())
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", res.FileCount, path)

	result := ValidationResult{
		Instruments: len(res.Spec.Instruments),
		Nodes:       len(res.Spec.Nodes),
		Errors:      compiler.Validate(res.Spec, filters.Builtin()),
	}
	result.Valid = len(result.Errors) == 0

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	if formatter.JSON() {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Graph valid (%d instrument(s), %d node(s))\n", result.Instruments, result.Nodes)
	return nil
}

// outputValidationErrors outputs every validation error.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	errs := result.Errors
	exitErr := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))

	if formatter.JSON() {
		if err := formatter.Failure(result, errs[0].Code, errs[0].Message); err != nil {
			return err
		}
		return exitErr
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}
	return exitErr
}
