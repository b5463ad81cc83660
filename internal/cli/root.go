package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Environment variables consulted for flag defaults. A .env file in the
// working directory, or the file named by --env-file, is loaded first.
const (
	EnvDatabase = "SCOPECFG_DB"
	EnvFormat   = "SCOPECFG_FORMAT"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	EnvFile string

	// Logger is set up before any subcommand runs. Logs go to stderr so
	// they never corrupt JSON output.
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the scopecfg CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "scopecfg",
		Short: "Reconfigure nodes of a signal-processing graph",
		Long: `scopecfg loads a CUE description of instruments and processing nodes
and edits node inputs, parameters and names the way a properties dialog
would: only legal streams are offered, parameter text is parsed with SI
prefixes, and every committed pass is journaled.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := loadEnv(opts.EnvFile); err != nil {
				return NewExitError(ExitCommandError, err.Error())
			}
			if !cmd.Flags().Changed("format") {
				if env := os.Getenv(EnvFormat); env != "" {
					opts.Format = env
				}
			}
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			opts.Logger = newLogger(cmd.ErrOrStderr(), opts.Verbose)
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", "", "load environment defaults from this file instead of .env")

	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewInputsCommand(opts))
	cmd.AddCommand(NewParamsCommand(opts))
	cmd.AddCommand(NewSetCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))

	return cmd
}

// loadEnv loads an explicit env file, failing if it is missing, or the
// optional .env in the working directory.
func loadEnv(path string) error {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
		return nil
	}
	_ = godotenv.Load()
	return nil
}

// newLogger writes text logs to w: debug and up when verbose, warnings
// otherwise.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// logger returns the configured logger, or a discarding one when a
// command runs without the root pre-run, as in unit tests.
func (o *RootOptions) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// databasePath returns the --db flag, falling back to $SCOPECFG_DB.
func databasePath(cmd *cobra.Command, flag string) string {
	if flag != "" || cmd.Flags().Changed("db") {
		return flag
	}
	return os.Getenv(EnvDatabase)
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
