package cli

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arslant84/vendori/internal/config"
	"github.com/arslant84/vendori/internal/metrics"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	Medium     string // overrides storage.medium
	Database   string // overrides storage.file.path

	// Config is loaded before any subcommand runs.
	Config *config.Config

	// LogLevel, when set, follows log.level from the loaded config.
	LogLevel *slog.LevelVar

	// Metrics is shared by the repository and the snapshot server.
	Metrics *metrics.Metrics
}

// RootOption configures the root command.
type RootOption func(*RootOptions)

// WithLogLevel lets the config drive the level of the process logger.
func WithLogLevel(lv *slog.LevelVar) RootOption {
	return func(o *RootOptions) {
		o.LogLevel = lv
	}
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the vendori CLI.
func NewRootCommand(options ...RootOption) *cobra.Command {
	opts := &RootOptions{Metrics: metrics.New()}
	for _, o := range options {
		o(opts)
	}

	cmd := &cobra.Command{
		Use:   "vendori",
		Short: "vendori - vendor financial evaluation records",
		Long: `Store, list and edit vendor financial evaluation records.

Records live in an embedded SQLite table. After every change the whole
database is saved as one snapshot to the configured medium: a local file,
a badger key/value store, or a remote snapshot server (see "vendori serve").`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return opts.loadConfig()
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default .vendori.yaml in . or $HOME)")
	cmd.PersistentFlags().StringVar(&opts.Medium, "medium", "", "snapshot medium override (file|kv|remote|memory)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "snapshot file override for the file medium")

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	})

	// Add subcommands
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewUpsertCommand(opts))
	cmd.AddCommand(NewRemoveCommand(opts))
	cmd.AddCommand(NewRenameCommand(opts))
	cmd.AddCommand(NewFlushCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))

	return cmd
}

// loadConfig reads the config file and applies flag overrides.
func (o *RootOptions) loadConfig() error {
	cfg, err := config.LoadConfig(o.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	if o.Database != "" {
		cfg.Storage.File.Path = o.Database
		if o.Medium == "" {
			cfg.Storage.Medium = config.MediumFile
		}
	}
	if o.Medium != "" {
		cfg.Storage.Medium = o.Medium
	}
	if o.Verbose {
		cfg.Log.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	o.Config = cfg
	if o.LogLevel != nil {
		o.LogLevel.Set(ParseLevel(cfg.Log.Level))
	}
	return nil
}

// ParseLevel maps a validated log.level value to a slog level.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// exactArgs is cobra.ExactArgs reporting ExitCommandError.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return WrapExitError(ExitCommandError, "invalid arguments", err)
		}
		return nil
	}
}

// maxArgs is cobra.MaximumNArgs reporting ExitCommandError.
func maxArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.MaximumNArgs(n)(cmd, args); err != nil {
			return WrapExitError(ExitCommandError, "invalid arguments", err)
		}
		return nil
	}
}

// newFormatter builds the formatter for cmd's output streams.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}
