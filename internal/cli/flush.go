package cli

import (
	"github.com/spf13/cobra"
)

// NewFlushCommand creates the flush command.
func NewFlushCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flush",
		Short: "Save the current snapshot if the medium is behind",
		Long: `Load the repository and save its snapshot when the medium does not hold
it, for example after a corrupt snapshot was replaced by an empty table.
Does nothing when the medium is up to date.`,
		Args:          exactArgs(0),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFlush(rootOpts, cmd)
		},
	}

	return cmd
}

func runFlush(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	repo, err := openRepository(opts)
	if err != nil {
		return err
	}
	defer closeRepository(repo)

	// Initialization decides whether anything is pending.
	if _, err := repo.Stats(cmd.Context()); err != nil {
		return reportError(formatter, "flush", err)
	}
	wasPending := repo.Pending()

	if err := repo.Flush(cmd.Context()); err != nil {
		return reportError(formatter, "flush", err)
	}

	if formatter.IsJSON() {
		return formatter.Success(map[string]bool{"flushed": wasPending})
	}
	if wasPending {
		return formatter.Success("Snapshot saved")
	}
	return formatter.Success("Nothing to flush")
}
