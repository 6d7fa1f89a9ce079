package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRemoveCommand creates the remove command.
func NewRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "remove <vendor-name>",
		Aliases: []string{"rm"},
		Short:   "Delete a record",
		Long: `Delete the record stored under vendor-name. Removing a name that is
not stored succeeds and changes nothing.

Example:
  vendori remove "Acme Corp"`,
		Args:          exactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemove(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runRemove(opts *RootOptions, key string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	repo, err := openRepository(opts)
	if err != nil {
		return err
	}
	defer closeRepository(repo)

	if err := repo.Remove(cmd.Context(), key); err != nil {
		return reportError(formatter, fmt.Sprintf("remove %q", key), err)
	}

	if formatter.IsJSON() {
		return formatter.Success(map[string]string{"removed": key})
	}
	return formatter.Success(fmt.Sprintf("Removed %q", key))
}
