package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRenameCommand creates the rename command.
func NewRenameCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rename <old-name> <new-name>",
		Short: "Change a record's vendor name",
		Long: `Change the key of a stored record, keeping every other field.

Fails when old-name is not stored or new-name is already taken.

Example:
  vendori rename "Acme" "Acme Corp"`,
		Args:          exactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRename(rootOpts, args[0], args[1], cmd)
		},
	}

	return cmd
}

func runRename(opts *RootOptions, oldKey, newKey string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	repo, err := openRepository(opts)
	if err != nil {
		return err
	}
	defer closeRepository(repo)

	if err := repo.Rename(cmd.Context(), oldKey, newKey); err != nil {
		return reportError(formatter, fmt.Sprintf("rename %q", oldKey), err)
	}

	if formatter.IsJSON() {
		return formatter.Success(map[string]string{"from": oldKey, "to": newKey})
	}
	return formatter.Success(fmt.Sprintf("Renamed %q to %q", oldKey, newKey))
}
