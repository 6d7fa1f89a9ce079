package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/arslant84/vendori/internal/record"
	"github.com/arslant84/vendori/internal/repository"
)

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <vendor-name>",
		Short: "Show one record",
		Long: `Show every field of the record stored under vendor-name.

The name must match exactly: keys are case-sensitive and not trimmed.

Example:
  vendori get "Acme Corp"
  vendori get "Acme Corp" --format json`,
		Args:          exactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runGet(opts *RootOptions, key string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	repo, err := openRepository(opts)
	if err != nil {
		return err
	}
	defer closeRepository(repo)

	rec, found, err := repo.Get(cmd.Context(), key)
	if err != nil {
		return reportError(formatter, "get record", err)
	}
	if !found {
		return reportError(formatter, "get record", fmt.Errorf("%q: %w", key, repository.ErrNotFound))
	}

	if formatter.IsJSON() {
		return formatter.Success(rec)
	}

	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"column", "value"})
	for _, c := range record.Columns() {
		v, _ := rec.Get(c)
		tbl.AppendRow(table.Row{c, v})
	}
	fmt.Fprintln(formatter.Writer, tbl.Render())
	return nil
}
