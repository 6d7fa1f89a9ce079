package cli

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "stats",
		Short:         "Show repository state, record count and snapshot size",
		Args:          exactArgs(0),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(rootOpts, cmd)
		},
	}

	return cmd
}

func runStats(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	repo, err := openRepository(opts)
	if err != nil {
		return err
	}
	defer closeRepository(repo)

	st, err := repo.Stats(cmd.Context())
	if err != nil {
		return reportError(formatter, "stats", err)
	}

	if formatter.IsJSON() {
		return formatter.Success(st)
	}

	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendRows([]table.Row{
		{"state", st.State},
		{"medium", st.Medium},
		{"records", humanize.Comma(int64(st.Records))},
		{"snapshot", humanize.Bytes(uint64(st.SnapshotBytes))},
		{"pending", strconv.FormatBool(st.Pending)},
	})
	fmt.Fprintln(formatter.Writer, tbl.Render())
	return nil
}
