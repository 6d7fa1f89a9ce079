package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/arslant84/vendori/internal/record"
)

// defaultListColumns is the summary shown by "list" in text mode.
var defaultListColumns = []string{
	record.KeyColumn,
	"tenderNumber",
	"overallResult",
	"quantitativeScore",
	"altmanZScore",
	"overallFinancialEvaluationResult",
}

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Columns []string
	All     bool
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all records ordered by vendor name",
		Long: `List every vendor record, ordered by vendorName (byte order).

Text output is a table of summary columns; choose others with --columns or
show every column with --all. JSON output always carries every field.

Example:
  vendori list
  vendori list --columns vendorName,tenderTitle,altmanZBand
  vendori list --format json`,
		Args:          exactArgs(0),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts, cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Columns, "columns", defaultListColumns, "columns to show in text output")
	cmd.Flags().BoolVar(&opts.All, "all", false, "show every column in text output")

	return cmd
}

func runList(opts *ListOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	columns := opts.Columns
	if opts.All {
		columns = record.Columns()
	}
	for _, c := range columns {
		if !record.IsColumn(c) {
			return NewExitError(ExitCommandError, fmt.Sprintf("unknown column %q", c))
		}
	}

	repo, err := openRepository(opts.RootOptions)
	if err != nil {
		return err
	}
	defer closeRepository(repo)

	records, err := repo.ListAll(cmd.Context())
	if err != nil {
		return reportError(formatter, "list records", err)
	}
	formatter.VerboseLog("Loaded %d record(s) from %s", len(records), opts.Config.Storage.Medium)

	if formatter.IsJSON() {
		return formatter.Success(records)
	}

	if len(records) == 0 {
		return formatter.Success("No records.")
	}
	writeRecordTable(formatter.Writer, records, columns)
	return nil
}

// writeRecordTable renders records as a go-pretty table.
func writeRecordTable(w io.Writer, records []record.VendorRecord, columns []string) {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	// Column names are case-sensitive and must read as typed in --columns.
	tbl.Style().Format.Header = text.FormatDefault
	tbl.Style().Format.Footer = text.FormatDefault

	header := make(table.Row, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	tbl.AppendHeader(header)

	for _, rec := range records {
		row := make(table.Row, len(columns))
		for i, c := range columns {
			v, _ := rec.Get(c)
			row[i] = oneLine(v)
		}
		tbl.AppendRow(row)
	}
	tbl.AppendFooter(table.Row{fmt.Sprintf("Total: %d records", len(records))})

	fmt.Fprintln(w, tbl.Render())
}

// oneLine keeps multi-line values from breaking table rows.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
