package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arslant84/vendori/internal/record"
)

// UpsertOptions holds flags for the upsert command.
type UpsertOptions struct {
	*RootOptions
	File string
	Sets []string
}

// UpsertResult is the JSON payload of a successful upsert.
type UpsertResult struct {
	Upserted []string `json:"upserted"`
}

// NewUpsertCommand creates the upsert command.
func NewUpsertCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UpsertOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "upsert [vendor-name]",
		Short: "Insert or overwrite records",
		Long: `Insert a record, or overwrite every field of the record with the same
vendorName. Fields not given are stored empty.

Records come from --file (YAML or JSON, one record or a list; "-" reads
stdin) and/or --set column=value pairs. A positional vendor-name sets
vendorName. --set is applied to every record read from --file.

Changing vendorName creates a new record; use "vendori rename" to change
a key in place.

Example:
  vendori upsert "Acme Corp" --set quantitativeScore=3.5 --set altmanZRiskCategory="Moderate Risk"
  vendori upsert --file vendors.yaml`,
		Args:          maxArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpsert(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "YAML or JSON record file (- for stdin)")
	cmd.Flags().StringArrayVar(&opts.Sets, "set", nil, "column=value (repeatable)")

	return cmd
}

func runUpsert(opts *UpsertOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	records, err := buildRecords(opts, args, cmd)
	if err != nil {
		_ = formatter.Error(ErrCodeInvalidInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid record input", err)
	}

	repo, err := openRepository(opts.RootOptions)
	if err != nil {
		return err
	}
	defer closeRepository(repo)

	result := UpsertResult{Upserted: make([]string, 0, len(records))}
	for _, rec := range records {
		if err := repo.Upsert(cmd.Context(), rec); err != nil {
			return reportError(formatter, fmt.Sprintf("upsert %q", rec.VendorName), err)
		}
		formatter.VerboseLog("Upserted %q", rec.VendorName)
		result.Upserted = append(result.Upserted, rec.VendorName)
	}

	if formatter.IsJSON() {
		return formatter.Success(result)
	}
	return formatter.Success(fmt.Sprintf("Upserted %d record(s)", len(result.Upserted)))
}

// buildRecords assembles the records to upsert from --file, the positional
// name and --set.
func buildRecords(opts *UpsertOptions, args []string, cmd *cobra.Command) ([]record.VendorRecord, error) {
	var records []record.VendorRecord
	if opts.File != "" {
		recs, err := readRecordFile(opts.File, cmd.InOrStdin())
		if err != nil {
			return nil, err
		}
		records = recs
	}

	if len(args) == 1 {
		if len(records) > 1 {
			return nil, fmt.Errorf("vendor-name argument cannot be combined with a file of %d records", len(records))
		}
		if len(records) == 0 {
			records = []record.VendorRecord{{}}
		}
		records[0].VendorName = args[0]
	}

	if len(records) == 0 {
		if len(opts.Sets) == 0 {
			return nil, fmt.Errorf("nothing to upsert: give a vendor-name, --file or --set")
		}
		records = []record.VendorRecord{{}}
	}

	for i := range records {
		if err := applySets(&records[i], opts.Sets); err != nil {
			return nil, err
		}
		if err := record.ValidateKey(records[i].VendorName); err != nil {
			return nil, fmt.Errorf("record %d: %w", i+1, err)
		}
	}
	return records, nil
}
