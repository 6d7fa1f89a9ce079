package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/arslant84/vendori/internal/snapshotsrv"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr      string
	PublicDir string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the snapshot server used by the remote medium",
		Long: `Run the HTTP snapshot server.

Routes:
  POST /api/save-database   multipart upload, field "database"
  GET  /vendors.db          latest snapshot
  GET  /healthz             liveness
  GET  /metrics             Prometheus metrics

Point clients at it with storage.medium=remote and
storage.remote.base_url=http://<addr>.

Example:
  vendori serve --addr :8080 --public-dir ./public`,
		Args:          exactArgs(0),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (overrides server.addr)")
	cmd.Flags().StringVar(&opts.PublicDir, "public-dir", "", "snapshot directory (overrides server.public_dir)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	cfg := opts.Config.Server
	if opts.Addr != "" {
		cfg.Addr = opts.Addr
	}
	if opts.PublicDir != "" {
		cfg.PublicDir = opts.PublicDir
	}

	srv := snapshotsrv.New(cfg, slog.Default(), opts.Metrics)
	if err := srv.ListenAndServe(cmd.Context()); err != nil {
		return WrapExitError(ExitFailure, "snapshot server", err)
	}
	return nil
}
