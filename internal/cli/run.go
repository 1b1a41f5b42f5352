package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rugvedkadu06/aggrigator/internal/logger"
)

func newRunCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run one full report view sync",
		Example: `  syncctl run
  syncctl run --env-file ./config/env/production.env --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, _, err := opts.connect()
			if err != nil {
				return err
			}
			defer backend.Close()

			ctx, cancel := opts.context(cmd.Context())
			defer cancel()

			logger.GetAuditLogger().WithField("trigger", "cli").Info("Report view sync requested")
			summary, err := backend.Run(ctx)
			if err != nil {
				return syncExitError(err)
			}

			return writeResult(cmd.OutOrStdout(), opts.Format, func(w io.Writer) {
				fmt.Fprintf(w, "run %s: %d views written (%d reporters, %d reports, %d flags, %d detections) in %dms\n",
					summary.RunID, summary.Written, summary.TotalReporters, summary.TotalReports,
					summary.TotalFlags, summary.TotalDetections, summary.DurationMs)
			}, summary)
		},
	}
}
