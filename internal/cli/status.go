package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
)

func newStatusCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the persisted sync marker of the view collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, cfg, err := opts.connect()
			if err != nil {
				return err
			}
			defer backend.Close()

			ctx, cancel := opts.context(cmd.Context())
			defer cancel()

			status := backend.Status(ctx)
			if status.PersistedError != "" {
				return WrapExitError(ExitStoreUnreachable, "read sync state", fmt.Errorf("%s", status.PersistedError))
			}

			return writeResult(cmd.OutOrStdout(), opts.Format, func(w io.Writer) {
				p := status.Persisted
				if p == nil {
					fmt.Fprintf(w, "%s: never synced\n", cfg.ColViews)
					return
				}
				fmt.Fprintf(w, "%s: %s (run %s)\n", cfg.ColViews, p.Status, p.RunID)
				if p.LastSuccessAt != nil {
					fmt.Fprintf(w, "last success: %s, %d views\n", p.LastSuccessAt.Format(time.RFC3339), p.LastCount)
				}
				if p.LastError != "" {
					fmt.Fprintf(w, "last error: %s\n", p.LastError)
				}
			}, status.Persisted)
		},
	}
}
