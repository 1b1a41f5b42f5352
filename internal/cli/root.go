package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/rugvedkadu06/aggrigator/config"
	"github.com/rugvedkadu06/aggrigator/internal/api/report/models"
	reportsvc "github.com/rugvedkadu06/aggrigator/internal/api/report/service"
	"github.com/rugvedkadu06/aggrigator/internal/bootstrap"
	"github.com/rugvedkadu06/aggrigator/internal/logger"
)

// Backend is what the commands need from a connected process.
type Backend interface {
	Run(ctx context.Context) (*models.SyncSummary, error)
	Status(ctx context.Context) *reportsvc.SyncStatus
	Close()
}

// OpenBackend connects a Backend from configuration.
type OpenBackend func(cfg *config.Configuration) (Backend, error)

// RootOptions holds the global flags.
type RootOptions struct {
	EnvFile string
	Format  string // json | text
	Verbose bool
	Timeout time.Duration // 0 means SYNC_TIMEOUT

	open OpenBackend
}

type runtimeBackend struct{ rt *bootstrap.Runtime }

func (b runtimeBackend) Run(ctx context.Context) (*models.SyncSummary, error) {
	return b.rt.Services.Sync.Run(ctx)
}

func (b runtimeBackend) Status(ctx context.Context) *reportsvc.SyncStatus {
	return b.rt.Services.Sync.Status(ctx)
}

func (b runtimeBackend) Close() { b.rt.Close() }

func openRuntime(cfg *config.Configuration) (Backend, error) {
	rt, err := bootstrap.New(cfg)
	if err != nil {
		return nil, err
	}
	return runtimeBackend{rt: rt}, nil
}

// NewRootCommand builds syncctl. A nil open connects to the configured stores.
func NewRootCommand(open OpenBackend) *cobra.Command {
	if open == nil {
		open = openRuntime
	}
	opts := &RootOptions{open: open}

	cmd := &cobra.Command{
		Use:   "syncctl",
		Short: "Run or inspect the report view sync",
		Long: `syncctl joins reporters, reports, flags and detections into report views
and swaps them into the materialized view collection.

Exit codes: 0 ok, 1 other error, 2 store unreachable, 3 join failed,
4 materialize failed, 5 another sync is running.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.Format != "text" && opts.Format != "json" {
				return WrapExitError(ExitFailure, "invalid format", fmt.Errorf("%q: must be text or json", opts.Format))
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", "", "env file to load (default config/env/<GO_ENV>.env)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log progress to stderr")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 0, "overall deadline (default SYNC_TIMEOUT)")

	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newStatusCommand(opts))
	return cmd
}

// connect loads configuration, routes logs to stderr and opens the backend.
func (o *RootOptions) connect() (Backend, *config.Configuration, error) {
	logCfg := logger.DefaultConfig()
	logCfg.Output = "stderr"
	if o.Verbose {
		logCfg.Level = "debug"
	} else {
		logCfg.Level = "warn"
	}
	if err := logger.Init(logCfg); err != nil {
		return nil, nil, WrapExitError(ExitFailure, "init logger", err)
	}

	var files []string
	if o.EnvFile != "" {
		files = append(files, o.EnvFile)
	}
	cfg, err := config.NewConfig(files...)
	if err != nil {
		return nil, nil, WrapExitError(ExitFailure, "load configuration", err)
	}
	if o.Timeout <= 0 {
		o.Timeout = cfg.Timeout()
	}

	b, err := o.open(cfg)
	if err != nil {
		return nil, nil, WrapExitError(ExitStoreUnreachable, "connect to stores", err)
	}
	return b, cfg, nil
}

func (o *RootOptions) context(parent context.Context) (context.Context, context.CancelFunc) {
	if o.Timeout > 0 {
		return context.WithTimeout(parent, o.Timeout)
	}
	return context.WithCancel(parent)
}

func writeResult(w io.Writer, format string, text func(io.Writer), v any) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(w)
	return nil
}
