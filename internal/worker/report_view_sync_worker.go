// Package worker holds the background loops started by the server.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rugvedkadu06/aggrigator/internal/api/report/models"
	"github.com/rugvedkadu06/aggrigator/internal/common"
	"github.com/rugvedkadu06/aggrigator/internal/logger"
)

// Syncer runs one report view sync.
type Syncer interface {
	Run(ctx context.Context) (*models.SyncSummary, error)
	// Running reports whether a sync started in this process is still active.
	Running() bool
}

// ReportViewSyncWorker re-runs the report view sync every interval. A run that
// finds another sync in progress is skipped, not retried.
type ReportViewSyncWorker struct {
	syncer   Syncer
	interval time.Duration
	timeout  time.Duration // per run; 0 means none
}

// NewReportViewSyncWorker returns an error for a non-positive interval: the
// caller should not start a worker when periodic sync is disabled.
func NewReportViewSyncWorker(syncer Syncer, interval, timeout time.Duration) (*ReportViewSyncWorker, error) {
	if syncer == nil {
		return nil, errors.New("report view sync worker needs a syncer")
	}
	if interval <= 0 {
		return nil, errors.New("report view sync interval must be positive")
	}
	return &ReportViewSyncWorker{syncer: syncer, interval: interval, timeout: timeout}, nil
}

// Start blocks until ctx is done, syncing once per tick.
func (w *ReportViewSyncWorker) Start(ctx context.Context) {
	log := logger.GetAppLogger().WithField("module", "report_view_sync")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	log.WithFields(logrus.Fields{
		"interval": w.interval.String(),
		"timeout":  w.timeout.String(),
	}).Info("Starting report view sync worker")

	for {
		select {
		case <-ctx.Done():
			log.Info("Report view sync worker stopped")
			return
		case <-ticker.C:
			w.runOnce(ctx, log)
		}
	}
}

func (w *ReportViewSyncWorker) runOnce(ctx context.Context, log *logrus.Entry) {
	if w.syncer.Running() {
		log.Debug("Report view sync still running, skipping tick")
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("Panic during report view sync, continuing on next tick")
		}
	}()

	runCtx := ctx
	if w.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	summary, err := w.syncer.Run(runCtx)
	if err != nil {
		var e *common.Error
		if errors.As(err, &e) && e.Code.Code == common.ErrCodeSyncBusy.Code {
			log.WithError(err).Info("Report view sync skipped, another run is active")
			return
		}
		log.WithError(err).Warn("Periodic report view sync failed")
		return
	}
	log.WithFields(logrus.Fields{
		"runId":    summary.RunID,
		"written":  summary.Written,
		"duration": summary.DurationMs,
	}).Info("Periodic report view sync finished")
}
