package reportsvc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rugvedkadu06/aggrigator/internal/api/report/models"
	"github.com/rugvedkadu06/aggrigator/internal/common"
	"github.com/rugvedkadu06/aggrigator/internal/logger"
)

const (
	defaultBatchSize         = 500
	defaultPromoteTimeout    = 30 * time.Second
	defaultStaleStagingAfter = time.Hour
)

// MaterializerOptions tunes a Materializer. Zero values mean defaults.
type MaterializerOptions struct {
	BatchSize      int
	PromoteTimeout time.Duration
	// StaleStagingAfter is the age after which another run's staging collection
	// is treated as abandoned. It must exceed the longest run.
	StaleStagingAfter time.Duration
}

// Materializer replaces the view collection with a full snapshot. Writes are
// serialized in-process and, with a DistributedLock, across processes.
// Readers of the target see the previous snapshot until the new one is promoted.
type Materializer struct {
	store          ViewStore
	lock           DistributedLock
	sem            chan struct{}
	batchSize      int
	promoteTimeout time.Duration
	staleAfter     time.Duration
	now            func() time.Time
}

func NewMaterializer(store ViewStore, lock DistributedLock, opts MaterializerOptions) *Materializer {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.PromoteTimeout <= 0 {
		opts.PromoteTimeout = defaultPromoteTimeout
	}
	if opts.StaleStagingAfter <= 0 {
		opts.StaleStagingAfter = defaultStaleStagingAfter
	}
	return &Materializer{
		store:          store,
		lock:           lock,
		sem:            make(chan struct{}, 1),
		batchSize:      opts.BatchSize,
		promoteTimeout: opts.PromoteTimeout,
		staleAfter:     opts.StaleStagingAfter,
		now:            time.Now,
	}
}

// LockKey is the distributed lock key for the target collection.
func (m *Materializer) LockKey() string {
	return "report-view-materialize:" + m.store.TargetName()
}

// Replace writes views as the new snapshot under a fresh run id.
func (m *Materializer) Replace(ctx context.Context, views []models.ReportView) (int, error) {
	return m.ReplaceWithRunID(ctx, uuid.NewString(), views)
}

// ReplaceWithRunID writes views as the new snapshot and returns the number written.
//
// The views go to a per-run staging collection first. Only when every batch and
// index is written, and the staging collection holds exactly len(views)
// documents, is it renamed over the target. On failure before that point the
// staging collection is dropped and the target keeps the previous snapshot. A
// lost distributed lock fails the run before promotion. Promotion and the final
// state update ignore cancellation of ctx so a swap is never abandoned halfway.
func (m *Materializer) ReplaceWithRunID(ctx context.Context, runID string, views []models.ReportView) (int, error) {
	log := logger.WithModuleAndCollection("report_view", m.store.TargetName()).WithField("run_id", runID)

	select {
	case m.sem <- struct{}{}:
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	defer func() { <-m.sem }()

	if m.lock != nil {
		held, release, err := m.lock.Acquire(ctx, m.LockKey())
		if err != nil {
			return 0, err
		}
		ctx = held
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				log.WithError(err).Warn("Failed to release materializer lock")
			}
		}()
	}

	prev, err := m.store.LoadState(ctx)
	if err != nil {
		return 0, fmt.Errorf("load sync state: %w", withCause(ctx, err))
	}
	state := models.SyncState{Status: models.SyncStatusRunning, RunID: runID}
	if prev != nil {
		state.LastSuccessAt = prev.LastSuccessAt
		state.LastCount = prev.LastCount
	}
	startedAt := m.now()
	state.StartedAt = &startedAt
	if err := m.store.SaveState(ctx, state); err != nil {
		return 0, fmt.Errorf("mark sync running: %w", withCause(ctx, err))
	}

	m.discardStaging(ctx, startedAt, log)

	detached := context.WithoutCancel(ctx)
	staging := StagingName(m.store.TargetName(), runID, startedAt)
	fail := func(stage string, err error) (int, error) {
		err = withCause(ctx, err)
		if dropErr := m.store.DropCollection(detached, staging); dropErr != nil {
			log.WithError(dropErr).WithField("staging", staging).Warn("Failed to drop staging collection")
		}
		m.markFailed(detached, state, fmt.Errorf("%s: %w", stage, err), log)
		return 0, fmt.Errorf("%s: %w", stage, err)
	}

	if err := m.store.CreateCollection(ctx, staging); err != nil {
		return fail("create staging collection", err)
	}
	written := 0
	for start := 0; start < len(views); start += m.batchSize {
		if ctx.Err() != nil {
			return fail("write views", context.Cause(ctx))
		}
		end := min(start+m.batchSize, len(views))
		n, err := m.store.InsertViews(ctx, staging, views[start:end])
		if err != nil {
			return fail("write views", err)
		}
		written += n
	}
	if written != len(views) {
		return fail("write views", fmt.Errorf("wrote %d of %d views", written, len(views)))
	}
	if err := m.store.CreateIndexes(ctx, staging); err != nil {
		return fail("create indexes", err)
	}
	// Insert results alone do not prove the collection still holds every batch:
	// a dropped collection is silently recreated by the next insert.
	count, err := m.store.CountViews(ctx, staging)
	if err != nil {
		return fail("verify staging collection", err)
	}
	if count != int64(len(views)) {
		return fail("verify staging collection", common.WithDetails(common.ErrStagingIncomplete,
			fmt.Sprintf("%s holds %d of %d views", staging, count, len(views))))
	}
	if ctx.Err() != nil {
		return fail("promote staging collection", context.Cause(ctx))
	}

	promoteCtx, cancel := context.WithTimeout(detached, m.promoteTimeout)
	defer cancel()
	if err := m.store.Promote(promoteCtx, staging); err != nil {
		return fail("promote staging collection", err)
	}

	finishedAt := m.now()
	state.Status = models.SyncStatusIdle
	state.FinishedAt = &finishedAt
	state.LastSuccessAt = &finishedAt
	state.LastCount = count
	state.LastError = ""
	if err := m.store.SaveState(promoteCtx, state); err != nil {
		// The snapshot is live; only the marker is stale until the next run.
		log.WithError(err).Error("Failed to mark sync idle after promotion")
	}

	log.WithFields(map[string]any{
		"written":     written,
		"duration_ms": finishedAt.Sub(startedAt).Milliseconds(),
	}).Info("Report view snapshot promoted")
	return written, nil
}

// discardStaging drops staging collections of runs that started more than
// staleAfter before now. Younger ones may belong to a run still writing in
// another process and are left alone. Failures are logged only.
func (m *Materializer) discardStaging(ctx context.Context, now time.Time, log *logrus.Entry) {
	names, err := m.store.ListStaging(ctx)
	if err != nil {
		log.WithError(err).Warn("Failed to list stale staging collections")
		return
	}
	for _, name := range names {
		createdAt, ok := stagingCreatedAt(m.store.TargetName(), name)
		if !ok {
			log.WithField("staging", name).Warn("Skipping staging collection with unrecognized name")
			continue
		}
		if now.Sub(createdAt) < m.staleAfter {
			log.WithField("staging", name).Debug("Staging collection is recent, leaving it")
			continue
		}
		if err := m.store.DropCollection(ctx, name); err != nil {
			log.WithError(err).WithField("staging", name).Warn("Failed to drop stale staging collection")
			continue
		}
		log.WithField("staging", name).Info("Dropped stale staging collection")
	}
}

// withCause prefers the reason ctx was cancelled, such as a lost lock, over the
// error the store call reported for it.
func withCause(ctx context.Context, err error) error {
	if ctx.Err() == nil {
		return err
	}
	cause := context.Cause(ctx)
	if errors.Is(err, cause) {
		return err
	}
	return fmt.Errorf("%w: %w", cause, err)
}

func (m *Materializer) markFailed(ctx context.Context, state models.SyncState, cause error, log *logrus.Entry) {
	// Another process may have promoted a snapshot since this run started.
	if cur, err := m.store.LoadState(ctx); err == nil && cur != nil {
		state.LastSuccessAt = cur.LastSuccessAt
		state.LastCount = cur.LastCount
	}
	finishedAt := m.now()
	state.Status = models.SyncStatusFailed
	state.FinishedAt = &finishedAt
	state.LastError = cause.Error()
	if err := m.store.SaveState(ctx, state); err != nil {
		log.WithError(err).Error("Failed to mark sync failed")
	}
}

// State returns the persisted marker, nil when none exists.
func (m *Materializer) State(ctx context.Context) (*models.SyncState, error) {
	return m.store.LoadState(ctx)
}
