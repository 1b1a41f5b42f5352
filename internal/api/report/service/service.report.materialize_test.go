package reportsvc

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rugvedkadu06/aggrigator/internal/api/report/models"
	"github.com/rugvedkadu06/aggrigator/internal/common"
)

func buildViews(t *testing.T, n int) []models.ReportView {
	t.Helper()
	result, err := NewJoinEngine(bulkSource(n)).Build(t.Context(), JoinScope{})
	require.NoError(t, err)
	return result.Views
}

func TestMaterializerReplacesStaleSnapshot(t *testing.T) {
	store := newMemViewStore("report_views")
	store.seedTarget(50)
	m := NewMaterializer(store, nil, MaterializerOptions{BatchSize: 4})

	views := buildViews(t, 10)
	written, err := m.Replace(t.Context(), views)
	require.NoError(t, err)
	assert.Equal(t, 10, written)

	got := store.targetViews()
	require.Len(t, got, 10)
	assert.Equal(t, views, got)
	assert.True(t, store.indexed["report_views"])

	staging, err := store.ListStaging(t.Context())
	require.NoError(t, err)
	assert.Empty(t, staging)

	require.NotNil(t, store.state)
	assert.Equal(t, models.SyncStatusIdle, store.state.Status)
	assert.Equal(t, int64(10), store.state.LastCount)
	assert.NotNil(t, store.state.LastSuccessAt)
	assert.Empty(t, store.state.LastError)
}

func TestMaterializerIsIdempotent(t *testing.T) {
	store := newMemViewStore("report_views")
	m := NewMaterializer(store, nil, MaterializerOptions{})
	views := buildViews(t, 12)

	_, err := m.Replace(t.Context(), views)
	require.NoError(t, err)
	first := store.targetViews()

	_, err = m.Replace(t.Context(), views)
	require.NoError(t, err)
	second := store.targetViews()

	assert.Len(t, second, len(first))
	assert.Equal(t, first, second)
}

func TestMaterializerWritesInBatches(t *testing.T) {
	store := newMemViewStore("report_views")
	m := NewMaterializer(store, nil, MaterializerOptions{BatchSize: 3})

	written, err := m.Replace(t.Context(), buildViews(t, 10))
	require.NoError(t, err)
	assert.Equal(t, 10, written)
	assert.Equal(t, 4, store.insertCalls)
}

func TestMaterializerEmptySnapshot(t *testing.T) {
	store := newMemViewStore("report_views")
	store.seedTarget(5)
	m := NewMaterializer(store, nil, MaterializerOptions{})

	written, err := m.Replace(t.Context(), []models.ReportView{})
	require.NoError(t, err)
	assert.Zero(t, written)
	assert.Empty(t, store.targetViews())
	_, exists := store.collections["report_views"]
	assert.True(t, exists, "an empty snapshot still promotes an (empty) collection")
}

func TestMaterializerInsertFailureLeavesTargetUntouched(t *testing.T) {
	store := newMemViewStore("report_views")
	store.seedTarget(50)
	before := store.targetViews()
	prevSuccess := *store.state.LastSuccessAt
	store.failInsertAt = 2
	store.insertErr = common.WithDetails(common.ErrMongoWrite, errors.New("E11000 duplicate key"))

	m := NewMaterializer(store, nil, MaterializerOptions{BatchSize: 4})
	written, err := m.Replace(t.Context(), buildViews(t, 10))
	require.Error(t, err)
	assert.Zero(t, written)
	assert.ErrorIs(t, err, common.ErrMongoWrite)

	assert.Equal(t, before, store.targetViews())
	staging, err := store.ListStaging(t.Context())
	require.NoError(t, err)
	assert.Empty(t, staging, "staging collection must be dropped")

	require.NotNil(t, store.state)
	assert.Equal(t, models.SyncStatusFailed, store.state.Status)
	assert.Contains(t, store.state.LastError, "write views")
	require.NotNil(t, store.state.LastSuccessAt)
	assert.True(t, store.state.LastSuccessAt.Equal(prevSuccess), "last success survives a failed run")
	assert.Equal(t, int64(50), store.state.LastCount)
}

func TestMaterializerPromoteFailure(t *testing.T) {
	store := newMemViewStore("report_views")
	store.seedTarget(3)
	store.promoteErr = errors.New("rename failed")

	m := NewMaterializer(store, nil, MaterializerOptions{})
	_, err := m.Replace(t.Context(), buildViews(t, 2))
	require.Error(t, err)

	assert.Len(t, store.targetViews(), 3)
	assert.Equal(t, models.SyncStatusFailed, store.state.Status)
	staging, _ := store.ListStaging(t.Context())
	assert.Empty(t, staging)
}

func TestMaterializerCancelledBeforeInsert(t *testing.T) {
	store := newMemViewStore("report_views")
	store.seedTarget(7)
	ctx, cancel := context.WithCancel(t.Context())
	store.onCreate = cancel

	m := NewMaterializer(store, nil, MaterializerOptions{})
	_, err := m.Replace(ctx, buildViews(t, 3))
	require.ErrorIs(t, err, context.Canceled)

	assert.Len(t, store.targetViews(), 7)
	assert.Zero(t, store.insertCalls)
	assert.Equal(t, models.SyncStatusFailed, store.state.Status)
}

func TestMaterializerDropsStaleStaging(t *testing.T) {
	store := newMemViewStore("report_views")
	m := NewMaterializer(store, nil, MaterializerOptions{StaleStagingAfter: time.Hour})
	m.now = func() time.Time { return t0 }

	crashed := StagingName("report_views", "crashed-run", t0.Add(-2*time.Hour))
	recent := StagingName("report_views", "other-process", t0.Add(-time.Minute))
	store.collections[crashed] = buildViews(t, 2)
	store.collections[recent] = buildViews(t, 1)
	store.collections["report_views__staging_unnamed"] = nil
	store.collections["other__staging_x"] = nil

	_, err := m.Replace(t.Context(), buildViews(t, 1))
	require.NoError(t, err)

	_, stale := store.collections[crashed]
	assert.False(t, stale)
	_, kept := store.collections[recent]
	assert.True(t, kept, "a staging collection younger than the stale age may still be written")
	_, unnamed := store.collections["report_views__staging_unnamed"]
	assert.True(t, unnamed, "names without a creation time are left alone")
	_, other := store.collections["other__staging_x"]
	assert.True(t, other, "staging collections of other targets are left alone")
}

func TestStagingNameCarriesCreationTime(t *testing.T) {
	at := time.Date(2024, 3, 1, 9, 30, 0, 123_000_000, time.UTC)
	name := StagingName("report_views", "9f1c", at)
	assert.Equal(t, "report_views__staging_1709285400123_9f1c", name)

	got, ok := stagingCreatedAt("report_views", name)
	require.True(t, ok)
	assert.True(t, got.Equal(at))

	for _, bad := range []string{"report_views", "report_views__staging_abc_1", "report_views__staging_1709285400123", "other__staging_1_x"} {
		_, ok := stagingCreatedAt("report_views", bad)
		assert.False(t, ok, bad)
	}
}

// pauseRun blocks the inserts of runID from its second call on until release is closed.
func pauseRun(store *memViewStore, runID string) (paused <-chan struct{}, release chan struct{}) {
	p := make(chan struct{})
	release = make(chan struct{})
	var once sync.Once
	calls := 0
	store.onInsert = func(collection string, _ int) {
		if !strings.HasSuffix(collection, "_"+runID) {
			return
		}
		calls++
		if calls == 2 {
			once.Do(func() { close(p) })
			<-release
		}
	}
	return p, release
}

func TestMaterializerConcurrentWriterKeepsRunningStaging(t *testing.T) {
	store := newMemViewStore("report_views")
	paused, release := pauseRun(store, "run-a")

	a := NewMaterializer(store, nil, MaterializerOptions{BatchSize: 1})
	a.now = func() time.Time { return t0 }
	b := NewMaterializer(store, nil, MaterializerOptions{})
	b.now = func() time.Time { return t0.Add(time.Minute) }

	viewsA := buildViews(t, 4)
	done := make(chan error, 1)
	go func() {
		written, err := a.ReplaceWithRunID(t.Context(), "run-a", viewsA)
		assert.Equal(t, 4, written)
		done <- err
	}()
	<-paused

	written, err := b.ReplaceWithRunID(t.Context(), "run-b", buildViews(t, 2))
	require.NoError(t, err)
	assert.Equal(t, 2, written)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, viewsA, store.targetViews())
	assert.Equal(t, int64(4), store.state.LastCount)
}

func TestMaterializerRefusesToPromoteIncompleteStaging(t *testing.T) {
	store := newMemViewStore("report_views")
	paused, release := pauseRun(store, "run-a")

	a := NewMaterializer(store, nil, MaterializerOptions{BatchSize: 1})
	a.now = func() time.Time { return t0 }
	// b takes run-a for a crashed run and drops its staging collection.
	b := NewMaterializer(store, nil, MaterializerOptions{StaleStagingAfter: time.Hour})
	b.now = func() time.Time { return t0.Add(2 * time.Hour) }

	done := make(chan error, 1)
	go func() {
		_, err := a.ReplaceWithRunID(t.Context(), "run-a", buildViews(t, 4))
		done <- err
	}()
	<-paused

	viewsB := buildViews(t, 2)
	_, err := b.ReplaceWithRunID(t.Context(), "run-b", viewsB)
	require.NoError(t, err)

	close(release)
	err = <-done
	require.ErrorIs(t, err, common.ErrStagingIncomplete)
	assert.Contains(t, err.Error(), "verify staging collection")

	assert.Equal(t, viewsB, store.targetViews(), "the complete snapshot stays live")
	staging, err := store.ListStaging(t.Context())
	require.NoError(t, err)
	assert.Empty(t, staging)
	assert.Equal(t, models.SyncStatusFailed, store.state.Status)
	assert.Equal(t, int64(2), store.state.LastCount)
}

func TestMaterializerAbortsWhenLockIsLost(t *testing.T) {
	tests := []struct {
		name   string
		loseAt int
	}{
		{name: "during writes", loseAt: 2},
		{name: "before promotion", loseAt: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemViewStore("report_views")
			store.seedTarget(5)
			before := store.targetViews()
			lock := &fakeLock{}
			store.onInsert = func(_ string, call int) {
				if call == tt.loseAt {
					lock.lose()
				}
			}

			m := NewMaterializer(store, lock, MaterializerOptions{BatchSize: 1})
			written, err := m.Replace(t.Context(), buildViews(t, 3))
			require.ErrorIs(t, err, common.ErrMaterializeLockLost)
			assert.Zero(t, written)

			assert.Equal(t, before, store.targetViews())
			staging, err := store.ListStaging(t.Context())
			require.NoError(t, err)
			assert.Empty(t, staging)
			assert.Equal(t, models.SyncStatusFailed, store.state.Status)
			assert.Contains(t, store.state.LastError, "lock was lost")
			assert.Equal(t, int32(1), lock.released.Load())
		})
	}
}

func TestMaterializerSerializesConcurrentReplace(t *testing.T) {
	store := newMemViewStore("report_views")
	lock := &fakeLock{}
	m := NewMaterializer(store, lock, MaterializerOptions{BatchSize: 2})
	views := buildViews(t, 6)

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Replace(context.Background(), views)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	assert.Equal(t, int32(1), store.maxInFlight.Load())
	assert.Equal(t, int32(5), lock.acquired.Load())
	assert.Equal(t, int32(5), lock.released.Load())
	assert.Len(t, store.targetViews(), 6)
}

func TestMaterializerLockBusy(t *testing.T) {
	store := newMemViewStore("report_views")
	store.seedTarget(4)
	lock := &fakeLock{err: common.ErrMaterializeBusy}

	m := NewMaterializer(store, lock, MaterializerOptions{})
	_, err := m.Replace(t.Context(), buildViews(t, 2))
	require.ErrorIs(t, err, common.ErrMaterializeBusy)

	assert.Len(t, store.targetViews(), 4)
	assert.Zero(t, store.insertCalls)
	assert.Equal(t, models.SyncStatusIdle, store.state.Status, "a refused run does not touch the marker")
}

func TestMaterializerStateLoadFailure(t *testing.T) {
	store := newMemViewStore("report_views")
	store.loadErr = common.WithDetails(common.ErrMongoNetwork, errors.New("no reachable servers"))

	m := NewMaterializer(store, nil, MaterializerOptions{})
	_, err := m.Replace(t.Context(), buildViews(t, 1))
	require.Error(t, err)
	assert.True(t, common.IsConnectivityError(err))
	assert.Zero(t, store.insertCalls)
}
