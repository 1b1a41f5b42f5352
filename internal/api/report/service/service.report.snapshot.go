package reportsvc

import (
	"context"

	"github.com/rugvedkadu06/aggrigator/internal/api/report/models"
	"github.com/rugvedkadu06/aggrigator/internal/common"
)

// SnapshotReader reads the materialized view collection for downstream consumers.
type SnapshotReader struct {
	store ViewStore
}

func NewSnapshotReader(store ViewStore) *SnapshotReader {
	return &SnapshotReader{store: store}
}

// ListViews returns the last promoted snapshot, newest first. Until a sync has
// completed at least once it returns common.ErrSnapshotNotReady instead of an
// empty list. While a later sync runs the previous snapshot is still served.
func (r *SnapshotReader) ListViews(ctx context.Context, filter models.ReportViewFilter) ([]models.ReportView, *models.SyncState, error) {
	state, err := r.store.LoadState(ctx)
	if err != nil {
		return nil, nil, storeError(err)
	}
	if !state.HasSnapshot() {
		return nil, state, common.ErrSnapshotNotReady
	}

	views, err := r.store.FindViews(ctx, filter)
	if err != nil {
		return nil, state, storeError(err)
	}
	return views, state, nil
}

func storeError(err error) error {
	if common.IsConnectivityError(err) {
		return common.NewError(common.ErrCodeSyncStoreUnreachable, "Target store is unreachable", common.StatusServiceUnavailable, err)
	}
	return err
}
