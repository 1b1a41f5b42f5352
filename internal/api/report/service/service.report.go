// Package reportsvc builds composite report views: it reads the source
// collections, joins and resolves them, and either returns the views directly
// (live listing) or swaps them into the materialized view collection (sync).
package reportsvc

import (
	"time"
)

// Dependencies are the handles the report view services are built from.
// Lock may be nil: materializer writes are then only serialized in-process.
type Dependencies struct {
	Source            SourceReader
	Views             ViewStore
	Lock              DistributedLock
	BatchSize         int
	PromoteTimeout    time.Duration
	StaleStagingAfter time.Duration
}

// Services bundles the report view services sharing one Join Engine and Materializer.
type Services struct {
	Join         *JoinEngine
	Materializer *Materializer
	Sync         *SyncService
	Listing      *ListingService
	Snapshot     *SnapshotReader
}

func NewServices(d Dependencies) *Services {
	join := NewJoinEngine(d.Source)
	m := NewMaterializer(d.Views, d.Lock, MaterializerOptions{
		BatchSize:         d.BatchSize,
		PromoteTimeout:    d.PromoteTimeout,
		StaleStagingAfter: d.StaleStagingAfter,
	})
	return &Services{
		Join:         join,
		Materializer: m,
		Sync:         NewSyncService(join, m),
		Listing:      NewListingService(join),
		Snapshot:     NewSnapshotReader(d.Views),
	}
}
