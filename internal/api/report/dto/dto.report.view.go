// Package reportdto holds the request and response shapes of the report view API.
package reportdto

import (
	"time"

	"github.com/rugvedkadu06/aggrigator/internal/api/report/models"
)

// ReportViewListQuery is the query of GET /report-views. The reporter id may
// also arrive in the X-Reporter-ID header.
type ReportViewListQuery struct {
	Scope      string `query:"scope" validate:"omitempty,oneof=own active all"`
	ReporterID string `query:"reporterId" validate:"omitempty,objectid"`
}

// ReportViewSnapshotQuery is the query of GET /report-views/snapshot.
type ReportViewSnapshotQuery struct {
	UserID string `query:"userId" validate:"omitempty,objectid"`
	Status string `query:"status" validate:"omitempty,max=32,no_xss"`
}

// ReportViewSnapshotResponse is the data of GET /report-views/snapshot.
type ReportViewSnapshotResponse struct {
	Items    []models.ReportView `json:"items"`
	Count    int                 `json:"count"`
	SyncedAt *time.Time          `json:"syncedAt"`
	// True while a newer sync is running; Items is still the last complete snapshot.
	Refreshing bool `json:"refreshing"`
}
