package models

import "time"

const (
	SyncStatusIdle    = "idle"
	SyncStatusRunning = "running"
	SyncStatusFailed  = "failed"
)

// SyncState is the persisted marker for one view collection. ID is the view
// collection name. A "running" state with an old StartedAt means a writer died mid-run.
type SyncState struct {
	ID            string     `json:"id" bson:"_id"`
	Status        string     `json:"status" bson:"status"`
	RunID         string     `json:"runId" bson:"runId"`
	StartedAt     *time.Time `json:"startedAt,omitempty" bson:"startedAt,omitempty"`
	FinishedAt    *time.Time `json:"finishedAt,omitempty" bson:"finishedAt,omitempty"`
	LastSuccessAt *time.Time `json:"lastSuccessAt,omitempty" bson:"lastSuccessAt,omitempty"`
	LastCount     int64      `json:"lastCount" bson:"lastCount"`
	LastError     string     `json:"lastError,omitempty" bson:"lastError,omitempty"`
}

// HasSnapshot reports whether a complete snapshot was ever promoted.
func (s *SyncState) HasSnapshot() bool {
	return s != nil && s.LastSuccessAt != nil
}

// SyncSummary is returned by one successful sync run.
type SyncSummary struct {
	RunID           string    `json:"runId"`
	TotalReporters  int       `json:"totalReporters"`
	TotalReports    int       `json:"totalReports"`
	TotalFlags      int       `json:"totalFlags"`
	TotalDetections int       `json:"totalDetections"`
	Written         int       `json:"written"`
	Timestamp       time.Time `json:"timestamp"`
	DurationMs      int64     `json:"durationMs"`
}
