package reportsvc

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rugvedkadu06/aggrigator/internal/api/report/models"
	"github.com/rugvedkadu06/aggrigator/internal/common"
	"github.com/rugvedkadu06/aggrigator/internal/logger"
)

// SyncStatus is the orchestrator's view of the last and current run.
type SyncStatus struct {
	State       string              `json:"state"`
	RunID       string              `json:"runId,omitempty"`
	LastSummary *models.SyncSummary `json:"lastSummary,omitempty"`
	LastError   *SyncError          `json:"lastError,omitempty"`
	Persisted   *models.SyncState   `json:"persisted,omitempty"`
	// Set when the persisted marker could not be read.
	PersistedError string `json:"persistedError,omitempty"`
}

// SyncError is the recorded failure of the last run.
type SyncError struct {
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
	At      time.Time `json:"at"`
}

// SyncService runs join + materialize as one sync. Its state moves
// idle -> running -> idle | failed; a second Run while one is active is refused.
type SyncService struct {
	join         *JoinEngine
	materializer *Materializer

	mu          sync.Mutex
	state       string
	runID       string
	lastSummary *models.SyncSummary
	lastError   *SyncError
	now         func() time.Time
}

func NewSyncService(join *JoinEngine, materializer *Materializer) *SyncService {
	return &SyncService{
		join:         join,
		materializer: materializer,
		state:        models.SyncStatusIdle,
		now:          time.Now,
	}
}

// Run performs one full sync. Every failure comes back as a single *common.Error
// whose code names the stage: SYNC_001 unreachable store, SYNC_002 join,
// SYNC_003 materialize, SYNC_004 already running. Nothing is retried.
func (s *SyncService) Run(ctx context.Context) (*models.SyncSummary, error) {
	runID := uuid.NewString()

	s.mu.Lock()
	if s.state == models.SyncStatusRunning {
		active := s.runID
		s.mu.Unlock()
		return nil, common.WithDetails(common.ErrSyncInProgress, active)
	}
	s.state = models.SyncStatusRunning
	s.runID = runID
	s.mu.Unlock()

	ctx = context.WithValue(ctx, logger.RunIDKey, runID)
	log := logger.WithContext(ctx).WithField("module", "report_view")
	audit := logger.GetAuditLogger().WithFields(logger.ContextFields(ctx))
	audit.Info("Report view sync started")

	started := s.now()
	summary, err := s.run(ctx, runID)
	if err != nil {
		cerr := classifySyncError(err)
		s.finish(models.SyncStatusFailed, nil, cerr)
		logger.GetErrorLogger().WithFields(logger.ContextFields(ctx)).WithError(err).
			WithField("code", cerr.Code.Code).Error("Report view sync failed")
		audit.WithField("code", cerr.Code.Code).Warn("Report view sync failed")
		return nil, cerr
	}

	summary.Timestamp = s.now()
	summary.DurationMs = summary.Timestamp.Sub(started).Milliseconds()
	s.finish(models.SyncStatusIdle, summary, nil)
	log.WithField("written", summary.Written).Debug("Report view sync finished")
	audit.WithFields(map[string]any{
		"written":     summary.Written,
		"duration_ms": summary.DurationMs,
	}).Info("Report view sync finished")
	return summary, nil
}

type stageError struct {
	code common.ErrorCode
	err  error
}

func (e *stageError) Error() string { return e.err.Error() }
func (e *stageError) Unwrap() error { return e.err }

func (s *SyncService) run(ctx context.Context, runID string) (*models.SyncSummary, error) {
	result, err := s.join.Build(ctx, JoinScope{})
	if err != nil {
		return nil, &stageError{code: common.ErrCodeSyncJoin, err: err}
	}

	written, err := s.materializer.ReplaceWithRunID(ctx, runID, result.Views)
	if err != nil {
		return nil, &stageError{code: common.ErrCodeSyncMaterialize, err: err}
	}

	return &models.SyncSummary{
		RunID:           runID,
		TotalReporters:  result.Reporters,
		TotalReports:    result.Reports,
		TotalFlags:      result.Flags,
		TotalDetections: result.Detections,
		Written:         written,
	}, nil
}

// classifySyncError maps a stage failure onto exactly one sync error code.
// Busy and unreachable-store outcomes win over the stage the error came from.
func classifySyncError(err error) *common.Error {
	if errors.Is(err, common.ErrMaterializeBusy) || errors.Is(err, common.ErrSyncInProgress) {
		var e *common.Error
		errors.As(err, &e)
		return e
	}

	cause := err
	var se *stageError
	if errors.As(err, &se) {
		cause = se.err
	}

	if common.IsConnectivityError(cause) {
		return &common.Error{
			Code:       common.ErrCodeSyncStoreUnreachable,
			Message:    "Source or target store is unreachable",
			StatusCode: common.StatusServiceUnavailable,
			Details:    cause,
		}
	}
	if se != nil && se.code == common.ErrCodeSyncMaterialize {
		return &common.Error{
			Code:       common.ErrCodeSyncMaterialize,
			Message:    "Failed to materialize report views",
			StatusCode: common.StatusInternalServerError,
			Details:    cause,
		}
	}
	return &common.Error{
		Code:       common.ErrCodeSyncJoin,
		Message:    "Failed to join report data",
		StatusCode: common.StatusInternalServerError,
		Details:    cause,
	}
}

func (s *SyncService) finish(state string, summary *models.SyncSummary, cerr *common.Error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	if summary != nil {
		s.lastSummary = summary
		s.lastError = nil
	}
	if cerr != nil {
		se := &SyncError{Code: cerr.Code.Code, Message: cerr.Message, At: s.now()}
		if d, ok := cerr.Details.(error); ok {
			se.Details = d.Error()
		}
		s.lastError = se
	}
}

// Running reports whether a run is in progress in this process.
func (s *SyncService) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == models.SyncStatusRunning
}

// Status returns the in-process state and the persisted marker. A marker read
// failure is reported in PersistedError rather than failing the call.
func (s *SyncService) Status(ctx context.Context) *SyncStatus {
	s.mu.Lock()
	st := &SyncStatus{
		State:       s.state,
		LastSummary: s.lastSummary,
		LastError:   s.lastError,
	}
	if s.state == models.SyncStatusRunning {
		st.RunID = s.runID
	}
	s.mu.Unlock()

	persisted, err := s.materializer.State(ctx)
	if err != nil {
		st.PersistedError = err.Error()
		return st
	}
	st.Persisted = persisted
	return st
}
