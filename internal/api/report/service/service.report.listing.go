package reportsvc

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/rugvedkadu06/aggrigator/internal/api/report/models"
	"github.com/rugvedkadu06/aggrigator/internal/common"
)

const (
	ScopeOwn    = "own"
	ScopeActive = "active"
	ScopeAll    = "all"
)

// ListQuery selects the reports of a live listing. ReporterID is required for ScopeOwn.
type ListQuery struct {
	Scope      string
	ReporterID *primitive.ObjectID
}

// ListingService serves composite views straight from the source store. It
// never touches the materialized collection or the sync lock, so it keeps
// working while a sync runs.
type ListingService struct {
	join *JoinEngine
}

func NewListingService(join *JoinEngine) *ListingService {
	return &ListingService{join: join}
}

// List returns the views in scope, newest first. An empty scope means all.
func (s *ListingService) List(ctx context.Context, q ListQuery) ([]models.ReportView, error) {
	scope := JoinScope{}
	switch strings.ToLower(strings.TrimSpace(q.Scope)) {
	case ScopeOwn:
		if q.ReporterID == nil || q.ReporterID.IsZero() {
			return nil, common.WithDetails(common.ErrInvalidInput, "scope=own requires a reporter id")
		}
		scope.ReporterID = q.ReporterID
	case "", ScopeActive, ScopeAll:
	default:
		return nil, common.WithDetails(common.ErrInvalidInput, "scope must be one of own, active, all")
	}

	result, err := s.join.Build(ctx, scope)
	if err != nil {
		if common.IsConnectivityError(err) {
			return nil, common.NewError(common.ErrCodeSyncStoreUnreachable, "Source store is unreachable", common.StatusServiceUnavailable, err)
		}
		return nil, common.NewError(common.ErrCodeSyncJoin, "Failed to join report data", common.StatusInternalServerError, err)
	}
	return result.Views, nil
}
