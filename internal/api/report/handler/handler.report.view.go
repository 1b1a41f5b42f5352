// Package reporthdl holds the HTTP handlers of the report view API.
package reporthdl

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	basehdl "github.com/rugvedkadu06/aggrigator/internal/api/base/handler"
	"github.com/rugvedkadu06/aggrigator/internal/api/middleware"
	reportdto "github.com/rugvedkadu06/aggrigator/internal/api/report/dto"
	"github.com/rugvedkadu06/aggrigator/internal/api/report/models"
	reportsvc "github.com/rugvedkadu06/aggrigator/internal/api/report/service"
	"github.com/rugvedkadu06/aggrigator/internal/common"
	"github.com/rugvedkadu06/aggrigator/internal/global"
	"github.com/rugvedkadu06/aggrigator/internal/logger"
)

// ReportViewHandler serves listing, sync trigger, sync status and snapshot reads.
type ReportViewHandler struct {
	services    *reportsvc.Services
	syncTimeout time.Duration
}

// NewReportViewHandler builds the handler. syncTimeout <= 0 means no deadline
// beyond the request's own.
func NewReportViewHandler(services *reportsvc.Services, syncTimeout time.Duration) (*ReportViewHandler, error) {
	if services == nil || services.Sync == nil || services.Listing == nil || services.Snapshot == nil {
		return nil, errors.New("report view services are not initialized")
	}
	global.InitValidator()
	return &ReportViewHandler{services: services, syncTimeout: syncTimeout}, nil
}

func validationError(err error) error {
	return common.NewError(common.ErrCodeValidationInput, common.MsgBadRequest, common.StatusBadRequest, err.Error())
}

// HandleList serves GET /report-views?scope=own|active|all.
func (h *ReportViewHandler) HandleList(c fiber.Ctx) error {
	return basehdl.SafeHandlerWrapper(c, func() error {
		var q reportdto.ReportViewListQuery
		if err := c.Bind().Query(&q); err != nil {
			return basehdl.HandleErrorResponse(c, validationError(err))
		}
		q.Scope = strings.ToLower(strings.TrimSpace(q.Scope))
		if err := global.Validate.Struct(q); err != nil {
			return basehdl.HandleErrorResponse(c, validationError(err))
		}

		query := reportsvc.ListQuery{Scope: q.Scope}
		if id, ok := middleware.ReporterID(c); ok {
			query.ReporterID = &id
		} else if q.ReporterID != "" {
			id, _ := primitive.ObjectIDFromHex(q.ReporterID)
			query.ReporterID = &id
		}

		views, err := h.services.Listing.List(c.Context(), query)
		if err != nil {
			logger.WithRequest(c).WithError(err).WithField("scope", q.Scope).Warn("Report view listing failed")
			return basehdl.HandleErrorResponse(c, err)
		}
		return basehdl.HandleResponse(c, views, nil)
	})
}

// HandleSync serves POST /report-views/sync: one full sync, answered with its summary.
func (h *ReportViewHandler) HandleSync(c fiber.Ctx) error {
	return basehdl.SafeHandlerWrapper(c, func() error {
		var ctx context.Context = c.Context()
		if rid := logger.RequestID(c); rid != "" {
			ctx = context.WithValue(ctx, logger.RequestIDKey, rid)
		}
		if h.syncTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, h.syncTimeout)
			defer cancel()
		}

		logger.GetAuditLogger().WithFields(logger.ContextFields(ctx)).WithFields(logrus.Fields{
			"trigger": "http",
			"ip":      c.IP(),
		}).Info("Report view sync requested")

		summary, err := h.services.Sync.Run(ctx)
		return basehdl.HandleResponse(c, summary, err)
	})
}

// HandleSyncStatus serves GET /report-views/sync/status.
func (h *ReportViewHandler) HandleSyncStatus(c fiber.Ctx) error {
	return basehdl.SafeHandlerWrapper(c, func() error {
		return basehdl.HandleResponse(c, h.services.Sync.Status(c.Context()), nil)
	})
}

// HandleSnapshot serves GET /report-views/snapshot from the materialized collection.
func (h *ReportViewHandler) HandleSnapshot(c fiber.Ctx) error {
	return basehdl.SafeHandlerWrapper(c, func() error {
		var q reportdto.ReportViewSnapshotQuery
		if err := c.Bind().Query(&q); err != nil {
			return basehdl.HandleErrorResponse(c, validationError(err))
		}
		if err := global.Validate.Struct(q); err != nil {
			return basehdl.HandleErrorResponse(c, validationError(err))
		}

		filter := models.ReportViewFilter{Status: q.Status}
		if q.UserID != "" {
			id, _ := primitive.ObjectIDFromHex(q.UserID)
			filter.UserID = &id
		}

		views, state, err := h.services.Snapshot.ListViews(c.Context(), filter)
		if err != nil {
			return basehdl.HandleErrorResponse(c, err)
		}
		return basehdl.HandleResponse(c, reportdto.ReportViewSnapshotResponse{
			Items:      views,
			Count:      len(views),
			SyncedAt:   state.LastSuccessAt,
			Refreshing: state.Status == models.SyncStatusRunning,
		}, nil)
	})
}
