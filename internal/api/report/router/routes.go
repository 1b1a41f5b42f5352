// Package router registers the report view routes.
package router

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/rugvedkadu06/aggrigator/internal/api/middleware"
	reporthdl "github.com/rugvedkadu06/aggrigator/internal/api/report/handler"
	apirouter "github.com/rugvedkadu06/aggrigator/internal/api/router"
)

const prefix = "/report-views"

// Register returns the RegisterFunc mounting the report view routes on v1:
//
//	GET  /report-views              live listing (scope=own|active|all)
//	POST /report-views/sync         run one sync
//	GET  /report-views/sync/status  sync state
//	GET  /report-views/snapshot     materialized views
func Register(h *reporthdl.ReportViewHandler) apirouter.RegisterFunc {
	return func(v1 fiber.Router, r *apirouter.Router) error {
		if h == nil {
			return errors.New("report view handler is nil")
		}
		reporter := middleware.ReporterIdentity()
		apirouter.RegisterRouteWithMiddleware(v1, prefix, fiber.MethodGet, "/", []fiber.Handler{reporter}, h.HandleList)
		apirouter.RegisterRouteWithMiddleware(v1, prefix, fiber.MethodPost, "/sync", nil, h.HandleSync)
		apirouter.RegisterRouteWithMiddleware(v1, prefix, fiber.MethodGet, "/sync/status", nil, h.HandleSyncStatus)
		apirouter.RegisterRouteWithMiddleware(v1, prefix, fiber.MethodGet, "/snapshot", nil, h.HandleSnapshot)
		return nil
	}
}
