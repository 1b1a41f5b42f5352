package main

import (
	"time"

	reporthdl "github.com/rugvedkadu06/aggrigator/internal/api/report/handler"
	reportrouter "github.com/rugvedkadu06/aggrigator/internal/api/report/router"
	reportsvc "github.com/rugvedkadu06/aggrigator/internal/api/report/service"
	apirouter "github.com/rugvedkadu06/aggrigator/internal/api/router"
)

// initRoutes builds the handlers and returns one RegisterFunc per domain.
func initRoutes(services *reportsvc.Services, syncTimeout time.Duration) ([]apirouter.RegisterFunc, error) {
	reportViews, err := reporthdl.NewReportViewHandler(services, syncTimeout)
	if err != nil {
		return nil, err
	}
	return []apirouter.RegisterFunc{
		reportrouter.Register(reportViews),
	}, nil
}
