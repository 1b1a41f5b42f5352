package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/rugvedkadu06/aggrigator/internal/bootstrap"
	"github.com/rugvedkadu06/aggrigator/internal/logger"
	"github.com/rugvedkadu06/aggrigator/internal/worker"
)

func main() {
	initLogger()
	defer logger.Close()
	log := logger.GetAppLogger()

	cfg := initConfig()

	rt, err := bootstrap.New(cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize stores")
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Interval() > 0 {
		w, err := worker.NewReportViewSyncWorker(rt.Services.Sync, cfg.Interval(), cfg.Timeout())
		if err != nil {
			log.WithError(err).Error("Failed to create report view sync worker, continuing without it")
		} else {
			go func() {
				defer func() {
					if r := recover(); r != nil {
						log.WithField("panic", r).Error("Report view sync worker goroutine panic")
					}
				}()
				w.Start(ctx)
			}()
		}
	} else {
		log.Info("SYNC_INTERVAL is 0, periodic report view sync is off")
	}

	regs, err := initRoutes(rt.Services, cfg.Timeout())
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize routes")
	}
	app, err := InitFiberApp(cfg, regs...)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize Fiber app")
	}

	go func() {
		<-ctx.Done()
		log.Info("Shutting down server...")
		if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
			log.WithError(err).Error("Server shutdown failed")
		}
	}()

	log.WithFields(logrus.Fields{
		"address":  cfg.Address,
		"protocol": "HTTP",
	}).Info("Starting server with HTTP")
	if err := app.Listen(cfg.Address, fiber.ListenConfig{DisableStartupMessage: true}); err != nil {
		log.WithError(err).Error("Error in Fiber Listen")
	}
}
