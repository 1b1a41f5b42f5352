package main

import (
	"fmt"

	"github.com/rugvedkadu06/aggrigator/config"
	"github.com/rugvedkadu06/aggrigator/internal/logger"
)

// initLogger sets up logging from the LOG_* environment.
func initLogger() {
	if err := logger.Init(nil); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	logger.GetAppLogger().Info("Logger system initialized successfully")
}

// initConfig loads config/env/<GO_ENV>.env and the process environment.
func initConfig() *config.Configuration {
	cfg, err := config.NewConfig()
	if err != nil {
		logger.GetAppLogger().WithError(err).Fatal("Failed to load configuration")
	}
	return cfg
}
