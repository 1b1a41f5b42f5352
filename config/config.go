package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env"
	"github.com/joho/godotenv"
)

// Configuration holds the static settings the server, worker and CLI need.
type Configuration struct {
	Address string `env:"ADDRESS" envDefault:":8080"` // HTTP listen address

	// Source store: reporters, reports, flags, detections.
	SourceMongoURI    string `env:"SOURCE_MONGODB_URI,required"`
	SourceMongoDBName string `env:"SOURCE_MONGODB_DBNAME,required"`
	// Target store: materialized views and the sync marker. The URI defaults to the source URI.
	TargetMongoURI    string `env:"TARGET_MONGODB_URI"`
	TargetMongoDBName string `env:"TARGET_MONGODB_DBNAME,required"`

	ColReporters  string `env:"SOURCE_COL_REPORTERS" envDefault:"users"`
	ColReports    string `env:"SOURCE_COL_REPORTS" envDefault:"reports"`
	ColFlags      string `env:"SOURCE_COL_FLAGS" envDefault:"flags"`
	ColDetections string `env:"SOURCE_COL_DETECTIONS" envDefault:"detections"`
	ColViews      string `env:"TARGET_COL_VIEWS" envDefault:"report_views"`
	ColSyncState  string `env:"TARGET_COL_SYNC_STATE" envDefault:"report_view_sync_state"`

	// Empty address means the materializer only uses its in-process lock.
	RedisAddress  string `env:"REDIS_ADDRESS"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	SyncLockTTL          int `env:"SYNC_LOCK_TTL" envDefault:"300"` // seconds
	SyncInterval         int `env:"SYNC_INTERVAL" envDefault:"0"`   // seconds, 0 = worker off
	SyncTimeout          int `env:"SYNC_TIMEOUT" envDefault:"600"`  // seconds
	MaterializeBatchSize int `env:"MATERIALIZE_BATCH_SIZE" envDefault:"500"`
	// Staging collections older than this belong to dead runs. Keep it above SYNC_TIMEOUT.
	StagingStaleAfter int `env:"STAGING_STALE_AFTER" envDefault:"3600"` // seconds

	CORS_Origins          string `env:"CORS_ORIGINS" envDefault:"*"`
	CORS_AllowCredentials bool   `env:"CORS_ALLOW_CREDENTIALS" envDefault:"false"`
	RateLimit_Max         int    `env:"RATE_LIMIT_MAX" envDefault:"100"`
	RateLimit_Window      int    `env:"RATE_LIMIT_WINDOW" envDefault:"60"` // seconds
	RateLimit_Enabled     bool   `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
}

func (c *Configuration) LockTTL() time.Duration {
	return time.Duration(c.SyncLockTTL) * time.Second
}

func (c *Configuration) Interval() time.Duration {
	return time.Duration(c.SyncInterval) * time.Second
}

func (c *Configuration) Timeout() time.Duration {
	return time.Duration(c.SyncTimeout) * time.Second
}

// StaleStagingAfter is never shorter than the sync timeout, so a running sync's
// staging collection is not mistaken for a leftover.
func (c *Configuration) StaleStagingAfter() time.Duration {
	return max(time.Duration(c.StagingStaleAfter)*time.Second, c.Timeout())
}

// getEnvPath returns config/env/<GO_ENV>.env, searching upward from the working directory.
func getEnvPath() string {
	goEnv := os.Getenv("GO_ENV")
	if goEnv == "" {
		goEnv = "development"
	}

	currentDir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		envDir := filepath.Join(currentDir, "config", "env")
		if _, err := os.Stat(envDir); err == nil {
			return filepath.Join(envDir, fmt.Sprintf("%s.env", goEnv))
		}
		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return ""
		}
		currentDir = parentDir
	}
}

// NewConfig loads the given env files (or config/env/<GO_ENV>.env when none are
// given) and parses the environment. A missing env file is not an error: variables
// may come from the process environment alone.
func NewConfig(files ...string) (*Configuration, error) {
	if len(files) == 0 {
		if p := getEnvPath(); p != "" {
			if _, err := os.Stat(p); err == nil {
				files = append(files, p)
			}
		}
	}
	if len(files) > 0 {
		// godotenv.Load never overrides variables already set in the process.
		if err := godotenv.Load(files...); err != nil {
			return nil, fmt.Errorf("load env files %v: %w", files, err)
		}
	}

	cfg := Configuration{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.TargetMongoURI == "" {
		cfg.TargetMongoURI = cfg.SourceMongoURI
	}
	if cfg.MaterializeBatchSize <= 0 {
		cfg.MaterializeBatchSize = 500
	}
	return &cfg, nil
}
