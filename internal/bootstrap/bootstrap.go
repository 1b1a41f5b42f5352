// Package bootstrap connects the stores and builds the report view services
// shared by the HTTP server and the sync CLI.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/rugvedkadu06/aggrigator/config"
	reportsvc "github.com/rugvedkadu06/aggrigator/internal/api/report/service"
	"github.com/rugvedkadu06/aggrigator/internal/database"
	"github.com/rugvedkadu06/aggrigator/internal/global"
	"github.com/rugvedkadu06/aggrigator/internal/logger"
	"github.com/rugvedkadu06/aggrigator/internal/registry"
)

// How long the materializer waits for the distributed lock before reporting busy.
const lockWait = 2 * time.Second

// Runtime owns the connections of one process. Close releases them.
type Runtime struct {
	Config      *config.Configuration
	Source      *mongo.Client
	Target      *mongo.Client // same as Source when both URIs match
	Redis       *redis.Client // nil without REDIS_ADDRESS
	Collections *registry.Registry[*mongo.Collection]
	Services    *reportsvc.Services
}

// New connects to MongoDB (and Redis when configured), registers the source
// collections and builds the services. On error everything opened so far is closed.
func New(cfg *config.Configuration) (rt *Runtime, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: nil configuration")
	}
	global.InitValidator()
	log := logger.WithModule("bootstrap")

	rt = &Runtime{Config: cfg, Collections: registry.NewRegistry[*mongo.Collection]()}
	defer func() {
		if err != nil {
			rt.Close()
			rt = nil
		}
	}()

	if rt.Source, err = database.GetInstance(cfg.SourceMongoURI); err != nil {
		return rt, fmt.Errorf("source store: %w", err)
	}
	rt.Target = rt.Source
	if cfg.TargetMongoURI != cfg.SourceMongoURI {
		if rt.Target, err = database.GetInstance(cfg.TargetMongoURI); err != nil {
			return rt, fmt.Errorf("target store: %w", err)
		}
	}

	names := reportsvc.SourceCollections{
		Reporters:  cfg.ColReporters,
		Reports:    cfg.ColReports,
		Flags:      cfg.ColFlags,
		Detections: cfg.ColDetections,
	}
	sourceDB := rt.Source.Database(cfg.SourceMongoDBName)
	if err = database.RegisterCollections(rt.Collections, sourceDB, names.Names()...); err != nil {
		return rt, err
	}
	warnMissingCollections(sourceDB, names.Names())

	source, err := reportsvc.NewMongoSourceStore(rt.Collections, names)
	if err != nil {
		return rt, err
	}
	views := reportsvc.NewMongoViewStore(rt.Target, cfg.TargetMongoDBName, cfg.ColViews, cfg.ColSyncState)

	deps := reportsvc.Dependencies{
		Source:            source,
		Views:             views,
		BatchSize:         cfg.MaterializeBatchSize,
		StaleStagingAfter: cfg.StaleStagingAfter(),
	}
	rdb, locker, err := database.GetRedisInstance(cfg.RedisAddress, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return rt, fmt.Errorf("lock store: %w", err)
	}
	if locker != nil {
		rt.Redis = rdb
		deps.Lock = reportsvc.NewRedisLock(locker, cfg.LockTTL(), lockWait)
	} else {
		log.Warn("REDIS_ADDRESS is empty, report view writes are only serialized within this process")
	}

	rt.Services = reportsvc.NewServices(deps)
	return rt, nil
}

// A missing source collection reads as empty, which usually means a misnamed collection.
func warnMissingCollections(db *mongo.Database, names []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	missing, err := database.MissingCollections(ctx, db, names)
	if err != nil {
		logger.WithModule("bootstrap").WithError(err).Warn("Could not check source collections")
		return
	}
	for _, name := range missing {
		logger.WithModuleAndCollection("bootstrap", name).
			Warn("Configured source collection does not exist, it will read as empty")
	}
}

// Close disconnects every client. Safe on a partially built Runtime.
func (r *Runtime) Close() {
	if r == nil {
		return
	}
	_ = database.CloseRedisInstance(r.Redis)
	if r.Target != nil && r.Target != r.Source {
		_ = database.CloseInstance(r.Target)
	}
	_ = database.CloseInstance(r.Source)
}
