package database

import (
	"context"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/rugvedkadu06/aggrigator/internal/logger"
)

// GetRedisInstance connects to Redis and pings it once. An empty address returns
// (nil, nil, nil): the caller runs without a distributed lock.
func GetRedisInstance(addr, password string, db int) (*redis.Client, *redislock.Client, error) {
	if addr == "" {
		return nil, nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		PoolSize:    20,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("failed to ping redis at %s: %w", addr, err)
	}

	logger.GetAppLogger().WithField("addr", addr).Info("Successfully connected to Redis")
	return rdb, redislock.New(rdb), nil
}

// CloseRedisInstance closes the client. A nil client is a no-op.
func CloseRedisInstance(rdb *redis.Client) error {
	if rdb == nil {
		return nil
	}
	if err := rdb.Close(); err != nil {
		logger.GetAppLogger().WithError(err).Error("Failed to close Redis client")
		return err
	}
	return nil
}
