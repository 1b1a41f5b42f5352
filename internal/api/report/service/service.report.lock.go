package reportsvc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"

	"github.com/rugvedkadu06/aggrigator/internal/common"
	"github.com/rugvedkadu06/aggrigator/internal/logger"
)

// DistributedLock serializes materializer writes across processes. Acquire
// returns common.ErrMaterializeBusy when another holder keeps the lock.
//
// The returned context is derived from ctx and is cancelled with cause
// common.ErrMaterializeLockLost once the lock can no longer be held. Work done
// under the lock must use it.
type DistributedLock interface {
	Acquire(ctx context.Context, key string) (held context.Context, release func(context.Context) error, err error)
}

// RedisLock is a DistributedLock on redislock. The lock is refreshed every ttl/2
// while held, so runs longer than ttl keep it. A failed refresh gives the lock up.
type RedisLock struct {
	client *redislock.Client
	ttl    time.Duration
	wait   time.Duration
}

// NewRedisLock builds the lock. Acquire retries for up to wait before giving up.
func NewRedisLock(client *redislock.Client, ttl, wait time.Duration) *RedisLock {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisLock{client: client, ttl: ttl, wait: wait}
}

func (l *RedisLock) Acquire(ctx context.Context, key string) (context.Context, func(context.Context) error, error) {
	opts := &redislock.Options{}
	if l.wait > 0 {
		backoff := 100 * time.Millisecond
		opts.RetryStrategy = redislock.LimitRetry(redislock.LinearBackoff(backoff), int(l.wait/backoff))
	}

	lock, err := l.client.Obtain(ctx, key, l.ttl, opts)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, nil, common.WithDetails(common.ErrMaterializeBusy, key)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("obtain lock %s: %w", key, err)
	}

	held, cancel := context.WithCancelCause(ctx)

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(l.ttl / 2)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if err := lock.Refresh(context.WithoutCancel(held), l.ttl, nil); err != nil {
					logger.WithModule("report_view").WithError(err).WithField("key", key).Error("Lost materializer lock, aborting run")
					cancel(common.WithDetails(common.ErrMaterializeLockLost, err))
					return
				}
			}
		}
	}()

	var once sync.Once
	release := func(ctx context.Context) error {
		var err error
		once.Do(func() {
			close(stop)
			<-done
			cancel(nil)
			if rerr := lock.Release(ctx); rerr != nil && !errors.Is(rerr, redislock.ErrLockNotHeld) {
				err = fmt.Errorf("release lock %s: %w", key, rerr)
			}
		})
		return err
	}
	return held, release, nil
}
