package cache

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/distrib/backend/internal/application/reporting"
	"github.com/distrib/backend/internal/domain/shared"
)

// RedisCycleLocker holds cycle locks in Redis so every API instance
// serializes on the same key. A lock expires after ttl even if its holder
// dies.
type RedisCycleLocker struct {
	locker *redislock.Client
	ttl    time.Duration
	wait   time.Duration
	retry  time.Duration
	logger *zap.Logger
}

// NewRedisCycleLocker creates a locker on client. wait bounds how long Lock
// retries before giving up with CYCLE_BUSY.
func NewRedisCycleLocker(client redislock.RedisClient, ttl, wait time.Duration, logger *zap.Logger) *RedisCycleLocker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisCycleLocker{
		locker: redislock.New(client),
		ttl:    ttl,
		wait:   wait,
		retry:  50 * time.Millisecond,
		logger: logger,
	}
}

func (l *RedisCycleLocker) Lock(ctx context.Context, distributorID uuid.UUID, cycleAnchor time.Time) (func(), error) {
	key := reporting.CycleLockKey(distributorID, cycleAnchor)

	waitCtx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	lock, err := l.locker.Obtain(waitCtx, key, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(l.retry),
	})
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) || errors.Is(err, context.DeadlineExceeded) {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, shared.ErrCycleBusy
		}
		return nil, err
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := lock.Release(releaseCtx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			l.logger.Warn("Failed to release cycle lock", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

var _ reporting.CycleLocker = (*RedisCycleLocker)(nil)
