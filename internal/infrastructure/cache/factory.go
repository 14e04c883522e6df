package cache

import (
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/distrib/backend/internal/application/reporting"
	"github.com/distrib/backend/internal/infrastructure/config"
)

// CycleLockerFactory picks the cycle locker the configuration asks for
type CycleLockerFactory struct {
	cfg                   config.ReconciliationConfig
	client                *redis.Client
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// CycleLockerFactoryOption is a functional option for configuring the factory
type CycleLockerFactoryOption func(*CycleLockerFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) CycleLockerFactoryOption {
	return func(f *CycleLockerFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether a missing Redis client degrades to
// the in-process locker. Default true.
func WithInMemoryFallback(allow bool) CycleLockerFactoryOption {
	return func(f *CycleLockerFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewCycleLockerFactory creates a factory. client may be nil when Redis is
// disabled or unreachable.
func NewCycleLockerFactory(cfg config.ReconciliationConfig, client *redis.Client, opts ...CycleLockerFactoryOption) *CycleLockerFactory {
	f := &CycleLockerFactory{
		cfg:                   cfg,
		client:                client,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// ErrRedisRequired is returned when Redis locking is configured, Redis is
// missing and fallback is off
var ErrRedisRequired = errors.New("redis cycle lock configured but no Redis client is available")

// Create returns the configured locker
func (f *CycleLockerFactory) Create() (reporting.CycleLocker, error) {
	if !f.cfg.SerializeSubmissions {
		f.logger.Warn("Report submissions are not serialized; concurrent filings may overspend availability")
		return reporting.NoopCycleLocker{}, nil
	}

	if f.cfg.LockBackend == "memory" {
		f.logger.Info("Using in-memory cycle lock")
		return NewInMemoryCycleLocker(f.cfg.LockWait), nil
	}

	if f.client != nil {
		f.logger.Info("Using Redis cycle lock",
			zap.Duration("ttl", f.cfg.LockTTL),
			zap.Duration("wait", f.cfg.LockWait),
		)
		return NewRedisCycleLocker(f.client, f.cfg.LockTTL, f.cfg.LockWait, f.logger), nil
	}

	if !f.allowInMemoryFallback {
		return nil, ErrRedisRequired
	}
	f.logger.Warn("Redis unavailable, falling back to in-memory cycle lock. " +
		"Submissions are only serialized within this instance.")
	return NewInMemoryCycleLocker(f.cfg.LockWait), nil
}
