package cache

import (
	"fmt"

	appledger "github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/application/ledger"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/infrastructure/config"
	"go.uber.org/zap"
)

// CustomerLocker is a ledger customer lock with a lifecycle
type CustomerLocker interface {
	appledger.CustomerLocker
	Close() error
}

// LockerFactory creates customer lockers based on configuration
type LockerFactory struct {
	redisConfig           config.RedisConfig
	ledgerConfig          config.LedgerConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// LockerFactoryOption is a functional option for configuring the factory
type LockerFactoryOption func(*LockerFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) LockerFactoryOption {
	return func(f *LockerFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to the in-memory locker when Redis is unavailable.
// Default is false: a multi-instance deployment must not silently lose cross-process exclusion.
func WithInMemoryFallback(allow bool) LockerFactoryOption {
	return func(f *LockerFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewLockerFactory creates a new factory
func NewLockerFactory(redisCfg config.RedisConfig, ledgerCfg config.LedgerConfig, opts ...LockerFactoryOption) *LockerFactory {
	f := &LockerFactory{
		redisConfig:  redisCfg,
		ledgerConfig: ledgerCfg,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateRedisLocker connects to Redis and creates a Redis-based locker
func (f *LockerFactory) CreateRedisLocker() (*RedisCustomerLocker, error) {
	client, err := NewRedisClient(f.redisConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis customer locker: %w", err)
	}
	return NewRedisCustomerLocker(client,
		WithLockTTL(f.ledgerConfig.LockTTL),
		WithLockerLogger(f.logger),
	), nil
}

// CreateLocker creates the locker named by the ledger lock backend
func (f *LockerFactory) CreateLocker() (CustomerLocker, error) {
	switch f.ledgerConfig.LockBackend {
	case config.LockBackendRedis:
		locker, err := f.CreateRedisLocker()
		if err == nil {
			f.logger.Info("using Redis customer locker", zap.String("addr", f.redisConfig.Addr()))
			return locker, nil
		}
		if !f.allowInMemoryFallback {
			return nil, fmt.Errorf("Redis required for customer locks but unavailable: %w", err)
		}
		f.logger.Warn("Redis unavailable, falling back to in-memory customer locker. "+
			"Concurrent instances may allocate the same invoice twice.",
			zap.Error(err),
		)
		return NewInMemoryCustomerLocker(), nil
	case config.LockBackendLocal, "":
		f.logger.Info("using in-memory customer locker")
		return NewInMemoryCustomerLocker(), nil
	default:
		return nil, fmt.Errorf("unknown lock backend %q", f.ledgerConfig.LockBackend)
	}
}
