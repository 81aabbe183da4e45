package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	appledger "github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/application/ledger"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// releaseScript deletes the key only while it still holds our token,
// so a holder whose TTL lapsed cannot free someone else's lock.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

const (
	defaultLockTTL       = 30 * time.Second
	defaultRetryInterval = 25 * time.Millisecond
	releaseTimeout       = 2 * time.Second
)

// RedisCustomerLocker implements CustomerLocker with a Redis key per customer.
// This is suitable for distributed deployments where several instances allocate
// against the same database.
type RedisCustomerLocker struct {
	client        *redis.Client
	script        *redis.Script
	ttl           time.Duration
	retryInterval time.Duration
	logger        *zap.Logger
}

// RedisLockerOption is a functional option for configuring RedisCustomerLocker
type RedisLockerOption func(*RedisCustomerLocker)

// WithLockTTL sets how long a lock survives a holder that never releases it
func WithLockTTL(ttl time.Duration) RedisLockerOption {
	return func(l *RedisCustomerLocker) {
		if ttl > 0 {
			l.ttl = ttl
		}
	}
}

// WithRetryInterval sets the pause between attempts on a held key
func WithRetryInterval(d time.Duration) RedisLockerOption {
	return func(l *RedisCustomerLocker) {
		if d > 0 {
			l.retryInterval = d
		}
	}
}

// WithLockerLogger sets the logger used to report failed releases
func WithLockerLogger(logger *zap.Logger) RedisLockerOption {
	return func(l *RedisCustomerLocker) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewRedisClient connects to Redis and checks the connection
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// NewRedisCustomerLocker creates a locker on an existing Redis client
func NewRedisCustomerLocker(client *redis.Client, opts ...RedisLockerOption) *RedisCustomerLocker {
	l := &RedisCustomerLocker{
		client:        client,
		script:        redis.NewScript(releaseScript),
		ttl:           defaultLockTTL,
		retryInterval: defaultRetryInterval,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Acquire polls SET NX until the key is ours or ctx is done.
// The key expires after the TTL even if release is never called.
func (l *RedisCustomerLocker) Acquire(ctx context.Context, key string) (func(), error) {
	if key == "" {
		return nil, errors.New("lock key is empty")
	}
	token := uuid.NewString()

	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}

		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			return l.releaser(key, token), nil
		}
		timer.Reset(l.retryInterval)
	}
}

func (l *RedisCustomerLocker) releaser(key, token string) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			// the caller's context may already be cancelled; release on our own deadline
			ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
			defer cancel()
			if err := l.script.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
				l.logger.Warn("failed to release customer lock, it will expire",
					zap.String("key", key),
					zap.Duration("ttl", l.ttl),
					zap.Error(err))
			}
		})
	}
}

// Close closes the Redis client
func (l *RedisCustomerLocker) Close() error {
	return l.client.Close()
}

// Ensure RedisCustomerLocker implements CustomerLocker
var _ appledger.CustomerLocker = (*RedisCustomerLocker)(nil)
