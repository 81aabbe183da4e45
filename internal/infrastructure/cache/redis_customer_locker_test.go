package cache

import (
	"context"
	"testing"
	"time"

	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startRedis runs a throwaway Redis container for the test
func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping Redis container test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestRedisCustomerLocker(t *testing.T) {
	client := startRedis(t)
	locker := NewRedisCustomerLocker(client, WithLockTTL(5*time.Second), WithRetryInterval(5*time.Millisecond))
	ctx := context.Background()

	t.Run("acquire sets a key with ttl", func(t *testing.T) {
		release, err := locker.Acquire(ctx, "arledger:customer:1")
		require.NoError(t, err)

		ttl, err := client.TTL(ctx, "arledger:customer:1").Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, time.Duration(0))

		release()
		exists, err := client.Exists(ctx, "arledger:customer:1").Result()
		require.NoError(t, err)
		assert.Equal(t, int64(0), exists)
	})

	t.Run("held key times out", func(t *testing.T) {
		release, err := locker.Acquire(ctx, "arledger:customer:2")
		require.NoError(t, err)
		defer release()

		waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()
		_, err = locker.Acquire(waitCtx, "arledger:customer:2")
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("release does not free a lock taken over after expiry", func(t *testing.T) {
		release, err := locker.Acquire(ctx, "arledger:customer:3")
		require.NoError(t, err)

		// simulate expiry and a new holder
		require.NoError(t, client.Set(ctx, "arledger:customer:3", "someone-else", time.Minute).Err())
		release()

		val, err := client.Get(ctx, "arledger:customer:3").Result()
		require.NoError(t, err)
		assert.Equal(t, "someone-else", val)
	})

	t.Run("waiter proceeds after release", func(t *testing.T) {
		release, err := locker.Acquire(ctx, "arledger:customer:4")
		require.NoError(t, err)

		go func() {
			time.Sleep(30 * time.Millisecond)
			release()
		}()

		waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		second, err := locker.Acquire(waitCtx, "arledger:customer:4")
		require.NoError(t, err)
		second()
	})
}

func TestRedisCustomerLocker_EmptyKey(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()

	_, err := NewRedisCustomerLocker(client).Acquire(context.Background(), "")
	assert.Error(t, err)
}

func TestLockerFactory_CreateLocker(t *testing.T) {
	unreachable := config.RedisConfig{Host: "127.0.0.1", Port: 1}

	t.Run("local backend", func(t *testing.T) {
		locker, err := NewLockerFactory(unreachable, config.LedgerConfig{LockBackend: config.LockBackendLocal}).CreateLocker()
		require.NoError(t, err)
		assert.IsType(t, &InMemoryCustomerLocker{}, locker)
		assert.NoError(t, locker.Close())
	})

	t.Run("redis required but unavailable", func(t *testing.T) {
		_, err := NewLockerFactory(unreachable, config.LedgerConfig{LockBackend: config.LockBackendRedis}).CreateLocker()
		assert.Error(t, err)
	})

	t.Run("redis unavailable with fallback", func(t *testing.T) {
		locker, err := NewLockerFactory(unreachable,
			config.LedgerConfig{LockBackend: config.LockBackendRedis},
			WithInMemoryFallback(true),
		).CreateLocker()
		require.NoError(t, err)
		assert.IsType(t, &InMemoryCustomerLocker{}, locker)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := NewLockerFactory(unreachable, config.LedgerConfig{LockBackend: "etcd"}).CreateLocker()
		assert.Error(t, err)
	})
}
