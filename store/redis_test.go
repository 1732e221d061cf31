package store

import (
	"context"
	"os"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// newTestRedis connects to the Redis instance named by CHATFLOW_TEST_REDIS_ADDR
// (e.g. "localhost:6379"). Tests are skipped when the variable is unset.
func newTestRedis(t *testing.T) *Redis {
	t.Helper()

	addr := os.Getenv("CHATFLOW_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skipf("skipping Redis tests: CHATFLOW_TEST_REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("skipping Redis tests: %v", err)
	}

	const prefix = "chatflow:test:"

	// Clean up all keys under the test prefix for a fresh slate.
	iter := client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		require.NoError(t, client.Del(ctx, iter.Val()).Err())
	}
	require.NoError(t, iter.Err())

	return NewRedis(client, func(o *RedisOptions) {
		o.Prefix = prefix
	})
}

func TestRedisStoreContract(t *testing.T) {
	s := newTestRedis(t)
	testThreadStoreContract(t, s)
}
