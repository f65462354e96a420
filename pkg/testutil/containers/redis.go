//go:build integration

package containers

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

const redisImage = "redis:7-alpine"

// keyPattern matches every key the list stores write.
const keyPattern = "molecule:*"

// RedisContainer wraps a testcontainers Redis instance.
type RedisContainer struct {
	Container *tcredis.RedisContainer
	Addr      string
	Client    *redis.Client
}

// NewRedisContainer starts a Redis container with a connected client.
// Prefer GetManager().GetRedis so suites share one instance.
func NewRedisContainer(t *testing.T) *RedisContainer {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, redisImage, tcredis.WithLogLevel(tcredis.LogLevelWarning))
	if err != nil {
		t.Fatalf("start redis container: %v", err)
	}
	fail := func(msg string, err error) {
		_ = container.Terminate(ctx)
		t.Fatalf("%s: %v", msg, err)
	}

	addr, err := container.ConnectionString(ctx)
	if err != nil {
		fail("redis connection string", err)
	}
	opts, err := redis.ParseURL(addr)
	if err != nil {
		fail("parse redis url", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		fail("ping redis", err)
	}

	return &RedisContainer{Container: container, Addr: addr, Client: client}
}

// Reset deletes every molecule key, leaving anything else in the database.
func (r *RedisContainer) Reset(ctx context.Context) error {
	iter := r.Client.Scan(ctx, 0, keyPattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return r.Client.Del(ctx, keys...).Err()
}
