package dedupe

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces gate keys in a shared Redis instance.
const DefaultKeyPrefix = "radar:dedupe:"

// RedisGate is the shared Gate backing for multi-instance deployments.
// Admission maps to SET NX with expiry, which is atomic server-side.
type RedisGate struct {
	client    redis.Cmdable
	keyPrefix string
}

// NewRedisGate creates a gate over an existing Redis client.
func NewRedisGate(client redis.Cmdable) *RedisGate {
	return &RedisGate{
		client:    client,
		keyPrefix: DefaultKeyPrefix,
	}
}

// TryAdmit implements Gate. A Redis failure is returned to the caller,
// who must treat it as a denial.
func (g *RedisGate) TryAdmit(ctx context.Context, assetID string, ttl time.Duration) (bool, error) {
	key := g.keyPrefix + assetID

	ok, err := g.client.SetNX(ctx, key, time.Now().UnixMilli(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedupe setnx %s: %w", assetID, err)
	}
	return ok, nil
}
