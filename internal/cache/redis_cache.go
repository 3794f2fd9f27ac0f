package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"salonledger/internal/domain"
)

type RedisAnalyticsCache struct {
	client *redis.Client
}

func NewRedisAnalyticsCache(addr string, password string, db int) *RedisAnalyticsCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisAnalyticsCache{client: client}
}

func (c *RedisAnalyticsCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisAnalyticsCache) Close() error {
	return c.client.Close()
}

func (c *RedisAnalyticsCache) Get(ctx context.Context, ownerID string, key string) (*domain.AnalyticsReport, Slot, bool, error) {
	gen, err := c.client.Get(ctx, generationKey(ownerID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, Slot{}, false, err
	}
	slot := Slot{OwnerID: ownerID, Key: key, Generation: gen}

	val, err := c.client.Get(ctx, slotKey(slot)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, slot, false, nil
	}
	if err != nil {
		return nil, Slot{}, false, err
	}

	var report domain.AnalyticsReport
	if err := json.Unmarshal([]byte(val), &report); err != nil {
		return nil, Slot{}, false, err
	}
	return &report, slot, true, nil
}

// Set writes under the generation pinned in slot, never the current one. A
// slot without an owner comes from a failed Get and is ignored.
func (c *RedisAnalyticsCache) Set(ctx context.Context, slot Slot, value *domain.AnalyticsReport, ttl time.Duration) error {
	if value == nil || slot.OwnerID == "" {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, slotKey(slot), payload, ttl).Err()
}

// Invalidate bumps the owner's generation so older keys are never read again
// and age out through their TTL.
func (c *RedisAnalyticsCache) Invalidate(ctx context.Context, ownerID string) error {
	return c.client.Incr(ctx, generationKey(ownerID)).Err()
}

func slotKey(slot Slot) string {
	return fmt.Sprintf("analytics:%s:%d:%s", slot.OwnerID, slot.Generation, slot.Key)
}

func generationKey(ownerID string) string {
	return fmt.Sprintf("analytics:%s:gen", ownerID)
}
