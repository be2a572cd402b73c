package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/soaringjerry/psyscore/internal/services"
)

// RedisKV is the subset of *redis.Client the profile cache uses.
type RedisKV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type redisProfileCache struct {
	client RedisKV
	prefix string
}

// NewRedisProfileCache stores profiles as JSON under "profile:<session>".
func NewRedisProfileCache(client RedisKV) services.ProfileCache {
	return &redisProfileCache{client: client, prefix: "profile:"}
}

func (c *redisProfileCache) key(sessionID string) string { return c.prefix + sessionID }

func (c *redisProfileCache) Set(ctx context.Context, sessionID string, p *services.Profile, ttl time.Duration) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(sessionID), data, ttl).Err()
}

func (c *redisProfileCache) Get(ctx context.Context, sessionID string) (*services.Profile, error) {
	data, err := c.client.Get(ctx, c.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var p services.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *redisProfileCache) Delete(ctx context.Context, sessionID string) error {
	return c.client.Del(ctx, c.key(sessionID)).Err()
}
