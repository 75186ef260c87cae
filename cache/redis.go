package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"space_puzzle/model"
)

const (
	apodKeyPrefix  = "apod:"
	DefaultApodTTL = 6 * time.Hour
)

// RedisCache short-lived cache of immutable daily content.
// Nothing stored here takes part in the reward ledger.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(addr, password string, db int, ttl time.Duration) *RedisCache {
	return NewRedisCacheWithClient(redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}), ttl)
}

// NewRedisCacheWithClient wraps an existing client
func NewRedisCacheWithClient(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultApodTTL
	}
	return &RedisCache{client: client, ttl: ttl}
}

func apodKey(day string) string {
	return fmt.Sprintf("%s%s", apodKeyPrefix, day)
}

// GetApod cached entry of a calendar day; nil, nil on a miss
func (c *RedisCache) GetApod(ctx context.Context, day string) (*model.ApodData, error) {
	val, err := c.client.Get(ctx, apodKey(day)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get apod %s: %w", day, err)
	}
	var data model.ApodData
	if err := json.Unmarshal(val, &data); err != nil {
		return nil, fmt.Errorf("decode apod %s: %w", day, err)
	}
	return &data, nil
}

// SetApod stores the entry of a calendar day for the configured TTL
func (c *RedisCache) SetApod(ctx context.Context, day string, data *model.ApodData) error {
	val, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode apod %s: %w", day, err)
	}
	return c.client.Set(ctx, apodKey(day), val, c.ttl).Err()
}

// RemoveApod drops a cached day
func (c *RedisCache) RemoveApod(ctx context.Context, day string) error {
	return c.client.Del(ctx, apodKey(day)).Err()
}

// Ping checks connectivity
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
