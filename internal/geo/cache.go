package geo

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "geo:pc:"

// RedisCache is a Redis-backed Cache for geocoder results.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a cache from a Redis URL. TTL bounds how long a
// geocoded postcode stays warm; postcode coordinates effectively never change,
// so a long TTL is fine.
func NewRedisCache(redisURL string, ttl time.Duration) (*RedisCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &RedisCache{client: redis.NewClient(opt), ttl: ttl}, nil
}

// Get returns the cached coordinate for a normalized postcode.
func (rc *RedisCache) Get(ctx context.Context, postcode string) (Coordinate, bool, error) {
	raw, err := rc.client.Get(ctx, cacheKeyPrefix+postcode).Bytes()
	if errors.Is(err, redis.Nil) {
		return Coordinate{}, false, nil
	}
	if err != nil {
		return Coordinate{}, false, err
	}

	var c Coordinate
	if err := json.Unmarshal(raw, &c); err != nil {
		return Coordinate{}, false, err
	}
	return c, true, nil
}

// Set stores a coordinate for a normalized postcode.
func (rc *RedisCache) Set(ctx context.Context, postcode string, c Coordinate) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return rc.client.Set(ctx, cacheKeyPrefix+postcode, raw, rc.ttl).Err()
}

// Close releases the underlying Redis connection.
func (rc *RedisCache) Close() error {
	return rc.client.Close()
}
