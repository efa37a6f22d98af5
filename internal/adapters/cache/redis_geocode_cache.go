package cache

import (
	"context"
	"errors"
	"fmt"
	"route-optimizer-service/internal/domain"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Hash key holding all cached geocode entries, one field per query.
const redisGeocodeKey = "geocode_cache"

// RedisGeocodeCache keeps geocode results in a Redis hash. Field writes
// are keyed upserts, so concurrent requests cannot lose each other's
// updates the way a read-modify-write of a whole document would.
type RedisGeocodeCache struct {
	Client *redis.Client
}

func NewRedisGeocodeCache(client *redis.Client) *RedisGeocodeCache {
	return &RedisGeocodeCache{Client: client}
}

// Fetch cached coordinates for the given queries.
func (r *RedisGeocodeCache) GetMany(ctx context.Context, queries []string) (map[string]domain.Coordinates, error) {
	if r.Client == nil {
		return nil, errors.New("geocode cache: redis client is nil")
	}

	uniq := make([]string, 0, len(queries))
	seen := map[string]struct{}{}
	for _, q := range queries {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		if _, ok := seen[q]; ok {
			continue
		}
		seen[q] = struct{}{}
		uniq = append(uniq, q)
	}

	if len(uniq) == 0 {
		return map[string]domain.Coordinates{}, nil
	}

	vals, err := r.Client.HMGet(ctx, redisGeocodeKey, uniq...).Result()
	if err != nil {
		return nil, fmt.Errorf("get geocode cache: hmget: %w", err)
	}

	out := make(map[string]domain.Coordinates, len(uniq))
	for i, v := range vals {
		if v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			continue
		}

		var lat, lng float64
		if _, err := fmt.Sscanf(s, "%f,%f", &lat, &lng); err != nil {
			return nil, fmt.Errorf("get geocode cache: malformed entry for %q: %w", uniq[i], err)
		}
		out[uniq[i]] = domain.Coordinates{Lat: lat, Lng: lng}
	}

	return out, nil
}

// Store query -> coordinate mappings in the cache.
func (r *RedisGeocodeCache) PutMany(ctx context.Context, results map[string]domain.Coordinates) error {
	if r.Client == nil {
		return errors.New("geocode cache: redis client is nil")
	}

	if len(results) == 0 {
		return nil
	}

	fields := make(map[string]string, len(results))
	for q, c := range results {
		if strings.TrimSpace(q) == "" {
			return errors.New("insert geocode cache: empty query key")
		}
		fields[q] = fmt.Sprintf("%.7f,%.7f", c.Lat, c.Lng)
	}

	if err := r.Client.HSet(ctx, redisGeocodeKey, fields).Err(); err != nil {
		return fmt.Errorf("insert geocode cache: hset: %w", err)
	}

	return nil
}
