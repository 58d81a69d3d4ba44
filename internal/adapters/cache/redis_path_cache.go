package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"transit-map-service/internal/domain"
	"transit-map-service/internal/platform/obs"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "transit:path:"

// RedisPathCache stores resolved paths in Redis so they are shared between
// service instances and survive restarts.
type RedisPathCache struct {
	Client *redis.Client
	Prefix string
}

func NewRedisPathCache(client *redis.Client) *RedisPathCache {
	return &RedisPathCache{Client: client, Prefix: defaultKeyPrefix}
}

// OpenRedis parses a redis:// URL and verifies the connection.
func OpenRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("open redis: parse url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("open redis: ping: %w", err)
	}
	return client, nil
}

type redisPath struct {
	Source domain.PathSource `json:"source"`
	Points [][2]float64      `json:"points"`
}

// Fetch the cached path for key.
func (r *RedisPathCache) Get(ctx context.Context, key string) (domain.ResolvedPath, bool, error) {
	path, ok, _, err := r.GetWithTTL(ctx, key)
	return path, ok, err
}

// GetWithTTL is Get plus the entry's remaining lifetime, which is zero or
// negative when the key has no expiry.
func (r *RedisPathCache) GetWithTTL(ctx context.Context, key string) (_ domain.ResolvedPath, _ bool, _ time.Duration, err error) {
	defer obs.Time(ctx, "path.cache.redis.Get")(&err)

	if r.Client == nil {
		return domain.ResolvedPath{}, false, 0, errors.New("redis path cache: client is nil")
	}

	pipe := r.Client.Pipeline()
	get := pipe.Get(ctx, r.Prefix+key)
	pttl := pipe.PTTL(ctx, r.Prefix+key)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return domain.ResolvedPath{}, false, 0, fmt.Errorf("redis path cache get %q: %w", key, err)
	}

	b, err := get.Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.ResolvedPath{}, false, 0, nil
	}
	if err != nil {
		return domain.ResolvedPath{}, false, 0, fmt.Errorf("redis path cache get %q: %w", key, err)
	}

	var stored redisPath
	if err := json.Unmarshal(b, &stored); err != nil {
		return domain.ResolvedPath{}, false, 0, fmt.Errorf("redis path cache get %q: decode: %w", key, err)
	}

	points := make([]domain.LatLng, 0, len(stored.Points))
	for _, p := range stored.Points {
		points = append(points, domain.LatLng{Lat: p[0], Lng: p[1]})
	}

	return domain.ResolvedPath{Points: points, Source: stored.Source}, true, pttl.Val(), nil
}

// Store a path; a zero ttl keeps it without expiry.
func (r *RedisPathCache) Set(ctx context.Context, key string, path domain.ResolvedPath, ttl time.Duration) (err error) {
	defer obs.Time(ctx, "path.cache.redis.Set")(&err)

	if r.Client == nil {
		return errors.New("redis path cache: client is nil")
	}
	if key == "" {
		return errors.New("redis path cache: empty key")
	}

	stored := redisPath{
		Source: path.Source,
		Points: make([][2]float64, 0, len(path.Points)),
	}
	for _, p := range path.Points {
		stored.Points = append(stored.Points, [2]float64{p.Lat, p.Lng})
	}

	b, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("redis path cache set %q: encode: %w", key, err)
	}

	if err := r.Client.Set(ctx, r.Prefix+key, b, ttl).Err(); err != nil {
		return fmt.Errorf("redis path cache set %q: %w", key, err)
	}
	return nil
}
