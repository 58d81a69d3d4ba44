package cache

import (
	"context"
	"testing"
	"time"
	"transit-map-service/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePath(source domain.PathSource) domain.ResolvedPath {
	return domain.ResolvedPath{
		Points: []domain.LatLng{{Lat: 10, Lng: -63}, {Lat: 10.0001, Lng: -63.12345678}},
		Source: source,
	}
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *RedisPathCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisPathCache(client)
}

func TestMemoryPathCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, err := NewMemoryPathCache(8)
	require.NoError(t, err)

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	want := samplePath(domain.PathSourceDirections)
	require.NoError(t, c.Set(ctx, "k", want, 0))

	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestMemoryPathCacheEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	c, err := NewMemoryPathCache(2)
	require.NoError(t, err)

	require.NoError(t, c.Set(ctx, "a", samplePath(domain.PathSourceDirections), 0))
	require.NoError(t, c.Set(ctx, "b", samplePath(domain.PathSourceDirections), 0))

	_, ok, _ := c.Get(ctx, "a")
	require.True(t, ok)

	require.NoError(t, c.Set(ctx, "c", samplePath(domain.PathSourceDirections), 0))

	_, ok, _ = c.Get(ctx, "b")
	assert.False(t, ok, "b was least recently used")
	_, ok, _ = c.Get(ctx, "a")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestMemoryPathCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, err := NewMemoryPathCache(8)
	require.NoError(t, err)

	require.NoError(t, c.Set(ctx, "k", samplePath(domain.PathSourceFallback), 20*time.Millisecond))
	_, ok, _ := c.Get(ctx, "k")
	require.True(t, ok)

	time.Sleep(40 * time.Millisecond)
	_, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryPathCacheRejectsBadSize(t *testing.T) {
	_, err := NewMemoryPathCache(0)
	assert.Error(t, err)
}

func TestRedisPathCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	mr, c := newRedis(t)

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	want := samplePath(domain.PathSourceDirections)
	require.NoError(t, c.Set(ctx, "route:1:abc", want, 0))
	assert.True(t, mr.Exists(defaultKeyPrefix+"route:1:abc"))
	assert.Equal(t, time.Duration(0), mr.TTL(defaultKeyPrefix+"route:1:abc"))

	got, ok, err := c.Get(ctx, "route:1:abc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestRedisPathCacheTTL(t *testing.T) {
	ctx := context.Background()
	mr, c := newRedis(t)

	require.NoError(t, c.Set(ctx, "k", samplePath(domain.PathSourceFallback), 5*time.Minute))
	assert.Equal(t, 5*time.Minute, mr.TTL(defaultKeyPrefix+"k"))

	mr.FastForward(6 * time.Minute)
	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisPathCacheCorruptValue(t *testing.T) {
	ctx := context.Background()
	mr, c := newRedis(t)

	require.NoError(t, mr.Set(defaultKeyPrefix+"k", "not json"))
	_, _, err := c.Get(ctx, "k")
	assert.Error(t, err)
}

func TestRedisPathCacheUnavailable(t *testing.T) {
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 100 * time.Millisecond,
	})
	t.Cleanup(func() { _ = client.Close() })
	c := NewRedisPathCache(client)

	_, _, err := c.Get(ctx, "k")
	assert.Error(t, err)
	assert.Error(t, c.Set(ctx, "k", samplePath(domain.PathSourceDirections), 0))
}

func TestTieredPathCachePromotesSharedHits(t *testing.T) {
	ctx := context.Background()
	local, err := NewMemoryPathCache(8)
	require.NoError(t, err)
	_, shared := newRedis(t)
	tiered := NewTieredPathCache(local, shared)

	want := samplePath(domain.PathSourceDirections)
	require.NoError(t, shared.Set(ctx, "k", want, 0))

	got, ok, err := tiered.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)

	promoted, ok, err := local.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, promoted)
}

func TestTieredPathCacheWritesBothTiers(t *testing.T) {
	ctx := context.Background()
	local, err := NewMemoryPathCache(8)
	require.NoError(t, err)
	_, shared := newRedis(t)
	tiered := NewTieredPathCache(local, shared)

	want := samplePath(domain.PathSourceWaypoints)
	require.NoError(t, tiered.Set(ctx, "k", want, 0))

	_, ok, _ := local.Get(ctx, "k")
	assert.True(t, ok)
	_, ok, _ = shared.Get(ctx, "k")
	assert.True(t, ok)
}

type recordingCache struct {
	ttl  time.Duration
	sets int
}

func (r *recordingCache) Get(ctx context.Context, key string) (domain.ResolvedPath, bool, error) {
	return domain.ResolvedPath{}, false, nil
}

func (r *recordingCache) Set(ctx context.Context, key string, path domain.ResolvedPath, ttl time.Duration) error {
	r.ttl = ttl
	r.sets++
	return nil
}

func TestTieredPathCachePromotionRespectsSharedTTL(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name      string
		source    domain.PathSource
		sharedTTL time.Duration
		wantLocal time.Duration
	}{
		{"fallback expiring soon", domain.PathSourceFallback, 10 * time.Second, 10 * time.Second},
		{"fallback expiring late", domain.PathSourceFallback, 5 * time.Minute, promotedFallbackTTL},
		{"directions without expiry", domain.PathSourceDirections, 0, 0},
		{"directions with expiry", domain.PathSourceDirections, time.Hour, time.Hour},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, shared := newRedis(t)
			local := &recordingCache{}
			tiered := NewTieredPathCache(local, shared)

			require.NoError(t, shared.Set(ctx, "k", samplePath(tc.source), tc.sharedTTL))

			_, ok, err := tiered.Get(ctx, "k")
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, 1, local.sets)
			assert.Equal(t, tc.wantLocal, local.ttl)
		})
	}
}

func TestRedisPathCacheReportsRemainingTTL(t *testing.T) {
	ctx := context.Background()
	mr, c := newRedis(t)
	require.NoError(t, c.Set(ctx, "k", samplePath(domain.PathSourceFallback), 30*time.Second))
	mr.FastForward(10 * time.Second)

	_, ok, remaining, err := c.GetWithTTL(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 20*time.Second, remaining)

	_, ok, remaining, err = c.GetWithTTL(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, remaining)
}
