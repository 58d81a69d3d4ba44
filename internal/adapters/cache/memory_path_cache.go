package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
	"transit-map-service/internal/domain"

	"github.com/bluele/gcache"
)

// MemoryPathCache is a bounded, in-process LRU cache of resolved paths.
// Entries stored with a ttl expire individually; the rest live until evicted.
type MemoryPathCache struct {
	lru gcache.Cache
}

func NewMemoryPathCache(size int) (*MemoryPathCache, error) {
	if size <= 0 {
		return nil, fmt.Errorf("memory path cache: size must be positive, got %d", size)
	}
	return &MemoryPathCache{lru: gcache.New(size).LRU().Build()}, nil
}

// Fetch the cached path for key.
func (m *MemoryPathCache) Get(ctx context.Context, key string) (domain.ResolvedPath, bool, error) {
	v, err := m.lru.Get(key)
	if errors.Is(err, gcache.KeyNotFoundError) {
		return domain.ResolvedPath{}, false, nil
	}
	if err != nil {
		return domain.ResolvedPath{}, false, fmt.Errorf("memory path cache get %q: %w", key, err)
	}

	path, ok := v.(domain.ResolvedPath)
	if !ok {
		return domain.ResolvedPath{}, false, fmt.Errorf("memory path cache get %q: unexpected value %T", key, v)
	}
	return path, true, nil
}

// Store a path; a zero ttl keeps it until evicted.
func (m *MemoryPathCache) Set(ctx context.Context, key string, path domain.ResolvedPath, ttl time.Duration) error {
	if key == "" {
		return errors.New("memory path cache: empty key")
	}

	var err error
	if ttl > 0 {
		err = m.lru.SetWithExpire(key, path, ttl)
	} else {
		err = m.lru.Set(key, path)
	}
	if err != nil {
		return fmt.Errorf("memory path cache set %q: %w", key, err)
	}
	return nil
}

// Len returns the number of live entries.
func (m *MemoryPathCache) Len() int {
	return m.lru.Len(true)
}
