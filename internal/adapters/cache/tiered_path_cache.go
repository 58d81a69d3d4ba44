package cache

import (
	"context"
	"fmt"
	"time"
	"transit-map-service/internal/domain"
	"transit-map-service/internal/ports"
)

const promotedFallbackTTL = time.Minute

type ttlReader interface {
	GetWithTTL(ctx context.Context, key string) (domain.ResolvedPath, bool, time.Duration, error)
}

// TieredPathCache reads through a fast local cache in front of a shared one.
// Shared hits are promoted to the local tier. A promoted entry never outlives
// its shared expiry when the shared tier reports it, and fallback paths are
// kept locally for at most promotedFallbackTTL.
type TieredPathCache struct {
	Local  ports.PathCache
	Shared ports.PathCache
}

func NewTieredPathCache(local, shared ports.PathCache) *TieredPathCache {
	return &TieredPathCache{Local: local, Shared: shared}
}

func (t *TieredPathCache) Get(ctx context.Context, key string) (domain.ResolvedPath, bool, error) {
	if path, ok, err := t.Local.Get(ctx, key); err == nil && ok {
		return path, true, nil
	}

	var (
		path      domain.ResolvedPath
		ok        bool
		remaining time.Duration
		err       error
	)
	if shared, isTTL := t.Shared.(ttlReader); isTTL {
		path, ok, remaining, err = shared.GetWithTTL(ctx, key)
	} else {
		path, ok, err = t.Shared.Get(ctx, key)
	}
	if err != nil || !ok {
		return domain.ResolvedPath{}, false, err
	}

	var ttl time.Duration
	if path.Source == domain.PathSourceFallback {
		ttl = promotedFallbackTTL
	}
	if remaining > 0 && (ttl == 0 || remaining < ttl) {
		ttl = remaining
	}
	_ = t.Local.Set(ctx, key, path, ttl)

	return path, true, nil
}

// Set writes both tiers. The local write always happens, even when the
// shared tier fails.
func (t *TieredPathCache) Set(ctx context.Context, key string, path domain.ResolvedPath, ttl time.Duration) error {
	if err := t.Local.Set(ctx, key, path, ttl); err != nil {
		return fmt.Errorf("tiered path cache: local: %w", err)
	}
	if err := t.Shared.Set(ctx, key, path, ttl); err != nil {
		return fmt.Errorf("tiered path cache: shared: %w", err)
	}
	return nil
}
