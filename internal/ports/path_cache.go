package ports

import (
	"context"
	"time"
	"transit-map-service/internal/domain"
)

// Port: storage for resolved route paths, keyed by route identity + content fingerprint.
type PathCache interface {
	// Return the cached path for key. A miss is (zero, false, nil).
	Get(ctx context.Context, key string) (domain.ResolvedPath, bool, error)
	// Store a path. A zero ttl keeps the entry until it is evicted.
	Set(ctx context.Context, key string, path domain.ResolvedPath, ttl time.Duration) error
}
