package ports

import (
	"context"
	"transit-map-service/internal/domain"
)

// Contract for retrieving a drivable path from an external directions service.
type DirectionsProvider interface {
	// Return the driving path from origin to destination through the ordered
	// stopovers, flattened into one point sequence. Any failure (no route,
	// quota, network) is reported as an error.
	Directions(ctx context.Context, origin, destination domain.LatLng, stopovers []domain.LatLng) ([]domain.LatLng, error)
}
