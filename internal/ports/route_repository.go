package ports

import (
	"context"
	"errors"
	"transit-map-service/internal/domain"
)

var ErrVehicleNotFound = errors.New("vehicle not found")

// Port: a boundary for reading route data and live vehicles from the data store.
// Lists are returned flat; joining stops and waypoints onto routes is the
// aggregator's job.
type RouteRepository interface {
	ListRoutes(ctx context.Context) ([]domain.Route, error)
	ListStops(ctx context.Context) ([]domain.Stop, error)
	ListWaypoints(ctx context.Context) ([]domain.Waypoint, error)
	ListVehicles(ctx context.Context) ([]domain.Vehicle, error)
}

// Port: driver-side location updates.
type VehiclePositionWriter interface {
	// Record a new raw fix for the vehicle. Returns ErrVehicleNotFound for unknown ids.
	UpdateVehiclePosition(ctx context.Context, vehicleID string, pos domain.LatLng, status domain.VehicleStatus) error
}
