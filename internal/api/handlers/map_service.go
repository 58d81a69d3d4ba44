package handlers

import (
	"context"
	"transit-map-service/internal/domain"
	"transit-map-service/internal/services"
)

// MapService is the read side the handlers render. *services.LiveMap
// implements it.
type MapService interface {
	Routes(ctx context.Context) ([]domain.Route, error)
	RoutePath(ctx context.Context, routeID string) (services.RouteView, error)
	Snapshot(ctx context.Context) (services.MapSnapshot, error)
}
