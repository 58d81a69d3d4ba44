package services

import (
	"context"
	"errors"
	"fmt"
	"time"
	"transit-map-service/internal/domain"
	"transit-map-service/internal/platform/logging"
	"transit-map-service/internal/platform/metrics"

	"golang.org/x/sync/errgroup"
)

var ErrRouteNotFound = errors.New("route not found")

// resolveConcurrency bounds parallel path resolutions in one snapshot.
const resolveConcurrency = 4

// RouteView is a route together with its resolved path.
type RouteView struct {
	Route domain.Route
	Path  domain.ResolvedPath
}

// MapSnapshot is everything a map needs to draw at one instant.
type MapSnapshot struct {
	Routes      []RouteView
	Vehicles    []domain.VehiclePlacement
	GeneratedAt time.Time
}

// LiveMap ties loading, path resolution and vehicle snapping together.
type LiveMap struct {
	aggregator *RouteAggregator
	resolver   *PathResolver
	snapper    *Snapper
	log        logging.Logger
	now        func() time.Time
}

func NewLiveMap(aggregator *RouteAggregator, resolver *PathResolver, snapper *Snapper) *LiveMap {
	return &LiveMap{
		aggregator: aggregator,
		resolver:   resolver,
		snapper:    snapper,
		log:        logging.Std().Named("live-map"),
		now:        time.Now,
	}
}

// Snapshot resolves every active route and places every vehicle that has a
// position. Vehicles on an active route are snapped onto its path; the rest
// keep their raw fix.
func (m *LiveMap) Snapshot(ctx context.Context) (MapSnapshot, error) {
	var (
		routes   []domain.Route
		vehicles []domain.Vehicle
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		routes, err = m.aggregator.LoadRoutes(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		vehicles, err = m.aggregator.LoadVehicles(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return MapSnapshot{}, fmt.Errorf("map snapshot: %w", err)
	}

	views := make([]RouteView, 0, len(routes))
	for _, r := range routes {
		if r.Active {
			views = append(views, RouteView{Route: r})
		}
	}

	rg := new(errgroup.Group)
	rg.SetLimit(resolveConcurrency)
	for i := range views {
		rg.Go(func() error {
			views[i].Path = m.resolver.Resolve(ctx, views[i].Route)
			return nil
		})
	}
	_ = rg.Wait()

	byID := make(map[string]*RouteView, len(views))
	for i := range views {
		byID[views[i].Route.ID] = &views[i]
	}
	allRoutes := make(map[string]domain.Route, len(routes))
	for _, r := range routes {
		allRoutes[r.ID] = r
	}

	placements := make([]domain.VehiclePlacement, 0, len(vehicles))
	for _, v := range vehicles {
		var (
			stops []domain.Stop
			path  []domain.LatLng
		)
		if view, ok := byID[v.RouteID]; ok {
			stops = view.Route.Stops
			path = view.Path.Points
		} else if r, ok := allRoutes[v.RouteID]; ok {
			stops = r.Stops
		}

		p, ok := m.snapper.PlaceVehicle(v, stops, path)
		if !ok {
			metrics.VehiclePlacements.WithLabelValues("no_position").Inc()
			continue
		}

		switch {
		case p.Snapped:
			metrics.VehiclePlacements.WithLabelValues("snapped").Inc()
		case len(path) >= 2:
			metrics.VehiclePlacements.WithLabelValues("off_route").Inc()
		default:
			metrics.VehiclePlacements.WithLabelValues("no_path").Inc()
		}
		placements = append(placements, p)
	}

	m.log.Debug("map snapshot built", "routes", len(views), "vehicles", len(placements))

	return MapSnapshot{
		Routes:      views,
		Vehicles:    placements,
		GeneratedAt: m.now().UTC(),
	}, nil
}

// RoutePath resolves the path of a single route, active or not.
func (m *LiveMap) RoutePath(ctx context.Context, routeID string) (RouteView, error) {
	routes, err := m.aggregator.LoadRoutes(ctx)
	if err != nil {
		return RouteView{}, fmt.Errorf("route path: %w", err)
	}

	for _, r := range routes {
		if r.ID == routeID {
			return RouteView{Route: r, Path: m.resolver.Resolve(ctx, r)}, nil
		}
	}
	return RouteView{}, fmt.Errorf("route path %q: %w", routeID, ErrRouteNotFound)
}

// Routes returns every route with its stops and waypoints.
func (m *LiveMap) Routes(ctx context.Context) ([]domain.Route, error) {
	return m.aggregator.LoadRoutes(ctx)
}
