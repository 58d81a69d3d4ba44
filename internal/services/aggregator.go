package services

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"transit-map-service/internal/domain"
	"transit-map-service/internal/platform/logging"
	"transit-map-service/internal/ports"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"
)

// RouteAggregator assembles routes with their stops and waypoints from the
// flat lists of the repository.
type RouteAggregator struct {
	repo     ports.RouteRepository
	validate *validator.Validate
	log      logging.Logger
}

func NewRouteAggregator(repo ports.RouteRepository) *RouteAggregator {
	return &RouteAggregator{
		repo:     repo,
		validate: validator.New(),
		log:      logging.Std().Named("aggregator"),
	}
}

// LoadRoutes fetches routes, stops and waypoints concurrently and joins them.
// Any repository error fails the whole load. Rows that fail validation are
// dropped and logged.
func (a *RouteAggregator) LoadRoutes(ctx context.Context) ([]domain.Route, error) {
	var (
		routes    []domain.Route
		stops     []domain.Stop
		waypoints []domain.Waypoint
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		routes, err = a.repo.ListRoutes(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		stops, err = a.repo.ListStops(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		waypoints, err = a.repo.ListWaypoints(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load routes: %w", err)
	}

	routes = keepValid(a, "route", routes, func(r domain.Route) string { return r.ID })
	stops = keepValid(a, "stop", stops, func(s domain.Stop) string { return s.ID })
	waypoints = keepValid(a, "waypoint", waypoints, func(w domain.Waypoint) string { return w.ID })

	return JoinRoutes(routes, stops, waypoints), nil
}

// LoadVehicles fetches all vehicles, dropping invalid rows.
func (a *RouteAggregator) LoadVehicles(ctx context.Context) ([]domain.Vehicle, error) {
	vehicles, err := a.repo.ListVehicles(ctx)
	if err != nil {
		return nil, fmt.Errorf("load vehicles: %w", err)
	}
	return keepValid(a, "vehicle", vehicles, func(v domain.Vehicle) string { return v.ID }), nil
}

func keepValid[T any](a *RouteAggregator, kind string, items []T, id func(T) string) []T {
	out := items[:0:0]
	for _, item := range items {
		if err := a.validate.Struct(item); err != nil {
			a.log.Warn("dropping invalid row", "kind", kind, "id", id(item), "err", err.Error())
			continue
		}
		out = append(out, item)
	}
	return out
}

// JoinRoutes attaches stops and waypoints to their routes by route id.
//
// Stops are ordered by Order with unordered stops last; waypoints by Order.
// Both sorts are stable. Every returned route has non-nil Stops and Waypoints.
// Children whose route is not in routes are dropped. The inputs are not
// modified.
func JoinRoutes(routes []domain.Route, stops []domain.Stop, waypoints []domain.Waypoint) []domain.Route {
	index := make(map[string]int, len(routes))
	out := make([]domain.Route, len(routes))
	for i, r := range routes {
		r.Stops = []domain.Stop{}
		r.Waypoints = []domain.Waypoint{}
		out[i] = r
		index[r.ID] = i
	}

	for _, s := range stops {
		if i, ok := index[s.RouteID]; ok {
			out[i].Stops = append(out[i].Stops, s)
		}
	}
	for _, w := range waypoints {
		if i, ok := index[w.RouteID]; ok {
			out[i].Waypoints = append(out[i].Waypoints, w)
		}
	}

	for i := range out {
		slices.SortStableFunc(out[i].Stops, compareStops)
		slices.SortStableFunc(out[i].Waypoints, func(a, b domain.Waypoint) int {
			return cmp.Compare(a.Order, b.Order)
		})
	}

	return out
}

func compareStops(a, b domain.Stop) int {
	switch {
	case a.Order == nil && b.Order == nil:
		return 0
	case a.Order == nil:
		return 1
	case b.Order == nil:
		return -1
	}
	return cmp.Compare(*a.Order, *b.Order)
}
