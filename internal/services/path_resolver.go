package services

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"time"
	"transit-map-service/internal/domain"
	"transit-map-service/internal/platform/logging"
	"transit-map-service/internal/platform/metrics"
	"transit-map-service/internal/ports"

	"golang.org/x/sync/singleflight"
)

// DefaultMaxStopovers is the intermediate-stop cap of common directions
// providers (Google allows 25 waypoints including origin and destination).
const DefaultMaxStopovers = 23

type PathResolverOptions struct {
	// MaxStopovers caps the intermediate stops sent to the provider; <= 0 uses
	// DefaultMaxStopovers. Stops past the cap are dropped from the request.
	MaxStopovers int
	// FallbackTTL is how long a straight-line fallback stays cached before the
	// provider is tried again. Zero disables caching of fallback paths.
	FallbackTTL time.Duration
}

// PathResolver turns a route's stops and waypoints into a drawable path.
//
// Results are memoized in the injected cache under PathCacheKey. Concurrent
// resolutions of one key are collapsed; a race that slips through only costs
// a redundant provider call since results are deterministic.
// The returned Points slice is shared with the cache and must not be modified.
type PathResolver struct {
	provider     ports.DirectionsProvider
	cache        ports.PathCache
	maxStopovers int
	fallbackTTL  time.Duration
	group        singleflight.Group
	log          logging.Logger
}

// NewPathResolver builds a resolver. provider may be nil, in which case every
// stop-based route resolves to its straight-line fallback. cache may be nil to
// disable memoization.
func NewPathResolver(provider ports.DirectionsProvider, cache ports.PathCache, opts PathResolverOptions) *PathResolver {
	maxStopovers := opts.MaxStopovers
	if maxStopovers <= 0 {
		maxStopovers = DefaultMaxStopovers
	}

	return &PathResolver{
		provider:     provider,
		cache:        cache,
		maxStopovers: maxStopovers,
		fallbackTTL:  opts.FallbackTTL,
		log:          logging.Std().Named("path-resolver"),
	}
}

// Resolve returns the drawable path of route. It never fails: waypoints win
// when present, then the directions provider, then straight lines between
// stops. A route with no waypoints and fewer than two stops yields an empty
// path with source none.
//
// Stops are taken in their Order, not slice order. The shared resolution runs
// detached from ctx so that one caller giving up does not degrade the result
// for the others; a caller whose ctx ends first gets an uncached local path.
func (r *PathResolver) Resolve(ctx context.Context, route domain.Route) domain.ResolvedPath {
	if len(route.Waypoints) == 0 && len(route.Stops) < 2 {
		metrics.PathResolutions.WithLabelValues(string(domain.PathSourceNone)).Inc()
		return domain.ResolvedPath{Points: []domain.LatLng{}, Source: domain.PathSourceNone}
	}

	route.Stops = sortedStops(route.Stops)
	key := PathCacheKey(route)
	if path, ok := r.lookup(ctx, key); ok {
		return path
	}
	if ctx.Err() != nil {
		return r.local(route)
	}

	flightCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(key, func() (any, error) {
		path, cacheable := r.compute(flightCtx, route)
		if cacheable {
			r.store(flightCtx, key, path)
		}
		return path, nil
	})

	select {
	case res := <-ch:
		return res.Val.(domain.ResolvedPath)
	case <-ctx.Done():
		return r.local(route)
	}
}

// local resolves without the provider or the cache.
func (r *PathResolver) local(route domain.Route) domain.ResolvedPath {
	if len(route.Waypoints) > 0 {
		metrics.PathResolutions.WithLabelValues(string(domain.PathSourceWaypoints)).Inc()
		return domain.ResolvedPath{Points: waypointPoints(route.Waypoints), Source: domain.PathSourceWaypoints}
	}
	metrics.PathResolutions.WithLabelValues(string(domain.PathSourceFallback)).Inc()
	return domain.ResolvedPath{Points: route.StopPositions(), Source: domain.PathSourceFallback}
}

func (r *PathResolver) lookup(ctx context.Context, key string) (domain.ResolvedPath, bool) {
	if r.cache == nil {
		return domain.ResolvedPath{}, false
	}

	path, ok, err := r.cache.Get(ctx, key)
	if err != nil {
		metrics.PathCacheLookups.WithLabelValues("error").Inc()
		r.log.Warn("path cache read failed", "key", key, "err", err.Error())
		return domain.ResolvedPath{}, false
	}
	if !ok {
		metrics.PathCacheLookups.WithLabelValues("miss").Inc()
		return domain.ResolvedPath{}, false
	}

	metrics.PathCacheLookups.WithLabelValues("hit").Inc()
	return path, true
}

func (r *PathResolver) store(ctx context.Context, key string, path domain.ResolvedPath) {
	if r.cache == nil {
		return
	}

	var ttl time.Duration
	if path.Source == domain.PathSourceFallback {
		if r.fallbackTTL <= 0 {
			return
		}
		ttl = r.fallbackTTL
	}

	if err := r.cache.Set(ctx, key, path, ttl); err != nil {
		r.log.Warn("path cache write failed", "key", key, "err", err.Error())
	}
}

// compute resolves the path without consulting the cache. route.Stops must
// already be in stop order. cacheable is false when the provider failed with
// a context error; that fallback says nothing about the route and must not be
// remembered.
func (r *PathResolver) compute(ctx context.Context, route domain.Route) (_ domain.ResolvedPath, cacheable bool) {
	if len(route.Waypoints) > 0 {
		metrics.PathResolutions.WithLabelValues(string(domain.PathSourceWaypoints)).Inc()
		return domain.ResolvedPath{Points: waypointPoints(route.Waypoints), Source: domain.PathSourceWaypoints}, true
	}

	stops := route.StopPositions()

	if r.provider != nil {
		origin := stops[0]
		destination := stops[len(stops)-1]
		stopovers := stops[1 : len(stops)-1]
		if len(stopovers) > r.maxStopovers {
			stopovers = stopovers[:r.maxStopovers]
		}

		points, err := r.provider.Directions(ctx, origin, destination, stopovers)
		if err == nil && len(points) < 2 {
			err = errors.New("provider returned fewer than two points")
		}
		if err == nil {
			metrics.PathResolutions.WithLabelValues(string(domain.PathSourceDirections)).Inc()
			return domain.ResolvedPath{Points: points, Source: domain.PathSourceDirections}, true
		}

		r.log.Warn("directions failed, using straight-line path",
			"route_id", route.ID, "stops", len(stops), "err", err.Error())
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			metrics.PathResolutions.WithLabelValues(string(domain.PathSourceFallback)).Inc()
			return domain.ResolvedPath{Points: stops, Source: domain.PathSourceFallback}, false
		}
	}

	metrics.PathResolutions.WithLabelValues(string(domain.PathSourceFallback)).Inc()
	return domain.ResolvedPath{Points: stops, Source: domain.PathSourceFallback}, true
}

// sortedStops returns a copy of stops ordered by Order, unordered stops last.
func sortedStops(stops []domain.Stop) []domain.Stop {
	sorted := slices.Clone(stops)
	slices.SortStableFunc(sorted, compareStops)
	return sorted
}

func waypointPoints(waypoints []domain.Waypoint) []domain.LatLng {
	sorted := slices.Clone(waypoints)
	slices.SortStableFunc(sorted, func(a, b domain.Waypoint) int {
		return cmp.Compare(a.Order, b.Order)
	})

	out := make([]domain.LatLng, 0, len(sorted))
	for _, w := range sorted {
		out = append(out, w.Position)
	}
	return out
}
