package services

import (
	"math"
	"transit-map-service/internal/domain"
)

// SnapThresholdDegrees is the default maximum distance, in raw lat/lng degrees,
// between a fix and its projection for the fix to be snapped (about 200 m at
// the equator). Distances are Euclidean in degree space, not geodesic.
const SnapThresholdDegrees = 0.002

// Snapper projects raw vehicle fixes onto resolved route paths.
type Snapper struct {
	Threshold float64
}

func NewSnapper(threshold float64) *Snapper {
	if threshold <= 0 {
		threshold = SnapThresholdDegrees
	}
	return &Snapper{Threshold: threshold}
}

// Snap projects (lat, lng) onto the nearest segment of path.
//
// Every segment is tried with the parametric projection clamped to t in [0,1];
// the strictly closest projection wins, so the first segment wins ties. The
// result is rejected (ok=false) when the path has fewer than two points or the
// best distance is not below the threshold.
func (s *Snapper) Snap(lat, lng float64, path []domain.LatLng) (domain.SnappedPosition, bool) {
	if len(path) < 2 {
		return domain.SnappedPosition{}, false
	}

	raw := domain.LatLng{Lat: lat, Lng: lng}

	bestDist := math.Inf(1)
	var best domain.LatLng
	var bestSeg int

	for i := 0; i+1 < len(path); i++ {
		proj := projectOntoSegment(raw, path[i], path[i+1])
		d := planarDistance(raw, proj)
		if d < bestDist {
			bestDist = d
			best = proj
			bestSeg = i
		}
	}

	if bestDist >= s.Threshold {
		return domain.SnappedPosition{}, false
	}

	return domain.SnappedPosition{
		Position:       best,
		HeadingDegrees: Heading(path[bestSeg], path[bestSeg+1]),
	}, true
}

// Heading returns the map-style heading from a to b in degrees within [0, 360).
//
// It is atan2(Δlng, Δlat): 0° points toward increasing latitude and 90° toward
// increasing longitude. This is not a true compass bearing; the axes are raw
// degrees with no latitude correction. A zero vector yields 0.
func Heading(from, to domain.LatLng) float64 {
	deg := math.Atan2(to.Lng-from.Lng, to.Lat-from.Lat) * 180 / math.Pi
	if deg < 0 {
		deg += 360
	}
	return deg
}

// FallbackHeading derives a heading when no path is available: from the stop
// nearest to raw toward the next stop in order (or the same stop when it is
// the last one). ok is false when there are no stops.
func FallbackHeading(raw domain.LatLng, stops []domain.Stop) (float64, bool) {
	if len(stops) == 0 {
		return 0, false
	}

	nearest := 0
	bestDist := math.Inf(1)
	for i, s := range stops {
		d := planarDistance(raw, s.Position)
		if d < bestDist {
			bestDist = d
			nearest = i
		}
	}

	next := nearest
	if nearest+1 < len(stops) {
		next = nearest + 1
	}

	return Heading(stops[nearest].Position, stops[next].Position), true
}

// PlaceVehicle decides where to draw a vehicle: snapped onto path when
// possible, otherwise at its raw fix with a stop-derived heading (or 0).
// ok is false when the vehicle has no position yet.
func (s *Snapper) PlaceVehicle(v domain.Vehicle, stops []domain.Stop, path []domain.LatLng) (domain.VehiclePlacement, bool) {
	if v.Position == nil {
		return domain.VehiclePlacement{}, false
	}
	raw := *v.Position

	if snapped, ok := s.Snap(raw.Lat, raw.Lng, path); ok {
		return domain.VehiclePlacement{
			Vehicle:        v,
			Position:       snapped.Position,
			HeadingDegrees: snapped.HeadingDegrees,
			Snapped:        true,
		}, true
	}

	heading, _ := FallbackHeading(raw, stops)
	return domain.VehiclePlacement{
		Vehicle:        v,
		Position:       raw,
		HeadingDegrees: heading,
	}, true
}

// projectOntoSegment treats latitude as x and longitude as y.
func projectOntoSegment(p, a, b domain.LatLng) domain.LatLng {
	dx := b.Lat - a.Lat
	dy := b.Lng - a.Lng

	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return a
	}

	t := ((p.Lat-a.Lat)*dx + (p.Lng-a.Lng)*dy) / lenSq
	t = math.Max(0, math.Min(1, t))

	return domain.LatLng{Lat: a.Lat + t*dx, Lng: a.Lng + t*dy}
}

func planarDistance(a, b domain.LatLng) float64 {
	return math.Hypot(a.Lat-b.Lat, a.Lng-b.Lng)
}
