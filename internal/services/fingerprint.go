package services

import (
	"strconv"
	"transit-map-service/internal/domain"

	"github.com/cespare/xxhash/v2"
)

// PathCacheKey returns the cache key for a route's resolved path:
// "route:<id>:<fingerprint>". The fingerprint covers stop and waypoint
// coordinates with their order keys, so any coordinate or ordering change
// yields a new key and the stale entry is simply never read again.
func PathCacheKey(route domain.Route) string {
	return "route:" + route.ID + ":" + Fingerprint(route)
}

// Fingerprint hashes the geometry-relevant content of a route.
func Fingerprint(route domain.Route) string {
	d := xxhash.New()
	buf := make([]byte, 0, 64)

	buf = append(buf, 's')
	_, _ = d.Write(buf)
	for _, s := range sortedStops(route.Stops) {
		buf = appendPoint(buf[:0], s.Position)
		if s.Order != nil {
			buf = strconv.AppendInt(buf, int64(*s.Order), 10)
		} else {
			buf = append(buf, '-')
		}
		buf = append(buf, ';')
		_, _ = d.Write(buf)
	}

	buf = append(buf[:0], '|', 'w')
	_, _ = d.Write(buf)
	for _, w := range route.Waypoints {
		buf = appendPoint(buf[:0], w.Position)
		buf = strconv.AppendInt(buf, int64(w.Order), 10)
		buf = append(buf, ';')
		_, _ = d.Write(buf)
	}

	return strconv.FormatUint(d.Sum64(), 16)
}

func appendPoint(buf []byte, p domain.LatLng) []byte {
	buf = strconv.AppendFloat(buf, p.Lat, 'g', -1, 64)
	buf = append(buf, ',')
	buf = strconv.AppendFloat(buf, p.Lng, 'g', -1, 64)
	return append(buf, ';')
}
