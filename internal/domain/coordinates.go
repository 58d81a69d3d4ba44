package domain

import "strconv"

// Immutable geographic point (latitude, longitude) in decimal degrees.
type LatLng struct {
	Lat float64 `json:"lat" yaml:"lat" validate:"latitude"`
	Lng float64 `json:"lng" yaml:"lng" validate:"longitude"`
}

// Return the point as [lng, lat] for GeoJSON-ordered external APIs.
func (p LatLng) LngLat() []float64 { return []float64{p.Lng, p.Lat} }

// Return the point as "lat,lng", the form used in query-string based APIs.
func (p LatLng) String() string {
	return strconv.FormatFloat(p.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lng, 'f', -1, 64)
}
