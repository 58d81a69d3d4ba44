package domain

// Represents a named transit line.
// Stops are kept in visiting order; when Waypoints is non-empty it fully
// determines the drawable path and stops are not used as path vertices.
type Route struct {
	ID             string `validate:"required"`
	Name           string
	Color          string
	Identification string
	Active         bool
	Stops          []Stop
	Waypoints      []Waypoint
}

// A fixed point served by a route. Order is optional; stops without an
// order key sort after the ordered ones.
type Stop struct {
	ID       string `validate:"required"`
	RouteID  string `validate:"required"`
	Name     string
	Position LatLng
	Order    *int
}

// A manually authored path vertex.
type Waypoint struct {
	ID       string `validate:"required"`
	RouteID  string `validate:"required"`
	Position LatLng
	Order    int
}

// StopPositions returns the stop coordinates in the route's stop order.
func (r Route) StopPositions() []LatLng {
	out := make([]LatLng, 0, len(r.Stops))
	for _, s := range r.Stops {
		out = append(out, s.Position)
	}
	return out
}

// PathSource tells how a ResolvedPath was produced.
type PathSource string

const (
	PathSourceNone       PathSource = "none"
	PathSourceWaypoints  PathSource = "waypoints"
	PathSourceDirections PathSource = "directions"
	PathSourceFallback   PathSource = "fallback"
)

// The drawable line for one route. Derived data, never persisted to the store.
type ResolvedPath struct {
	Points []LatLng   `json:"points"`
	Source PathSource `json:"source"`
}

// Drawable reports whether the path has at least one segment.
func (p ResolvedPath) Drawable() bool { return len(p.Points) >= 2 }
