package dto

type LatLngResponse struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type StopResponse struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Order *int    `json:"order"`
}

type WaypointResponse struct {
	ID    string  `json:"id"`
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Order int     `json:"order"`
}

type RouteResponse struct {
	ID             string             `json:"id"`
	Name           string             `json:"name"`
	Color          string             `json:"color"`
	Identification string             `json:"identification"`
	Active         bool               `json:"active"`
	Stops          []StopResponse     `json:"stops"`
	Waypoints      []WaypointResponse `json:"waypoints"`
}

type ListRoutesResponse struct {
	Routes []RouteResponse `json:"routes"`
}

// RoutePathResponse carries the path twice: as points and as a precision-5
// encoded polyline for map widgets that accept one.
type RoutePathResponse struct {
	RouteID  string           `json:"route_id"`
	Source   string           `json:"source"`
	Points   []LatLngResponse `json:"points"`
	Polyline string           `json:"polyline"`
}
