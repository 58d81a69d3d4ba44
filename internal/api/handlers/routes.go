package handlers

import (
	"errors"
	"net/http"
	"transit-map-service/internal/api/dto"
	"transit-map-service/internal/domain"
	"transit-map-service/internal/services"

	"github.com/gorilla/mux"
	"github.com/twpayne/go-polyline"
)

// RouteHandler exposes routes and their resolved paths.
type RouteHandler struct {
	Map MapService
}

func (h *RouteHandler) List(w http.ResponseWriter, r *http.Request) {
	routes, err := h.Map.Routes(r.Context())
	if err != nil {
		internalError(w, r, err, "list routes failed")
		return
	}

	res := dto.ListRoutesResponse{Routes: make([]dto.RouteResponse, 0, len(routes))}
	for _, rt := range routes {
		res.Routes = append(res.Routes, toRouteResponse(rt))
	}

	writeJSON(w, r, http.StatusOK, res)
}

func (h *RouteHandler) Path(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	view, err := h.Map.RoutePath(r.Context(), id)
	if errors.Is(err, services.ErrRouteNotFound) {
		writeError(w, r, http.StatusNotFound, "route not found")
		return
	}
	if err != nil {
		internalError(w, r, err, "resolve route path failed")
		return
	}

	res := dto.RoutePathResponse{
		RouteID:  view.Route.ID,
		Source:   string(view.Path.Source),
		Points:   make([]dto.LatLngResponse, 0, len(view.Path.Points)),
		Polyline: encodePolyline(view.Path.Points),
	}
	for _, p := range view.Path.Points {
		res.Points = append(res.Points, dto.LatLngResponse{Lat: p.Lat, Lng: p.Lng})
	}

	writeJSON(w, r, http.StatusOK, res)
}

func toRouteResponse(rt domain.Route) dto.RouteResponse {
	out := dto.RouteResponse{
		ID:             rt.ID,
		Name:           rt.Name,
		Color:          rt.Color,
		Identification: rt.Identification,
		Active:         rt.Active,
		Stops:          make([]dto.StopResponse, 0, len(rt.Stops)),
		Waypoints:      make([]dto.WaypointResponse, 0, len(rt.Waypoints)),
	}
	for _, s := range rt.Stops {
		out.Stops = append(out.Stops, dto.StopResponse{
			ID:    s.ID,
			Name:  s.Name,
			Lat:   s.Position.Lat,
			Lng:   s.Position.Lng,
			Order: s.Order,
		})
	}
	for _, wp := range rt.Waypoints {
		out.Waypoints = append(out.Waypoints, dto.WaypointResponse{
			ID:    wp.ID,
			Lat:   wp.Position.Lat,
			Lng:   wp.Position.Lng,
			Order: wp.Order,
		})
	}
	return out
}

func encodePolyline(points []domain.LatLng) string {
	coords := make([][]float64, 0, len(points))
	for _, p := range points {
		coords = append(coords, []float64{p.Lat, p.Lng})
	}
	return string(polyline.EncodeCoords(coords))
}
