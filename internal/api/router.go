package api

import (
	"net/http"
	"transit-map-service/internal/api/handlers"
	"transit-map-service/internal/ports"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps are the collaborators the HTTP layer needs.
type Deps struct {
	Map       handlers.MapService
	Positions ports.VehiclePositionWriter
	// DB is optional; when set /health also pings the store.
	DB handlers.Pinger
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(deps Deps) http.Handler {
	r := mux.NewRouter()
	r.Use(requestIDMiddleware, loggingMiddleware, metricsMiddleware)

	health := &handlers.HealthHandler{DB: deps.DB}
	routes := &handlers.RouteHandler{Map: deps.Map}
	vehicles := handlers.NewVehicleHandler(deps.Map, deps.Positions)
	mapView := &handlers.MapHandler{Map: deps.Map}
	feed := &handlers.FeedHandler{Map: deps.Map}

	r.HandleFunc("/health", health.Health).Methods(http.MethodGet)
	r.HandleFunc("/routes", routes.List).Methods(http.MethodGet)
	r.HandleFunc("/routes/{id}/path", routes.Path).Methods(http.MethodGet)
	r.HandleFunc("/vehicles", vehicles.List).Methods(http.MethodGet)
	r.HandleFunc("/vehicles/{id}/position", vehicles.UpdatePosition).Methods(http.MethodPut)
	r.HandleFunc("/map.geojson", mapView.GeoJSON).Methods(http.MethodGet)
	r.HandleFunc("/gtfs-rt/vehicle-positions", feed.VehiclePositions).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return r
}
