package handlers

import (
	"errors"
	"net/http"
	"strings"
	"transit-map-service/internal/api/dto"
	"transit-map-service/internal/domain"
	"transit-map-service/internal/ports"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

// VehicleHandler serves vehicle placements and accepts driver-side fixes.
type VehicleHandler struct {
	Map       MapService
	Positions ports.VehiclePositionWriter
	Validate  *validator.Validate
}

func NewVehicleHandler(m MapService, positions ports.VehiclePositionWriter) *VehicleHandler {
	return &VehicleHandler{Map: m, Positions: positions, Validate: validator.New()}
}

func (h *VehicleHandler) List(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Map.Snapshot(r.Context())
	if err != nil {
		internalError(w, r, err, "list vehicles failed")
		return
	}

	res := dto.ListVehiclesResponse{
		Vehicles:    make([]dto.VehicleResponse, 0, len(snap.Vehicles)),
		GeneratedAt: snap.GeneratedAt,
	}
	for _, p := range snap.Vehicles {
		res.Vehicles = append(res.Vehicles, toVehicleResponse(p))
	}

	writeJSON(w, r, http.StatusOK, res)
}

func (h *VehicleHandler) UpdatePosition(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(mux.Vars(r)["id"])
	if id == "" {
		writeError(w, r, http.StatusBadRequest, "vehicle id is required")
		return
	}

	var req dto.UpdatePositionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		writeError(w, r, http.StatusBadRequest, "lat and lng are required and must be valid coordinates; status must be active, inactive or maintenance")
		return
	}

	pos := domain.LatLng{Lat: *req.Lat, Lng: *req.Lng}
	err := h.Positions.UpdateVehiclePosition(r.Context(), id, pos, domain.VehicleStatus(req.Status))
	if errors.Is(err, ports.ErrVehicleNotFound) {
		writeError(w, r, http.StatusNotFound, "vehicle not found")
		return
	}
	if err != nil {
		internalError(w, r, err, "update vehicle position failed")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func toVehicleResponse(p domain.VehiclePlacement) dto.VehicleResponse {
	v := p.Vehicle
	out := dto.VehicleResponse{
		ID:             v.ID,
		RouteID:        v.RouteID,
		Label:          v.Label,
		Plate:          v.Plate,
		Status:         string(v.Status),
		Lat:            p.Position.Lat,
		Lng:            p.Position.Lng,
		HeadingDegrees: p.HeadingDegrees,
		Snapped:        p.Snapped,
	}
	if !v.UpdatedAt.IsZero() {
		t := v.UpdatedAt
		out.UpdatedAt = &t
	}
	return out
}
