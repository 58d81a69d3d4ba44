package handlers

import (
	"net/http"
	"transit-map-service/internal/platform/logging"
	"transit-map-service/internal/platform/obs"
	"transit-map-service/internal/services"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// MapHandler renders the live map as a GeoJSON FeatureCollection.
type MapHandler struct {
	Map MapService
}

func (h *MapHandler) GeoJSON(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Map.Snapshot(r.Context())
	if err != nil {
		internalError(w, r, err, "build map snapshot failed")
		return
	}

	b, err := BuildFeatureCollection(snap).MarshalJSON()
	if err != nil {
		internalError(w, r, err, "encode geojson failed")
		return
	}

	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(b); err != nil {
		logging.Std().Warn("write geojson failed", "req_id", obs.RequestID(r.Context()), "err", err.Error())
	}
}

// BuildFeatureCollection emits one LineString per drawable route path, one
// Point per stop of the drawn routes and one Point per placed vehicle.
// GeoJSON positions are [lng, lat].
func BuildFeatureCollection(snap services.MapSnapshot) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	for _, view := range snap.Routes {
		rt := view.Route

		if view.Path.Drawable() {
			line := make(orb.LineString, 0, len(view.Path.Points))
			for _, p := range view.Path.Points {
				line = append(line, orb.Point{p.Lng, p.Lat})
			}
			f := geojson.NewFeature(line)
			f.ID = rt.ID
			f.Properties["kind"] = "route"
			f.Properties["route_id"] = rt.ID
			f.Properties["name"] = rt.Name
			f.Properties["color"] = rt.Color
			f.Properties["identification"] = rt.Identification
			f.Properties["source"] = string(view.Path.Source)
			fc.Append(f)
		}

		for _, s := range rt.Stops {
			f := geojson.NewFeature(orb.Point{s.Position.Lng, s.Position.Lat})
			f.ID = s.ID
			f.Properties["kind"] = "stop"
			f.Properties["route_id"] = rt.ID
			f.Properties["name"] = s.Name
			fc.Append(f)
		}
	}

	for _, p := range snap.Vehicles {
		f := geojson.NewFeature(orb.Point{p.Position.Lng, p.Position.Lat})
		f.ID = p.Vehicle.ID
		f.Properties["kind"] = "vehicle"
		f.Properties["route_id"] = p.Vehicle.RouteID
		f.Properties["label"] = p.Vehicle.Label
		f.Properties["status"] = string(p.Vehicle.Status)
		f.Properties["heading"] = p.HeadingDegrees
		f.Properties["snapped"] = p.Snapped
		fc.Append(f)
	}

	return fc
}
