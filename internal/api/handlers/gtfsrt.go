package handlers

import (
	"net/http"
	"transit-map-service/internal/domain"
	"transit-map-service/internal/platform/logging"
	"transit-map-service/internal/platform/obs"
	"transit-map-service/internal/services"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

const gtfsRealtimeVersion = "2.0"

// FeedHandler publishes vehicle placements as a GTFS-realtime
// VehiclePositions feed. ?format=json renders the same message as protojson.
type FeedHandler struct {
	Map MapService
}

func (h *FeedHandler) VehiclePositions(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Map.Snapshot(r.Context())
	if err != nil {
		internalError(w, r, err, "build map snapshot failed")
		return
	}

	feed := BuildVehiclePositionsFeed(snap)

	var (
		b           []byte
		contentType string
	)
	if r.URL.Query().Get("format") == "json" {
		b, err = protojson.MarshalOptions{Multiline: true}.Marshal(feed)
		contentType = "application/json"
	} else {
		b, err = proto.Marshal(feed)
		contentType = "application/x-protobuf"
	}
	if err != nil {
		internalError(w, r, err, "encode gtfs-rt feed failed")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(b); err != nil {
		logging.Std().Warn("write gtfs-rt feed failed", "req_id", obs.RequestID(r.Context()), "err", err.Error())
	}
}

// BuildVehiclePositionsFeed converts placements into a full-dataset feed with
// one entity per vehicle. Bearing is the placement heading.
func BuildVehiclePositionsFeed(snap services.MapSnapshot) *gtfsrtpb.FeedMessage {
	feed := &gtfsrtpb.FeedMessage{
		Header: &gtfsrtpb.FeedHeader{
			GtfsRealtimeVersion: proto.String(gtfsRealtimeVersion),
			Incrementality:      gtfsrtpb.FeedHeader_FULL_DATASET.Enum(),
			Timestamp:           proto.Uint64(uint64(snap.GeneratedAt.Unix())),
		},
		Entity: make([]*gtfsrtpb.FeedEntity, 0, len(snap.Vehicles)),
	}

	for _, p := range snap.Vehicles {
		feed.Entity = append(feed.Entity, &gtfsrtpb.FeedEntity{
			Id:      proto.String(p.Vehicle.ID),
			Vehicle: vehiclePosition(p),
		})
	}

	return feed
}

func vehiclePosition(p domain.VehiclePlacement) *gtfsrtpb.VehiclePosition {
	v := p.Vehicle

	vp := &gtfsrtpb.VehiclePosition{
		Vehicle: &gtfsrtpb.VehicleDescriptor{
			Id: proto.String(v.ID),
		},
		Position: &gtfsrtpb.Position{
			Latitude:  proto.Float32(float32(p.Position.Lat)),
			Longitude: proto.Float32(float32(p.Position.Lng)),
			Bearing:   proto.Float32(float32(p.HeadingDegrees)),
		},
	}
	if v.Label != "" {
		vp.Vehicle.Label = proto.String(v.Label)
	}
	if v.Plate != "" {
		vp.Vehicle.LicensePlate = proto.String(v.Plate)
	}
	if v.RouteID != "" {
		vp.Trip = &gtfsrtpb.TripDescriptor{RouteId: proto.String(v.RouteID)}
	}
	if !v.UpdatedAt.IsZero() {
		vp.Timestamp = proto.Uint64(uint64(v.UpdatedAt.Unix()))
	}
	return vp
}
