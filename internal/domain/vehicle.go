package domain

import "time"

type VehicleStatus string

const (
	VehicleStatusActive      VehicleStatus = "active"
	VehicleStatusInactive    VehicleStatus = "inactive"
	VehicleStatusMaintenance VehicleStatus = "maintenance"
)

// A live vehicle as reported by the driver side. Position is nil until the
// first location update; RouteID is empty when the vehicle has no route.
type Vehicle struct {
	ID        string `validate:"required"`
	RouteID   string
	Position  *LatLng
	Status    VehicleStatus `validate:"omitempty,oneof=active inactive maintenance"`
	Label     string
	Plate     string
	UpdatedAt time.Time
}

// A raw fix projected onto a route path.
type SnappedPosition struct {
	Position       LatLng
	HeadingDegrees float64
}

// Where and how to draw a vehicle marker. Snapped is false when the raw fix
// is shown unmodified.
type VehiclePlacement struct {
	Vehicle        Vehicle
	Position       LatLng
	HeadingDegrees float64
	Snapped        bool
}
