package dto

import "time"

type VehicleResponse struct {
	ID             string     `json:"id"`
	RouteID        string     `json:"route_id,omitempty"`
	Label          string     `json:"label"`
	Plate          string     `json:"plate"`
	Status         string     `json:"status"`
	Lat            float64    `json:"lat"`
	Lng            float64    `json:"lng"`
	HeadingDegrees float64    `json:"heading_degrees"`
	Snapped        bool       `json:"snapped"`
	UpdatedAt      *time.Time `json:"updated_at"`
}

type ListVehiclesResponse struct {
	Vehicles    []VehicleResponse `json:"vehicles"`
	GeneratedAt time.Time         `json:"generated_at"`
}

type UpdatePositionRequest struct {
	Lat    *float64 `json:"lat" validate:"required,latitude"`
	Lng    *float64 `json:"lng" validate:"required,longitude"`
	Status string   `json:"status" validate:"omitempty,oneof=active inactive maintenance"`
}
