package dto

import (
	"time"

	"delivery-tracking-service/internal/tracking"
)

type StartSessionRequest struct {
	VehicleID string `json:"vehicle_id"`
	// Date of the assignment, YYYY-MM-DD. Defaults to today.
	Date string `json:"date"`
}

type LocationRequest struct {
	Latitude  float64    `json:"latitude"`
	Longitude float64    `json:"longitude"`
	Timestamp *time.Time `json:"timestamp"`
	// PermissionDenied relays a denied positioning capability instead of a fix.
	PermissionDenied bool `json:"permission_denied"`
}

type LocationAck struct {
	Accepted bool `json:"accepted"`
}

type DeliveryStatusRequest struct {
	Status string `json:"status"`
}

type CoordinateResponse struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type DeliveryResponse struct {
	ID           string             `json:"id"`
	Destination  CoordinateResponse `json:"destination"`
	Status       string             `json:"status"`
	Instructions string             `json:"instructions,omitempty"`
	Street       string             `json:"street,omitempty"`
	Neighborhood string             `json:"neighborhood,omitempty"`
	PostalCode   string             `json:"postal_code,omitempty"`
}

type FixResponse struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
}

type SessionResponse struct {
	SessionID          string               `json:"session_id"`
	VehicleID          string               `json:"vehicle_id"`
	State              string               `json:"state"`
	Origin             CoordinateResponse   `json:"origin"`
	Destination        CoordinateResponse   `json:"destination"`
	Path               []CoordinateResponse `json:"path"`
	Stops              []DeliveryResponse   `json:"stops"`
	OrderedStops       []DeliveryResponse   `json:"ordered_stops"`
	Progress           tracking.Progress    `json:"progress"`
	LastRecalculatedAt *time.Time           `json:"last_recalculated_at,omitempty"`
	InFlight           bool                 `json:"in_flight"`
	LastError          string               `json:"last_error,omitempty"`
	LastFix            *FixResponse         `json:"last_fix,omitempty"`
}
