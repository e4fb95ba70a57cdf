package ports

import (
	"context"
	"time"

	"delivery-tracking-service/internal/domain"
)

// Port: boundary for the delivery-assignment backend. The tracking core treats
// the assignment as an externally owned, periodically re-fetched snapshot.
type DeliveryRepository interface {
	// GetAssignment returns the day's assignment for a scanned vehicle.
	GetAssignment(ctx context.Context, vehicleID string, date time.Time) (domain.VehicleAssignment, error)

	// UpdateDeliveryStatus records the outcome of a delivery-confirmation
	// action for a single package.
	UpdateDeliveryStatus(ctx context.Context, deliveryID string, status domain.DeliveryStatus) error
}
