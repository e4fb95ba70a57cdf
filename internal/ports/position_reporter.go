package ports

import (
	"context"

	"delivery-tracking-service/internal/domain"
)

// Port: best-effort publication of the latest driver position for dispatcher
// views. Reporting failures never block or fail the tracking loop.
type PositionReporter interface {
	Report(ctx context.Context, sessionID, vehicleID string, sample domain.LocationSample) error
}
