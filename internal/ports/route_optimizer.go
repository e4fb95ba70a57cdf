package ports

import (
	"context"

	"delivery-tracking-service/internal/domain"
)

// Result of one optimization call: the encoded path to follow and the visiting
// order of the intermediate stops.
type OptimizedRoute struct {
	// EncodedPath is the polyline-encoded line the driver should follow.
	EncodedPath string

	// StopOrder[i] is the index into the requested stops of the i-th stop to
	// visit. A single-stop request may come back as [-1], a service quirk
	// meaning "no permutation needed"; callers must not index with it.
	StopOrder []int
}

// Contract for one outbound call to the external routing/optimization service.
//
// The call is bounded and abortable through ctx. On cancellation the returned
// error wraps context.Canceled and represents supersession, not failure; any
// other failure wraps ErrRouteComputation. Retry policy belongs to the caller.
type RouteOptimizer interface {
	ComputeRoute(ctx context.Context, origin, destination domain.Coordinate, stops []domain.Coordinate) (OptimizedRoute, error)
}
