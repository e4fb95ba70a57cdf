package ports

import "errors"

// Sentinel errors crossing component boundaries. Only ErrRouteComputation and
// ErrLocationUnavailable are ever surfaced to the driver; cancellation is an
// internal supersession signal and is absorbed by the tracking controller.
var (
	// ErrRouteComputation is the single generic failure for transient network
	// or service errors while computing a route.
	ErrRouteComputation = errors.New("could not compute route")

	// ErrLocationUnavailable is the terminal signal of a location source whose
	// positioning capability was denied. No retry happens below the UI.
	ErrLocationUnavailable = errors.New("location source unavailable")

	// ErrSessionNotFound is returned for lookups of unknown or ended sessions.
	ErrSessionNotFound = errors.New("session not found")

	// ErrAssignmentNotFound is returned when a vehicle has no deliveries
	// assigned for the requested date.
	ErrAssignmentNotFound = errors.New("assignment not found")
)
