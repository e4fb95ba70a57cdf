// Package tracking implements the live route tracking core: a route session
// owned by a single controller goroutine that consumes location samples,
// decides when the planned path is stale and reconciles optimized routes back
// onto the delivery records.
package tracking

import (
	"time"

	"delivery-tracking-service/internal/domain"
)

// SessionState is the controller's position in the recalculation state machine.
type SessionState string

const (
	// StateIdle: no path computed yet.
	StateIdle SessionState = "idle"
	// StateComputing: a route request is in flight.
	StateComputing SessionState = "computing"
	// StateTracking: a path is available and drift is being watched.
	StateTracking SessionState = "tracking"
	// StateAwaitingLocation: the positioning capability is unavailable for the
	// rest of the session; no samples will ever arrive.
	StateAwaitingLocation SessionState = "awaiting_location"
)

// routeSession is the controller-owned mutable state of one shift. It is only
// ever touched from the controller goroutine; reads go through Snapshot.
type routeSession struct {
	id        string
	vehicleID string

	origin      domain.Coordinate
	destination domain.Coordinate

	// deliveries is the full externally-owned delivery set as last refreshed;
	// stops is the pending subset still needing a route.
	deliveries []domain.Delivery
	stops      []domain.Delivery

	path         []domain.Coordinate
	orderedStops []domain.Delivery

	state              SessionState
	lastRecalculatedAt time.Time
	inFlight           bool
	lastError          string
	lastFix            *domain.LocationSample
}

func newRouteSession(id string, assignment domain.VehicleAssignment) *routeSession {
	s := &routeSession{
		id:          id,
		vehicleID:   assignment.VehicleID,
		origin:      assignment.Origin,
		destination: assignment.Destination,
		state:       StateIdle,
	}
	s.applyDeliveries(assignment.Deliveries)
	return s
}

// applyDeliveries installs a refreshed delivery set, recomputing the pending
// stops and pruning the ordered sequence so it stays a permutation of them.
// Newly pending deliveries are appended at the end of the ordered sequence
// until the next recalculation places them properly.
func (s *routeSession) applyDeliveries(deliveries []domain.Delivery) {
	s.deliveries = append([]domain.Delivery(nil), deliveries...)

	pending := make([]domain.Delivery, 0, len(deliveries))
	for _, d := range deliveries {
		if !d.Terminal() {
			pending = append(pending, d)
		}
	}
	s.stops = pending

	byID := make(map[string]domain.Delivery, len(pending))
	for _, d := range pending {
		byID[d.ID] = d
	}

	ordered := make([]domain.Delivery, 0, len(pending))
	placed := make(map[string]bool, len(pending))
	for _, d := range s.orderedStops {
		if fresh, ok := byID[d.ID]; ok {
			ordered = append(ordered, fresh)
			placed[d.ID] = true
		}
	}
	for _, d := range pending {
		if !placed[d.ID] {
			ordered = append(ordered, d)
		}
	}
	s.orderedStops = ordered
}

// setDeliveryStatus updates one record in place and reapplies the set so the
// pending stops and ordered sequence stay consistent.
func (s *routeSession) setDeliveryStatus(deliveryID string, status domain.DeliveryStatus) bool {
	found := false
	for i := range s.deliveries {
		if s.deliveries[i].ID == deliveryID {
			s.deliveries[i].Status = status
			found = true
			break
		}
	}
	if found {
		s.applyDeliveries(s.deliveries)
	}
	return found
}

// Snapshot is a read-only copy of the session state served to the UI layer.
type Snapshot struct {
	SessionID string
	VehicleID string

	State       SessionState
	Origin      domain.Coordinate
	Destination domain.Coordinate

	Deliveries   []domain.Delivery
	Stops        []domain.Delivery
	Path         []domain.Coordinate
	OrderedStops []domain.Delivery

	Progress           Progress
	LastRecalculatedAt time.Time
	InFlight           bool
	LastError          string
	LastFix            *domain.LocationSample
}

func (s *routeSession) snapshot() Snapshot {
	snap := Snapshot{
		SessionID:          s.id,
		VehicleID:          s.vehicleID,
		State:              s.state,
		Origin:             s.origin,
		Destination:        s.destination,
		Deliveries:         append([]domain.Delivery(nil), s.deliveries...),
		Stops:              append([]domain.Delivery(nil), s.stops...),
		Path:               append([]domain.Coordinate(nil), s.path...),
		OrderedStops:       append([]domain.Delivery(nil), s.orderedStops...),
		Progress:           ComputeProgress(s.deliveries),
		LastRecalculatedAt: s.lastRecalculatedAt,
		InFlight:           s.inFlight,
		LastError:          s.lastError,
	}
	if s.lastFix != nil {
		fix := *s.lastFix
		snap.LastFix = &fix
	}
	return snap
}
