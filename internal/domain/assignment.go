package domain

import "time"

// The day's delivery assignment for one scanned vehicle: the set of packages
// loaded onto it plus the fixed start and end points of the shift.
type VehicleAssignment struct {
	VehicleID   string
	Date        time.Time
	Origin      Coordinate
	Destination Coordinate
	Deliveries  []Delivery
}

// PendingDeliveries returns the deliveries still needing a stop on the route.
func (a VehicleAssignment) PendingDeliveries() []Delivery {
	out := make([]Delivery, 0, len(a.Deliveries))
	for _, d := range a.Deliveries {
		if !d.Terminal() {
			out = append(out, d)
		}
	}
	return out
}
