package domain

// DeliveryStatus is the lifecycle state of a single package drop-off.
type DeliveryStatus string

const (
	StatusPending   DeliveryStatus = "pending"
	StatusEnRoute   DeliveryStatus = "en_route"
	StatusDelivered DeliveryStatus = "delivered"
	StatusFailed    DeliveryStatus = "failed"
)

// ValidStatus reports whether s is one of the known delivery statuses.
func ValidStatus(s DeliveryStatus) bool {
	switch s {
	case StatusPending, StatusEnRoute, StatusDelivered, StatusFailed:
		return true
	}
	return false
}

// Represents a single package to be dropped off during a shift.
// The record is owned by the assignment backend; the tracking core reads the
// destination and status and never touches the display-only address fields.
type Delivery struct {
	ID           string
	Destination  Coordinate
	Status       DeliveryStatus
	Instructions string
	Street       string
	Neighborhood string
	PostalCode   string
}

// Terminal reports whether the delivery no longer needs a stop on the route.
func (d Delivery) Terminal() bool {
	return d.Status == StatusDelivered || d.Status == StatusFailed
}
