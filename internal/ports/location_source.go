package ports

import (
	"time"

	"delivery-tracking-service/internal/domain"
)

// Sampling policy applied at the source. Samples that arrive sooner than
// MinInterval or closer than MinDisplacementMeters to the previously delivered
// fix are suppressed before they reach the subscriber.
type SubscriptionOptions struct {
	MinInterval           time.Duration
	MinDisplacementMeters float64
}

// A live, long-lived stream of position samples. Samples never "completes" on
// its own; it is closed when the subscription is closed or when the source
// fails terminally, in which case Err reports the cause
// (ErrLocationUnavailable for a denied positioning capability).
type Subscription interface {
	Samples() <-chan domain.LocationSample
	Err() error
	// Close stops sampling and releases the underlying sensor. Safe to call
	// more than once.
	Close()
}

// Port: a boundary over the device positioning capability. Ownership of the
// underlying sensor is exclusive per subscription.
type LocationSource interface {
	Subscribe(opts SubscriptionOptions) (Subscription, error)
}

// A LocationSource fed by the transport layer: fixes posted by the driver's
// device are pushed in, and a denied positioning permission is relayed as the
// terminal unavailable signal.
type PushableSource interface {
	LocationSource
	// Push offers a fix to the active subscription; false means it was
	// suppressed by the sampling policy or nobody is listening.
	Push(sample domain.LocationSample) bool
	// MarkUnavailable terminally fails the active subscription with
	// ErrLocationUnavailable.
	MarkUnavailable()
}
