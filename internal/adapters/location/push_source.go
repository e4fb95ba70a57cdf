// Package location adapts device positioning pushed over the transport into
// the LocationSource stream contract.
package location

import (
	"errors"
	"sync"
	"time"

	"delivery-tracking-service/internal/domain"
	"delivery-tracking-service/internal/geo"
	"delivery-tracking-service/internal/ports"
)

// PushSource is a LocationSource fed externally: the driver's device posts
// fixes and Push delivers them to the active subscription. Ownership is
// exclusive: at most one subscription is open at a time.
type PushSource struct {
	mu  sync.Mutex
	sub *pushSubscription
}

func NewPushSource() *PushSource {
	return &PushSource{}
}

// Subscribe opens the sampling stream. Fails if a subscription is already
// open; the previous one must be closed first.
func (s *PushSource) Subscribe(opts ports.SubscriptionOptions) (ports.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sub != nil {
		return nil, errors.New("location source: already subscribed")
	}

	sub := &pushSubscription{
		source:  s,
		opts:    opts,
		samples: make(chan domain.LocationSample, 16),
	}
	s.sub = sub
	return sub, nil
}

// Push offers a fix to the active subscription. Returns false when the sample
// was suppressed by the sampling policy, the stream buffer was full, or no
// subscription is open.
func (s *PushSource) Push(sample domain.LocationSample) bool {
	s.mu.Lock()
	sub := s.sub
	s.mu.Unlock()

	if sub == nil {
		return false
	}
	return sub.deliver(sample)
}

// MarkUnavailable signals that the positioning capability was denied. The
// active subscription terminates with ErrLocationUnavailable and no further
// samples are ever delivered to it.
func (s *PushSource) MarkUnavailable() {
	s.mu.Lock()
	sub := s.sub
	s.mu.Unlock()

	if sub != nil {
		sub.fail(ports.ErrLocationUnavailable)
	}
}

type pushSubscription struct {
	source *PushSource
	opts   ports.SubscriptionOptions

	mu       sync.Mutex
	samples  chan domain.LocationSample
	closed   bool
	err      error
	hasLast  bool
	last     domain.Coordinate
	lastTime time.Time
}

func (p *pushSubscription) Samples() <-chan domain.LocationSample {
	return p.samples
}

func (p *pushSubscription) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *pushSubscription) Close() {
	p.closeWith(nil)
}

func (p *pushSubscription) fail(err error) {
	p.closeWith(err)
}

func (p *pushSubscription) closeWith(err error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.err = err
	close(p.samples)
	p.mu.Unlock()

	// Release the sensor so a future session can subscribe again.
	p.source.mu.Lock()
	if p.source.sub == p {
		p.source.sub = nil
	}
	p.source.mu.Unlock()
}

// deliver applies the interval and displacement policy before handing the
// sample to the subscriber. The first fix is always delivered.
func (p *pushSubscription) deliver(sample domain.LocationSample) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return false
	}

	if p.hasLast {
		if p.opts.MinInterval > 0 && sample.Timestamp.Sub(p.lastTime) < p.opts.MinInterval {
			return false
		}
		if p.opts.MinDisplacementMeters > 0 &&
			geo.DistanceMeters(p.last, sample.Coordinate) < p.opts.MinDisplacementMeters {
			return false
		}
	}

	select {
	case p.samples <- sample:
		p.hasLast = true
		p.last = sample.Coordinate
		p.lastTime = sample.Timestamp
		return true
	default:
		// Consumer is behind; dropping the fix is safer than blocking the
		// transport handler.
		return false
	}
}
