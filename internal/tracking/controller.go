package tracking

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"delivery-tracking-service/internal/domain"
	"delivery-tracking-service/internal/geo"
	"delivery-tracking-service/internal/platform/obs"
	"delivery-tracking-service/internal/polyline"
	"delivery-tracking-service/internal/ports"
)

// ErrSessionEnded is returned for calls against a controller whose run loop
// has already exited.
var ErrSessionEnded = errors.New("session ended")

// Config is the recalculation and sampling policy of one controller.
type Config struct {
	OffRouteThresholdMeters float64
	Debounce                time.Duration
	RequestTimeout          time.Duration
	Subscription            ports.SubscriptionOptions
}

func (c Config) withDefaults() Config {
	if c.OffRouteThresholdMeters <= 0 {
		c.OffRouteThresholdMeters = 150
	}
	if c.Debounce <= 0 {
		c.Debounce = 10 * time.Second
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 15 * time.Second
	}
	return c
}

type command struct {
	fn   func()
	done chan struct{}
}

type routeResult struct {
	generation uint64
	route      ports.OptimizedRoute
	stops      []domain.Delivery
	coords     []domain.Coordinate
	err        error
}

// Controller owns one routeSession and drives the Idle -> Computing ->
// Tracking state machine. All session mutations happen on the Run goroutine;
// concurrent readers get copies through Snapshot. At most one route request is
// in flight: a newer trigger cancels and supersedes the previous one, and
// stale completions are dropped by generation number.
type Controller struct {
	cfg       Config
	source    ports.LocationSource
	optimizer ports.RouteOptimizer
	reporter  ports.PositionReporter

	session *routeSession

	now func() time.Time

	commands chan command
	results  chan routeResult
	done     chan struct{}

	generation    uint64
	cancelPending context.CancelFunc
	firstFixSeen  bool

	snapMu sync.RWMutex
	snap   Snapshot
}

func NewController(
	sessionID string,
	assignment domain.VehicleAssignment,
	source ports.LocationSource,
	optimizer ports.RouteOptimizer,
	reporter ports.PositionReporter,
	cfg Config,
) *Controller {
	c := &Controller{
		cfg:       cfg.withDefaults(),
		source:    source,
		optimizer: optimizer,
		reporter:  reporter,
		session:   newRouteSession(sessionID, assignment),
		now:       time.Now,
		commands:  make(chan command),
		results:   make(chan routeResult, 1),
		done:      make(chan struct{}),
	}
	c.publish()
	return c
}

// Snapshot returns the most recently published session state.
func (c *Controller) Snapshot() Snapshot {
	c.snapMu.RLock()
	defer c.snapMu.RUnlock()
	return c.snap
}

// Run subscribes to the location source and processes samples, route
// completions and commands until ctx is canceled (end of shift). Any in-flight
// route call is canceled on the way out and session state discarded by the
// owner afterwards.
func (c *Controller) Run(ctx context.Context) error {
	sub, err := c.source.Subscribe(c.cfg.Subscription)
	if err != nil {
		close(c.done)
		return err
	}
	defer sub.Close()
	defer close(c.done)
	defer c.cancelInFlight()

	samples := sub.Samples()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case s, ok := <-samples:
			if !ok {
				c.handleSourceClosed(sub.Err())
				// Keep serving commands and any in-flight completion.
				samples = nil
				continue
			}
			c.handleSample(ctx, s)

		case res := <-c.results:
			c.handleResult(res)

		case cmd := <-c.commands:
			cmd.fn()
			c.publish()
			close(cmd.done)
		}
	}
}

// ReplaceDeliveries installs a freshly fetched delivery set.
func (c *Controller) ReplaceDeliveries(ctx context.Context, deliveries []domain.Delivery) error {
	return c.exec(ctx, func() {
		c.session.applyDeliveries(deliveries)
	})
}

// SetDeliveryStatus applies a delivery-confirmation outcome to the live
// session.
func (c *Controller) SetDeliveryStatus(ctx context.Context, deliveryID string, status domain.DeliveryStatus) error {
	var found bool
	if err := c.exec(ctx, func() {
		found = c.session.setDeliveryStatus(deliveryID, status)
	}); err != nil {
		return err
	}
	if !found {
		return errors.New("set delivery status: unknown delivery " + deliveryID)
	}
	return nil
}

// exec runs fn on the controller goroutine and waits for it to be applied.
func (c *Controller) exec(ctx context.Context, fn func()) error {
	cmd := command{fn: fn, done: make(chan struct{})}
	select {
	case c.commands <- cmd:
	case <-c.done:
		return ErrSessionEnded
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-cmd.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) handleSample(ctx context.Context, s domain.LocationSample) {
	sess := c.session
	fix := s
	sess.lastFix = &fix

	c.reportPosition(s)

	trigger := false
	switch {
	case !c.firstFixSeen:
		// First fix of the session computes regardless of cool-down.
		c.firstFixSeen = true
		trigger = true
	case geo.IsOffRoute(s.Coordinate, sess.path, c.cfg.OffRouteThresholdMeters):
		// Cool-down is measured from the moment the previous request was
		// issued, bounding the attempt rate even under repeated failures.
		trigger = c.now().Sub(sess.lastRecalculatedAt) >= c.cfg.Debounce
	}

	if trigger {
		c.startComputation(ctx, s.Coordinate)
	}
	c.publish()
}

// startComputation supersedes any in-flight request and issues a new one from
// the driver's current position through the pending stops.
func (c *Controller) startComputation(ctx context.Context, from domain.Coordinate) {
	sess := c.session

	c.cancelInFlight()

	c.generation++
	generation := c.generation

	sess.lastRecalculatedAt = c.now()
	sess.inFlight = true
	sess.state = StateComputing

	reqCtx, cancel := context.WithTimeout(obs.WithSession(ctx, sess.id), c.cfg.RequestTimeout)
	c.cancelPending = cancel

	origin := sess.origin
	destination := sess.destination
	stops := append([]domain.Delivery(nil), sess.stops...)
	coords := make([]domain.Coordinate, len(stops))
	for i, d := range stops {
		coords[i] = d.Destination
	}

	go func() {
		route, err := c.optimizer.ComputeRoute(reqCtx, origin, destination, coords)
		res := routeResult{
			generation: generation,
			route:      route,
			stops:      stops,
			coords:     coords,
			err:        err,
		}
		select {
		case c.results <- res:
		case <-c.done:
		}
	}()
}

func (c *Controller) handleResult(res routeResult) {
	// Last trigger wins: a completion superseded by a newer request is
	// silently dropped no matter when it arrives.
	if res.generation != c.generation {
		return
	}

	c.cancelInFlight()
	sess := c.session
	sess.inFlight = false

	if res.err != nil {
		if errors.Is(res.err, context.Canceled) {
			// Supersession signal racing ahead of shutdown; nothing to record.
			return
		}
		log.Printf("session=%s route computation failed: %v", sess.id, res.err)
		sess.lastError = ports.ErrRouteComputation.Error()
		// Remain on the previous guidance so a transient failure never strands
		// the driver: Idle if this was the first attempt, Tracking on the old
		// path otherwise.
		if len(sess.path) == 0 {
			sess.state = StateIdle
		} else {
			sess.state = StateTracking
		}
		c.publish()
		return
	}

	sess.lastError = ""
	sess.path = polyline.Decode(res.route.EncodedPath)
	sess.orderedStops = ReconcileStops(res.route.StopOrder, res.stops, res.coords)
	sess.state = StateTracking
	c.publish()
}

func (c *Controller) handleSourceClosed(err error) {
	if err == nil {
		return
	}
	sess := c.session
	log.Printf("session=%s location source terminated: %v", sess.id, err)
	sess.state = StateAwaitingLocation
	sess.lastError = ports.ErrLocationUnavailable.Error()
	c.publish()
}

func (c *Controller) cancelInFlight() {
	if c.cancelPending != nil {
		c.cancelPending()
		c.cancelPending = nil
	}
}

// reportPosition publishes the fix for dispatcher views without ever blocking
// the tracking loop.
func (c *Controller) reportPosition(s domain.LocationSample) {
	if c.reporter == nil {
		return
	}
	sessionID := c.session.id
	vehicleID := c.session.vehicleID
	go func() {
		ctx, cancel := context.WithTimeout(obs.WithSession(context.Background(), sessionID), 3*time.Second)
		defer cancel()
		if err := c.reporter.Report(ctx, sessionID, vehicleID, s); err != nil {
			log.Printf("session=%s position report failed: %v", sessionID, err)
		}
	}()
}

func (c *Controller) publish() {
	snap := c.session.snapshot()
	c.snapMu.Lock()
	c.snap = snap
	c.snapMu.Unlock()
}
